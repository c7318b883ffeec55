package protocol

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		CodeBind,
		CodeRead,
		CodeEmpty,
		CodeUnknown,
		CodeNoFaction,
		CodeNoLocation,
		CodeUnknownDef,
		CodeHandler,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestCodeOf_Wrapped(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("listen :12345: %w", ErrBind), CodeBind},
		{fmt.Errorf("read from 127.0.0.1:5000: %w: i/o timeout", ErrRead), CodeRead},
		{ErrEmptyMessage, CodeEmpty},
		{fmt.Errorf("%w: %q", ErrUnknownCommand, "dance"), CodeUnknown},
		{fmt.Errorf("raid: %w", ErrNoEligibleFaction), CodeNoFaction},
		{fmt.Errorf("boom: %w", ErrNoValidLocation), CodeNoLocation},
		{fmt.Errorf("item Bogus: %w", ErrUnknownDef), CodeUnknownDef},
		{errors.New("nil map"), CodeHandler},
	}
	for _, tc := range cases {
		if got := CodeOf(tc.err); got != tc.want {
			t.Fatalf("CodeOf(%v)=%q want=%q", tc.err, got, tc.want)
		}
		if !IsKnownCode(CodeOf(tc.err)) {
			t.Fatalf("CodeOf(%v) produced unknown code", tc.err)
		}
	}
}
