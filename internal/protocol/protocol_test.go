package protocol

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecode_NameAndParams(t *testing.T) {
	cases := []struct {
		raw    string
		name   string
		params []string
	}{
		{"raid", "raid", []string{}},
		{"RAID", "raid", []string{}},
		{"itempods:Steel", "itempods", []string{"Steel"}},
		{"Weather:Rain", "weather", []string{"Rain"}},
		{"message:Hi:Body text", "message", []string{"Hi", "Body text"}},
		{`"message":"Hi":"Body text"`, "message", []string{"Hi", "Body text"}},
		{"wanderer:Mc\"Fly\"", "wanderer", []string{"McFly"}},
		{"boom \r\n", "boom", []string{}},
		{"message:Hi:  \t\n", "message", []string{"Hi", ""}},
		{"message:  Hi  :Body", "message", []string{"  Hi  ", "Body"}},
	}
	for _, tc := range cases {
		cmd, err := Decode([]byte(tc.raw))
		if err != nil {
			t.Fatalf("Decode(%q): %v", tc.raw, err)
		}
		if cmd.Name != tc.name {
			t.Fatalf("Decode(%q) name=%q want=%q", tc.raw, cmd.Name, tc.name)
		}
		if !reflect.DeepEqual(cmd.Params, tc.params) {
			t.Fatalf("Decode(%q) params=%q want=%q", tc.raw, cmd.Params, tc.params)
		}
	}
}

func TestDecode_EmptyAndSeparatorsOnly(t *testing.T) {
	empty, err := Decode([]byte{})
	if err != nil {
		t.Fatalf("Decode(\"\"): %v", err)
	}
	if empty.Name != "" || len(empty.Params) != 0 {
		t.Fatalf("Decode(\"\")=%+v", empty)
	}

	seps, err := Decode([]byte(":::"))
	if err != nil {
		t.Fatalf("Decode(\":::\"): %v", err)
	}
	if seps.Name != "" {
		t.Fatalf("Decode(\":::\") name=%q want empty", seps.Name)
	}
	if !reflect.DeepEqual(seps.Params, []string{"", "", ""}) {
		t.Fatalf("Decode(\":::\") params=%q", seps.Params)
	}

	if _, err := Decode(nil); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("Decode(nil) err=%v want ErrEmptyMessage", err)
	}
}

func TestDecode_ColonInParameterIsSplit(t *testing.T) {
	cmd, err := Decode([]byte("message:Time:12:30"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(cmd.Params, []string{"Time", "12", "30"}) {
		t.Fatalf("params=%q", cmd.Params)
	}
}

func TestDecode_NonASCIIBecomesQuestionMark(t *testing.T) {
	cmd, err := Decode([]byte("wanderer:Zo\xc3\xab"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got, _ := cmd.Param(0); got != "Zo??" {
		t.Fatalf("param=%q want=%q", got, "Zo??")
	}
}

func TestCommand_ParamAndString(t *testing.T) {
	cmd := Command{Name: "message", Params: []string{"Hi", "there"}}
	if p, ok := cmd.Param(1); !ok || p != "there" {
		t.Fatalf("Param(1)=%q,%v", p, ok)
	}
	if _, ok := cmd.Param(2); ok {
		t.Fatalf("Param(2) should be absent")
	}
	if _, ok := cmd.Param(-1); ok {
		t.Fatalf("Param(-1) should be absent")
	}
	if cmd.String() != "message:Hi:there" {
		t.Fatalf("String()=%q", cmd.String())
	}
	if (Command{Name: "raid"}).String() != "raid" {
		t.Fatalf("String() without params")
	}
}
