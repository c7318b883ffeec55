package protocol

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const Version = "1.0"

const (
	// Separator splits the command name from its parameters on the wire.
	Separator = ":"
	quote     = "\""
)

var nameFolder = cases.Lower(language.Und)

// Command is one decoded inbound payload.
type Command struct {
	Name   string
	Params []string
}

// Param returns the i-th parameter and whether it was sent.
func (c Command) Param(i int) (string, bool) {
	if i < 0 || i >= len(c.Params) {
		return "", false
	}
	return c.Params[i], true
}

func (c Command) String() string {
	if len(c.Params) == 0 {
		return c.Name
	}
	return c.Name + Separator + strings.Join(c.Params, Separator)
}

// Decode turns a raw payload into a Command.
//
// Bytes outside 7-bit ASCII decode as '?'. All double quotes are removed, trailing
// whitespace is trimmed and the rest is split on ':'. Parameters keep their case and
// are not unescaped, so a parameter cannot itself contain ':'.
//
// An empty (or all-separator) payload still yields one segment, so it decodes to a
// Command with an empty name; only a nil payload is rejected with ErrEmptyMessage.
func Decode(raw []byte) (Command, error) {
	if raw == nil {
		return Command{}, ErrEmptyMessage
	}
	text := strings.ReplaceAll(ASCII(raw), quote, "")
	text = strings.TrimRightFunc(text, unicode.IsSpace)

	parts := strings.Split(text, Separator)
	if len(parts) == 0 {
		return Command{}, ErrEmptyMessage
	}
	params := make([]string, 0, len(parts)-1)
	params = append(params, parts[1:]...)
	return Command{
		Name:   nameFolder.String(parts[0]),
		Params: params,
	}, nil
}

// ASCII decodes b as 7-bit ASCII, substituting '?' for anything wider.
func ASCII(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c > unicode.MaxASCII {
			sb.WriteByte('?')
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
