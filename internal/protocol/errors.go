package protocol

import "errors"

var (
	ErrBind              = errors.New("listener bind failed")
	ErrRead              = errors.New("payload read failed")
	ErrEmptyMessage      = errors.New("empty message")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrNoEligibleFaction = errors.New("no eligible faction")
	ErrNoValidLocation   = errors.New("no valid location")
	ErrHandlerFailure    = errors.New("handler failure")
	ErrUnknownDef        = errors.New("unknown def")
)

const (
	// Transport.
	CodeBind      = "E_BIND"
	CodeRead      = "E_READ"
	CodeEmpty     = "E_EMPTY_MESSAGE"
	CodeUnknown   = "E_UNKNOWN_COMMAND"
	CodeNoFaction = "E_NO_ELIGIBLE_FACTION"

	// Handler layer.
	CodeNoLocation = "E_NO_VALID_LOCATION"
	CodeUnknownDef = "E_UNKNOWN_DEF"
	CodeHandler    = "E_HANDLER_FAILURE"
)

var knownCodes = map[string]struct{}{
	CodeBind:       {},
	CodeRead:       {},
	CodeEmpty:      {},
	CodeUnknown:    {},
	CodeNoFaction:  {},
	CodeNoLocation: {},
	CodeUnknownDef: {},
	CodeHandler:    {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeOf maps err to its stable code. A nil error has the empty code; anything
// unrecognised counts as a handler failure.
func CodeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBind):
		return CodeBind
	case errors.Is(err, ErrRead):
		return CodeRead
	case errors.Is(err, ErrEmptyMessage):
		return CodeEmpty
	case errors.Is(err, ErrUnknownCommand):
		return CodeUnknown
	case errors.Is(err, ErrNoEligibleFaction):
		return CodeNoFaction
	case errors.Is(err, ErrNoValidLocation):
		return CodeNoLocation
	case errors.Is(err, ErrUnknownDef):
		return CodeUnknownDef
	default:
		return CodeHandler
	}
}
