package protocol

// Observer feed message types.
const (
	TypeSubscribe = "SUBSCRIBE"
	TypeCommand   = "COMMAND"
)

// CommandEntry is the record kept for every payload the listener delivered, whether or
// not it decoded and dispatched cleanly.
type CommandEntry struct {
	ID       string   `json:"id"`
	Tick     uint64   `json:"tick"`
	At       string   `json:"at"`
	Remote   string   `json:"remote,omitempty"`
	Raw      string   `json:"raw"`
	Name     string   `json:"name"`
	Params   []string `json:"params"`
	Code     string   `json:"code,omitempty"`
	Error    string   `json:"error,omitempty"`
	Attempts int      `json:"attempts,omitempty"`
	Calls    []string `json:"calls,omitempty"`

	Notification *NotificationEntry `json:"notification,omitempty"`
}

// OK reports whether the command ran without a recorded failure.
func (e CommandEntry) OK() bool { return e.Code == "" }

type NotificationEntry struct {
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	Severity string  `json:"severity"`
	Focus    *[2]int `json:"focus,omitempty"`
}

// SUBSCRIBE (observer -> server)
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	FailuresOnly    bool   `json:"failures_only,omitempty"`
}

// COMMAND (server -> observer)
type CommandMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Entry           CommandEntry `json:"entry"`
}
