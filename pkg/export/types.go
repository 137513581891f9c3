package export

// RunState describes where an export run is in its lifecycle.
type RunState string

// Constants representing the defined run states.
const (
	StateIdle       RunState = "idle"
	StateValidating RunState = "validating"
	StateRunning    RunState = "running"
	StateCompleted  RunState = "completed"
	StateAborted    RunState = "aborted"
	StateFailed     RunState = "failed"
)

// MessageKind classifies notifications sent through the Hooks interface.
type MessageKind string

const (
	MessageInfo    MessageKind = "info"
	MessageWarning MessageKind = "warning"
	MessageError   MessageKind = "error"
	MessageAppend  MessageKind = "append"
)

// Status describes the terminal processing state of a single file.
type Status string

// Constants representing the defined per-file statuses.
const (
	StatusPending Status = "pending"
	StatusMatched Status = "matched"
	StatusNoMatch Status = "no_match"
	StatusFailed  Status = "failed"
)

// Row is one normalized CSV output row, keyed by column name. Every row
// produced by the processor carries the Filename column; the sink ignores
// keys outside the computed column set and fills absent columns with an
// empty string.
type Row map[string]string
