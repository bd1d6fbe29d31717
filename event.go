package banter

// State is a stage of the submit lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateStreaming State = "streaming"
	StateError     State = "error"
)

// Busy reports whether a turn is in flight.
func (s State) Busy() bool { return s == StateSending || s == StateStreaming }

// Event is a sealed interface representing a controller notification.
// Handlers receive events on the goroutine running Submit.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventState signals a state transition.
type EventState struct {
	State State
}

func (EventState) event() {}

// EventTurn signals that a turn was appended to the conversation.
type EventTurn struct {
	ID   string
	Role Role
}

func (EventTurn) event() {}

// EventChunk signals that text was appended to a streaming turn.
type EventChunk struct {
	ID   string
	Text string
}

func (EventChunk) event() {}

// Interface compliance checks.
var (
	_ Event = EventState{}
	_ Event = EventTurn{}
	_ Event = EventChunk{}
)
