package stm

// EventType tags events so a state can pick among its outgoing
// transitions. Values are chosen by the user of the machine.
type EventType int

// EventState records how far an event got.
type EventState uint8

const (
	// Pending events have not reached a state yet.
	Pending EventState = iota
	// Accepted events entered a state.
	Accepted
	// Aborted events hit a missing or unrecognised target, or a choice
	// with no branch taken.
	Aborted
	// Ignored events found no transition in the current state.
	Ignored
)

func (s EventState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Accepted:
		return "accepted"
	case Aborted:
		return "aborted"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Event travels through the graph. Data carries whatever the actions and
// guards of a particular machine agree on.
type Event struct {
	Type  EventType
	Data  any
	state EventState
}

// NewEvent returns a pending event.
func NewEvent(t EventType, data any) *Event {
	return &Event{Type: t, Data: data}
}

// State returns the outcome of the last traversal.
func (e *Event) State() EventState {
	return e.state
}

func (e *Event) setState(s EventState) {
	e.state = s
}
