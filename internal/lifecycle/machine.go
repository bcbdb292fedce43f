package lifecycle

import "github.com/vovakirdan/burnroom/internal/room"

// State is the lifecycle position of a room view.
type State int

const (
	// StateEntering means the subscription and initial fetches are being set up.
	StateEntering State = iota
	// StateActive means the room is live and events are processed.
	StateActive
	// StateDestroyed means the room ended. Terminal.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateEntering:
		return "entering"
	case StateActive:
		return "active"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// machine guards the room view transitions. Only exit reaches StateDestroyed,
// and it succeeds once.
type machine struct {
	state  State
	reason room.EndReason
}

func (m *machine) activate() bool {
	if m.state != StateEntering {
		return false
	}
	m.state = StateActive
	return true
}

func (m *machine) exit(reason room.EndReason) bool {
	if m.state == StateDestroyed {
		return false
	}
	m.state = StateDestroyed
	m.reason = reason
	return true
}
