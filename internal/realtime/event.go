package realtime

import "github.com/vovakirdan/burnroom/internal/proto"

// Kind is the closed set of realtime event kinds a room view reacts to.
type Kind int

const (
	// KindUnknown is any event name this client does not understand.
	KindUnknown Kind = iota
	// KindMessage signals that the room's message list changed.
	KindMessage
	// KindDestroy signals that the room was destroyed.
	KindDestroy
	// KindResync is emitted locally after a reconnect. Events may have been
	// missed, so all room state must be refetched.
	KindResync
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return proto.EventChatMessage
	case KindDestroy:
		return proto.EventChatDestroy
	case KindResync:
		return "resync"
	default:
		return "unknown"
	}
}

// ParseKind maps a wire event name to a Kind.
func ParseKind(name string) Kind {
	switch name {
	case proto.EventChatMessage:
		return KindMessage
	case proto.EventChatDestroy:
		return KindDestroy
	default:
		return KindUnknown
	}
}

// Event is a payload-free notification scoped to a room channel.
type Event struct {
	Channel string
	Kind    Kind
}
