package core

import "github.com/vovakirdan/burnroom/internal/proto"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventUnknown is an event name the hub does not route.
	EventUnknown EventKind = iota
	// EventChatMessage tells subscribers the room's message list changed.
	EventChatMessage
	// EventChatDestroy tells subscribers the room is gone.
	EventChatDestroy
	// EventSubscribed confirms a subscribe command.
	EventSubscribed
	// EventError notifies a client about a protocol error.
	EventError
)

// Name returns the wire name of a routable event kind.
func (k EventKind) Name() string {
	switch k {
	case EventChatMessage:
		return proto.EventChatMessage
	case EventChatDestroy:
		return proto.EventChatDestroy
	default:
		return ""
	}
}

// ParseEventKind maps a wire event name to an EventKind.
func ParseEventKind(name string) EventKind {
	switch name {
	case proto.EventChatMessage:
		return EventChatMessage
	case proto.EventChatDestroy:
		return EventChatDestroy
	default:
		return EventUnknown
	}
}

// Event is sent to clients to describe what happened in the system.
// Room events carry no payload: clients refetch over HTTP.
type Event struct {
	Kind    EventKind
	Channel string
	Error   *CoreError
}
