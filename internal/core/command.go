package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSubscribe subscribes the client to room channels.
	CommandSubscribe CommandKind = iota
	// CommandUnsubscribe removes the client from room channels.
	CommandUnsubscribe
)

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Channels []string
	// Events limits a subscription to these kinds; empty means all.
	Events []EventKind
}
