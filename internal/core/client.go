package core

// Client is a realtime connection as seen by the core layer.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	// channels the client is subscribed to, owned by the hub goroutine
	channels map[string]struct{}
	quit     chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 16),
		channels: make(map[string]struct{}),
		quit:     make(chan struct{}),
	}
}
