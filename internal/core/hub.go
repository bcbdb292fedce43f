package core

import (
	"context"

	"github.com/rs/zerolog"
)

type clientCommand struct {
	client *Client
	cmd    *Command
}

// Hub tracks realtime clients and fans room events out to subscribers.
// All state is owned by the Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	publish    chan *Event
	stopped    chan struct{}

	clients map[*Client]struct{}
	rooms   map[string]*Room
	log     *zerolog.Logger
}

// NewHub creates a new hub. Call Run to start it.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan clientCommand, 64),
		publish:    make(chan *Event, 256),
		stopped:    make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]*Room),
		log:        logger,
	}
}

// Run processes registrations, commands and published events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			go h.pump(c)
			h.log.Debug().Str("client_id", c.ID).Msg("client registered")
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.log.Debug().Str("client_id", c.ID).Msg("client unregistered")
			}
		case cc := <-h.commands:
			if _, ok := h.clients[cc.client]; ok {
				h.handle(cc.client, cc.cmd)
			}
		case ev := <-h.publish:
			h.broadcast(ev)
		}
	}
}

// RegisterClient adds a client. Its Commands are processed until it is unregistered.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
	}
}

// UnregisterClient removes a client and closes its Events channel.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Publish queues a room event for fan-out.
func (h *Hub) Publish(ev Event) error {
	select {
	case <-h.stopped:
		return ErrHubStopped
	default:
	}
	select {
	case h.publish <- &ev:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	}
}

// pump forwards a client's commands to the hub goroutine.
func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-c.quit:
				return
			case <-h.stopped:
				return
			}
		case <-c.quit:
			return
		case <-h.stopped:
			return
		}
	}
}

func (h *Hub) handle(c *Client, cmd *Command) {
	if cmd == nil || len(cmd.Channels) == 0 {
		h.sendError(c, coreError(ErrCodeBadRequest, "channels are required"))
		return
	}

	switch cmd.Kind {
	case CommandSubscribe:
		for _, name := range cmd.Channels {
			room, ok := h.rooms[name]
			if !ok {
				room = NewRoom(name)
				h.rooms[name] = room
			}
			room.AddClient(c, cmd.Events)
			c.channels[name] = struct{}{}
		}
		h.log.Debug().Str("client_id", c.ID).Strs("channels", cmd.Channels).Msg("client subscribed")
		h.send(c, &Event{Kind: EventSubscribed})
	case CommandUnsubscribe:
		for _, name := range cmd.Channels {
			if _, ok := c.channels[name]; !ok {
				h.sendError(c, coreError(ErrCodeNotSubscribed, ErrNotSubscribed.Error()+": "+name))
				continue
			}
			h.leave(c, name)
		}
	default:
		h.sendError(c, coreError(ErrCodeBadRequest, "unknown command"))
	}
}

func (h *Hub) broadcast(ev *Event) {
	if ev.Kind != EventChatMessage && ev.Kind != EventChatDestroy {
		h.log.Warn().Int("kind", int(ev.Kind)).Str("channel", ev.Channel).Msg("dropping unroutable event")
		return
	}
	room, ok := h.rooms[ev.Channel]
	if !ok {
		return
	}
	delivered := room.Broadcast(ev)
	h.log.Debug().Str("channel", ev.Channel).Str("event", ev.Kind.Name()).Int("delivered", delivered).Msg("event broadcast")

	// nothing more is published on a destroyed room
	if ev.Kind == EventChatDestroy {
		for c := range room.clients {
			delete(c.channels, ev.Channel)
		}
		delete(h.rooms, ev.Channel)
	}
}

func (h *Hub) leave(c *Client, name string) {
	delete(c.channels, name)
	room, ok := h.rooms[name]
	if !ok {
		return
	}
	room.RemoveClient(c)
	if room.Empty() {
		delete(h.rooms, name)
	}
}

func (h *Hub) drop(c *Client) {
	for name := range c.channels {
		h.leave(c, name)
	}
	delete(h.clients, c)
	close(c.quit)
	close(c.Events)
}

func (h *Hub) send(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		h.log.Warn().Str("client_id", c.ID).Msg("client event buffer full, dropping")
	}
}

func (h *Hub) sendError(c *Client, err *CoreError) {
	h.send(c, &Event{Kind: EventError, Error: err})
}
