package realtime

import "github.com/rs/zerolog"

// Handler reacts to one event. Handlers run on the caller's goroutine and must not block.
type Handler func(Event)

// Dispatcher routes events of one channel to a handler per kind.
type Dispatcher struct {
	channel  string
	handlers map[Kind]Handler
	log      *zerolog.Logger
}

// NewDispatcher creates a dispatcher for events on channel.
func NewDispatcher(channel string, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		channel:  channel,
		handlers: make(map[Kind]Handler),
		log:      logger,
	}
}

// Handle registers the handler for kind, replacing any previous one.
func (d *Dispatcher) Handle(kind Kind, h Handler) {
	d.handlers[kind] = h
}

// Dispatch runs the handler registered for ev.Kind and reports whether one ran.
// Events for other channels and kinds without a handler are dropped.
// Duplicates are not filtered.
func (d *Dispatcher) Dispatch(ev Event) bool {
	if ev.Channel != d.channel {
		d.log.Debug().Str("channel", ev.Channel).Msg("dropping event for foreign channel")
		return false
	}
	h, ok := d.handlers[ev.Kind]
	if !ok {
		return false
	}
	h(ev)
	return true
}
