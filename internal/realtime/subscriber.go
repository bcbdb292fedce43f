package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Transport opens event streams. Implementations deliver events in the order
// they were received and close the Events channel when the stream ends.
type Transport interface {
	Subscribe(ctx context.Context, channels []string, kinds []Kind) (Stream, error)
}

// Stream is one open subscription on a transport.
type Stream interface {
	Events() <-chan Event
	Close() error
}

// Subscriber opens room subscriptions over a transport.
type Subscriber struct {
	transport Transport
	log       *zerolog.Logger
}

// NewSubscriber creates a subscriber.
func NewSubscriber(transport Transport, logger *zerolog.Logger) *Subscriber {
	return &Subscriber{transport: transport, log: logger}
}

// Subscribe opens a subscription to roomID for the given kinds.
func (s *Subscriber) Subscribe(ctx context.Context, roomID string, kinds ...Kind) (*Subscription, error) {
	stream, err := s.transport.Subscribe(ctx, []string{roomID}, kinds)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", roomID, err)
	}
	s.log.Debug().Str("room_id", roomID).Int("kinds", len(kinds)).Msg("realtime subscription opened")
	return &Subscription{roomID: roomID, stream: stream, log: s.log}, nil
}

// Subscription is a scoped realtime subscription. Release must be called when
// the room view ends, however it ends.
type Subscription struct {
	roomID string
	stream Stream
	log    *zerolog.Logger

	once sync.Once
	err  error
}

// RoomID returns the subscribed room.
func (s *Subscription) RoomID() string {
	return s.roomID
}

// Events returns the event stream. It is closed when the transport gives up
// or after Release.
func (s *Subscription) Events() <-chan Event {
	return s.stream.Events()
}

// Release closes the underlying stream. Safe to call more than once.
func (s *Subscription) Release() error {
	s.once.Do(func() {
		s.err = s.stream.Close()
		s.log.Debug().Str("room_id", s.roomID).Msg("realtime subscription released")
	})
	return s.err
}
