package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by a closed local broker.
var ErrClosed = errors.New("broker closed")

// Local is an in-process broker for single instance deployments.
type Local struct {
	queue chan Delivery

	once   sync.Once
	closed chan struct{}
}

// NewLocal creates a local broker buffering up to size undelivered events.
func NewLocal(size int) *Local {
	if size <= 0 {
		size = 256
	}
	return &Local{
		queue:  make(chan Delivery, size),
		closed: make(chan struct{}),
	}
}

// Publish implements Broker.
func (l *Local) Publish(ctx context.Context, channel, event string) error {
	if !validChannel(channel) {
		return fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}
	select {
	case <-l.closed:
		return ErrClosed
	default:
	}
	select {
	case l.queue <- Delivery{Channel: channel, Event: event}:
		return nil
	case <-l.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run implements Broker.
func (l *Local) Run(ctx context.Context, h Handler) error {
	for {
		select {
		case d := <-l.queue:
			h(ctx, d)
		case <-ctx.Done():
			return nil
		case <-l.closed:
			return nil
		}
	}
}

// Close implements Broker.
func (l *Local) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}
