// Package broker carries room events between server instances. Every
// instance publishes the events its HTTP handlers produce and delivers
// everything it receives, its own events included, to the local hub.
package broker

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidChannel is returned for channel names a transport cannot carry.
var ErrInvalidChannel = errors.New("invalid channel")

// Delivery is one room event as seen by subscribers.
type Delivery struct {
	Channel string
	Event   string
}

// Handler consumes deliveries. It is called from the Run goroutine.
type Handler func(ctx context.Context, d Delivery)

// Broker publishes and consumes room events.
type Broker interface {
	// Publish sends event on channel.
	Publish(ctx context.Context, channel, event string) error
	// Run delivers events to h until ctx is done.
	Run(ctx context.Context, h Handler) error
	Close() error
}

func validChannel(channel string) bool {
	return channel != "" && !strings.ContainsAny(channel, ".*> \t\r\n")
}
