// Package reaper destroys rooms whose lifetime has elapsed.
package reaper

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/burnroom/internal/metrics"
	"github.com/vovakirdan/burnroom/internal/proto"
)

// Expirer removes rooms whose deadline is at or before now and returns their ids.
type Expirer interface {
	ExpireRooms(ctx context.Context, now time.Time) ([]string, error)
}

// Publisher announces a realtime event on a room channel.
type Publisher interface {
	Publish(ctx context.Context, channel, event string) error
}

// Reaper periodically expires rooms and announces their destruction.
type Reaper struct {
	store    Expirer
	pub      Publisher
	metrics  *metrics.Metrics
	clock    clock.Clock
	interval time.Duration
	log      *zerolog.Logger
}

// New creates a reaper. A nil clock uses wall time; m may be nil.
func New(st Expirer, pub Publisher, m *metrics.Metrics, clk clock.Clock, interval time.Duration, logger *zerolog.Logger) *Reaper {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Reaper{store: st, pub: pub, metrics: m, clock: clk, interval: interval, log: logger}
}

// Run sweeps every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := r.clock.Ticker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep expires due rooms once and returns how many were destroyed. Rooms
// removed before a store failure are still announced.
func (r *Reaper) Sweep(ctx context.Context) int {
	ids, err := r.store.ExpireRooms(ctx, r.clock.Now())
	if err != nil {
		r.log.Error().Err(err).Int("expired", len(ids)).Msg("expire rooms failed")
	}
	for _, id := range ids {
		if err := r.pub.Publish(ctx, id, proto.EventChatDestroy); err != nil {
			r.log.Warn().Err(err).Str("room_id", id).Msg("failed to publish destroy event")
		}
		if r.metrics != nil {
			r.metrics.RoomsDestroyed.WithLabelValues(metrics.ReasonExpired).Inc()
		}
		r.log.Info().Str("room_id", id).Str("reason", metrics.ReasonExpired).Msg("room destroyed")
	}
	return len(ids)
}
