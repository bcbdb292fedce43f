package broker

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisPrefix = "realtime:"

// Redis is a broker over Redis pub/sub.
type Redis struct {
	rdb goredis.UniversalClient
	log *zerolog.Logger
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string, logger *zerolog.Logger) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &Redis{rdb: rdb, log: logger}, nil
}

// Publish implements Broker.
func (r *Redis) Publish(ctx context.Context, channel, event string) error {
	if !validChannel(channel) {
		return fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}
	if err := r.rdb.Publish(ctx, redisPrefix+channel, event).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run implements Broker.
func (r *Redis) Run(ctx context.Context, h Handler) error {
	ps := r.rdb.PSubscribe(ctx, redisPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	r.log.Info().Str("pattern", redisPrefix+"*").Msg("redis broker subscribed")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			channel, found := strings.CutPrefix(msg.Channel, redisPrefix)
			if !found {
				continue
			}
			h(ctx, Delivery{Channel: channel, Event: msg.Payload})
		}
	}
}

// Close implements Broker.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
