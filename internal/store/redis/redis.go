// Package redis implements store.Store on Redis. Room metadata and messages
// carry a key expiry at the room deadline, so abandoned rooms vanish even
// if no reaper runs; the rooms:expiry sorted set lets a reaper find them.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vovakirdan/burnroom/internal/store"
)

const expiryKey = "rooms:expiry"

// ErrRoomExists is returned when a room id is already registered.
var ErrRoomExists = errors.New("room already exists")

func metaKey(id string) string     { return "meta:" + id }
func messagesKey(id string) string { return "messages:" + id }

// RedisStore implements store.Store for Redis.
type RedisStore struct {
	rdb   goredis.UniversalClient
	clock clock.Clock
}

// New connects to addr and verifies the connection.
func New(ctx context.Context, addr string, clk clock.Clock) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewWithClient(rdb, clk), nil
}

// NewWithClient wraps an existing client. The store takes ownership of it.
func NewWithClient(rdb goredis.UniversalClient, clk clock.Clock) *RedisStore {
	if clk == nil {
		clk = clock.New()
	}
	return &RedisStore{rdb: rdb, clock: clk}
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// ==== RoomStore implementation ====

// CreateRoom registers a room expiring ttl from now.
func (s *RedisStore) CreateRoom(ctx context.Context, id string, ttl time.Duration) (*store.Room, error) {
	now := s.clock.Now()
	room := &store.Room{ID: id, CreatedAt: now, ExpiresAt: now.Add(ttl)}

	key := metaKey(id)
	create := func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", ErrRoomExists, id)
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.HSet(ctx, key, "created_at", now.UnixMilli(), "expires_at", room.ExpiresAt.UnixMilli())
			p.PExpireAt(ctx, key, room.ExpiresAt)
			p.ZAdd(ctx, expiryKey, goredis.Z{Score: float64(room.ExpiresAt.UnixMilli()), Member: id})
			return nil
		})
		return err
	}

	// the key is written only by the MULTI block, so a failure leaves nothing behind
	err := s.rdb.Watch(ctx, create, key)
	switch {
	case err == nil:
		return room, nil
	case errors.Is(err, ErrRoomExists):
		return nil, err
	case errors.Is(err, goredis.TxFailedErr):
		// another caller created the key between EXISTS and EXEC
		return nil, fmt.Errorf("%w: %s", ErrRoomExists, id)
	default:
		return nil, fmt.Errorf("create room: %w", err)
	}
}

// GetRoom returns a live room.
func (s *RedisStore) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	fields, err := s.rdb.HGetAll(ctx, metaKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if len(fields) == 0 {
		return nil, store.ErrRoomNotFound
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of %s: %w", id, err)
	}
	expires, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse expires_at of %s: %w", id, err)
	}
	room := &store.Room{ID: id, CreatedAt: time.UnixMilli(created), ExpiresAt: time.UnixMilli(expires)}
	if !room.ExpiresAt.After(s.clock.Now()) {
		return nil, store.ErrRoomNotFound
	}
	return room, nil
}

// DeleteRoom removes a live room and its messages.
func (s *RedisStore) DeleteRoom(ctx context.Context, id string) error {
	if _, err := s.GetRoom(ctx, id); err != nil {
		return err
	}
	if _, err := s.remove(ctx, id); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

// ExpireRooms removes rooms past their deadline. A room is reported by
// exactly one caller when several instances share the database.
func (s *RedisStore) ExpireRooms(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, expiryKey, &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("query expired rooms: %w", err)
	}

	var expired []string
	for _, id := range ids {
		removed, err := s.remove(ctx, id)
		if err != nil {
			return expired, fmt.Errorf("expire room %s: %w", id, err)
		}
		if removed {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

// remove deletes a room's keys and reports whether this call took it off
// the expiry index.
func (s *RedisStore) remove(ctx context.Context, id string) (bool, error) {
	var zrem *goredis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, metaKey(id), messagesKey(id))
		zrem = p.ZRem(ctx, expiryKey, id)
		return nil
	})
	if err != nil {
		return false, err
	}
	return zrem.Val() > 0, nil
}

// ==== MessageStore implementation ====

type storedMessage struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// SaveMessage appends a message to a live room.
func (s *RedisStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	room, err := s.GetRoom(ctx, msg.RoomID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(storedMessage{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Text:      msg.Text,
		Timestamp: msg.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.RPush(ctx, messagesKey(msg.RoomID), data)
		p.PExpireAt(ctx, messagesKey(msg.RoomID), room.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// ListMessages returns a live room's messages oldest first.
func (s *RedisStore) ListMessages(ctx context.Context, roomID string) ([]store.Message, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			return []store.Message{}, nil
		}
		return nil, err
	}
	raw, err := s.rdb.LRange(ctx, messagesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return decodeMessages(roomID, raw)
}

func decodeMessages(roomID string, raw []string) ([]store.Message, error) {
	messages := make([]store.Message, 0, len(raw))
	for _, item := range raw {
		var sm storedMessage
		if err := json.Unmarshal([]byte(item), &sm); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		messages = append(messages, store.Message{
			ID:        sm.ID,
			RoomID:    roomID,
			Sender:    sm.Sender,
			Text:      sm.Text,
			CreatedAt: time.UnixMilli(sm.Timestamp),
		})
	}
	slices.SortStableFunc(messages, func(a, b store.Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return messages, nil
}
