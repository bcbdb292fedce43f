package store

import (
	"context"
	"errors"
	"time"
)

// ErrRoomNotFound is returned for rooms that never existed, expired or were destroyed.
var ErrRoomNotFound = errors.New("room not found")

// Room is a registered ephemeral room.
type Room struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// TTL returns the whole seconds left at now, never negative.
func (r *Room) TTL(now time.Time) int {
	left := r.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

// Message is a persisted chat message.
type Message struct {
	ID        string
	RoomID    string
	Sender    string
	Text      string
	CreatedAt time.Time
}

// RoomStore is the room registry.
type RoomStore interface {
	// CreateRoom registers id with a lifetime of ttl.
	CreateRoom(ctx context.Context, id string, ttl time.Duration) (*Room, error)
	// GetRoom returns a live room. Expired rooms are reported as ErrRoomNotFound.
	GetRoom(ctx context.Context, id string) (*Room, error)
	// DeleteRoom removes a room and its messages.
	DeleteRoom(ctx context.Context, id string) error
	// ExpireRooms removes every room whose deadline is not after now and
	// returns their ids.
	ExpireRooms(ctx context.Context, now time.Time) ([]string, error)
}

// MessageStore holds the messages of live rooms.
type MessageStore interface {
	// SaveMessage appends msg to its room.
	SaveMessage(ctx context.Context, msg *Message) error
	// ListMessages returns a room's messages oldest first.
	ListMessages(ctx context.Context, roomID string) ([]Message, error)
}

// Store combines all storage interfaces.
type Store interface {
	RoomStore
	MessageStore
	Close() error
}
