// Package feed fetches and sends room messages and holds the list a room
// view renders.
package feed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/burnroom/internal/room"
)

// MessageAPI is the server surface the feed needs.
type MessageAPI interface {
	Messages(ctx context.Context, roomID string) ([]room.Message, error)
	PostMessage(ctx context.Context, roomID, sender, text string) (room.Message, error)
}

// Client lists and sends messages. It keeps no state between calls.
type Client struct {
	api MessageAPI
	log *zerolog.Logger
}

// NewClient creates a feed client.
func NewClient(api MessageAPI, logger *zerolog.Logger) *Client {
	return &Client{api: api, log: logger}
}

// List returns the room's messages ordered by timestamp. Messages with equal
// timestamps keep server order.
func (c *Client) List(ctx context.Context, roomID string) ([]room.Message, error) {
	msgs, err := c.api.Messages(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", ensure(err, room.ErrFetchFailed))
	}
	slices.SortStableFunc(msgs, func(a, b room.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return msgs, nil
}

// Send posts text as sender. Blank text fails with room.ErrEmptyMessage
// without touching the network. Callers clear their draft with ClearIf once
// they accept the result.
func (c *Client) Send(ctx context.Context, roomID, sender, text string) (room.Message, error) {
	if strings.TrimSpace(text) == "" {
		return room.Message{}, room.ErrEmptyMessage
	}

	msg, err := c.api.PostMessage(ctx, roomID, sender, text)
	if err != nil {
		c.log.Debug().Err(err).Str("room_id", roomID).Msg("send failed, keeping draft")
		return room.Message{}, fmt.Errorf("send message: %w", ensure(err, room.ErrSendFailed))
	}
	return msg, nil
}

// ensure makes err match kind under errors.Is.
func ensure(err, kind error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Draft is the pending input of a room view.
type Draft struct {
	mu   sync.Mutex
	text string
}

// NewDraft creates a draft holding text.
func NewDraft(text string) *Draft {
	return &Draft{text: text}
}

// Text returns the current draft text.
func (d *Draft) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Set replaces the draft text.
func (d *Draft) Set(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
}

// ClearIf clears the draft unless it was edited after sent was taken from it.
func (d *Draft) ClearIf(sent string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.text == sent {
		d.text = ""
	}
}

// Feed is the message list shown by a room view. Each refresh takes a
// sequence number from Begin; Apply ignores results older than the last
// applied one. Feed is owned by a single goroutine.
type Feed struct {
	seq      uint64
	applied  uint64
	messages []room.Message
}

// Begin reserves a sequence number for a refresh about to start.
func (f *Feed) Begin() uint64 {
	f.seq++
	return f.seq
}

// Apply installs msgs fetched by refresh seq and reports whether it did.
func (f *Feed) Apply(seq uint64, msgs []room.Message) bool {
	if seq <= f.applied {
		return false
	}
	f.applied = seq
	f.messages = msgs
	return true
}

// Messages returns a copy of the current list.
func (f *Feed) Messages() []room.Message {
	return slices.Clone(f.messages)
}
