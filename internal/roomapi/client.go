// Package roomapi is the HTTP client for the room registry and message store.
package roomapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vovakirdan/burnroom/internal/proto"
	"github.com/vovakirdan/burnroom/internal/room"
)

// Client talks to the /api endpoints of a burnroom server.
type Client struct {
	base *url.URL
	http *http.Client
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Message)
}

// New builds a client for serverURL (for example http://localhost:8080).
func New(serverURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server url scheme %q", base.Scheme)
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
	}, nil
}

// CreateRoom asks the server for a new room and returns its id.
func (c *Client) CreateRoom(ctx context.Context) (string, error) {
	var resp proto.CreateRoomResponse
	if err := c.do(ctx, http.MethodPost, "/api/rooms/create", nil, nil, &resp); err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	return resp.RoomID, nil
}

// TTL returns the authoritative remaining lifetime of a room in seconds.
func (c *Client) TTL(ctx context.Context, roomID string) (int, error) {
	var resp proto.TTLResponse
	if err := c.do(ctx, http.MethodGet, "/api/rooms/ttl", roomQuery(roomID), nil, &resp); err != nil {
		return 0, fmt.Errorf("%w: ttl: %w", room.ErrFetchFailed, err)
	}
	return resp.TTL, nil
}

// DestroyRoom deletes a room. A room that is already gone yields room.ErrRoomNotFound.
func (c *Client) DestroyRoom(ctx context.Context, roomID string) error {
	err := c.do(ctx, http.MethodDelete, "/api/rooms", roomQuery(roomID), nil, nil)
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return room.ErrRoomNotFound
	}
	return fmt.Errorf("%w: %w", room.ErrDestroyFailed, err)
}

// Messages lists the messages of a room as returned by the server.
func (c *Client) Messages(ctx context.Context, roomID string) ([]room.Message, error) {
	var resp proto.MessagesResponse
	if err := c.do(ctx, http.MethodGet, "/api/messages", roomQuery(roomID), nil, &resp); err != nil {
		return nil, fmt.Errorf("%w: messages: %w", room.ErrFetchFailed, err)
	}

	messages := make([]room.Message, 0, len(resp.Messages))
	for _, dto := range resp.Messages {
		messages = append(messages, FromDTO(dto))
	}
	return messages, nil
}

// PostMessage appends a message to a room and returns the created message.
func (c *Client) PostMessage(ctx context.Context, roomID, sender, text string) (room.Message, error) {
	var resp proto.MessageDTO
	body := proto.SendMessageRequest{Sender: sender, Text: text}
	if err := c.do(ctx, http.MethodPost, "/api/messages", roomQuery(roomID), body, &resp); err != nil {
		if isNotFound(err) {
			return room.Message{}, fmt.Errorf("%w: %w", room.ErrSendFailed, room.ErrRoomNotFound)
		}
		return room.Message{}, fmt.Errorf("%w: %w", room.ErrSendFailed, err)
	}
	return FromDTO(resp), nil
}

// FromDTO converts a wire message to the client domain type.
func FromDTO(dto proto.MessageDTO) room.Message {
	return room.Message{
		ID:        dto.ID,
		Sender:    dto.Sender,
		Text:      dto.Text,
		Timestamp: time.UnixMilli(dto.Timestamp),
	}
}

func roomQuery(roomID string) url.Values {
	return url.Values{"roomId": []string{roomID}}
}

func isNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp proto.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&errResp)
		return &StatusError{Status: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
