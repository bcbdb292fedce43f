package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/burnroom/internal/proto"
)

func TestPostAndListMessages(t *testing.T) {
	env := startTestServer(t)
	roomID := env.createRoom(t)

	var first proto.MessageDTO
	code := env.do(t, http.MethodPost, "/api/messages?roomId="+roomID,
		proto.SendMessageRequest{Sender: "alice", Text: "first"}, &first)
	if code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", code)
	}
	if first.ID == "" || first.RoomID != roomID || first.Timestamp != env.clock.Now().UnixMilli() {
		t.Fatalf("unexpected created message: %+v", first)
	}

	env.clock.Add(time.Second)
	code = env.do(t, http.MethodPost, "/api/messages?roomId="+roomID,
		proto.SendMessageRequest{Sender: "bob", Text: "second"}, nil)
	if code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", code)
	}

	var list proto.MessagesResponse
	if code := env.do(t, http.MethodGet, "/api/messages?roomId="+roomID, nil, &list); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if len(list.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(list.Messages))
	}
	if list.Messages[0].Text != "first" || list.Messages[1].Text != "second" {
		t.Fatalf("messages out of order: %+v", list.Messages)
	}
	if list.Messages[1].Sender != "bob" || list.Messages[1].Timestamp <= list.Messages[0].Timestamp {
		t.Fatalf("unexpected second message: %+v", list.Messages[1])
	}
}

func TestListMessagesOfUnknownRoom(t *testing.T) {
	env := startTestServer(t)

	var list proto.MessagesResponse
	if code := env.do(t, http.MethodGet, "/api/messages?roomId=nope", nil, &list); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if list.Messages == nil || len(list.Messages) != 0 {
		t.Fatalf("expected an empty message list, got %+v", list.Messages)
	}
}

func TestPostMessageValidation(t *testing.T) {
	env := startTestServer(t)
	roomID := env.createRoom(t)

	cases := []struct {
		name string
		path string
		body any
		want int
	}{
		{"blank text", "/api/messages?roomId=" + roomID, proto.SendMessageRequest{Sender: "alice", Text: "   "}, http.StatusBadRequest},
		{"empty text", "/api/messages?roomId=" + roomID, proto.SendMessageRequest{Sender: "alice"}, http.StatusBadRequest},
		{"missing sender", "/api/messages?roomId=" + roomID, proto.SendMessageRequest{Text: "hi"}, http.StatusBadRequest},
		{"too long", "/api/messages?roomId=" + roomID, proto.SendMessageRequest{Sender: "alice", Text: strings.Repeat("é", env.cfg.MaxMessageLength+1)}, http.StatusBadRequest},
		{"missing room id", "/api/messages", proto.SendMessageRequest{Sender: "alice", Text: "hi"}, http.StatusBadRequest},
		{"unknown room", "/api/messages?roomId=nope", proto.SendMessageRequest{Sender: "alice", Text: "hi"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		if code := env.do(t, http.MethodPost, tc.path, tc.body, nil); code != tc.want {
			t.Errorf("%s: expected status %d, got %d", tc.name, tc.want, code)
		}
	}

	// the longest allowed message is accepted
	code := env.do(t, http.MethodPost, "/api/messages?roomId="+roomID,
		proto.SendMessageRequest{Sender: "alice", Text: strings.Repeat("é", env.cfg.MaxMessageLength)}, nil)
	if code != http.StatusCreated {
		t.Fatalf("expected status 201 at the length limit, got %d", code)
	}
}

func TestMessagesVanishWithRoom(t *testing.T) {
	env := startTestServer(t)
	roomID := env.createRoom(t)

	env.do(t, http.MethodPost, "/api/messages?roomId="+roomID, proto.SendMessageRequest{Sender: "alice", Text: "hi"}, nil)
	env.do(t, http.MethodDelete, "/api/rooms?roomId="+roomID, nil, nil)

	var list proto.MessagesResponse
	env.do(t, http.MethodGet, "/api/messages?roomId="+roomID, nil, &list)
	if len(list.Messages) != 0 {
		t.Fatalf("expected no messages after destroy, got %d", len(list.Messages))
	}
}
