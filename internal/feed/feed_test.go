package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/burnroom/internal/room"
)

type fakeAPI struct {
	messages []room.Message
	listErr  error
	postErr  error
	posts    []string
}

func (f *fakeAPI) Messages(context.Context, string) ([]room.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]room.Message(nil), f.messages...), nil
}

func (f *fakeAPI) PostMessage(_ context.Context, roomID, sender, text string) (room.Message, error) {
	f.posts = append(f.posts, text)
	if f.postErr != nil {
		return room.Message{}, f.postErr
	}
	return room.Message{ID: "m", Sender: sender, Text: text, Timestamp: time.UnixMilli(1)}, nil
}

func newClient(api MessageAPI) *Client {
	logger := zerolog.Nop()
	return NewClient(api, &logger)
}

func TestListOrdersByTimestamp(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)
	api := &fakeAPI{messages: []room.Message{
		{ID: "c", Timestamp: base.Add(2 * time.Second)},
		{ID: "a", Timestamp: base},
		{ID: "b1", Timestamp: base.Add(time.Second)},
		{ID: "b2", Timestamp: base.Add(time.Second)},
	}}

	msgs, err := newClient(api).List(context.Background(), "r")
	require.NoError(t, err)

	var ids []string
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, ids)
}

func TestListEmptyIsValid(t *testing.T) {
	msgs, err := newClient(&fakeAPI{}).List(context.Background(), "r")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestListFailureIsFetchFailed(t *testing.T) {
	_, err := newClient(&fakeAPI{listErr: errors.New("connection refused")}).List(context.Background(), "r")
	require.ErrorIs(t, err, room.ErrFetchFailed)
}

func TestSendRejectsBlankLocally(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		api := &fakeAPI{}

		_, err := newClient(api).Send(context.Background(), "r", "alice", text)

		require.ErrorIs(t, err, room.ErrEmptyMessage)
		assert.Empty(t, api.posts, "blank text must not reach the network")
	}
}

func TestSendReturnsAcceptedMessage(t *testing.T) {
	api := &fakeAPI{}

	msg, err := newClient(api).Send(context.Background(), "r", "alice", "hello")
	require.NoError(t, err)

	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, "alice", msg.Sender)
	assert.Equal(t, []string{"hello"}, api.posts)
}

func TestSendFailureIsSendFailed(t *testing.T) {
	api := &fakeAPI{postErr: errors.New("503")}

	_, err := newClient(api).Send(context.Background(), "r", "alice", "hello")

	require.ErrorIs(t, err, room.ErrSendFailed)
}

func TestDraftClearIfKeepsEditedText(t *testing.T) {
	draft := NewDraft("first")
	draft.ClearIf("other")
	assert.Equal(t, "first", draft.Text())

	draft.ClearIf("first")
	assert.Empty(t, draft.Text())

	draft.Set("typed while sending")
	draft.ClearIf("first")
	assert.Equal(t, "typed while sending", draft.Text())
}

func TestFeedLatestRefreshWins(t *testing.T) {
	var f Feed
	old := f.Begin()
	latest := f.Begin()

	one := []room.Message{{ID: "1"}}
	two := []room.Message{{ID: "1"}, {ID: "2"}}

	assert.True(t, f.Apply(latest, two))
	assert.False(t, f.Apply(old, one), "an older refresh must not overwrite a newer one")
	assert.Equal(t, two, f.Messages())
}

func TestFeedInOrderRefreshes(t *testing.T) {
	var f Feed
	first := f.Begin()
	second := f.Begin()

	assert.True(t, f.Apply(first, []room.Message{{ID: "1"}}))
	assert.True(t, f.Apply(second, []room.Message{{ID: "1"}, {ID: "2"}}))
	assert.Len(t, f.Messages(), 2)
}

func TestFeedMessagesIsCopy(t *testing.T) {
	var f Feed
	f.Apply(f.Begin(), []room.Message{{ID: "1"}})

	got := f.Messages()
	got[0].ID = "changed"
	assert.Equal(t, "1", f.Messages()[0].ID)
}
