package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	events chan Event
	closes int
}

func (s *fakeStream) Events() <-chan Event { return s.events }

func (s *fakeStream) Close() error {
	s.closes++
	if s.closes == 1 {
		close(s.events)
	}
	return nil
}

type fakeTransport struct {
	stream   *fakeStream
	err      error
	channels []string
	kinds    []Kind
}

func (f *fakeTransport) Subscribe(_ context.Context, channels []string, kinds []Kind) (Stream, error) {
	f.channels = channels
	f.kinds = kinds
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindMessage, ParseKind("chat.message"))
	assert.Equal(t, KindDestroy, ParseKind("chat.destroy"))
	assert.Equal(t, KindUnknown, ParseKind("chat.typing"))
	assert.Equal(t, "chat.destroy", KindDestroy.String())
	assert.Equal(t, KindUnknown, ParseKind(KindResync.String()), "resync is local only")
}

func TestSubscribeScopesToRoom(t *testing.T) {
	logger := zerolog.Nop()
	tr := &fakeTransport{stream: &fakeStream{events: make(chan Event, 1)}}
	s := NewSubscriber(tr, &logger)

	sub, err := s.Subscribe(context.Background(), "room-1", KindMessage, KindDestroy)
	require.NoError(t, err)

	assert.Equal(t, []string{"room-1"}, tr.channels)
	assert.Equal(t, []Kind{KindMessage, KindDestroy}, tr.kinds)
	assert.Equal(t, "room-1", sub.RoomID())

	tr.stream.events <- Event{Channel: "room-1", Kind: KindMessage}
	assert.Equal(t, Event{Channel: "room-1", Kind: KindMessage}, <-sub.Events())
}

func TestSubscribeFailure(t *testing.T) {
	logger := zerolog.Nop()
	boom := errors.New("boom")
	s := NewSubscriber(&fakeTransport{err: boom}, &logger)

	sub, err := s.Subscribe(context.Background(), "room-1", KindMessage)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, sub)
}

func TestReleaseIsIdempotent(t *testing.T) {
	logger := zerolog.Nop()
	stream := &fakeStream{events: make(chan Event)}
	s := NewSubscriber(&fakeTransport{stream: stream}, &logger)

	sub, err := s.Subscribe(context.Background(), "room-1", KindMessage)
	require.NoError(t, err)

	require.NoError(t, sub.Release())
	require.NoError(t, sub.Release())
	assert.Equal(t, 1, stream.closes)

	_, ok := <-sub.Events()
	assert.False(t, ok, "released subscription must not deliver")
}

func TestDispatcherRoutesByKind(t *testing.T) {
	logger := zerolog.Nop()
	d := NewDispatcher("room-1", &logger)

	var got []Kind
	d.Handle(KindMessage, func(ev Event) { got = append(got, ev.Kind) })
	d.Handle(KindDestroy, func(ev Event) { got = append(got, ev.Kind) })

	assert.True(t, d.Dispatch(Event{Channel: "room-1", Kind: KindMessage}))
	assert.True(t, d.Dispatch(Event{Channel: "room-1", Kind: KindDestroy}))
	assert.True(t, d.Dispatch(Event{Channel: "room-1", Kind: KindDestroy}), "duplicates are delivered")

	assert.Equal(t, []Kind{KindMessage, KindDestroy, KindDestroy}, got)
}

func TestDispatcherDropsUnknownAndForeign(t *testing.T) {
	logger := zerolog.Nop()
	d := NewDispatcher("room-1", &logger)

	calls := 0
	d.Handle(KindMessage, func(Event) { calls++ })

	assert.False(t, d.Dispatch(Event{Channel: "room-1", Kind: KindUnknown}))
	assert.False(t, d.Dispatch(Event{Channel: "room-2", Kind: KindMessage}))
	assert.False(t, d.Dispatch(Event{Channel: "room-1", Kind: KindDestroy}), "no handler registered")
	assert.Equal(t, 0, calls)
}
