package reaper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/burnroom/internal/metrics"
	"github.com/vovakirdan/burnroom/internal/proto"
)

type fakeStore struct {
	mu        sync.Mutex
	deadlines map[string]time.Time
	err       error
	// removed is returned along with err
	removed []string
}

func (f *fakeStore) ExpireRooms(_ context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.removed, f.err
	}
	var ids []string
	for id, deadline := range f.deadlines {
		if !deadline.After(now) {
			ids = append(ids, id)
			delete(f.deadlines, id)
		}
	}
	return ids, nil
}

type published struct {
	channel, event string
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
}

func (f *fakePublisher) Publish(_ context.Context, channel, event string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, published{channel, event})
	return nil
}

func (f *fakePublisher) events() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.sent...)
}

func TestSweepDestroysDueRooms(t *testing.T) {
	mock := clock.NewMock()
	st := &fakeStore{deadlines: map[string]time.Time{
		"due":    mock.Now(),
		"future": mock.Now().Add(time.Minute),
	}}
	pub := &fakePublisher{}
	m := metrics.New()
	r := New(st, pub, m, mock, time.Second, nil)

	assert.Equal(t, 1, r.Sweep(context.Background()))
	assert.Equal(t, []published{{"due", proto.EventChatDestroy}}, pub.events())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoomsDestroyed.WithLabelValues(metrics.ReasonExpired)))

	assert.Equal(t, 0, r.Sweep(context.Background()), "a room is destroyed once")
}

func TestSweepStoreFailure(t *testing.T) {
	pub := &fakePublisher{}
	r := New(&fakeStore{err: errors.New("db down")}, pub, nil, clock.NewMock(), time.Second, nil)

	assert.Equal(t, 0, r.Sweep(context.Background()))
	assert.Empty(t, pub.events())
}

func TestSweepAnnouncesRoomsRemovedBeforeFailure(t *testing.T) {
	pub := &fakePublisher{}
	m := metrics.New()
	st := &fakeStore{err: errors.New("connection reset"), removed: []string{"gone-1", "gone-2"}}
	r := New(st, pub, m, clock.NewMock(), time.Second, nil)

	assert.Equal(t, 2, r.Sweep(context.Background()))
	assert.Equal(t, []published{
		{"gone-1", proto.EventChatDestroy},
		{"gone-2", proto.EventChatDestroy},
	}, pub.events())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RoomsDestroyed.WithLabelValues(metrics.ReasonExpired)))
}

func TestRunSweepsOnEachTick(t *testing.T) {
	mock := clock.NewMock()
	st := &fakeStore{deadlines: map[string]time.Time{
		"a": mock.Now().Add(1500 * time.Millisecond),
		"b": mock.Now().Add(2500 * time.Millisecond),
	}}
	pub := &fakePublisher{}
	r := New(st, pub, nil, mock, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// wait for the ticker to be registered before moving time
	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		return len(pub.events()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.ElementsMatch(t, []published{{"a", proto.EventChatDestroy}, {"b", proto.EventChatDestroy}}, pub.events())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
