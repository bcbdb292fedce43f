package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/burnroom/internal/broker"
	"github.com/vovakirdan/burnroom/internal/config"
	"github.com/vovakirdan/burnroom/internal/core"
	"github.com/vovakirdan/burnroom/internal/room"
	"github.com/vovakirdan/burnroom/internal/roomapi"
	"github.com/vovakirdan/burnroom/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/burnroom/internal/transport/http"
	"github.com/vovakirdan/burnroom/internal/view"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startServer(t *testing.T) (string, config.Config) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	hub := core.NewHub(nil)
	br := broker.NewLocal(16)
	go hub.Run(ctx)
	go func() {
		_ = br.Run(ctx, func(_ context.Context, d broker.Delivery) {
			_ = hub.Publish(core.Event{Kind: core.ParseEventKind(d.Event), Channel: d.Channel})
		})
	}()

	cfg := config.Default()
	cfg.RateLimit.RPS = 0
	cfg.Client.ArmDelay = 0
	cfg.Client.Username = "alice"

	nop := zerolog.Nop()
	server := transporthttp.NewServer(transporthttp.Deps{Hub: hub, Store: st, Broker: br}, &cfg, &nop)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		_ = br.Close()
		_ = st.Close()
	})

	cfg.Client.ServerURL = ts.URL
	return ts.URL, cfg
}

func TestJoinSendAndDestroy(t *testing.T) {
	serverURL, cfg := startServer(t)

	api, err := roomapi.New(serverURL, time.Second)
	require.NoError(t, err)
	roomID, err := api.CreateRoom(context.Background())
	require.NoError(t, err)

	in, input := io.Pipe()
	t.Cleanup(func() { input.Close() })
	out := &syncBuffer{}
	nop := zerolog.Nop()

	done := make(chan error, 1)
	go func() {
		done <- join(context.Background(), cfg, roomID, in, out, &nop)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), view.EmptyFeed)
	}, 3*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(input, "hello burners\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "hello burners")
	}, 3*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(input, cmdDestroy+"\n")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("join did not return after destroy")
	}
	assert.Contains(t, out.String(), "room destroyed")

	ttl, err := api.TTL(context.Background(), roomID)
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestJoinQuit(t *testing.T) {
	serverURL, cfg := startServer(t)

	api, err := roomapi.New(serverURL, time.Second)
	require.NoError(t, err)
	roomID, err := api.CreateRoom(context.Background())
	require.NoError(t, err)

	in, input := io.Pipe()
	t.Cleanup(func() { input.Close() })
	out := &syncBuffer{}
	nop := zerolog.Nop()

	done := make(chan error, 1)
	go func() {
		done <- join(context.Background(), cfg, roomID, in, out, &nop)
	}()
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), view.EmptyFeed)
	}, 3*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(input, cmdQuit+"\n")
	require.NoError(t, err)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("join did not return after quit")
	}
	assert.Contains(t, out.String(), view.EndedMessage(room.ReasonNone))

	// quitting leaves the room alive
	ttl, err := api.TTL(context.Background(), roomID)
	require.NoError(t, err)
	assert.Positive(t, ttl)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "burnroom dev\n", out.String())
}
