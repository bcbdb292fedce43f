package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/burnroom/internal/broker"
	"github.com/vovakirdan/burnroom/internal/config"
	"github.com/vovakirdan/burnroom/internal/core"
	"github.com/vovakirdan/burnroom/internal/metrics"
	"github.com/vovakirdan/burnroom/internal/proto"
	"github.com/vovakirdan/burnroom/internal/store/sqlite"
)

type testEnv struct {
	ts      *httptest.Server
	clock   *clock.Mock
	metrics *metrics.Metrics
	cfg     config.Config
}

// startTestServer serves the full API over an in-memory SQLite store, with
// events relayed from a local broker into the hub.
func startTestServer(t *testing.T) *testEnv {
	t.Helper()
	return startTestServerWith(t, func(*config.Config) {})
}

func startTestServerWith(t *testing.T, configure func(*config.Config)) *testEnv {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.UnixMilli(1_700_000_000_000))

	st, err := sqlite.New(":memory:", sqlite.WithClock(mock))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	hub := core.NewHub(nil)
	br := broker.NewLocal(64)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	go func() {
		_ = br.Run(ctx, func(_ context.Context, d broker.Delivery) {
			_ = hub.Publish(core.Event{Kind: core.ParseEventKind(d.Event), Channel: d.Channel})
		})
	}()

	cfg := config.Default()
	cfg.RateLimit.RPS = 0
	configure(&cfg)

	disabledLogger := zerolog.New(nil)
	m := metrics.New()
	server := NewServer(Deps{
		Hub:     hub,
		Store:   st,
		Broker:  br,
		Metrics: m,
		Clock:   mock,
	}, &cfg, &disabledLogger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		_ = br.Close()
		_ = st.Close()
	})

	return &testEnv{ts: ts, clock: mock, metrics: m, cfg: cfg}
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := stdhttp.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) createRoom(t *testing.T) string {
	t.Helper()

	var created proto.CreateRoomResponse
	if code := e.do(t, stdhttp.MethodPost, "/api/rooms/create", nil, &created); code != stdhttp.StatusCreated {
		t.Fatalf("expected status 201, got %d", code)
	}
	if created.RoomID == "" {
		t.Fatal("expected a room id")
	}
	return created.RoomID
}

func (e *testEnv) ttl(t *testing.T, roomID string) int {
	t.Helper()

	var resp proto.TTLResponse
	if code := e.do(t, stdhttp.MethodGet, "/api/rooms/ttl?roomId="+roomID, nil, &resp); code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	return resp.TTL
}

func (e *testEnv) wsURL() string {
	return "ws" + e.ts.URL[len("http"):] + "/ws"
}
