package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/burnroom/internal/proto"
)

const (
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 10 * time.Second
	readLimit         = 1 << 16
	eventBuffer       = 16
)

// ErrSubscribeRejected is returned when the server answers a subscribe frame
// with an error frame.
var ErrSubscribeRejected = errors.New("subscribe rejected")

// WSTransport is a Transport over the server's /ws websocket endpoint.
type WSTransport struct {
	url        string
	clock      clock.Clock
	log        *zerolog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewWSTransport builds a transport for the server at serverURL (http or https).
func NewWSTransport(serverURL string, logger *zerolog.Logger) (*WSTransport, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return &WSTransport{
		url:        u.String(),
		clock:      clock.New(),
		log:        logger,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}, nil
}

// WithBackoff overrides the reconnect backoff bounds.
func (t *WSTransport) WithBackoff(minDelay, maxDelay time.Duration) *WSTransport {
	t.minBackoff = minDelay
	t.maxBackoff = maxDelay
	return t
}

// URL returns the websocket endpoint.
func (t *WSTransport) URL() string {
	return t.url
}

// Subscribe dials the endpoint, subscribes and waits for the server to
// confirm before returning, so no event published afterwards is missed.
func (t *WSTransport) Subscribe(ctx context.Context, channels []string, kinds []Kind) (Stream, error) {
	sub := proto.SubscribeData{Channels: channels, Protocol: proto.ProtocolVersion}
	for _, k := range kinds {
		if k == KindMessage || k == KindDestroy {
			sub.Events = append(sub.Events, k.String())
		}
	}

	conn, err := t.dial(ctx, sub)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	s := &wsStream{
		t:      t,
		sub:    sub,
		events: make(chan Event, eventBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(streamCtx, conn)
	return s, nil
}

func (t *WSTransport) dial(ctx context.Context, sub proto.SubscribeData) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, t.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.url, err)
	}
	conn.SetReadLimit(readLimit)

	data, err := json.Marshal(sub)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "encode")
		return nil, fmt.Errorf("encode subscribe: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSubscribe, Data: data}); err != nil {
		conn.Close(websocket.StatusInternalError, "write")
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			conn.Close(websocket.StatusInternalError, "read")
			return nil, fmt.Errorf("await subscribed: %w", err)
		}
		switch out.Type {
		case proto.OutboundTypeSubscribed:
			return conn, nil
		case proto.OutboundTypeError:
			conn.Close(websocket.StatusNormalClosure, "")
			if out.Error != nil {
				return nil, fmt.Errorf("%w: %s: %s", ErrSubscribeRejected, out.Error.Code, out.Error.Msg)
			}
			return nil, ErrSubscribeRejected
		}
	}
}

type wsStream struct {
	t      *WSTransport
	sub    proto.SubscribeData
	events chan Event

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (s *wsStream) Events() <-chan Event {
	return s.events
}

// Close stops the read loop and waits for the connection to be closed.
func (s *wsStream) Close() error {
	s.closeOnce.Do(s.cancel)
	<-s.done
	return nil
}

func (s *wsStream) run(ctx context.Context, conn *websocket.Conn) {
	defer close(s.done)
	defer close(s.events)

	for {
		err := s.readLoop(ctx, conn)
		conn.Close(websocket.StatusNormalClosure, "")
		if ctx.Err() != nil {
			return
		}
		s.t.log.Warn().Err(err).Msg("realtime connection lost, reconnecting")

		conn = s.reconnect(ctx)
		if conn == nil {
			return
		}
		for _, ch := range s.sub.Channels {
			if !s.emit(ctx, Event{Channel: ch, Kind: KindResync}) {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}
}

func (s *wsStream) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return err
		}
		switch out.Type {
		case proto.OutboundTypeEvent:
			if !s.emit(ctx, Event{Channel: out.Channel, Kind: ParseKind(out.Event)}) {
				return ctx.Err()
			}
		case proto.OutboundTypeError:
			if out.Error != nil {
				s.t.log.Warn().Str("code", out.Error.Code).Str("msg", out.Error.Msg).Msg("realtime error frame")
			}
		}
	}
}

func (s *wsStream) emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *wsStream) reconnect(ctx context.Context) *websocket.Conn {
	backoff := s.t.minBackoff
	for {
		timer := s.t.clock.Timer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		conn, err := s.t.dial(ctx, s.sub)
		if err == nil {
			s.t.log.Info().Msg("realtime connection restored")
			return conn
		}
		if errors.Is(err, ErrSubscribeRejected) {
			s.t.log.Error().Err(err).Msg("realtime resubscribe rejected, giving up")
			return nil
		}
		s.t.log.Debug().Err(err).Dur("backoff", backoff).Msg("realtime redial failed")
		backoff = min(backoff*2, s.t.maxBackoff)
	}
}
