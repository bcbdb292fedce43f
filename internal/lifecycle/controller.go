// Package lifecycle runs a room view: it keeps the countdown, the message
// feed and room existence in sync with the server and ends the view exactly
// once, whichever of expiry, a remote destroy or a local destroy comes first.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/burnroom/internal/countdown"
	"github.com/vovakirdan/burnroom/internal/feed"
	"github.com/vovakirdan/burnroom/internal/realtime"
	"github.com/vovakirdan/burnroom/internal/room"
)

const (
	// ttlRetries bounds retries of a failed TTL fetch.
	ttlRetries      = 3
	ttlRetryBase    = time.Second
	ttlRetryMaxWait = 30 * time.Second
)

// RoomAPI is the room registry surface the controller needs.
type RoomAPI interface {
	TTL(ctx context.Context, roomID string) (int, error)
	DestroyRoom(ctx context.Context, roomID string) error
}

// View receives state to display. Both methods are called from the
// controller's loop and must not block for long.
type View interface {
	Render(Snapshot)
	// RoomEnded is called once, when the room ends.
	RoomEnded(reason room.EndReason)
}

// Snapshot is a copy of the view state.
type Snapshot struct {
	RoomID    string
	Username  string
	State     State
	Countdown countdown.State
	Messages  []room.Message
	Reason    room.EndReason
	// LastErr is the most recent recoverable failure, cleared by the next successful send.
	LastErr error
}

// Deps are the collaborators of a Controller.
type Deps struct {
	API        RoomAPI
	Feed       *feed.Client
	Subscriber *realtime.Subscriber
	View       View
	Clock      clock.Clock
	Logger     *zerolog.Logger
}

// Controller owns one room view. Run drives it; Send and Destroy may be
// called from other goroutines while Run is active.
type Controller struct {
	roomID   string
	username string

	api        RoomAPI
	feed       *feed.Client
	subscriber *realtime.Subscriber
	view       View
	clock      clock.Clock
	log        zerolog.Logger

	// owned by the loop goroutine
	fsm        machine
	countdown  *countdown.Reconciler
	list       feed.Feed
	sub        *realtime.Subscription
	dispatcher *realtime.Dispatcher
	lastErr    error
	reqCtx     context.Context
	ttlFails   int
	ttlRetry   *clock.Timer
	ttlRetryC  <-chan time.Time

	inbox chan func()
	done  chan struct{}

	mu   sync.RWMutex
	snap Snapshot
}

// New creates a controller for roomID. armDelay is how long the first TTL
// waits before the countdown is shown.
func New(roomID, username string, armDelay time.Duration, deps Deps) *Controller {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = deps.Logger.With().Str("room_id", roomID).Logger()
	}

	c := &Controller{
		roomID:     roomID,
		username:   username,
		api:        deps.API,
		feed:       deps.Feed,
		subscriber: deps.Subscriber,
		view:       deps.View,
		clock:      clk,
		log:        logger,
		countdown:  countdown.New(clk, armDelay),
		inbox:      make(chan func()),
		done:       make(chan struct{}),
	}
	c.snap = c.build()
	return c
}

// Run enters the room and processes events until the room ends or ctx is
// cancelled. It returns the end reason, or an error when the subscription
// could not be opened or ctx was cancelled. Run must be called once.
func (c *Controller) Run(ctx context.Context) (room.EndReason, error) {
	defer close(c.done)

	sub, err := c.subscriber.Subscribe(ctx, c.roomID, realtime.KindMessage, realtime.KindDestroy, realtime.KindResync)
	if err != nil {
		return room.ReasonNone, fmt.Errorf("enter room %s: %w", c.roomID, err)
	}
	c.sub = sub
	defer c.teardown()

	c.reqCtx = context.WithoutCancel(ctx)
	c.dispatcher = realtime.NewDispatcher(sub.RoomID(), &c.log)
	c.dispatcher.Handle(realtime.KindMessage, func(realtime.Event) { c.refresh() })
	c.dispatcher.Handle(realtime.KindDestroy, func(realtime.Event) { c.end(room.ReasonDestroyedRemote) })
	// a destroy may have been missed while disconnected; a TTL of 0 ends the room
	c.dispatcher.Handle(realtime.KindResync, func(realtime.Event) {
		c.fetchTTL()
		c.refresh()
	})

	c.fsm.activate()
	c.log.Info().Str("username", c.username).Msg("entered room")
	c.fetchTTL()
	c.refresh()
	c.publish()

	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			c.log.Debug().Msg("room view torn down")
			return room.ReasonNone, ctx.Err()
		case <-c.countdown.C():
			if c.countdown.Fire() == countdown.SignalExpired {
				c.end(room.ReasonExpired)
			}
		case <-c.ttlRetryC:
			c.ttlRetryC = nil
			c.requestTTL()
		case ev, ok := <-events:
			if !ok {
				c.log.Warn().Msg("realtime stream closed, room updates stop")
				events = nil
				break
			}
			c.dispatcher.Dispatch(ev)
		case fn := <-c.inbox:
			fn()
		}

		if c.fsm.state == StateDestroyed {
			return c.fsm.reason, nil
		}
		c.publish()
	}
}

// Send posts the draft's text. Blank text fails with room.ErrEmptyMessage
// without a network call. The draft is cleared only when the server accepted
// the message while the room was still active, after which the feed is
// refreshed. A send that completes after the room ended returns
// room.ErrRoomGone and keeps the draft.
func (c *Controller) Send(ctx context.Context, draft *feed.Draft) error {
	if c.Snapshot().State != StateActive {
		return room.ErrRoomGone
	}
	text := draft.Text()
	_, err := c.feed.Send(context.WithoutCancel(ctx), c.roomID, c.username, text)
	if errors.Is(err, room.ErrEmptyMessage) {
		return err
	}
	if err != nil {
		c.post(func() { c.lastErr = err })
		return err
	}

	accepted := make(chan bool, 1)
	delivered := c.post(func() {
		if c.fsm.state != StateActive {
			accepted <- false
			return
		}
		c.lastErr = nil
		c.refresh()
		accepted <- true
	})
	if !delivered || !<-accepted {
		c.log.Debug().Err(room.ErrStaleEvent).Msg("send completed after room ended")
		return room.ErrRoomGone
	}
	draft.ClearIf(text)
	return nil
}

// Destroy asks the server to destroy the room. On success the view ends with
// room.ReasonDestroyedLocal; a room the server no longer knows counts as
// destroyed. On failure the room stays active.
func (c *Controller) Destroy(ctx context.Context) error {
	if c.Snapshot().State != StateActive {
		return room.ErrRoomGone
	}
	err := c.api.DestroyRoom(context.WithoutCancel(ctx), c.roomID)
	if err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		if !errors.Is(err, room.ErrDestroyFailed) {
			err = fmt.Errorf("%w: %w", room.ErrDestroyFailed, err)
		}
		c.post(func() { c.lastErr = err })
		return err
	}
	c.post(func() { c.end(room.ReasonDestroyedLocal) })
	return nil
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.snap
	s.Messages = append([]room.Message(nil), c.snap.Messages...)
	return s
}

// fetchTTL asks the server for the remaining lifetime, retrying failures
// with backoff on the controller's clock.
func (c *Controller) fetchTTL() {
	c.stopTTLRetry()
	c.ttlFails = 0
	c.requestTTL()
}

func (c *Controller) requestTTL() {
	c.async(func(ctx context.Context) func() {
		ttl, err := c.api.TTL(ctx, c.roomID)
		return func() {
			if err != nil {
				c.lastErr = err
				c.ttlFails++
				if c.ttlFails > ttlRetries {
					c.log.Warn().Err(err).Int("attempts", c.ttlFails).Msg("ttl fetch failed, countdown unknown")
					return
				}
				wait := ttlRetryDelay(c.ttlFails)
				c.log.Debug().Err(err).Dur("retry_in", wait).Msg("ttl fetch failed")
				c.stopTTLRetry()
				c.ttlRetry = c.clock.Timer(wait)
				c.ttlRetryC = c.ttlRetry.C
				return
			}
			c.ttlFails = 0
			c.log.Debug().Int("ttl", ttl).Msg("ttl received")
			if c.countdown.Accept(ttl) == countdown.SignalExpired {
				c.end(room.ReasonExpired)
			}
		}
	})
}

func (c *Controller) refresh() {
	seq := c.list.Begin()
	c.async(func(ctx context.Context) func() {
		msgs, err := c.feed.List(ctx, c.roomID)
		return func() {
			if err != nil {
				c.log.Warn().Err(err).Uint64("seq", seq).Msg("message refresh failed")
				c.lastErr = err
				return
			}
			if !c.list.Apply(seq, msgs) {
				c.log.Debug().Uint64("seq", seq).Msg("dropping out-of-date message list")
			}
		}
	})
}

// ttlRetryDelay doubles from ttlRetryBase per failure, capped at ttlRetryMaxWait.
func ttlRetryDelay(failures int) time.Duration {
	return min(ttlRetryBase<<(failures-1), ttlRetryMaxWait)
}

func (c *Controller) stopTTLRetry() {
	if c.ttlRetry != nil {
		c.ttlRetry.Stop()
		c.ttlRetry = nil
	}
	c.ttlRetryC = nil
}

// async runs work off the loop and posts the completion it returns.
func (c *Controller) async(work func(ctx context.Context) func()) {
	ctx := c.reqCtx
	go func() {
		c.post(work(ctx))
	}()
}

// post hands fn to the loop. Completions arriving after the loop exited are
// dropped.
func (c *Controller) post(fn func()) bool {
	select {
	case c.inbox <- fn:
		return true
	case <-c.done:
		c.log.Debug().Err(room.ErrStaleEvent).Msg("completion after room view ended")
		return false
	}
}

// end is the single exit path of the view.
func (c *Controller) end(reason room.EndReason) {
	if !c.fsm.exit(reason) {
		c.log.Debug().Err(room.ErrStaleEvent).Str("trigger", reason.String()).Msg("room already ended")
		return
	}
	c.log.Info().Str("reason", reason.String()).Int("remaining", c.countdown.State().Remaining).Msg("room ended")
	c.teardown()
	c.publish()
	if c.view != nil {
		c.view.RoomEnded(reason)
	}
}

func (c *Controller) teardown() {
	c.countdown.Stop()
	c.stopTTLRetry()
	if c.sub != nil {
		if err := c.sub.Release(); err != nil {
			c.log.Warn().Err(err).Msg("release subscription")
		}
	}
}

func (c *Controller) build() Snapshot {
	return Snapshot{
		RoomID:    c.roomID,
		Username:  c.username,
		State:     c.fsm.state,
		Countdown: c.countdown.State(),
		Messages:  c.list.Messages(),
		Reason:    c.fsm.reason,
		LastErr:   c.lastErr,
	}
}

func (c *Controller) publish() {
	s := c.build()
	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
	if c.view != nil {
		c.view.Render(s)
	}
}
