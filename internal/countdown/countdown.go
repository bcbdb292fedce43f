// Package countdown derives a local self-destruct countdown from an
// authoritative TTL value.
//
// A Reconciler is not safe for concurrent use. It is meant to be owned by a
// single control loop that selects on C() and calls Fire when it delivers:
//
//	select {
//	case <-r.C():
//	    switch r.Fire() {
//	    case countdown.SignalExpired:
//	        // room is gone
//	    }
//	}
//
// C returns nil while nothing is scheduled, so the select case stays idle.
package countdown

import (
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultInterval is the countdown step.
const DefaultInterval = time.Second

// Phase is the lifecycle position of a countdown.
type Phase int

const (
	// PhaseUnset means no authoritative TTL has been received.
	PhaseUnset Phase = iota
	// PhasePending means a TTL was received and the arm delay is running.
	PhasePending
	// PhaseTicking means the countdown is visible and decrementing.
	PhaseTicking
	// PhaseExpired means the countdown reached zero. Terminal.
	PhaseExpired
	// PhaseStopped means the countdown was halted before expiring. Terminal.
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseUnset:
		return "unset"
	case PhasePending:
		return "pending"
	case PhaseTicking:
		return "ticking"
	case PhaseExpired:
		return "expired"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Signal reports what a call to Accept or Fire changed.
type Signal int

const (
	// SignalNone means nothing visible changed.
	SignalNone Signal = iota
	// SignalArmed means the countdown became visible or restarted from a new value.
	SignalArmed
	// SignalTick means remaining decreased by one.
	SignalTick
	// SignalExpired means remaining reached zero. Emitted at most once.
	SignalExpired
)

// State is a snapshot of a countdown.
type State struct {
	Phase     Phase
	Remaining int
}

// Known reports whether Remaining is meaningful for display.
func (s State) Known() bool {
	return s.Phase == PhaseTicking || s.Phase == PhaseExpired || s.Phase == PhaseStopped
}

// Reconciler turns authoritative TTL values into a monotonic local countdown.
type Reconciler struct {
	clock    clock.Clock
	delay    time.Duration
	interval time.Duration

	phase     Phase
	remaining int
	pending   int

	armTimer *clock.Timer
	ticker   *clock.Ticker
}

// New creates a reconciler. delay is how long a freshly received TTL waits
// before it is shown and ticking starts; zero arms immediately.
func New(clk clock.Clock, delay time.Duration) *Reconciler {
	return NewWithInterval(clk, delay, DefaultInterval)
}

// NewWithInterval is New with a custom step.
func NewWithInterval(clk clock.Clock, delay, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reconciler{
		clock:    clk,
		delay:    delay,
		interval: interval,
	}
}

// State returns the current phase and remaining seconds.
func (r *Reconciler) State() State {
	return State{Phase: r.phase, Remaining: r.remaining}
}

// Accept takes an authoritative TTL in seconds.
//
// A value <= 0 expires the countdown immediately. The first positive value
// starts the arm delay; a value arriving during the delay replaces the pending
// one. A value arriving while ticking restarts the countdown from that value.
// Values arriving after a terminal phase are ignored.
func (r *Reconciler) Accept(ttl int) Signal {
	if r.terminal() {
		return SignalNone
	}
	if ttl <= 0 {
		r.halt()
		r.remaining = 0
		r.phase = PhaseExpired
		return SignalExpired
	}

	switch r.phase {
	case PhaseUnset:
		if r.delay <= 0 {
			return r.arm(ttl)
		}
		r.pending = ttl
		r.armTimer = r.clock.Timer(r.delay)
		r.phase = PhasePending
		return SignalNone
	case PhasePending:
		r.pending = ttl
		return SignalNone
	case PhaseTicking:
		r.halt()
		return r.arm(ttl)
	}
	return SignalNone
}

// C returns the channel the owner should select on, or nil when idle.
func (r *Reconciler) C() <-chan time.Time {
	switch r.phase {
	case PhasePending:
		return r.armTimer.C
	case PhaseTicking:
		return r.ticker.C
	default:
		return nil
	}
}

// Fire advances the countdown after C delivered.
func (r *Reconciler) Fire() Signal {
	switch r.phase {
	case PhasePending:
		r.armTimer = nil
		return r.arm(r.pending)
	case PhaseTicking:
		r.remaining = max(r.remaining-1, 0)
		if r.remaining == 0 {
			r.halt()
			r.phase = PhaseExpired
			return SignalExpired
		}
		return SignalTick
	default:
		return SignalNone
	}
}

// Stop halts the countdown, keeping the last remaining value. Idempotent.
func (r *Reconciler) Stop() {
	if r.terminal() {
		return
	}
	r.halt()
	r.phase = PhaseStopped
}

func (r *Reconciler) arm(ttl int) Signal {
	r.remaining = ttl
	r.pending = 0
	r.ticker = r.clock.Ticker(r.interval)
	r.phase = PhaseTicking
	return SignalArmed
}

func (r *Reconciler) halt() {
	if r.armTimer != nil {
		r.armTimer.Stop()
		r.armTimer = nil
	}
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
}

func (r *Reconciler) terminal() bool {
	return r.phase == PhaseExpired || r.phase == PhaseStopped
}
