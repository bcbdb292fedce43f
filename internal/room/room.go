// Package room holds the client-side domain of an ephemeral room view:
// messages as the client renders them, the reasons a room ends, and the
// error kinds shared by the feed, countdown and lifecycle packages.
package room

import "time"

// Message is an immutable chat message as returned by the server.
type Message struct {
	ID        string
	Sender    string
	Text      string
	Timestamp time.Time
}

// EndReason describes which trigger ended a room view.
type EndReason string

const (
	// ReasonNone means the room has not ended.
	ReasonNone EndReason = ""
	// ReasonExpired means the local countdown reached zero.
	ReasonExpired EndReason = "expired"
	// ReasonDestroyedRemote means a destroy event arrived over the realtime channel.
	ReasonDestroyedRemote EndReason = "destroyed-remote"
	// ReasonDestroyedLocal means this client's destroy request succeeded.
	ReasonDestroyedLocal EndReason = "destroyed-local"
)

func (r EndReason) String() string {
	if r == ReasonNone {
		return "none"
	}
	return string(r)
}
