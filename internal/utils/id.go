package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewID returns a best-effort unique identifier. Room ids and realtime
// client ids use it; it is short enough to type into a join command.
func NewID() string {
	const size = 12

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}

	// Fallback to timestamp if crypto/rand is unavailable.
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

// NewMessageID returns a random UUID for a stored message.
func NewMessageID() string {
	return uuid.NewString()
}

// DefaultUsername returns the name used when a participant picks none.
func DefaultUsername() string {
	return "anonymous-" + NewID()[:6]
}
