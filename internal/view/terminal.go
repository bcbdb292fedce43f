package view

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/vovakirdan/burnroom/internal/countdown"
	"github.com/vovakirdan/burnroom/internal/lifecycle"
	"github.com/vovakirdan/burnroom/internal/room"
)

// finalSeconds are always announced.
const finalSeconds = 10

// Header renders the room title line with its countdown.
func Header(s lifecycle.Snapshot) string {
	return fmt.Sprintf("%s %s  %s %s",
		headerStyle.Render("ROOM"),
		s.RoomID,
		mutedStyle.Render("self-destruct in"),
		Countdown(s.Countdown),
	)
}

// Frame renders the full room view.
func Frame(s lifecycle.Snapshot) string {
	var b strings.Builder
	b.WriteString(Header(s))
	b.WriteByte('\n')
	b.WriteString(dividerStyle.Render(strings.Repeat("─", 40)))
	b.WriteByte('\n')
	if len(s.Messages) == 0 {
		b.WriteString(mutedStyle.Render(EmptyFeed))
		b.WriteByte('\n')
	}
	for _, m := range s.Messages {
		b.WriteString(MessageLine(m, s.Username))
		b.WriteByte('\n')
	}
	return b.String()
}

// Terminal is a line-oriented lifecycle.View. It prints the frame once, then
// only new messages, countdown milestones and failures.
type Terminal struct {
	out io.Writer

	mu      sync.Mutex
	started bool
	seen    map[string]struct{}
	phase   countdown.Phase
	shown   int
	lastErr error
}

// NewTerminal creates a terminal view writing to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{
		out:   out,
		seen:  make(map[string]struct{}),
		shown: -1,
	}
}

// Render implements lifecycle.View.
func (t *Terminal) Render(s lifecycle.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		t.started = true
		t.phase = s.Countdown.Phase
		for _, m := range s.Messages {
			t.seen[m.ID] = struct{}{}
		}
		fmt.Fprint(t.out, Frame(s))
		return
	}

	for _, m := range s.Messages {
		if _, ok := t.seen[m.ID]; ok {
			continue
		}
		t.seen[m.ID] = struct{}{}
		fmt.Fprintln(t.out, MessageLine(m, s.Username))
	}

	if milestone(t.phase, s.Countdown) && s.Countdown.Remaining != t.shown {
		t.shown = s.Countdown.Remaining
		fmt.Fprintln(t.out, Header(s))
	}
	t.phase = s.Countdown.Phase

	if s.LastErr != nil && s.LastErr != t.lastErr {
		fmt.Fprintln(t.out, errorStyle.Render("! "+s.LastErr.Error()))
	}
	t.lastErr = s.LastErr
}

// RoomEnded implements lifecycle.View.
func (t *Terminal) RoomEnded(reason room.EndReason) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, endedStyle.Render(EndedMessage(reason)))
}

// Notice prints an informational line.
func (t *Terminal) Notice(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, mutedStyle.Render(text))
}

func milestone(prev countdown.Phase, s countdown.State) bool {
	if s.Phase != countdown.PhaseTicking {
		return false
	}
	if prev != countdown.PhaseTicking {
		return true
	}
	return s.Remaining%60 == 0 || s.Remaining <= finalSeconds
}
