// Package view renders a room view to a terminal.
package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/burnroom/internal/countdown"
	"github.com/vovakirdan/burnroom/internal/room"
)

const (
	// EmptyFeed is shown when a room has no messages.
	EmptyFeed = "No messages yet, start the conversation!"
	// UnknownRemaining is shown until the countdown is armed.
	UnknownRemaining = "--:--"
	// SelfLabel replaces the local user's name on their own messages.
	SelfLabel = "YOU"

	urgentBelow = 60
)

var (
	urgentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	calmStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	selfStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	otherStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	headerStyle  = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	endedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// FormatRemaining renders remaining seconds as m:ss, or UnknownRemaining
// when the countdown has no value yet.
func FormatRemaining(s countdown.State) string {
	if !s.Known() {
		return UnknownRemaining
	}
	return fmt.Sprintf("%d:%02d", s.Remaining/60, s.Remaining%60)
}

// Urgent reports whether the countdown should be highlighted.
func Urgent(s countdown.State) bool {
	return s.Known() && s.Remaining < urgentBelow
}

// Countdown returns the styled countdown.
func Countdown(s countdown.State) string {
	text := FormatRemaining(s)
	if Urgent(s) {
		return urgentStyle.Render(text)
	}
	return calmStyle.Render(text)
}

// SenderLabel returns the label shown for msg's sender.
func SenderLabel(msg room.Message, self string) string {
	if msg.Sender == self {
		return SelfLabel
	}
	return strings.ToUpper(msg.Sender)
}

// MessageLine renders one message as "HH:mm  SENDER  text".
func MessageLine(msg room.Message, self string) string {
	style := otherStyle
	if msg.Sender == self {
		style = selfStyle
	}
	return fmt.Sprintf("%s  %s  %s",
		timeStyle.Render(msg.Timestamp.Local().Format("15:04")),
		style.Render(SenderLabel(msg, self)),
		msg.Text,
	)
}

// EndedMessage describes why a room ended.
func EndedMessage(reason room.EndReason) string {
	switch reason {
	case room.ReasonExpired:
		return "room destroyed: time ran out"
	case room.ReasonDestroyedRemote:
		return "room destroyed by another participant"
	case room.ReasonDestroyedLocal:
		return "room destroyed"
	default:
		return "left room"
	}
}
