// Package tui provides the terminal output of fwupgrade: a Bubble Tea
// countdown for the reload dwell and a lipgloss job summary.
package tui

import "time"

// TickMsg is sent periodically to refresh the display.
type TickMsg struct {
	Time time.Time
}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the wait is over.
type DoneMsg struct{}
