package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/imamik/fwupgrade/internal/upgrade"
)

// CountdownWaiter shows a countdown while the orchestrator waits.
type CountdownWaiter struct {
	Output io.Writer
	Input  io.Reader
}

// Wait runs the countdown until d has passed or the operator skips the rest
// of it. Ctrl+C cancels the wait like a cancelled ctx.
func (w *CountdownWaiter) Wait(ctx context.Context, d time.Duration, reason string) error {
	if d <= 0 {
		return ctx.Err()
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if w.Output != nil {
		opts = append(opts, tea.WithOutput(w.Output))
	}
	if w.Input != nil {
		opts = append(opts, tea.WithInput(w.Input))
	}

	p := tea.NewProgram(NewCountdownModel(reason, d, time.Now()), opts...)
	finalModel, err := p.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(Model)
	return fm.Err
}

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewWaiter returns a countdown on a terminal and fallback otherwise.
func NewWaiter(out *os.File, fallback upgrade.Waiter) upgrade.Waiter {
	if out != nil && IsInteractive(out) {
		return &CountdownWaiter{Output: out}
	}
	return fallback
}
