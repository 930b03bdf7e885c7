package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Model is the Bubble Tea model of the reload countdown.
type Model struct {
	Reason    string
	Total     time.Duration
	StartTime time.Time
	Now       time.Time

	// Animation
	SpinnerFrame int

	// UI state
	Width int
	Err   error
	Done  bool
}

// NewCountdownModel creates a model counting down d from start.
func NewCountdownModel(reason string, d time.Duration, start time.Time) Model {
	return Model{
		Reason:    reason,
		Total:     d,
		StartTime: start,
		Now:       start,
	}
}

// Remaining is the time left, never negative.
func (m Model) Remaining() time.Duration {
	left := m.Total - m.Now.Sub(m.StartTime)
	if left < 0 {
		return 0
	}
	return left
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "s", "q":
			// Skipping ends the dwell early; the reconnect that follows retries.
			m.Done = true
			return m, tea.Quit
		case "ctrl+c":
			m.Err = context.Canceled
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width

	case TickMsg:
		m.SpinnerFrame++
		m.Now = msg.Time
		if m.Remaining() == 0 {
			m.Done = true
			return m, tea.Quit
		}
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderCountdown(m)
}
