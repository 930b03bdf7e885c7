package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderCountdown(m Model) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Waiting"))
	if m.Reason != "" {
		b.WriteString(dimStyle.Render(" for " + m.Reason))
	}
	b.WriteString("\n")

	renderProgressBar(&b, m)
	renderFooter(&b, m)

	return b.String()
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = m.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
	}
	filled := int(float64(barWidth) * progress)
	if filled > barWidth {
		filled = barWidth
	}

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	icon := activeStyle.Render(currentSpinner(m.SpinnerFrame))
	if m.Done {
		icon = readyStyle.Render(checkMark)
	}
	fmt.Fprintf(b, "  %s %s %s left\n", icon, bar, formatDuration(m.Remaining()))
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(m.Now.Sub(m.StartTime))
	b.WriteString(footerStyle.Render(fmt.Sprintf("  elapsed: %s of %s  |  s: skip wait  |  ctrl+c: abort", elapsed, formatDuration(m.Total))))
	b.WriteString("\n")
}

// Helper functions

func statusIcon(ok bool) (string, styleFunc) {
	if ok {
		return checkMark, sf(readyStyle)
	}
	return crossMark, sf(failedStyle)
}

func currentSpinner(frame int) string {
	if len(spinnerFrames) == 0 {
		return spinner
	}
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func calculateProgress(m Model) float64 {
	if m.Done || m.Total <= 0 {
		return 1.0
	}
	progress := float64(m.Total-m.Remaining()) / float64(m.Total)
	if progress > 1.0 {
		progress = 1.0
	}
	return progress
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
