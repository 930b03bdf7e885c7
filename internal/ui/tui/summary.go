package tui

import (
	"fmt"
	"strings"

	"github.com/imamik/fwupgrade/internal/failover"
	"github.com/imamik/fwupgrade/internal/upgrade"
)

// RenderSummary formats the result of a job for the terminal.
func RenderSummary(res *upgrade.Result) string {
	var b strings.Builder

	renderSummaryHeader(&b, res)

	for _, d := range res.Devices {
		renderDevice(&b, d)
	}

	if res.FinalActive != "" {
		fmt.Fprintf(&b, "\n  Active unit: %s\n", activeStyle.Render(res.FinalActive))
	}

	if warnings := res.AllWarnings(); len(warnings) > 0 {
		b.WriteString(sectionStyle.Render("  Warnings"))
		b.WriteString("\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "    %s %s\n", warningStyle.Render(warnMark), w)
		}
	}

	if res.Err != nil {
		b.WriteString(sectionStyle.Render("  Error"))
		b.WriteString("\n")
		fmt.Fprintf(&b, "    %s %s\n", failedStyle.Render(crossMark), res.Err)
	}

	return b.String()
}

func renderSummaryHeader(b *strings.Builder, res *upgrade.Result) {
	b.WriteString(titleStyle.Render("fwupgrade"))

	var status string
	switch res.Outcome {
	case upgrade.OutcomeCompleted:
		status = readyStyle.Render(string(res.Outcome))
	case upgrade.OutcomeDryRun:
		status = activeStyle.Render(string(res.Outcome))
	default:
		status = failedStyle.Render(string(res.Outcome))
	}
	fmt.Fprintf(b, " %s %s\n", status, dimStyle.Render("in "+formatDuration(res.Elapsed)))
}

func renderDevice(b *strings.Builder, d *upgrade.DeviceReport) {
	title := "  " + d.Target.HostPort()
	if d.InitialRole != failover.Unknown || d.FinalRole != failover.Unknown {
		title += fmt.Sprintf(" (%s -> %s)", d.InitialRole, d.FinalRole)
	}
	b.WriteString(sectionStyle.Render(title))
	b.WriteString("\n")

	for _, s := range d.Steps {
		var icon string
		var style styleFunc
		switch s.Status {
		case upgrade.StatusSkipped:
			icon, style = skipMark, sf(dimStyle)
		default:
			icon, style = statusIcon(s.Status == upgrade.StatusCompleted)
		}
		fmt.Fprintf(b, "    %s %-26s %s\n", style(icon), s.Step, dimStyle.Render(formatDuration(s.Duration)))
	}

	for _, name := range d.Deleted {
		fmt.Fprintf(b, "    %s deleted %s\n", dimStyle.Render("-"), name)
	}

	if d.VersionVerified {
		fmt.Fprintf(b, "    %s running the new image\n", readyStyle.Render(checkMark))
	}
}
