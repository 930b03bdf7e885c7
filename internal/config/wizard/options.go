package wizard

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"

	"github.com/imamik/fwupgrade/internal/asa"
	"github.com/imamik/fwupgrade/internal/upgrade"
)

// LocationOption is a file system on the device.
type LocationOption struct {
	Value       string
	Description string
}

// Locations contains the file systems an image is usually stored on.
var Locations = []LocationOption{
	{Value: "disk0:", Description: "Internal flash"},
	{Value: "disk1:", Description: "External compact flash"},
	{Value: "flash:", Description: "Internal flash (alias on some models)"},
}

// TopologyOptions contains the supported deployments.
var TopologyOptions = []huh.Option[string]{
	huh.NewOption("Standalone (one unit)", string(upgrade.Standalone)),
	huh.NewOption("Failover pair (two units, upgraded in turn)", string(upgrade.Pair)),
}

// recheckLabel is the file selection entry that deletes nothing.
const recheckLabel = "Nothing, check free space again"

// LocationsToOptions converts Locations to huh options.
func LocationsToOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], len(Locations))
	for i, loc := range Locations {
		opts[i] = huh.NewOption(loc.Value+" - "+loc.Description, loc.Value)
	}
	return opts
}

// FileOptions converts a directory listing to deletion candidates. The
// destination image is left out, and the last option deletes nothing.
func FileOptions(entries []asa.FileEntry, destination string) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(entries)+1)
	for _, e := range entries {
		if e.Name == destination {
			continue
		}
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", e.Name, humanize.IBytes(e.Size)), e.Name))
	}
	return append(opts, huh.NewOption(recheckLabel, ""))
}
