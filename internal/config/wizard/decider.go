package wizard

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/imamik/fwupgrade/internal/asa"
	"github.com/imamik/fwupgrade/internal/transfer"
	"github.com/imamik/fwupgrade/internal/upgrade"
)

// Decider asks the operator what to do when a unit lacks space.
type Decider struct {
	// Destination is never offered for deletion.
	Destination string
}

// ConfirmReclaim asks whether files should be deleted to make room.
func (d *Decider) ConfirmReclaim(ctx context.Context, target upgrade.DeviceTarget, space transfer.Space) (bool, error) {
	confirmed := true
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Not enough space on %s", target)).
				Description(space.String() + ". Delete files to make room? Declining aborts the upgrade.").
				Affirmative("Delete files").
				Negative("Abort").
				Value(&confirmed),
		),
	).RunWithContext(ctx)
	if err != nil {
		return false, err
	}
	return confirmed, nil
}

// ChooseFileToDelete lets the operator pick one file from the listing.
func (d *Decider) ChooseFileToDelete(ctx context.Context, target upgrade.DeviceTarget, listing string) (string, error) {
	var name string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("File to delete on %s", target)).
				Description("The file is removed at once").
				Options(FileOptions(asa.ParseDirListing(listing), d.Destination)...).
				Value(&name),
		),
	).RunWithContext(ctx)
	if err != nil {
		return "", err
	}
	return name, nil
}
