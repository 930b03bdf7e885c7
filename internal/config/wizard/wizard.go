package wizard

import (
	"context"
	"fmt"

	"github.com/imamik/fwupgrade/internal/config"
)

// WizardResult holds all the answers from the interactive wizard.
type WizardResult struct {
	Topology  string
	Addresses []string
	Username  string

	Source      string
	Destination string
	Location    string

	// Optional transfer settings
	RateLimit string
	Reclaim   []string
}

// RunWizard runs the interactive job wizard. Answers already present in
// seed are offered as defaults; seed may be nil.
// The context is used for cancellation support (e.g., Ctrl+C).
func RunWizard(ctx context.Context, seed *config.Config) (*WizardResult, error) {
	result := seedResult(seed)

	if err := runTopologyGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}

	if err := runDevicesGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("devices: %w", err)
	}

	if err := runCredentialsGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}

	if err := runImageGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	if err := runTransferGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}

	return result, nil
}

// seedResult prefills answers from an existing config.
func seedResult(cfg *config.Config) *WizardResult {
	result := &WizardResult{}
	if cfg == nil {
		return result
	}
	result.Topology = cfg.Topology
	for _, d := range cfg.Devices {
		result.Addresses = append(result.Addresses, d.Address)
	}
	result.Username = cfg.Username
	result.Source = cfg.Image.Source
	result.Destination = cfg.Image.Destination
	result.Location = cfg.Image.Location
	result.RateLimit = cfg.Transfer.RateLimit
	result.Reclaim = append(result.Reclaim, cfg.Reclaim.Delete...)
	return result
}
