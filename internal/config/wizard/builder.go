package wizard

import (
	"strings"

	"github.com/imamik/fwupgrade/internal/config"
)

// BuildConfig converts wizard answers to a job config with defaults applied.
// Secrets are never part of the result.
func BuildConfig(result *WizardResult) *config.Config {
	cfg := &config.Config{
		Topology: result.Topology,
		Username: strings.TrimSpace(result.Username),
		Image: config.ImageConfig{
			Source:      strings.TrimSpace(result.Source),
			Destination: result.Destination,
			Location:    result.Location,
		},
		Transfer: config.TransferConfig{
			RateLimit: strings.TrimSpace(result.RateLimit),
		},
	}

	for _, addr := range result.Addresses {
		cfg.Devices = append(cfg.Devices, config.Device{Address: strings.TrimSpace(addr)})
	}

	if len(result.Reclaim) > 0 {
		cfg.Reclaim.Delete = append([]string(nil), result.Reclaim...)
	}

	cfg.ApplyDefaults()
	return cfg
}
