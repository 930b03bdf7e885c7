package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/fwupgrade/cmd/fwupgrade/handlers"
)

// Upgrade returns the command that upgrades the firmware of one or two units.
//
// Optional flags:
//
//	--config, -c: Path to the job YAML file
//	--image: Image source, a local path or s3://bucket/key
//	--dest: File name of the image on the device
//	--location: Device file system (default disk0:)
//	--dry-run: Read device state and report the plan without changes
//	--non-interactive: Never prompt; reclaim space from the job file list only
//	--log-format: text or json
//	--metrics-file: Write Prometheus metrics to this file after the run
//
// Environment variables:
//
//	FWUPGRADE_PASSWORD, FWUPGRADE_ENABLE_SECRET: device credentials
func Upgrade() *cobra.Command {
	var opts handlers.UpgradeOptions

	cmd := &cobra.Command{
		Use:   "upgrade [address...]",
		Short: "Upgrade a standalone unit or a failover pair",
		Long: `Upgrade the firmware of a standalone unit or both units of a failover pair.

For each unit the upgrade:
1. Checks whether the image is already on the device
2. Makes room if needed and copies the image over SCP
3. Verifies the MD5 checksum
4. Sets the boot variable and saves the configuration
5. Reloads and checks the running version once the unit is back

For a pair the active unit is failed over before it is reloaded, and the
originally standby unit is left active at the end.

Devices come from the job file or from the arguments; missing settings are
asked for interactively unless --non-interactive is given.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Addresses = args
			return handlers.Upgrade(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to job file")
	cmd.Flags().StringVar(&opts.Image, "image", "", "Image source, local path or s3://bucket/key")
	cmd.Flags().StringVar(&opts.Destination, "dest", "", "Image file name on the device (default: source base name)")
	cmd.Flags().StringVar(&opts.Location, "location", "", "Device file system (default disk0:)")
	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "Login name")
	cmd.Flags().BoolVar(&opts.Pair, "pair", false, "Treat the two addresses as a failover pair")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report what would be done without changing anything")
	cmd.Flags().BoolVar(&opts.NonInteractive, "non-interactive", false, "Never prompt")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", handlers.LogFormatText, "Log format: text or json")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file")

	return cmd
}
