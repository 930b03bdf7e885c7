package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/fwupgrade/cmd/fwupgrade/handlers"
)

// Init returns the command for interactively creating a job file.
//
// Flags:
//
//	--output, -o: Path to output file (default "fwupgrade.yaml")
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a job file",
		Long: `Interactively create an upgrade job file.

This command asks about:

  - Topology (standalone or failover pair)
  - Device addresses
  - Username
  - Image source, file name and file system
  - Optional rate limit and files that may be deleted to make room

Passwords are never written; set FWUPGRADE_PASSWORD or answer the
prompt when running fwupgrade upgrade.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "fwupgrade.yaml", "Output file path")

	return cmd
}
