package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/fwupgrade/internal/config"
	"github.com/imamik/fwupgrade/internal/config/wizard"
)

// Factory function variables for init - can be replaced in tests.
var (
	wizardFileExists       = wizard.FileExists
	wizardConfirmOverwrite = wizard.ConfirmOverwrite
	wizardRunWizard        = wizard.RunWizard
	wizardBuildConfig      = wizard.BuildConfig
	wizardWriteConfig      = wizard.WriteConfig
)

// Init runs the job wizard and writes the result to a file.
func Init(ctx context.Context, outputPath string) error {
	if wizardFileExists(outputPath) {
		ok, err := wizardConfirmOverwrite(outputPath)
		if err != nil {
			return fmt.Errorf("failed to confirm overwrite: %w", err)
		}
		if !ok {
			fmt.Fprintln(stdout, "Aborted, nothing written.")
			return nil
		}
	}

	printWelcome()

	result, err := wizardRunWizard(ctx, nil)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	cfg := wizardBuildConfig(result)

	if err := wizardWriteConfig(cfg, outputPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputPath, cfg)

	return nil
}

// printWelcome prints the welcome message.
func printWelcome() {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "fwupgrade - ASA firmware upgrades")
	fmt.Fprintln(stdout, "=================================")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "This wizard creates an upgrade job file.")
	fmt.Fprintln(stdout, "Passwords are not stored; they are read from the environment or prompted for.")
	fmt.Fprintln(stdout)
}

// printInitSuccess prints the success message with summary and next steps.
func printInitSuccess(outputPath string, cfg *config.Config) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Job file saved!")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  File: %s\n", outputPath)
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Job Summary")
	fmt.Fprintln(stdout, "-----------")
	fmt.Fprintf(stdout, "  Topology:    %s\n", cfg.Topology)
	for i, d := range cfg.Devices {
		fmt.Fprintf(stdout, "  Device %d:    %s:%d\n", i+1, d.Address, d.Port)
	}
	fmt.Fprintf(stdout, "  Username:    %s\n", cfg.Username)
	fmt.Fprintf(stdout, "  Image:       %s\n", cfg.Image.Source)
	fmt.Fprintf(stdout, "  Destination: %s%s\n", cfg.Image.Location, cfg.Image.Destination)
	if len(cfg.Reclaim.Delete) > 0 {
		fmt.Fprintf(stdout, "  May delete:  %v\n", cfg.Reclaim.Delete)
	}
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Next Steps")
	fmt.Fprintln(stdout, "----------")
	fmt.Fprintln(stdout, "  1. Set the device password:")
	fmt.Fprintf(stdout, "     export %s=<password>\n", config.EnvPassword)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "  2. Check the plan without changing anything:")
	fmt.Fprintf(stdout, "     fwupgrade upgrade -c %s --dry-run\n", outputPath)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "  3. Run the upgrade:")
	fmt.Fprintf(stdout, "     fwupgrade upgrade -c %s\n", outputPath)
	fmt.Fprintln(stdout)
}
