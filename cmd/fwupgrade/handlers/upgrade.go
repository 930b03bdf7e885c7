// Package handlers implements the business logic behind the CLI commands.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/juju/clock"

	"github.com/imamik/fwupgrade/internal/config"
	"github.com/imamik/fwupgrade/internal/config/wizard"
	"github.com/imamik/fwupgrade/internal/image"
	"github.com/imamik/fwupgrade/internal/metrics"
	"github.com/imamik/fwupgrade/internal/platform/s3"
	"github.com/imamik/fwupgrade/internal/ui/tui"
	"github.com/imamik/fwupgrade/internal/upgrade"
)

// UpgradeOptions contains options for the upgrade command.
type UpgradeOptions struct {
	ConfigPath string

	// Overrides of the job file
	Addresses   []string
	Pair        bool
	Username    string
	Image       string
	Destination string
	Location    string

	DryRun         bool
	NonInteractive bool
	LogFormat      string
	MetricsFile    string
}

// Factory function variables for upgrade - can be replaced in tests.
var (
	loadConfig     = config.LoadFile
	runWizard      = wizard.RunWizard
	promptPassword = wizard.PromptPassword

	isInteractive = func() bool {
		return tui.IsInteractive(os.Stdin) && tui.IsInteractive(os.Stdout)
	}

	newDialer = newSSHDialer

	newFetcher = func(ctx context.Context, opts config.S3Config) (image.Fetcher, error) {
		return s3.NewClient(ctx, s3.Options{
			Endpoint:  opts.Endpoint,
			Region:    opts.Region,
			AccessKey: opts.AccessKey,
			SecretKey: opts.SecretKey,
			PathStyle: opts.PathStyle,
		})
	}

	newWaiter = func(interactive bool) upgrade.Waiter {
		fallback := upgrade.ClockWaiter{Clock: clock.WallClock}
		if !interactive {
			return fallback
		}
		return tui.NewWaiter(os.Stdout, fallback)
	}

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Upgrade handles the upgrade command.
//
// It merges the job file, flags and (when attached to a terminal) wizard
// answers into a job, fetches the image and runs the orchestrator. The
// summary is printed whatever the outcome; a failed job is returned as an
// ExitError carrying the exit code of its outcome.
func Upgrade(ctx context.Context, opts UpgradeOptions) error {
	observer, err := newObserver(opts.LogFormat, stderr)
	if err != nil {
		return &ExitError{Code: ExitInvalidInvocation, Err: err}
	}

	interactive := !opts.NonInteractive && isInteractive()

	cfg, err := resolveConfig(ctx, opts, interactive)
	if err != nil {
		return err
	}

	timeouts := config.LoadTimeouts()
	rate, err := cfg.RateLimitBytes()
	if err != nil {
		return &ExitError{Code: ExitInvalidInvocation, Err: err}
	}

	var fetcher image.Fetcher
	if cfg.RemoteImage() {
		fetcher, err = newFetcher(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to create object storage client: %w", err)
		}
		observer.Printf("Downloading %s", cfg.Image.Source)
	}
	img, err := image.Resolve(ctx, cfg.Image.Source, fetcher, "")
	if err != nil {
		return fmt.Errorf("failed to resolve image: %w", err)
	}
	defer func() { _ = img.Close() }()

	dialer, err := newDialer(cfg, timeouts)
	if err != nil {
		return err
	}

	var decider upgrade.Decider = upgrade.NewListDecider(cfg.Reclaim.Delete)
	if interactive {
		decider = &wizard.Decider{Destination: cfg.Image.Destination}
	}

	recorder := metrics.NewRecorder()
	orch, err := upgrade.New(upgrade.Dependencies{
		Dialer:   dialer,
		Decider:  decider,
		Waiter:   newWaiter(interactive),
		Observer: observer,
		Recorder: recorder,
		Clock:    clock.WallClock,
	}, upgrade.Options{
		ReloadWait:      timeouts.ReloadWait,
		FailoverSettle:  timeouts.FailoverSettle,
		ConnectAttempts: timeouts.RetryMaxAttempts,
		ConnectDelay:    timeouts.RetryInitialDelay,
		RateLimit:       rate,
		TransferTimeout: timeouts.TransferTimeout,
		DryRun:          opts.DryRun,
	})
	if err != nil {
		return err
	}

	res, runErr := orch.Run(ctx, cfg.Job(), img)
	if res != nil {
		fmt.Fprint(stdout, tui.RenderSummary(res))
	}

	if opts.MetricsFile != "" {
		if err := recorder.WriteTextfile(opts.MetricsFile); err != nil {
			observer.Printf("Warning: %v", err)
		}
	}

	if runErr != nil {
		if res == nil {
			return &ExitError{Code: ExitInvalidInvocation, Err: runErr}
		}
		return &ExitError{Code: ExitCodeFor(res.Outcome), Err: fmt.Errorf("upgrade %s: %w", res.Outcome, runErr)}
	}
	return nil
}

// resolveConfig builds a valid config from the job file, flags and, when
// interactive, the wizard and password prompt.
func resolveConfig(ctx context.Context, opts UpgradeOptions, interactive bool) (*config.Config, error) {
	cfg := &config.Config{}
	if opts.ConfigPath != "" {
		loaded, err := loadConfig(opts.ConfigPath)
		if err != nil {
			return nil, &ExitError{Code: ExitInvalidInvocation, Err: fmt.Errorf("failed to load config: %w", err)}
		}
		cfg = loaded
	} else {
		cfg.ApplyEnv(os.Getenv)
	}

	applyOverrides(cfg, opts)

	if interactive && needsWizard(cfg) {
		result, err := runWizard(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("wizard canceled: %w", err)
		}
		mergeWizard(cfg, result)
	}
	cfg.ApplyDefaults()

	if interactive && cfg.Password == "" && cfg.SSH.IdentityFile == "" && cfg.Username != "" {
		password, err := promptPassword(ctx, cfg.Username)
		if err != nil {
			return nil, fmt.Errorf("password prompt canceled: %w", err)
		}
		cfg.Password = password
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ExitError{Code: ExitInvalidInvocation, Err: fmt.Errorf("invalid configuration: %w", err)}
	}
	return cfg, nil
}

// applyOverrides copies non-empty flag values over the job file.
func applyOverrides(cfg *config.Config, opts UpgradeOptions) {
	if len(opts.Addresses) > 0 {
		cfg.Devices = nil
		for _, addr := range opts.Addresses {
			cfg.Devices = append(cfg.Devices, config.Device{Address: addr})
		}
		cfg.Topology = ""
	}
	if opts.Pair {
		cfg.Topology = string(upgrade.Pair)
	}
	if opts.Username != "" {
		cfg.Username = opts.Username
	}
	if opts.Image != "" {
		cfg.Image.Source = opts.Image
	}
	if opts.Destination != "" {
		cfg.Image.Destination = opts.Destination
	}
	if opts.Location != "" {
		cfg.Image.Location = opts.Location
	}
}

// needsWizard reports whether a required answer is missing.
func needsWizard(cfg *config.Config) bool {
	return len(cfg.Devices) == 0 ||
		(cfg.Topology == string(upgrade.Pair) && len(cfg.Devices) < 2) ||
		cfg.Username == "" ||
		cfg.Image.Source == ""
}

// mergeWizard takes the wizard answers while keeping secrets and the
// settings the wizard does not ask about.
func mergeWizard(cfg *config.Config, result *wizard.WizardResult) {
	built := wizard.BuildConfig(result)
	built.Password = cfg.Password
	built.EnableSecret = cfg.EnableSecret
	built.SSH = cfg.SSH
	built.S3 = cfg.S3
	*cfg = *built
}
