package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/fwupgrade/internal/config"
	"github.com/imamik/fwupgrade/internal/config/wizard"
	fwtesting "github.com/imamik/fwupgrade/internal/testing"
	"github.com/imamik/fwupgrade/internal/upgrade"
)

const (
	newImage = "asa962-smp-k8.bin"
	oldImage = "asa912-smp-k8.bin"
)

// saveAndRestoreUpgradeFactories saves and restores upgrade factory functions.
func saveAndRestoreUpgradeFactories(t *testing.T) {
	origLoadConfig := loadConfig
	origRunWizard := runWizard
	origPromptPassword := promptPassword
	origIsInteractive := isInteractive
	origNewDialer := newDialer
	origNewFetcher := newFetcher
	origNewWaiter := newWaiter
	origStdout := stdout
	origStderr := stderr

	t.Cleanup(func() {
		loadConfig = origLoadConfig
		runWizard = origRunWizard
		promptPassword = origPromptPassword
		isInteractive = origIsInteractive
		newDialer = origNewDialer
		newFetcher = origNewFetcher
		newWaiter = origNewWaiter
		stdout = origStdout
		stderr = origStderr
	})
}

type upgradeEnv struct {
	dialer *fwtesting.FakeDialer
	waiter *fwtesting.RecordingWaiter
	out    *bytes.Buffer
	image  string
}

func setupUpgrade(t *testing.T, devices map[string]*fwtesting.FakeDevice) *upgradeEnv {
	t.Helper()
	saveAndRestoreUpgradeFactories(t)

	env := &upgradeEnv{
		dialer: fwtesting.NewFakeDialer(devices),
		waiter: &fwtesting.RecordingWaiter{},
		out:    &bytes.Buffer{},
		image:  filepath.Join(t.TempDir(), newImage),
	}
	require.NoError(t, os.WriteFile(env.image, []byte("firmware"), 0600))

	newDialer = func(*config.Config, *config.Timeouts) (upgrade.Dialer, error) {
		return env.dialer, nil
	}
	newWaiter = func(bool) upgrade.Waiter { return env.waiter }
	isInteractive = func() bool { return false }
	stdout = env.out
	stderr = io.Discard
	return env
}

func writeJob(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestUpgrade_StandaloneFromJobFile(t *testing.T) {
	dev := fwtesting.NewFakeDevice("fw-a", 10000)
	dev.AddFile(oldImage, 3000)
	env := setupUpgrade(t, map[string]*fwtesting.FakeDevice{"10.0.0.1": dev})

	job := writeJob(t, `
devices:
  - address: 10.0.0.1
username: admin
password: secret
image:
  source: `+env.image+`
`)
	metricsFile := filepath.Join(t.TempDir(), "fwupgrade.prom")

	err := Upgrade(context.Background(), UpgradeOptions{
		ConfigPath:     job,
		NonInteractive: true,
		MetricsFile:    metricsFile,
	})
	require.NoError(t, err)

	assert.Equal(t, newImage, dev.RunningImage)
	assert.Equal(t, 1, dev.Reloads)
	assert.Contains(t, env.out.String(), "completed")
	assert.Contains(t, env.out.String(), "10.0.0.1:22")

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `fwupgrade_job_outcome{outcome="completed"} 1`)
}

func TestUpgrade_FlagsWithoutJobFile(t *testing.T) {
	dev := fwtesting.NewFakeDevice("fw-a", 10000)
	env := setupUpgrade(t, map[string]*fwtesting.FakeDevice{"10.0.0.1": dev})
	t.Setenv(config.EnvPassword, "secret")

	err := Upgrade(context.Background(), UpgradeOptions{
		Addresses:      []string{"10.0.0.1"},
		Username:       "admin",
		Image:          env.image,
		Destination:    "asa962.bin",
		NonInteractive: true,
	})
	require.NoError(t, err)

	assert.True(t, dev.HasFile("asa962.bin"))
	assert.Equal(t, "asa962.bin", dev.RunningImage)
}

func TestUpgrade_DryRunChangesNothing(t *testing.T) {
	dev := fwtesting.NewFakeDevice("fw-a", 10000)
	dev.AddFile(oldImage, 3000)
	env := setupUpgrade(t, map[string]*fwtesting.FakeDevice{"10.0.0.1": dev})
	t.Setenv(config.EnvPassword, "secret")

	err := Upgrade(context.Background(), UpgradeOptions{
		Addresses:      []string{"10.0.0.1"},
		Username:       "admin",
		Image:          env.image,
		DryRun:         true,
		NonInteractive: true,
	})
	require.NoError(t, err)

	assert.Empty(t, dev.Uploads())
	assert.Equal(t, 0, dev.Reloads)
	assert.Equal(t, oldImage, dev.RunningImage)
	assert.Contains(t, env.out.String(), "dry-run")
}

func TestUpgrade_ReclaimsFromJobFileList(t *testing.T) {
	dev := fwtesting.NewFakeDevice("fw-a", 4000)
	dev.AddFile(oldImage, 3000)
	dev.AddFile("asdm-771.bin", 995)
	env := setupUpgrade(t, map[string]*fwtesting.FakeDevice{"10.0.0.1": dev})

	job := writeJob(t, `
devices:
  - address: 10.0.0.1
username: admin
password: secret
image:
  source: `+env.image+`
reclaim:
  delete: [asdm-771.bin]
`)

	err := Upgrade(context.Background(), UpgradeOptions{ConfigPath: job, NonInteractive: true})
	require.NoError(t, err)

	assert.False(t, dev.HasFile("asdm-771.bin"))
	assert.True(t, dev.HasFile(oldImage))
	assert.Contains(t, env.out.String(), "deleted asdm-771.bin")
}

func TestUpgrade_NoSpaceNonInteractiveAborts(t *testing.T) {
	dev := fwtesting.NewFakeDevice("fw-a", 3000)
	dev.AddFile(oldImage, 3000)
	env := setupUpgrade(t, map[string]*fwtesting.FakeDevice{"10.0.0.1": dev})
	t.Setenv(config.EnvPassword, "secret")

	err := Upgrade(context.Background(), UpgradeOptions{
		Addresses:      []string{"10.0.0.1"},
		Username:       "admin",
		Image:          env.image,
		NonInteractive: true,
	})
	require.Error(t, err)

	assert.ErrorIs(t, err, upgrade.ErrJobAborted)
	assert.Equal(t, ExitAborted, ExitCode(err))
	assert.Empty(t, dev.Uploads())
	assert.Contains(t, env.out.String(), "aborted")
}

func TestUpgrade_ConnectionFailureExitCode(t *testing.T) {
	env := setupUpgrade(t, map[string]*fwtesting.FakeDevice{})
	t.Setenv(config.EnvPassword, "secret")
	t.Setenv("FWUPGRADE_RETRY_MAX_ATTEMPTS", "2")
	t.Setenv("FWUPGRADE_RETRY_INITIAL_DELAY", "1ms")

	err := Upgrade(context.Background(), UpgradeOptions{
		Addresses:      []string{"10.0.0.9"},
		Username:       "admin",
		Image:          env.image,
		NonInteractive: true,
	})
	require.Error(t, err)

	assert.ErrorIs(t, err, upgrade.ErrConnectionFailure)
	assert.Equal(t, ExitConnectionFailure, ExitCode(err))
	assert.Equal(t, []string{"10.0.0.9", "10.0.0.9"}, env.dialer.Opens())
}

func TestUpgrade_Pair(t *testing.T) {
	a := fwtesting.NewFakeDevice("fw-a", 10000)
	b := fwtesting.NewFakeDevice("fw-b", 10000)
	fwtesting.Pair(a, b)
	env := setupUpgrade(t, map[string]*fwtesting.FakeDevice{"10.0.0.1": a, "10.0.0.2": b})
	t.Setenv(config.EnvPassword, "secret")

	err := Upgrade(context.Background(), UpgradeOptions{
		Addresses:      []string{"10.0.0.1", "10.0.0.2"},
		Username:       "admin",
		Image:          env.image,
		NonInteractive: true,
	})
	require.NoError(t, err)

	assert.Equal(t, newImage, a.RunningImage)
	assert.Equal(t, newImage, b.RunningImage)
	assert.Contains(t, env.out.String(), "Active unit: 10.0.0.2")
}

func TestUpgrade_InvalidConfig(t *testing.T) {
	setupUpgrade(t, nil)

	err := Upgrade(context.Background(), UpgradeOptions{NonInteractive: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Equal(t, ExitInvalidInvocation, ExitCode(err))
}

func TestUpgrade_UnknownLogFormat(t *testing.T) {
	setupUpgrade(t, nil)

	err := Upgrade(context.Background(), UpgradeOptions{LogFormat: "xml"})
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInvocation, ExitCode(err))
}

func TestUpgrade_LoadConfigError(t *testing.T) {
	setupUpgrade(t, nil)
	loadConfig = func(string) (*config.Config, error) {
		return nil, errors.New("boom")
	}

	err := Upgrade(context.Background(), UpgradeOptions{ConfigPath: "job.yaml", NonInteractive: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestUpgrade_InteractiveFillsGapsAndPromptsPassword(t *testing.T) {
	dev := fwtesting.NewFakeDevice("fw-a", 10000)
	env := setupUpgrade(t, map[string]*fwtesting.FakeDevice{"10.0.0.1": dev})
	isInteractive = func() bool { return true }
	t.Setenv(config.EnvPassword, "")

	var wizardRan, prompted bool
	runWizard = func(_ context.Context, seed *config.Config) (*wizard.WizardResult, error) {
		wizardRan = true
		assert.Equal(t, env.image, seed.Image.Source)
		return &wizard.WizardResult{
			Addresses: []string{"10.0.0.1"},
			Username:  "admin",
			Source:    seed.Image.Source,
			Location:  "disk0:",
		}, nil
	}
	promptPassword = func(_ context.Context, username string) (string, error) {
		prompted = true
		assert.Equal(t, "admin", username)
		return "secret", nil
	}

	err := Upgrade(context.Background(), UpgradeOptions{Image: env.image})
	require.NoError(t, err)

	assert.True(t, wizardRan)
	assert.True(t, prompted)
	assert.Equal(t, newImage, dev.RunningImage)
}

func TestUpgrade_WizardCanceled(t *testing.T) {
	setupUpgrade(t, nil)
	isInteractive = func() bool { return true }
	runWizard = func(context.Context, *config.Config) (*wizard.WizardResult, error) {
		return nil, context.Canceled
	}

	err := Upgrade(context.Background(), UpgradeOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wizard canceled")
}

func TestApplyOverrides(t *testing.T) {
	cfg := &config.Config{
		Topology: "standalone",
		Devices:  []config.Device{{Address: "old"}},
		Image:    config.ImageConfig{Source: "a.bin", Location: "disk0:"},
	}

	applyOverrides(cfg, UpgradeOptions{
		Addresses: []string{"10.0.0.1", "10.0.0.2"},
		Pair:      true,
		Location:  "disk1:",
	})

	assert.Equal(t, "pair", cfg.Topology)
	assert.Equal(t, []config.Device{{Address: "10.0.0.1"}, {Address: "10.0.0.2"}}, cfg.Devices)
	assert.Equal(t, "a.bin", cfg.Image.Source)
	assert.Equal(t, "disk1:", cfg.Image.Location)
}

func TestNeedsWizard(t *testing.T) {
	complete := &config.Config{
		Devices:  []config.Device{{Address: "a"}},
		Username: "admin",
		Image:    config.ImageConfig{Source: "a.bin"},
	}
	assert.False(t, needsWizard(complete))

	halfPair := *complete
	halfPair.Topology = "pair"
	assert.True(t, needsWizard(&halfPair))

	noImage := *complete
	noImage.Image.Source = ""
	assert.True(t, needsWizard(&noImage))
}

func TestMergeWizardKeepsSecrets(t *testing.T) {
	cfg := &config.Config{
		Password: "secret",
		SSH:      config.SSHConfig{KnownHosts: "/etc/ssh/known_hosts"},
		S3:       config.S3Config{Region: "eu-central-1"},
	}

	mergeWizard(cfg, &wizard.WizardResult{
		Addresses: []string{"10.0.0.1"},
		Username:  "admin",
		Source:    "a.bin",
	})

	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "/etc/ssh/known_hosts", cfg.SSH.KnownHosts)
	assert.Equal(t, "eu-central-1", cfg.S3.Region)
	assert.Equal(t, "standalone", cfg.Topology)
	assert.Equal(t, "a.bin", cfg.Image.Destination)
}
