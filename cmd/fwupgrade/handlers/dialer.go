package handlers

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/imamik/fwupgrade/internal/config"
	"github.com/imamik/fwupgrade/internal/platform/ssh"
	"github.com/imamik/fwupgrade/internal/transfer"
	"github.com/imamik/fwupgrade/internal/upgrade"
)

// sshDialer opens device sessions and uploads over SSH. One client is kept
// per target so the host key and auth setup happen once.
type sshDialer struct {
	cfg        *config.Config
	timeouts   *config.Timeouts
	privateKey []byte

	mu      sync.Mutex
	clients map[string]*ssh.Client
}

func newSSHDialer(cfg *config.Config, timeouts *config.Timeouts) (upgrade.Dialer, error) {
	d := &sshDialer{
		cfg:      cfg,
		timeouts: timeouts,
		clients:  make(map[string]*ssh.Client),
	}
	if cfg.SSH.IdentityFile != "" {
		key, err := os.ReadFile(cfg.SSH.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read identity file: %w", err)
		}
		d.privateKey = key
	}
	return d, nil
}

func (d *sshDialer) client(target upgrade.DeviceTarget) (*ssh.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := target.HostPort()
	if c, ok := d.clients[key]; ok {
		return c, nil
	}

	c, err := ssh.NewClient(&ssh.Config{
		Host:           target.Address,
		Port:           target.Port,
		User:           target.Username,
		Password:       target.Password,
		EnableSecret:   target.EnableSecret,
		PrivateKey:     d.privateKey,
		DialTimeout:    d.timeouts.DialTimeout,
		CommandTimeout: d.timeouts.CommandTimeout,
		// The orchestrator retries connects, so every Open dials once.
		MaxRetries:     -1,
		KnownHostsFile: d.cfg.SSH.KnownHosts,
	})
	if err != nil {
		return nil, err
	}
	d.clients[key] = c
	return c, nil
}

// Open implements upgrade.Dialer.
func (d *sshDialer) Open(ctx context.Context, target upgrade.DeviceTarget) (upgrade.Session, error) {
	c, err := d.client(target)
	if err != nil {
		return nil, err
	}
	sh, err := c.OpenShell(ctx)
	if err != nil {
		return nil, err
	}
	return sh, nil
}

// Uploader implements upgrade.Dialer.
func (d *sshDialer) Uploader(target upgrade.DeviceTarget) (transfer.Uploader, error) {
	return d.client(target)
}
