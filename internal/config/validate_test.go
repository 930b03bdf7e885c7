package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		Devices:  []Device{{Address: "192.0.2.10"}},
		Username: "admin",
		Password: "secret",
		Image:    ImageConfig{Source: "/srv/asa962-smp-k8.bin"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:   "identity file instead of password",
			mutate: func(c *Config) { c.Password = ""; c.SSH.IdentityFile = "~/.ssh/id_ed25519" },
		},
		{
			name:    "unknown topology",
			mutate:  func(c *Config) { c.Topology = "cluster" },
			wantErr: `invalid topology "cluster"`,
		},
		{
			name:    "pair with one device",
			mutate:  func(c *Config) { c.Topology = "pair" },
			wantErr: "pair topology needs 2 device(s), got 1",
		},
		{
			name: "same device twice",
			mutate: func(c *Config) {
				c.Topology = "pair"
				c.Devices = append(c.Devices, c.Devices[0])
			},
			wantErr: "is listed twice",
		},
		{
			name:    "missing address",
			mutate:  func(c *Config) { c.Devices[0].Address = "" },
			wantErr: "devices[0]: address is required",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Devices[0].Port = -1 },
			wantErr: "invalid port -1",
		},
		{
			name:    "missing username",
			mutate:  func(c *Config) { c.Username = "" },
			wantErr: "username is required",
		},
		{
			name:    "missing credentials",
			mutate:  func(c *Config) { c.Password = "" },
			wantErr: "password is required",
		},
		{
			name:    "missing source",
			mutate:  func(c *Config) { c.Image.Source = "" },
			wantErr: "image.source is required",
		},
		{
			name:    "bad object URL",
			mutate:  func(c *Config) { c.Image.Source = "s3://bucket-only" },
			wantErr: "image.source: invalid object URL",
		},
		{
			name:    "destination with directory",
			mutate:  func(c *Config) { c.Image.Destination = "boot/asa.bin" },
			wantErr: "must be a plain file name",
		},
		{
			name:    "location without colon",
			mutate:  func(c *Config) { c.Image.Location = "disk0" },
			wantErr: "must be a device file system",
		},
		{
			name:    "reclaim lists destination",
			mutate:  func(c *Config) { c.Reclaim.Delete = []string{"asa962-smp-k8.bin"} },
			wantErr: "must not list the destination image",
		},
		{
			name:    "reclaim with path",
			mutate:  func(c *Config) { c.Reclaim.Delete = []string{"disk0:/old.bin"} },
			wantErr: "must be a plain file name",
		},
		{
			name:    "bad rate limit",
			mutate:  func(c *Config) { c.Transfer.RateLimit = "quick" },
			wantErr: "invalid transfer.rate_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{Topology: "pair"}
	err := cfg.Validate()
	require.Error(t, err)

	lines := strings.Split(err.Error(), "\n")
	assert.GreaterOrEqual(t, len(lines), 5)
	assert.Contains(t, err.Error(), "pair topology needs 2 device(s), got 0")
	assert.Contains(t, err.Error(), "username is required")
	assert.Contains(t, err.Error(), "image.source is required")
	assert.Contains(t, err.Error(), "image.destination is required")
	assert.Contains(t, err.Error(), "image.location")
}
