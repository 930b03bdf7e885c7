package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pairJobYAML = `
topology: pair
devices:
  - address: 192.0.2.10
  - address: 192.0.2.11
    port: 2222
username: admin
password: from-file
image:
  source: /srv/images/asa962-smp-k8.bin
reclaim:
  delete:
    - asa912-smp-k8.bin
    - asdm-openjre-7131.bin
transfer:
  rate_limit: 10 MiB
`

func writeJobFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvPassword, "")
	t.Setenv(EnvEnableSecret, "")

	cfg, err := LoadFile(writeJobFile(t, pairJobYAML))
	require.NoError(t, err)

	assert.Equal(t, "pair", cfg.Topology)
	require.Len(t, cfg.Devices, 2)
	assert.Equal(t, Device{Address: "192.0.2.11", Port: 2222}, cfg.Devices[1])
	assert.Equal(t, "from-file", cfg.Password)
	assert.Equal(t, []string{"asa912-smp-k8.bin", "asdm-openjre-7131.bin"}, cfg.Reclaim.Delete)

	rate, err := cfg.RateLimitBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(10<<20), rate)

	cfg.ApplyDefaults()
	assert.Equal(t, "asa962-smp-k8.bin", cfg.Image.Destination)
	assert.Equal(t, "disk0:", cfg.Image.Location)
	assert.Equal(t, 22, cfg.Devices[0].Port)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_EnvOverridesSecrets(t *testing.T) {
	t.Setenv(EnvPassword, "from-env")
	t.Setenv(EnvEnableSecret, "enable-env")
	t.Setenv(EnvS3AccessKey, "AKIA")
	t.Setenv(EnvS3SecretKey, "shh")

	cfg, err := LoadFile(writeJobFile(t, pairJobYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Password)
	assert.Equal(t, "enable-env", cfg.EnableSecret)
	assert.Equal(t, "AKIA", cfg.S3.AccessKey)
	assert.Equal(t, "shh", cfg.S3.SecretKey)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	_, err = LoadFile(writeJobFile(t, "devices: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal yaml")
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("usernme: admin\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usernme")
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Devices)
}

func TestApplyEnv_KeepsFileValuesWhenUnset(t *testing.T) {
	cfg := &Config{Password: "file", EnableSecret: "enable"}
	cfg.ApplyEnv(func(string) string { return "" })
	assert.Equal(t, "file", cfg.Password)
	assert.Equal(t, "enable", cfg.EnableSecret)
}
