package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/imamik/fwupgrade/internal/asa"
	"github.com/imamik/fwupgrade/internal/image"
	"github.com/imamik/fwupgrade/internal/upgrade"
)

// Config holds the job file contents.
type Config struct {
	Topology     string   `yaml:"topology,omitempty"`
	Devices      []Device `yaml:"devices"`
	Username     string   `yaml:"username,omitempty"`
	Password     string   `yaml:"password,omitempty"`
	EnableSecret string   `yaml:"enable_secret,omitempty"`

	Image    ImageConfig    `yaml:"image"`
	Reclaim  ReclaimConfig  `yaml:"reclaim,omitempty"`
	Transfer TransferConfig `yaml:"transfer,omitempty"`
	SSH      SSHConfig      `yaml:"ssh,omitempty"`
	S3       S3Config       `yaml:"s3,omitempty"`
}

// Device is one unit to upgrade.
type Device struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port,omitempty"`
}

// ImageConfig names the image and where it goes on the device.
type ImageConfig struct {
	// Source is a local path or s3://bucket/key.
	Source      string `yaml:"source"`
	Destination string `yaml:"destination,omitempty"`
	Location    string `yaml:"location,omitempty"`
}

// ReclaimConfig lists files that may be deleted, in order, when a device
// lacks space and nobody is there to ask.
type ReclaimConfig struct {
	Delete []string `yaml:"delete,omitempty"`
}

// TransferConfig tunes the upload.
type TransferConfig struct {
	// RateLimit is a byte rate such as "10 MB" or "512KiB" per second.
	RateLimit string `yaml:"rate_limit,omitempty"`
}

// SSHConfig controls host key checking and key authentication.
type SSHConfig struct {
	KnownHosts   string `yaml:"known_hosts,omitempty"`
	IdentityFile string `yaml:"identity_file,omitempty"`
}

// S3Config configures object storage for s3:// image sources.
type S3Config struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Region    string `yaml:"region,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// ApplyDefaults fills optional fields that have a natural default.
func (c *Config) ApplyDefaults() {
	if c.Image.Location == "" {
		c.Image.Location = asa.DefaultFileLocation
	}
	if c.Image.Destination == "" && c.Image.Source != "" {
		c.Image.Destination = path.Base(c.Image.Source)
	}
	if c.Topology == "" {
		if len(c.Devices) == 2 {
			c.Topology = string(upgrade.Pair)
		} else if len(c.Devices) == 1 {
			c.Topology = string(upgrade.Standalone)
		}
	}
	for i := range c.Devices {
		if c.Devices[i].Port == 0 {
			c.Devices[i].Port = upgrade.DefaultPort
		}
	}
}

// DeviceCount is the number of devices the topology needs.
func (c *Config) DeviceCount() int {
	if c.Topology == string(upgrade.Pair) {
		return 2
	}
	return 1
}

// RateLimitBytes parses the transfer rate limit. Zero means unlimited.
func (c *Config) RateLimitBytes() (int64, error) {
	if strings.TrimSpace(c.Transfer.RateLimit) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.Transfer.RateLimit)
	if err != nil {
		return 0, fmt.Errorf("invalid transfer.rate_limit %q: %w", c.Transfer.RateLimit, err)
	}
	return int64(n), nil // #nosec G115 -- rates never approach 2^63
}

// RemoteImage reports whether the image comes from object storage.
func (c *Config) RemoteImage() bool {
	return image.IsRemote(c.Image.Source)
}

// Job builds the upgrade job. The config should be valid.
func (c *Config) Job() *upgrade.Job {
	job := &upgrade.Job{
		Location:         c.Image.Location,
		SourceImage:      c.Image.Source,
		DestinationImage: c.Image.Destination,
		Topology:         upgrade.Topology(c.Topology),
	}
	for _, d := range c.Devices {
		job.Targets = append(job.Targets, upgrade.DeviceTarget{
			Address:      d.Address,
			Port:         d.Port,
			Username:     c.Username,
			Password:     c.Password,
			EnableSecret: c.EnableSecret,
		})
	}
	job.ApplyDefaults()
	return job
}
