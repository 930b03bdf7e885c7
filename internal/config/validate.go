package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/fwupgrade/internal/image"
	"github.com/imamik/fwupgrade/internal/upgrade"
)

// ValidTopologies contains the supported deployment shapes.
var ValidTopologies = map[string]bool{
	string(upgrade.Standalone): true,
	string(upgrade.Pair):       true,
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if !ValidTopologies[c.Topology] {
		errs = append(errs, fmt.Errorf("invalid topology %q: must be standalone or pair", c.Topology))
	} else if len(c.Devices) != c.DeviceCount() {
		errs = append(errs, fmt.Errorf("%s topology needs %d device(s), got %d", c.Topology, c.DeviceCount(), len(c.Devices)))
	}
	errs = append(errs, c.validateDevices()...)

	if c.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}
	if c.Password == "" && c.SSH.IdentityFile == "" {
		errs = append(errs, errors.New("password is required unless ssh.identity_file is set"))
	}

	errs = append(errs, c.validateImage()...)

	for _, name := range c.Reclaim.Delete {
		if !plainFileName(name) {
			errs = append(errs, fmt.Errorf("reclaim.delete entry %q must be a plain file name", name))
		}
		if name == c.Image.Destination {
			errs = append(errs, fmt.Errorf("reclaim.delete must not list the destination image %q", name))
		}
	}

	if _, err := c.RateLimitBytes(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c *Config) validateDevices() []error {
	var errs []error
	seen := make(map[string]bool)
	for i, d := range c.Devices {
		if d.Address == "" {
			errs = append(errs, fmt.Errorf("devices[%d]: address is required", i))
			continue
		}
		if d.Port < 0 || d.Port > 65535 {
			errs = append(errs, fmt.Errorf("devices[%d]: invalid port %d", i, d.Port))
		}
		key := fmt.Sprintf("%s:%d", d.Address, d.Port)
		if seen[key] {
			errs = append(errs, fmt.Errorf("devices[%d]: %s is listed twice", i, key))
		}
		seen[key] = true
	}
	return errs
}

func (c *Config) validateImage() []error {
	var errs []error
	if c.Image.Source == "" {
		errs = append(errs, errors.New("image.source is required"))
	} else if image.IsRemote(c.Image.Source) {
		if _, _, err := image.ParseS3URL(c.Image.Source); err != nil {
			errs = append(errs, fmt.Errorf("image.source: %w", err))
		}
	}
	if c.Image.Destination == "" {
		errs = append(errs, errors.New("image.destination is required"))
	} else if !plainFileName(c.Image.Destination) {
		errs = append(errs, fmt.Errorf("image.destination %q must be a plain file name", c.Image.Destination))
	}
	if !strings.HasSuffix(c.Image.Location, ":") {
		errs = append(errs, fmt.Errorf("image.location %q must be a device file system such as disk0:", c.Image.Location))
	}
	return errs
}

func plainFileName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/\\ :")
}
