package upgrade

import (
	"errors"
	"fmt"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/imamik/fwupgrade/internal/asa"
)

// Topology is the shape of the deployment being upgraded.
type Topology string

// Topologies.
const (
	Standalone Topology = "standalone"
	Pair       Topology = "pair"
)

// DefaultPort is the SSH port used when a target has none.
const DefaultPort = 22

// DeviceTarget identifies one unit and the credentials to reach it.
type DeviceTarget struct {
	Address      string
	Port         int
	Username     string
	Password     string
	EnableSecret string
}

// HostPort returns address:port.
func (t DeviceTarget) HostPort() string {
	port := t.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(t.Address, strconv.Itoa(port))
}

// String returns the address, which is how units are named in logs.
func (t DeviceTarget) String() string {
	return t.Address
}

// Job is one upgrade run.
type Job struct {
	Location         string
	SourceImage      string
	DestinationImage string
	Targets          []DeviceTarget
	Topology         Topology
	StartedAt        time.Time
}

// ApplyDefaults fills the location, destination name, ports and topology.
func (j *Job) ApplyDefaults() {
	if j.Location == "" {
		j.Location = asa.DefaultFileLocation
	}
	if j.DestinationImage == "" && j.SourceImage != "" {
		j.DestinationImage = path.Base(j.SourceImage)
	}
	if j.Topology == "" {
		if len(j.Targets) == 2 {
			j.Topology = Pair
		} else {
			j.Topology = Standalone
		}
	}
	for i := range j.Targets {
		if j.Targets[i].Port == 0 {
			j.Targets[i].Port = DefaultPort
		}
	}
}

// Validate reports every problem with the job at once.
func (j *Job) Validate() error {
	var errs []error

	switch j.Topology {
	case Standalone:
		if len(j.Targets) != 1 {
			errs = append(errs, fmt.Errorf("standalone job needs exactly 1 device, got %d", len(j.Targets)))
		}
	case Pair:
		if len(j.Targets) != 2 {
			errs = append(errs, fmt.Errorf("pair job needs exactly 2 devices, got %d", len(j.Targets)))
		} else if j.Targets[0].HostPort() == j.Targets[1].HostPort() {
			errs = append(errs, fmt.Errorf("pair devices must be distinct, both are %s", j.Targets[0].HostPort()))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown topology %q", j.Topology))
	}

	for i, t := range j.Targets {
		if t.Address == "" {
			errs = append(errs, fmt.Errorf("device %d: address is required", i+1))
		}
		if t.Username == "" {
			errs = append(errs, fmt.Errorf("device %d: username is required", i+1))
		}
		if t.Port < 0 || t.Port > 65535 {
			errs = append(errs, fmt.Errorf("device %d: invalid port %d", i+1, t.Port))
		}
	}

	if j.SourceImage == "" {
		errs = append(errs, errors.New("source image is required"))
	}
	if j.DestinationImage == "" {
		errs = append(errs, errors.New("destination image is required"))
	} else if strings.ContainsAny(j.DestinationImage, "/\\ ") {
		errs = append(errs, fmt.Errorf("destination image %q must be a plain file name", j.DestinationImage))
	}
	if !strings.HasSuffix(j.Location, ":") {
		errs = append(errs, fmt.Errorf("location %q must be a file system such as disk0:", j.Location))
	}

	return errors.Join(errs...)
}

// Peer returns the other target of a pair job.
func (j *Job) Peer(index int) DeviceTarget {
	return j.Targets[1-index]
}
