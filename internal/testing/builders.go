package testing

import (
	"github.com/imamik/fwupgrade/internal/upgrade"
)

// JobBuilder provides a fluent interface for building upgrade jobs in tests.
type JobBuilder struct {
	job upgrade.Job
}

// NewJobBuilder creates a builder for a standalone job with default credentials.
func NewJobBuilder() *JobBuilder {
	return &JobBuilder{
		job: upgrade.Job{
			Location:    "disk0:",
			SourceImage: "asa962-smp-k8.bin",
			Topology:    upgrade.Standalone,
		},
	}
}

// WithTarget adds a device.
func (b *JobBuilder) WithTarget(address string) *JobBuilder {
	b.job.Targets = append(b.job.Targets, upgrade.DeviceTarget{
		Address:  address,
		Port:     22,
		Username: "admin",
		Password: "secret",
	})
	return b
}

// WithImage sets the source image; the destination follows it.
func (b *JobBuilder) WithImage(name string) *JobBuilder {
	b.job.SourceImage = name
	b.job.DestinationImage = ""
	return b
}

// WithDestination sets the destination name.
func (b *JobBuilder) WithDestination(name string) *JobBuilder {
	b.job.DestinationImage = name
	return b
}

// WithLocation sets the device file system.
func (b *JobBuilder) WithLocation(location string) *JobBuilder {
	b.job.Location = location
	return b
}

// AsPair makes the job a pair job.
func (b *JobBuilder) AsPair() *JobBuilder {
	b.job.Topology = upgrade.Pair
	return b
}

// Build returns a copy of the job with defaults applied.
func (b *JobBuilder) Build() *upgrade.Job {
	job := b.job
	job.Targets = append([]upgrade.DeviceTarget(nil), b.job.Targets...)
	job.ApplyDefaults()
	return &job
}
