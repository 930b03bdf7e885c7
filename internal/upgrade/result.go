package upgrade

import (
	"time"

	"github.com/imamik/fwupgrade/internal/failover"
)

// Step names one state of the per-device sequence.
type Step string

// Steps, in execution order.
const (
	StepConnect                   Step = "Connect"
	StepEstablishRole             Step = "EstablishRole"
	StepResolveFileState          Step = "ResolveFileState"
	StepReclaimSpace              Step = "ReclaimSpace"
	StepEnableTransferProtocol    Step = "EnableTransferProtocol"
	StepTransfer                  Step = "Transfer"
	StepDisableTransferProtocol   Step = "DisableTransferProtocol"
	StepVerifyChecksum            Step = "VerifyChecksum"
	StepSetBootVariable           Step = "SetBootVariable"
	StepConfirmBootVariable       Step = "ConfirmBootVariable"
	StepPersistConfig             Step = "PersistConfig"
	StepReload                    Step = "Reload"
	StepWait                      Step = "Wait"
	StepReconnectAndVerifyVersion Step = "ReconnectAndVerifyVersion"
	StepFinalFailover             Step = "FinalFailover"
)

// StepStatus is how a step ended.
type StepStatus string

// Step statuses.
const (
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

// StepResult records one executed or skipped step.
type StepResult struct {
	Step     Step
	Status   StepStatus
	Duration time.Duration
}

// TransferOutcome summarises the file state of one device.
type TransferOutcome struct {
	ExistedAlready   bool
	SpaceSufficient  bool
	ChecksumVerified bool
}

// DeviceReport is what happened to one target.
type DeviceReport struct {
	Target          DeviceTarget
	InitialRole     failover.Role
	FinalRole       failover.Role
	Transfer        TransferOutcome
	Steps           []StepResult
	Deleted         []string
	BootConfirmed   bool
	VersionLines    []string
	VersionVerified bool
	Warnings        []string
}

// Completed returns the steps that completed, in order.
func (r *DeviceReport) Completed() []Step {
	var steps []Step
	for _, s := range r.Steps {
		if s.Status == StatusCompleted {
			steps = append(steps, s.Step)
		}
	}
	return steps
}

// Ran reports whether step was attempted, whether or not it succeeded.
func (r *DeviceReport) Ran(step Step) bool {
	for _, s := range r.Steps {
		if s.Step == step && s.Status != StatusSkipped {
			return true
		}
	}
	return false
}

// Result is the outcome of a job.
type Result struct {
	Outcome Outcome
	Err     error
	Devices []*DeviceReport
	// FinalActive is the address of the unit left active by a pair job.
	FinalActive string
	Warnings    []string
	StartedAt   time.Time
	Elapsed     time.Duration
}

// Device returns the report for address, or nil.
func (r *Result) Device(address string) *DeviceReport {
	for _, d := range r.Devices {
		if d.Target.Address == address {
			return d
		}
	}
	return nil
}

// AllWarnings returns job warnings followed by per-device warnings.
func (r *Result) AllWarnings() []string {
	out := append([]string(nil), r.Warnings...)
	for _, d := range r.Devices {
		for _, w := range d.Warnings {
			out = append(out, d.Target.Address+": "+w)
		}
	}
	return out
}
