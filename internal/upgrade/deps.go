package upgrade

import (
	"context"
	"time"

	"github.com/juju/clock"

	"github.com/imamik/fwupgrade/internal/observability"
	"github.com/imamik/fwupgrade/internal/transfer"
)

// Session is an open CLI session to one unit.
type Session interface {
	SendCommand(ctx context.Context, cmd string) (string, error)
	SendConfig(ctx context.Context, lines []string) (string, error)
	Close() error
}

// Dialer opens sessions and upload channels to targets.
type Dialer interface {
	Open(ctx context.Context, target DeviceTarget) (Session, error)
	Uploader(target DeviceTarget) (transfer.Uploader, error)
}

// Decider answers the questions the reclamation loop asks.
type Decider interface {
	// ConfirmReclaim asks whether to delete files to make room. Declining
	// aborts the job.
	ConfirmReclaim(ctx context.Context, target DeviceTarget, space transfer.Space) (bool, error)
	// ChooseFileToDelete picks a file from the listing. An empty name
	// deletes nothing and re-checks the space.
	ChooseFileToDelete(ctx context.Context, target DeviceTarget, listing string) (string, error)
}

// Waiter blocks for the post-reload dwell and failover settle periods.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration, reason string) error
}

// Recorder receives job statistics.
type Recorder interface {
	StepCompleted(device, step, result string)
	TransferBytes(device string, n int64)
	JobFinished(outcome string, elapsed time.Duration)
}

// Dependencies are the collaborators of an Orchestrator. Dialer and Decider
// are required; the rest have working defaults.
type Dependencies struct {
	Dialer   Dialer
	Decider  Decider
	Waiter   Waiter
	Observer observability.Observer
	Recorder Recorder
	Clock    clock.Clock
}

// Options tune an Orchestrator.
type Options struct {
	// ReloadWait is the dwell after a reload before reconnecting.
	ReloadWait time.Duration
	// FailoverSettle is the pause between a failover request and the role check.
	FailoverSettle time.Duration
	// ConnectAttempts bounds the dials of one connect, both the first one and
	// the reconnect after the dwell.
	ConnectAttempts int
	// ConnectDelay is the first backoff between dials.
	ConnectDelay time.Duration
	// RateLimit caps uploads in bytes per second; zero is unlimited.
	RateLimit int64
	// TransferTimeout bounds one upload; zero is unlimited.
	TransferTimeout time.Duration
	// DryRun only reads device state and reports the plan.
	DryRun bool
}

// Default option values.
const (
	DefaultReloadWait      = 300 * time.Second
	DefaultFailoverSettle  = 10 * time.Second
	DefaultConnectAttempts = 5
	DefaultConnectDelay    = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.ReloadWait <= 0 {
		o.ReloadWait = DefaultReloadWait
	}
	if o.FailoverSettle < 0 {
		o.FailoverSettle = 0
	}
	if o.ConnectAttempts <= 0 {
		o.ConnectAttempts = DefaultConnectAttempts
	}
	if o.ConnectDelay <= 0 {
		o.ConnectDelay = DefaultConnectDelay
	}
	return o
}

// ClockWaiter waits on a juju clock.
type ClockWaiter struct {
	Clock clock.Clock
}

// Wait blocks for d or until ctx is done.
func (w ClockWaiter) Wait(ctx context.Context, d time.Duration, _ string) error {
	if d <= 0 {
		return ctx.Err()
	}
	clk := w.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	select {
	case <-clk.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type noopRecorder struct{}

func (noopRecorder) StepCompleted(string, string, string) {}
func (noopRecorder) TransferBytes(string, int64)          {}
func (noopRecorder) JobFinished(string, time.Duration)    {}
