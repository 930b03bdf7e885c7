package upgrade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"

	"github.com/imamik/fwupgrade/internal/image"
	"github.com/imamik/fwupgrade/internal/observability"
	"github.com/imamik/fwupgrade/internal/util/retry"
)

// Orchestrator runs upgrade jobs.
type Orchestrator struct {
	dialer   Dialer
	decider  Decider
	waiter   Waiter
	observer observability.Observer
	recorder Recorder
	clock    clock.Clock
	opts     Options
}

// New creates an Orchestrator.
func New(deps Dependencies, opts Options) (*Orchestrator, error) {
	if deps.Dialer == nil {
		return nil, errors.New("dialer is required")
	}
	if deps.Decider == nil {
		return nil, errors.New("decider is required")
	}

	o := &Orchestrator{
		dialer:   deps.Dialer,
		decider:  deps.Decider,
		waiter:   deps.Waiter,
		observer: deps.Observer,
		recorder: deps.Recorder,
		clock:    deps.Clock,
		opts:     opts.withDefaults(),
	}
	if o.clock == nil {
		o.clock = clock.WallClock
	}
	if o.waiter == nil {
		o.waiter = ClockWaiter{Clock: o.clock}
	}
	if o.observer == nil {
		o.observer = observability.NewConsoleObserver()
	}
	if o.recorder == nil {
		o.recorder = noopRecorder{}
	}
	return o, nil
}

// Run executes job with img as the local image. The returned Result is
// never nil once the job has started; the error is also stored in
// Result.Err and classified in Result.Outcome.
func (o *Orchestrator) Run(ctx context.Context, job *Job, img *image.Image) (*Result, error) {
	job.ApplyDefaults()
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}
	if img == nil {
		return nil, errors.New("image is required")
	}

	if job.StartedAt.IsZero() {
		job.StartedAt = o.clock.Now()
	}
	res := &Result{StartedAt: job.StartedAt}

	o.observer.Printf("Upgrading %d %s device(s) to %s (%s)",
		len(job.Targets), job.Topology, job.DestinationImage, img.MD5)

	err := o.run(ctx, job, img, res)

	res.Elapsed = o.clock.Now().Sub(res.StartedAt)
	res.Err = err
	res.Outcome = OutcomeFor(err, o.opts.DryRun)
	o.recorder.JobFinished(string(res.Outcome), res.Elapsed)

	event := observability.Event{
		Type:    observability.EventJobCompleted,
		Message: fmt.Sprintf("%s in %v", res.Outcome, res.Elapsed.Round(time.Second)),
	}
	if err != nil {
		event.Type = observability.EventJobFailed
		event.Message = fmt.Sprintf("%s after %v: %v", res.Outcome, res.Elapsed.Round(time.Second), err)
	}
	o.observer.Event(event)

	return res, err
}

func (o *Orchestrator) run(ctx context.Context, job *Job, img *image.Image, res *Result) error {
	for i, target := range job.Targets {
		report := &DeviceReport{Target: target}
		res.Devices = append(res.Devices, report)

		u := &deviceRun{o: o, job: job, img: img, index: i, report: report}
		var err error
		if o.opts.DryRun {
			err = u.plan(ctx)
		} else {
			err = u.upgrade(ctx)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", target, err)
		}
	}

	if job.Topology == Pair && !o.opts.DryRun {
		return o.finalFailover(ctx, job, res)
	}
	return nil
}

// step runs fn as one named step of a device, with events, timing and
// metrics around it.
func (o *Orchestrator) step(report *DeviceReport, step Step, fn func() error) error {
	device := report.Target.Address
	observability.LogStepStart(o.observer, string(step), device)

	start := o.clock.Now()
	err := fn()
	elapsed := o.clock.Now().Sub(start)

	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		observability.LogStepFailed(o.observer, string(step), device, err)
	} else {
		observability.LogStepComplete(o.observer, string(step), device, elapsed)
	}
	report.Steps = append(report.Steps, StepResult{Step: step, Status: status, Duration: elapsed})
	o.recorder.StepCompleted(device, string(step), string(status))
	return err
}

func (o *Orchestrator) skip(report *DeviceReport, step Step, reason string) {
	observability.LogStepSkipped(o.observer, string(step), report.Target.Address, reason)
	report.Steps = append(report.Steps, StepResult{Step: step, Status: StatusSkipped})
	o.recorder.StepCompleted(report.Target.Address, string(step), string(StatusSkipped))
}

func (o *Orchestrator) warn(report *DeviceReport, step Step, msg string) {
	report.Warnings = append(report.Warnings, msg)
	observability.LogWarning(o.observer, string(step), report.Target.Address, msg)
}

// connect opens a session, dialing up to ConnectAttempts times.
func (o *Orchestrator) connect(ctx context.Context, target DeviceTarget) (Session, error) {
	var session Session
	err := retry.Do(ctx, func(ctx context.Context) error {
		s, err := o.dial(ctx, target)
		session = s
		return err
	},
		retry.WithMaxRetries(o.opts.ConnectAttempts-1),
		retry.WithInitialDelay(o.opts.ConnectDelay),
		retry.WithOnRetry(func(attempt int, err error) {
			o.observer.Printf("[%s] %s attempt %d failed: %v", StepConnect, target, attempt, err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// dial makes a single connection attempt, classifying failures as
// connection failures.
func (o *Orchestrator) dial(ctx context.Context, target DeviceTarget) (Session, error) {
	session, err := o.dialer.Open(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailure, target.HostPort(), err)
	}
	return session, nil
}
