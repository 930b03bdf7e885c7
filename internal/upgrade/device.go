package upgrade

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/imamik/fwupgrade/internal/asa"
	"github.com/imamik/fwupgrade/internal/failover"
	"github.com/imamik/fwupgrade/internal/image"
	"github.com/imamik/fwupgrade/internal/transfer"
	"github.com/imamik/fwupgrade/internal/util/retry"
)

// deviceRun upgrades one target of a job.
type deviceRun struct {
	o      *Orchestrator
	job    *Job
	img    *image.Image
	index  int
	report *DeviceReport

	session Session
}

func (u *deviceRun) target() DeviceTarget {
	return u.job.Targets[u.index]
}

func (u *deviceRun) closeSession() {
	if u.session != nil {
		_ = u.session.Close()
		u.session = nil
	}
}

func (u *deviceRun) coordinator(uploader transfer.Uploader) *transfer.Coordinator {
	device := u.target().Address
	return transfer.NewCoordinator(u.session, uploader, u.img, transfer.Options{
		Location:    u.job.Location,
		Destination: u.job.DestinationImage,
		RateLimit:   u.o.opts.RateLimit,
		Timeout:     u.o.opts.TransferTimeout,
		Progress: func(sent, total int64) {
			u.o.observer.Progress(string(StepTransfer)+" "+device, sent, total)
		},
	})
}

func (u *deviceRun) upgrade(ctx context.Context) error {
	o, report := u.o, u.report
	defer u.closeSession()

	if err := o.step(report, StepConnect, func() error {
		s, err := o.connect(ctx, u.target())
		u.session = s
		return err
	}); err != nil {
		return err
	}

	if u.job.Topology == Pair {
		if err := o.step(report, StepEstablishRole, func() error { return u.establishRole(ctx) }); err != nil {
			return err
		}
	}

	coord := u.coordinator(nil)
	var exists bool
	if err := o.step(report, StepResolveFileState, func() error {
		var err error
		exists, err = coord.FileExists(ctx)
		return err
	}); err != nil {
		return err
	}
	report.Transfer.ExistedAlready = exists

	if exists {
		o.observer.Printf("[%s] %s already present on %s, not transferring", StepResolveFileState, coord.RemotePath(), u.target())
		for _, s := range []Step{StepReclaimSpace, StepEnableTransferProtocol, StepTransfer, StepDisableTransferProtocol, StepVerifyChecksum} {
			o.skip(report, s, "destination file already present")
		}
	} else if err := u.transferImage(ctx); err != nil {
		return err
	}

	if err := u.configureBoot(ctx); err != nil {
		return err
	}
	if err := u.reload(ctx); err != nil {
		return err
	}

	if err := o.step(report, StepWait, func() error {
		return o.waiter.Wait(ctx, o.opts.ReloadWait, "reload of "+u.target().Address)
	}); err != nil {
		return err
	}

	return o.step(report, StepReconnectAndVerifyVersion, func() error { return u.verifyVersion(ctx) })
}

// transferImage makes room, uploads and verifies the image.
func (u *deviceRun) transferImage(ctx context.Context) error {
	o, report := u.o, u.report

	uploader, err := o.dialer.Uploader(u.target())
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectionFailure, u.target().HostPort(), err)
	}
	coord := u.coordinator(uploader)

	space, err := coord.Space(ctx)
	if err != nil {
		return err
	}
	if space.Sufficient {
		o.skip(report, StepReclaimSpace, space.String())
	} else if err := o.step(report, StepReclaimSpace, func() error { return u.reclaimSpace(ctx, coord, space) }); err != nil {
		return err
	}
	report.Transfer.SpaceSufficient = true

	if err := o.step(report, StepEnableTransferProtocol, func() error { return coord.EnableSCP(ctx) }); err != nil {
		return err
	}

	transferErr := o.step(report, StepTransfer, func() error { return coord.Transfer(ctx) })
	if transferErr == nil {
		o.recorder.TransferBytes(u.target().Address, u.img.Size)
	}

	// The SCP server is turned off again even when the upload failed.
	disableErr := o.step(report, StepDisableTransferProtocol, func() error { return coord.DisableSCP(ctx) })
	if transferErr != nil {
		return transferErr
	}
	if disableErr != nil {
		return disableErr
	}

	return o.step(report, StepVerifyChecksum, func() error {
		ok, err := coord.VerifyChecksum(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s does not match local digest %s", ErrChecksumMismatch, coord.RemotePath(), u.img.MD5)
		}
		report.Transfer.ChecksumVerified = true
		return nil
	})
}

// reclaimSpace deletes operator-chosen files until the image fits or the
// operator declines.
func (u *deviceRun) reclaimSpace(ctx context.Context, coord *transfer.Coordinator, space transfer.Space) error {
	o, target := u.o, u.target()

	for !space.Sufficient {
		o.observer.Printf("[%s] %s: not enough space for %s (%s)", StepReclaimSpace, target, u.job.DestinationImage, space)

		ok, err := o.decider.ConfirmReclaim(ctx, target, space)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: operator declined to free space on %s: %w", ErrJobAborted, target, ErrInsufficientSpace)
		}

		listing, err := coord.ListFiles(ctx)
		if err != nil {
			return err
		}
		name, err := o.decider.ChooseFileToDelete(ctx, target, listing)
		if err != nil {
			return err
		}

		if name = strings.TrimSpace(name); name != "" {
			if name == u.job.DestinationImage {
				u.o.warn(u.report, StepReclaimSpace, fmt.Sprintf("refusing to delete %s, it is the image being installed", name))
			} else if err := coord.ReclaimSpace(ctx, name); err != nil {
				u.o.warn(u.report, StepReclaimSpace, err.Error())
			} else {
				u.report.Deleted = append(u.report.Deleted, name)
				o.observer.Printf("[%s] %s: deleted %s", StepReclaimSpace, target, asa.FilePath(u.job.Location, name))
			}
		}

		if space, err = coord.Space(ctx); err != nil {
			return err
		}
	}

	o.observer.Printf("[%s] %s: %s", StepReclaimSpace, target, space)
	return nil
}

// configureBoot points the boot variable at the new image and saves the
// configuration.
func (u *deviceRun) configureBoot(ctx context.Context) error {
	o, report, job := u.o, u.report, u.job
	bootPath := asa.FilePath(job.Location, job.DestinationImage)

	if err := o.step(report, StepSetBootVariable, func() error {
		out, err := u.session.SendConfig(ctx, []string{asa.BootSystem(job.Location, job.DestinationImage)})
		if err != nil {
			return fmt.Errorf("failed to set boot variable: %w", err)
		}
		if strings.Contains(out, "ERROR") {
			return fmt.Errorf("device rejected boot system %s: %s", bootPath, strings.TrimSpace(out))
		}
		return nil
	}); err != nil {
		return err
	}

	if err := o.step(report, StepConfirmBootVariable, func() error {
		out, err := u.session.SendCommand(ctx, asa.CmdShowBoot)
		if err != nil {
			return fmt.Errorf("failed to read boot variable: %w", err)
		}
		if strings.Contains(out, bootPath) {
			report.BootConfirmed = true
		} else {
			o.warn(report, StepConfirmBootVariable, fmt.Sprintf("show boot does not mention %s", bootPath))
		}
		return nil
	}); err != nil {
		return err
	}

	return o.step(report, StepPersistConfig, func() error {
		out, err := u.session.SendCommand(ctx, asa.CmdWriteMem)
		if err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		if !strings.Contains(out, "[OK]") {
			o.warn(report, StepPersistConfig, "write mem did not report [OK]")
		}
		return nil
	})
}

// reload restarts the device. The device drops the session once it accepts
// the confirmation, so errors after the confirmation are expected.
func (u *deviceRun) reload(ctx context.Context) error {
	return u.o.step(u.report, StepReload, func() error {
		if _, err := u.session.SendCommand(ctx, asa.CmdReload); err != nil {
			return fmt.Errorf("failed to request reload: %w", err)
		}
		_, _ = u.session.SendCommand(ctx, asa.CmdConfirm)
		u.closeSession()
		return nil
	})
}

// verifyVersion reconnects after the reload and reads the running image.
func (u *deviceRun) verifyVersion(ctx context.Context) error {
	o, report, target := u.o, u.report, u.target()

	var out string
	err := retry.Do(ctx, func(ctx context.Context) error {
		s, err := o.dial(ctx, target)
		if err != nil {
			return err
		}
		u.session = s
		out, err = s.SendCommand(ctx, asa.CmdShowVersion)
		if err != nil {
			u.closeSession()
			return err
		}
		return nil
	},
		retry.WithMaxRetries(o.opts.ConnectAttempts-1),
		retry.WithInitialDelay(o.opts.ConnectDelay),
		retry.WithOnRetry(func(attempt int, err error) {
			o.observer.Printf("[%s] %s not back yet (attempt %d): %v", StepReconnectAndVerifyVersion, target, attempt, err)
		}),
	)
	if err != nil {
		if !errors.Is(err, ErrConnectionFailure) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", ErrConnectionFailure, err)
		}
		return err
	}

	report.VersionLines = asa.SystemImageLines(out)
	switch {
	case len(report.VersionLines) == 0:
		o.warn(report, StepReconnectAndVerifyVersion, "show version has no System image line, cannot confirm the running image")
	case containsAny(report.VersionLines, u.job.DestinationImage):
		report.VersionVerified = true
		for _, line := range report.VersionLines {
			o.observer.Printf("[%s] %s: %s", StepReconnectAndVerifyVersion, target, line)
		}
	default:
		o.warn(report, StepReconnectAndVerifyVersion,
			fmt.Sprintf("running image is not %s: %s", u.job.DestinationImage, strings.Join(report.VersionLines, "; ")))
	}

	if u.job.Topology == Pair {
		role, _, err := failover.New(u.session).QueryRole(ctx)
		if err != nil {
			o.warn(report, StepReconnectAndVerifyVersion, err.Error())
		}
		report.FinalRole = role
	}
	return nil
}

// plan reads the device state and reports what an upgrade would do.
func (u *deviceRun) plan(ctx context.Context) error {
	o, report, target := u.o, u.report, u.target()
	defer u.closeSession()

	if err := o.step(report, StepConnect, func() error {
		s, err := o.connect(ctx, target)
		u.session = s
		return err
	}); err != nil {
		return err
	}

	if u.job.Topology == Pair {
		if err := o.step(report, StepEstablishRole, func() error {
			role, _, err := failover.New(u.session).QueryRole(ctx)
			report.InitialRole = role
			report.FinalRole = role
			if err == nil && role == failover.Active {
				o.observer.Printf("[dry-run] %s is active, would fail over to %s first", target, u.job.Peer(u.index))
			}
			return err
		}); err != nil {
			return err
		}
	}

	coord := u.coordinator(nil)
	var exists bool
	if err := o.step(report, StepResolveFileState, func() error {
		var err error
		exists, err = coord.FileExists(ctx)
		return err
	}); err != nil {
		return err
	}
	report.Transfer.ExistedAlready = exists

	if exists {
		o.observer.Printf("[dry-run] %s: %s present, would set boot variable and reload", target, coord.RemotePath())
		return nil
	}

	space, err := coord.Space(ctx)
	if err != nil {
		return err
	}
	report.Transfer.SpaceSufficient = space.Sufficient
	if !space.Sufficient {
		o.warn(report, StepReclaimSpace, fmt.Sprintf("needs %s more space (%s)",
			humanize.IBytes(space.Required-space.Free+1), space))
	}
	o.observer.Printf("[dry-run] %s: would upload %s (%s) to %s, set boot variable and reload",
		target, u.img.Name, humanize.IBytes(uint64(u.img.Size)), coord.RemotePath()) // #nosec G115
	return nil
}

func containsAny(lines []string, s string) bool {
	for _, line := range lines {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}
