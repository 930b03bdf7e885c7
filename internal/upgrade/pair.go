package upgrade

import (
	"context"
	"fmt"

	"github.com/imamik/fwupgrade/internal/failover"
)

// establishRole makes sure the unit about to be upgraded is not active. An
// active unit is demoted by promoting its peer.
func (u *deviceRun) establishRole(ctx context.Context) error {
	o, report, target := u.o, u.report, u.target()
	fc := failover.New(u.session)

	role, _, err := fc.QueryRole(ctx)
	if err != nil {
		return err
	}
	report.InitialRole = role
	o.observer.Printf("[%s] %s is %s", StepEstablishRole, target, role)

	switch role {
	case failover.Standby:
		return nil
	case failover.Unknown:
		o.warn(report, StepEstablishRole, "failover role is neither Active nor Standby Ready, continuing")
		return nil
	}

	peer := u.job.Peer(u.index)
	if err := o.promote(ctx, peer); err != nil {
		return err
	}
	if err := o.waiter.Wait(ctx, o.opts.FailoverSettle, "failover to "+peer.Address); err != nil {
		return err
	}

	role, _, err = fc.QueryRole(ctx)
	if err != nil {
		return err
	}
	switch role {
	case failover.Active:
		return fmt.Errorf("%w: %s is still active after failover to %s", ErrRoleVerification, target, peer)
	case failover.Unknown:
		o.warn(report, StepEstablishRole, "failover role unknown after demotion, continuing")
	default:
		o.observer.Printf("[%s] %s is now standby, %s is active", StepEstablishRole, target, peer)
	}
	return nil
}

// promote sends failover active to target over a short-lived session.
func (o *Orchestrator) promote(ctx context.Context, target DeviceTarget) error {
	session, err := o.connect(ctx, target)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	return failover.New(session).PromoteToActive(ctx)
}

// finalActiveIndex picks the unit that ends the job active: the unit that
// was standby when the job started. When the first unit's role was not
// known the last upgraded unit is chosen.
func finalActiveIndex(res *Result) int {
	switch res.Devices[0].InitialRole {
	case failover.Active:
		return 1
	case failover.Standby:
		return 0
	default:
		return len(res.Devices) - 1
	}
}

// finalFailover promotes the chosen unit, verifies it is active and checks
// that its peer is standby.
func (o *Orchestrator) finalFailover(ctx context.Context, job *Job, res *Result) error {
	idx := finalActiveIndex(res)
	target, peer := job.Targets[idx], job.Peer(idx)
	report, peerReport := res.Devices[idx], res.Devices[1-idx]

	err := o.step(report, StepFinalFailover, func() error {
		session, err := o.connect(ctx, target)
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		fc := failover.New(session)
		if err := fc.PromoteToActive(ctx); err != nil {
			return err
		}
		if err := o.waiter.Wait(ctx, o.opts.FailoverSettle, "failover to "+target.Address); err != nil {
			return err
		}

		role, _, err := fc.QueryRole(ctx)
		if err != nil {
			return err
		}
		report.FinalRole = role
		if role != failover.Active {
			return fmt.Errorf("%w: %s reads %s after failover, want active", ErrRoleVerification, target, role)
		}
		res.FinalActive = target.Address
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", target, err)
	}

	session, err := o.connect(ctx, peer)
	if err != nil {
		o.warn(peerReport, StepFinalFailover, fmt.Sprintf("could not check role: %v", err))
		return nil
	}
	defer func() { _ = session.Close() }()

	role, _, err := failover.New(session).QueryRole(ctx)
	if err != nil {
		o.warn(peerReport, StepFinalFailover, fmt.Sprintf("could not check role: %v", err))
		return nil
	}
	peerReport.FinalRole = role
	if role != failover.Standby {
		o.warn(peerReport, StepFinalFailover, fmt.Sprintf("reads %s, want standby", role))
	}
	return nil
}
