// Package failover reads and changes the failover role of an HA unit.
package failover

import (
	"context"
	"fmt"

	"github.com/imamik/fwupgrade/internal/asa"
)

// Role is a unit's failover role.
type Role = asa.Role

// Roles.
const (
	Unknown = asa.RoleUnknown
	Active  = asa.RoleActive
	Standby = asa.RoleStandby
)

// Session sends CLI commands to one unit.
type Session interface {
	SendCommand(ctx context.Context, cmd string) (string, error)
}

// Coordinator queries and switches the role of the unit behind a session.
type Coordinator struct {
	session Session
}

// New creates a Coordinator for session.
func New(session Session) *Coordinator {
	return &Coordinator{session: session}
}

// CurrentRole classifies show failover output.
func CurrentRole(output string) Role {
	return asa.ParseRole(output)
}

// QueryRole runs show failover and returns the unit's role with the raw output.
func (c *Coordinator) QueryRole(ctx context.Context) (Role, string, error) {
	out, err := c.session.SendCommand(ctx, asa.CmdShowFailover)
	if err != nil {
		return Unknown, out, fmt.Errorf("failed to query failover state: %w", err)
	}
	return CurrentRole(out), out, nil
}

// PromoteToActive makes this unit active. It returns once the command is
// accepted; callers confirm the switch with QueryRole.
func (c *Coordinator) PromoteToActive(ctx context.Context) error {
	if _, err := c.session.SendCommand(ctx, asa.CmdFailoverActive); err != nil {
		return fmt.Errorf("failed to request failover: %w", err)
	}
	return nil
}
