package coordinator

import (
	"context"
	"fmt"

	"github.com/camuig/autotrader/internal/storage"
)

// SetKillSwitch records an operator action. The switch is read at the start
// of the next run; a run in progress is not interrupted.
func (c *Coordinator) SetKillSwitch(ctx context.Context, active bool, reason, actor string) (*storage.KillSwitchEvent, error) {
	ev, err := c.repo.SetKillSwitch(ctx, active, reason, actor)
	if err != nil {
		return nil, fmt.Errorf("save kill switch event: %w", err)
	}
	c.logger.Warn("kill switch changed", "active", active, "reason", reason, "actor", actor)
	c.notifier.NotifyKillSwitch(active, reason, actor)
	return ev, nil
}
