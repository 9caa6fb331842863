package actions

import (
	"context"
	"fmt"
	"time"

	"pewbot/internal/maintenance"
	sm "pewbot/pkg/systemdmanager"
)

const unitRestartMaxPolls = 10

// unitRestart issues a systemd restart on First, then polls on Next until
// the unit's ActiveState settles (active or failed) or a bounded number of
// polls elapses — a restart-then-poll flow expressed through the two-step
// Stepper contract instead of a single blocking call.
type unitRestart struct {
	unit string
	mgr  *sm.ServiceManager

	polls int
}

func newUnitRestart(description *maintenance.Description, deps Deps) (maintenance.Stepper, error) {
	unit, ok := description.Get("unit")
	if !ok || unit == "" {
		return nil, maintenance.NewError(maintenance.BadParameter, "unit_restart: description missing \"unit\"")
	}
	if len(deps.AllowUnits) > 0 && !unitAllowed(unit, deps.AllowUnits) {
		return nil, maintenance.NewError(maintenance.BadParameter, fmt.Sprintf("unit_restart: unit %q is not in the allowlist", unit))
	}

	mgr, err := newUnitServiceManager(unit)
	if err != nil {
		return nil, maintenance.NewError(maintenance.Internal, fmt.Sprintf("unit_restart: %v", err))
	}
	return &unitRestart{unit: unit, mgr: mgr}, nil
}

func unitAllowed(unit string, allow []string) bool {
	for _, u := range allow {
		if u == unit {
			return true
		}
	}
	return false
}

func (a *unitRestart) First(ctx maintenance.ActionContext) bool {
	restartCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	res := a.mgr.RestartWithResult(restartCtx, a.unit)
	if !res.Success {
		msg := res.Message
		if msg == "" && res.Error != nil {
			msg = res.Error.Error()
		}
		ctx.SetResult(maintenance.ResultActionFailed, msg)
		return false
	}
	return true
}

func (a *unitRestart) Next(ctx maintenance.ActionContext) bool {
	a.polls++

	statusCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	status, err := a.mgr.GetStatusLiteContext(statusCtx, a.unit)
	cancel()

	if err != nil {
		ctx.SetResult(maintenance.ResultActionFailed, err.Error())
		return false
	}

	switch status.Active {
	case "active":
		return false
	case "failed":
		ctx.SetResult(maintenance.ResultActionFailed, fmt.Sprintf("unit %q is failed after restart", a.unit))
		return false
	}

	if a.polls >= unitRestartMaxPolls {
		ctx.SetResult(maintenance.ResultActionFailed, fmt.Sprintf("unit %q did not settle after %d polls (last state %q)", a.unit, a.polls, status.Active))
		return false
	}
	return true
}
