package actions

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"pewbot/internal/maintenance"
)

// configReloadLimiter bounds how often the config_reload action is allowed
// to actually touch disk, independent of how often it is admitted — an
// operator mashing the button (or a misbehaving automation) should not be
// able to hammer the filesystem watcher's own reload path. Shared across
// every configReload instance built by this factory.
var configReloadLimiter = rate.NewLimiter(rate.Every(2*time.Second), 1)

type configReload struct {
	deps Deps
	done bool
}

func newConfigReload(_ *maintenance.Description, deps Deps) (maintenance.Stepper, error) {
	if deps.ConfigManager == nil {
		return nil, maintenance.NewError(maintenance.BadParameter, "config_reload: no config manager configured")
	}
	return &configReload{deps: deps}, nil
}

func (c *configReload) First(ctx maintenance.ActionContext) bool {
	if !configReloadLimiter.Allow() {
		ctx.SetResult(maintenance.ResultActionFailed, "config reload rate-limited; try again shortly")
		return false
	}

	reloadCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.deps.ConfigManager.Reload(reloadCtx); err != nil {
		ctx.SetResult(maintenance.ResultActionFailed, err.Error())
		return false
	}

	c.done = true
	return false
}

func (c *configReload) Next(ctx maintenance.ActionContext) bool {
	// Single-step action; Next should never be called, but stay defensive.
	return false
}
