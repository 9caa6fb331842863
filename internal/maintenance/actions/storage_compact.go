package actions

import (
	"context"
	"time"

	"pewbot/internal/maintenance"
)

type storageCompact struct {
	deps Deps
}

func newStorageCompact(_ *maintenance.Description, deps Deps) (maintenance.Stepper, error) {
	if deps.Store == nil {
		return nil, maintenance.NewError(maintenance.BadParameter, "storage_compact: no store configured")
	}
	return &storageCompact{deps: deps}, nil
}

func (c *storageCompact) First(ctx maintenance.ActionContext) bool {
	compactCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.deps.Store.Compact(compactCtx); err != nil {
		ctx.SetResult(maintenance.ResultActionFailed, err.Error())
		return false
	}
	return false
}

func (c *storageCompact) Next(ctx maintenance.ActionContext) bool {
	return false
}
