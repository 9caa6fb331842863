// Package actiontest provides a self-checking Stepper used by this
// repository's own tests to exercise the maintenance scheduler end to end,
// without depending on any real administrative side effect.
package actiontest

import (
	"encoding/json"
	"strconv"

	"pewbot/internal/maintenance"
)

// Basic simulates a multistep action: it counts down on every step call
// until the iteration counter reaches zero, then reports resultCode. It
// also self-checks the contract that First runs exactly once, when
// progress is zero, and Next runs on every later step — flagging an
// internal-error result (code 2) if that invariant is ever violated.
type Basic struct {
	iteration  int
	resultCode int
}

// NewBasic reads "iterate_count" (default 1) and "result_code" (default 0,
// meaning success) from the description's extras.
func NewBasic(description *maintenance.Description, _ json.RawMessage) (maintenance.Stepper, error) {
	b := &Basic{iteration: 1, resultCode: 0}
	if v, ok := description.Get("iterate_count"); ok {
		n, err := strconv.Atoi(v)
		if err == nil && n >= 0 {
			b.iteration = n
		}
	}
	if v, ok := description.Get("result_code"); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			b.resultCode = n
		}
	}
	return b, nil
}

func (b *Basic) First(ctx maintenance.ActionContext) bool {
	if b.iteration == 0 {
		ctx.SetResult(b.resultCode, "")
	}
	if ctx.Progress() != 0 {
		ctx.SetResult(2, "first called with non-zero progress")
	}
	more := b.iteration > 0
	b.iteration--
	return more
}

func (b *Basic) Next(ctx maintenance.ActionContext) bool {
	if b.iteration == 0 {
		ctx.SetResult(b.resultCode, "")
	}
	if ctx.Progress() == 0 {
		ctx.SetResult(2, "next called with zero progress")
	}
	more := b.iteration > 0
	b.iteration--
	return more
}
