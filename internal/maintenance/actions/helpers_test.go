package actions

import (
	"encoding/json"

	"pewbot/internal/maintenance"
)

// fakeActionCtx is a minimal maintenance.ActionContext used to drive a
// Stepper directly in tests, without a real Registry/Dispatcher.
type fakeActionCtx struct {
	progress uint64
	code     int
	msg      string
	set      bool
}

func (c *fakeActionCtx) NowMs() int64                          { return 0 }
func (c *fakeActionCtx) ShutdownRequested() bool                { return false }
func (c *fakeActionCtx) Config() map[string]string             { return nil }
func (c *fakeActionCtx) Progress() uint64                      { return c.progress }
func (c *fakeActionCtx) Description() *maintenance.Description { return nil }
func (c *fakeActionCtx) Properties() json.RawMessage           { return nil }
func (c *fakeActionCtx) SetResult(code int, message string) {
	c.code, c.msg, c.set = code, message, true
}

var _ maintenance.ActionContext = (*fakeActionCtx)(nil)
