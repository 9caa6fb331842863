package maintenance

import (
	"testing"
	"time"

	logx "pewbot/pkg/logx"
)

// fakeHost is a minimal hostCapabilities used to drive Action.runStep in
// isolation from the dispatcher.
type fakeHost struct {
	now      time.Time
	shutdown bool
	cfg      map[string]string
}

func (h *fakeHost) nowMs() int64              { return h.now.UnixMilli() }
func (h *fakeHost) shutdownRequested() bool   { return h.shutdown }
func (h *fakeHost) config() map[string]string { return h.cfg }

// countingStepper runs for n steps (including First) before reporting code.
type countingStepper struct {
	remaining int
	code      int
	msg       string
}

func (s *countingStepper) step(ctx ActionContext) bool {
	s.remaining--
	more := s.remaining > 0
	if !more {
		ctx.SetResult(s.code, s.msg)
	}
	return more
}

func (s *countingStepper) First(ctx ActionContext) bool { return s.step(ctx) }
func (s *countingStepper) Next(ctx ActionContext) bool  { return s.step(ctx) }

type panicStepper struct{}

func (panicStepper) First(ctx ActionContext) bool { panic("boom") }
func (panicStepper) Next(ctx ActionContext) bool   { panic("boom") }

func newTestAction(stepper Stepper) *Action {
	d := NewDescription([2]string{"name", "test"})
	return newAction(1, d, nil, stepper, time.Unix(0, 0))
}

func TestActionRunStepCompletesOnSingleStep(t *testing.T) {
	t.Parallel()

	a := newTestAction(&countingStepper{remaining: 1})
	host := &fakeHost{now: time.Unix(100, 0)}

	out := a.runStep(logx.Nop(), host, host.now)
	if out.more {
		t.Fatal("expected terminal outcome")
	}
	if a.State() != StateComplete {
		t.Fatalf("State() = %v, want COMPLETE", a.State())
	}
	if a.Progress() != 0 {
		t.Fatalf("Progress() = %d, want 0 (the terminal call does not advance progress)", a.Progress())
	}
	if a.FinishedAt().IsZero() {
		t.Fatal("FinishedAt() not set on terminal transition")
	}
}

func TestActionRunStepWaitsWhenMoreWork(t *testing.T) {
	t.Parallel()

	a := newTestAction(&countingStepper{remaining: 2})
	host := &fakeHost{now: time.Unix(100, 0)}

	out := a.runStep(logx.Nop(), host, host.now)
	if !out.more {
		t.Fatal("expected non-terminal outcome")
	}
	if a.State() != StateWaiting {
		t.Fatalf("State() = %v, want WAITING", a.State())
	}
	if !a.FinishedAt().IsZero() {
		t.Fatal("FinishedAt() set before terminal transition")
	}
}

func TestActionRunStepFailsRegardlessOfMoreFlag(t *testing.T) {
	t.Parallel()

	// more=true but result not-ok must still classify as FAILED (spec's
	// terminal-classification table: any non-ok result is terminal).
	a := newTestAction(&countingStepper{remaining: 5, code: 1, msg: "boom"})
	a.stepper = stepperFunc{
		first: func(ctx ActionContext) bool {
			ctx.SetResult(1, "boom")
			return true
		},
	}
	host := &fakeHost{now: time.Unix(100, 0)}

	out := a.runStep(logx.Nop(), host, host.now)
	if out.more {
		t.Fatal("expected terminal outcome despite more=true")
	}
	if a.State() != StateFailed {
		t.Fatalf("State() = %v, want FAILED", a.State())
	}
}

func TestActionRunStepPanicIsInternalError(t *testing.T) {
	t.Parallel()

	a := newTestAction(panicStepper{})
	host := &fakeHost{now: time.Unix(100, 0)}

	out := a.runStep(logx.Nop(), host, host.now)
	if out.more {
		t.Fatal("expected terminal outcome after panic")
	}
	if a.State() != StateFailed {
		t.Fatalf("State() = %v, want FAILED", a.State())
	}
	if a.Result().Code != ResultInternalError {
		t.Fatalf("Result().Code = %d, want %d", a.Result().Code, ResultInternalError)
	}
}

func TestActionEligible(t *testing.T) {
	t.Parallel()

	a := newTestAction(&countingStepper{remaining: 2})
	if !a.eligible(time.Unix(0, 0), time.Second) {
		t.Fatal("READY action should always be eligible")
	}

	host := &fakeHost{now: time.Unix(100, 0)}
	a.runStep(logx.Nop(), host, host.now)
	if a.State() != StateWaiting {
		t.Fatalf("State() = %v, want WAITING", a.State())
	}

	if a.eligible(time.Unix(100, 500_000_000), time.Second) {
		t.Fatal("WAITING action should not be eligible before backoff elapses")
	}
	if !a.eligible(time.Unix(101, 0), time.Second) {
		t.Fatal("WAITING action should be eligible once backoff elapses")
	}
}

func TestActionRunSyncDrainsToCompletion(t *testing.T) {
	t.Parallel()

	a := newTestAction(&countingStepper{remaining: 3})
	host := &fakeHost{now: time.Unix(0, 0)}

	res := a.runSync(logx.Nop(), host, func() time.Time { return host.now })
	if !res.OK() {
		t.Fatalf("runSync Result = %+v, want OK", res)
	}
	// remaining=3 takes 3 calls to drain (2 non-terminal + 1 terminal); only
	// the first 2 advance progress.
	if a.Progress() != 2 {
		t.Fatalf("Progress() = %d, want 2", a.Progress())
	}
}

// stepperFunc lets a test override First/Next independently.
type stepperFunc struct {
	first func(ctx ActionContext) bool
	next  func(ctx ActionContext) bool
}

func (s stepperFunc) First(ctx ActionContext) bool {
	if s.first != nil {
		return s.first(ctx)
	}
	return false
}

func (s stepperFunc) Next(ctx ActionContext) bool {
	if s.next != nil {
		return s.next(ctx)
	}
	return false
}
