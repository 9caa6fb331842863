package maintenance

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	logx "pewbot/pkg/logx"
)

// State is an Action's lifecycle state. Numeric values are the wire codes
// from spec §3; the gap at 4 is intentional and reserved.
type State int

const (
	StateReady     State = 1
	StateExecuting State = 2
	StateWaiting   State = 3
	// 4 reserved.
	StateComplete State = 5
	StateFailed   State = 6
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateExecuting:
		return "EXECUTING"
	case StateWaiting:
		return "WAITING"
	case StateComplete:
		return "COMPLETE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

func (s State) Terminal() bool { return s == StateComplete || s == StateFailed }

// Result is the (code, message) pair an Action finishes with. code == 0
// means success.
type Result struct {
	Code    int
	Message string
}

func (r Result) OK() bool { return r.Code == 0 }

// Stepper is the capability set a plugin-supplied action must implement.
// First is called exactly once, when progress == 0; Next is called on
// every subsequent step. Both return whether more work remains; the
// dispatcher guarantees only one of them is ever in flight for a given
// Action at a time, but makes no promise about which goroutine runs them
// from call to call.
type Stepper interface {
	First(ctx ActionContext) bool
	Next(ctx ActionContext) bool
}

// ActionContext is the capability handle passed to each step call. It
// replaces the source's raw back-pointer from Action to its owning
// feature (design note §9): a plugin gets exactly the capabilities it
// needs — clock, shutdown visibility, config, and a way to report a
// failure result — and nothing else.
type ActionContext interface {
	// NowMs returns the current wall-clock time in Unix milliseconds.
	NowMs() int64
	// ShutdownRequested reports whether the host has begun shutdown.
	// A well-behaved long-running action polls this between steps.
	ShutdownRequested() bool
	// Config returns the maintenance scheduler's own configuration
	// surfaced to plugins that need it (e.g. a plugin-specific tunable
	// mirrored under its own description extras is preferred, but some
	// plugins need scheduler-wide settings like the backoff window).
	Config() map[string]string
	// SetResult marks the step's outcome. Calling it with code != 0 marks
	// the action as failing regardless of the step's returned bool (spec
	// §4.2's transition table: true+not-ok is still FAILED).
	SetResult(code int, message string)
	// Progress returns the number of steps so far that left the action
	// non-terminal (0 before First runs). The step that finally completes
	// or fails the action does not itself advance this count.
	Progress() uint64
	// Description returns the action's identity description.
	Description() *Description
	// Properties returns the opaque structured-document blob carried
	// alongside the description.
	Properties() json.RawMessage
}

// Action is one unit of administrative work: a state machine driven by a
// plugin-supplied Stepper.
type Action struct {
	id          uint64
	token       string
	description *Description
	properties  json.RawMessage
	stepper     Stepper

	mu            sync.Mutex
	state         State
	progress      uint64
	result        Result
	createdAt     time.Time
	startedAt     time.Time
	finishedAt    time.Time
	lastAttemptAt time.Time
}

func newAction(id uint64, description *Description, properties json.RawMessage, stepper Stepper, now time.Time) *Action {
	return &Action{
		id:          id,
		token:       uuid.NewString(),
		description: description,
		properties:  properties,
		stepper:     stepper,
		state:       StateReady,
		createdAt:   now,
	}
}

// ---- Read-only accessors: safe to call concurrently, including while a
// worker is executing a step on this Action. ----

func (a *Action) ID() uint64 { return a.id }

// Token is an opaque client-facing correlation handle, distinct from the
// monotonic id, minted once at construction (spec's DOMAIN STACK: this is
// not part of identity or dedup, purely a diagnostic convenience).
func (a *Action) Token() string { return a.token }

func (a *Action) Description() *Description { return a.description }

func (a *Action) Properties() json.RawMessage { return a.properties }

func (a *Action) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Action) Progress() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress
}

func (a *Action) Result() Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

func (a *Action) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Terminal()
}

func (a *Action) CreatedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.createdAt
}

func (a *Action) StartedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startedAt
}

func (a *Action) FinishedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finishedAt
}

func (a *Action) lastAttempt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastAttemptAt
}

// name returns the description's name, or "?" if it is somehow missing
// (should not happen for an admitted action).
func (a *Action) name() string {
	n, err := a.description.Name()
	if err != nil {
		return "?"
	}
	return n
}

// eligible reports whether this action may be dequeued and run now. READY
// actions are always eligible; WAITING actions become eligible once the
// backoff window since their last attempt has elapsed.
func (a *Action) eligible(now time.Time, actionsBlock time.Duration) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case StateReady:
		return true
	case StateWaiting:
		if actionsBlock <= 0 {
			return true
		}
		return now.Sub(a.lastAttemptAt) >= actionsBlock
	default:
		return false
	}
}

// stepContext is the concrete ActionContext bound to one Action for the
// duration of a single step call.
type stepContext struct {
	action   *Action
	host     hostCapabilities
	snapshot Result // result as of step entry; SetResult overwrites this
	set      bool
}

// hostCapabilities is the facade-supplied capability set threaded into
// every step, per design note §9 (nowMs/shutdownRequested/config).
type hostCapabilities interface {
	nowMs() int64
	shutdownRequested() bool
	config() map[string]string
}

func (c *stepContext) NowMs() int64                { return c.host.nowMs() }
func (c *stepContext) ShutdownRequested() bool     { return c.host.shutdownRequested() }
func (c *stepContext) Config() map[string]string   { return c.host.config() }
func (c *stepContext) Progress() uint64            { return c.action.Progress() }
func (c *stepContext) Description() *Description   { return c.action.description }
func (c *stepContext) Properties() json.RawMessage { return c.action.properties }
func (c *stepContext) SetResult(code int, message string) {
	c.snapshot = Result{Code: code, Message: message}
	c.set = true
}

// stepOutcome is what runStep hands back to the dispatcher: whether more
// work remains and the newly-applied state.
type stepOutcome struct {
	more     bool
	newState State
}

// runStep executes exactly one call to First (if progress == 0) or Next,
// applies spec §4.2's terminal-classification table, and updates
// progress/result/timestamps. It assumes the caller (the dispatcher) has
// already established exclusive access to this Action — no other
// goroutine may call runStep concurrently for the same Action.
func (a *Action) runStep(log logx.Logger, host hostCapabilities, now time.Time) stepOutcome {
	a.mu.Lock()
	a.state = StateExecuting
	if a.startedAt.IsZero() {
		a.startedAt = now
	}
	a.lastAttemptAt = now
	first := a.progress == 0
	a.mu.Unlock()

	ctx := &stepContext{action: a, host: host}

	more, panicked := a.invoke(ctx, first, log)

	a.mu.Lock()
	defer a.mu.Unlock()

	if ctx.set {
		a.result = ctx.snapshot
	}
	if panicked {
		a.result = Result{Code: ResultInternalError, Message: "action step panicked"}
		more = false
	}

	switch {
	case more && a.result.OK():
		// Only a call that leaves the action non-terminal counts toward
		// progress; the final call that completes or fails it does not
		// (spec §8's scenario table: iterate_count=1 ends at progress=1,
		// not 2, even though both first() and next() were called).
		a.state = StateWaiting
		a.progress++
	case !more && a.result.OK():
		a.state = StateComplete
	default: // !ok, regardless of returned bool
		a.state = StateFailed
	}

	if a.state.Terminal() {
		a.finishedAt = now
	}

	return stepOutcome{more: !a.state.Terminal(), newState: a.state}
}

func (a *Action) invoke(ctx *stepContext, first bool, log logx.Logger) (more bool, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			if !log.IsZero() {
				log.Error("maintenance.action.panic",
					logx.String("name", a.name()),
					logx.Uint64("id", a.id),
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())),
				)
			}
		}
	}()
	if first {
		return a.stepper.First(ctx), false
	}
	return a.stepper.Next(ctx), false
}

// runSync drives the action through First/Next synchronously to
// completion, ignoring backoff (used by executeNow admissions and by
// tests). It returns the final Result.
func (a *Action) runSync(log logx.Logger, host hostCapabilities, nowFn func() time.Time) Result {
	for {
		out := a.runStep(log, host, nowFn())
		if !out.more {
			return a.Result()
		}
	}
}

var _ fmt.Stringer = State(0)
