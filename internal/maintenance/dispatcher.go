package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pewbot/internal/eventbus"
	rtsup "pewbot/internal/runtime/supervisor"
	logx "pewbot/pkg/logx"
)

// DispatcherConfig controls the bounded worker pool.
type DispatcherConfig struct {
	ThreadsMax   int
	ActionsBlock time.Duration
	PollInterval time.Duration // how often eligibility is re-checked for WAITING actions
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.ThreadsMax <= 0 {
		c.ThreadsMax = 2
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	return c
}

// Dispatcher is the bounded worker pool that drives admitted actions to
// completion. Unlike a plain buffered-channel queue, eligibility here
// depends on wall-clock state (a WAITING action becomes runnable only once
// its backoff window elapses), so the queue is a condition variable
// guarding a scan of the registry instead.
type Dispatcher struct {
	log      logx.Logger
	bus      eventbus.Bus
	registry *Registry
	ready    *HostSignal
	shutdown *HostSignal
	clock    func() time.Time

	cfgMu sync.Mutex
	cfg   DispatcherConfig

	mu      sync.Mutex
	cond    *sync.Cond
	claimed map[uint64]bool
	running bool

	sup    *rtsup.Supervisor
	stopCh chan struct{}
}

func NewDispatcher(log logx.Logger, bus eventbus.Bus, registry *Registry, ready, shutdown *HostSignal, cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		log:      log,
		bus:      bus,
		registry: registry,
		ready:    ready,
		shutdown: shutdown,
		clock:    time.Now,
		cfg:      cfg.withDefaults(),
		claimed:  make(map[uint64]bool),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Notify wakes any worker waiting for eligible work. Wired as the
// Registry's enqueue-notify callback.
func (d *Dispatcher) Notify(*Action) {
	d.mu.Lock()
	d.cond.Broadcast()
	d.mu.Unlock()
}

func (d *Dispatcher) SetActionsBlock(block time.Duration) {
	d.cfgMu.Lock()
	d.cfg.ActionsBlock = block
	d.cfgMu.Unlock()
	d.mu.Lock()
	d.cond.Broadcast()
	d.mu.Unlock()
}

func (d *Dispatcher) actionsBlock() time.Duration {
	d.cfgMu.Lock()
	defer d.cfgMu.Unlock()
	return d.cfg.ActionsBlock
}

// SetThreadsMax changes the worker pool size; n <= 0 selects the default of
// 2 workers. A running pool is stopped and started again with the new size.
// If the pool is not running, n is only recorded for the next Start: no
// worker is started and the call does not wait for host-ready.
func (d *Dispatcher) SetThreadsMax(ctx context.Context, n int) {
	if n <= 0 {
		n = 2
	}
	d.cfgMu.Lock()
	d.cfg.ThreadsMax = n
	d.cfgMu.Unlock()

	d.mu.Lock()
	running := d.running
	d.mu.Unlock()
	if !running {
		return
	}
	d.Stop(ctx)
	d.Start(ctx)
}

// Start blocks until the host-ready signal fires (or ctx is done), then
// spawns the worker pool. It is idempotent.
func (d *Dispatcher) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	d.ready.Wait(ctx.Done())
	if ctx.Err() != nil {
		return
	}

	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})
	stopCh := d.stopCh
	d.mu.Unlock()

	d.cfgMu.Lock()
	workers := d.cfg.ThreadsMax
	poll := d.cfg.PollInterval
	d.cfgMu.Unlock()

	d.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(d.log.With(logx.String("comp", "maintenance"))), rtsup.WithCancelOnError(false))
	sup := d.sup

	for i := 0; i < workers; i++ {
		idx := i
		name := fmt.Sprintf("maintenance.worker.%d", idx)
		sup.GoRestart(name, func(c context.Context) error {
			d.workerLoop(c, stopCh)
			select {
			case <-stopCh:
				return context.Canceled
			default:
			}
			if c.Err() != nil {
				return c.Err()
			}
			return errors.New("maintenance worker exited unexpectedly")
		}, rtsup.WithPublishFirstError(true))
	}

	sup.GoRestart0("maintenance.ticker", func(c context.Context) {
		d.tickerLoop(c, stopCh, poll)
	})

	if !d.log.IsZero() {
		d.log.Info("maintenance dispatcher started", logx.Int("workers", workers))
	}
}

// Stop drains the worker pool. Actions left non-terminal remain in the
// registry exactly as they were; Stop never mutates action state.
func (d *Dispatcher) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	sup := d.sup
	d.cond.Broadcast()
	d.mu.Unlock()

	if sup != nil {
		sup.Cancel()
		_ = sup.Wait(ctx)
	}
	if !d.log.IsZero() {
		d.log.Info("maintenance dispatcher stopped")
	}
}

func (d *Dispatcher) tickerLoop(ctx context.Context, stopCh chan struct{}, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			// Wake workers blocked in dequeueNext so they see ctx is done.
			d.mu.Lock()
			d.cond.Broadcast()
			d.mu.Unlock()
			return
		case <-stopCh:
			return
		case <-t.C:
			if n := d.registry.EvictFinished(time.Now()); n > 0 && !d.log.IsZero() {
				d.log.Debug("evicted finished actions", logx.Int("count", n))
			}
			d.mu.Lock()
			d.cond.Broadcast()
			d.mu.Unlock()
		}
	}
}

func (d *Dispatcher) workerLoop(ctx context.Context, stopCh chan struct{}) {
	for {
		action := d.dequeueNext(ctx, stopCh)
		if action == nil {
			return
		}
		d.runOne(action)
		d.unclaim(action)
	}
}

// dequeueNext blocks until an eligible, unclaimed action exists or the
// worker should exit (ctx done / stopCh closed). It claims the action it
// returns so no other worker picks up the same action concurrently.
//
// Stop/ctx cancellation is noticed within one tickerLoop period: Stop
// broadcasts once immediately, and the ticker broadcasts periodically, so
// this never blocks longer than PollInterval past shutdown.
func (d *Dispatcher) dequeueNext(ctx context.Context, stopCh chan struct{}) *Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stopCh:
			return nil
		default:
		}

		now := d.clock()
		block := d.actionsBlock()
		for _, a := range d.registry.Iterate() {
			if d.claimed[a.ID()] {
				continue
			}
			if a.eligible(now, block) {
				d.claimed[a.ID()] = true
				return a
			}
		}
		d.cond.Wait()
	}
}

func (d *Dispatcher) unclaim(a *Action) {
	d.mu.Lock()
	delete(d.claimed, a.ID())
	d.cond.Broadcast()
	d.mu.Unlock()
}

func (d *Dispatcher) runOne(a *Action) {
	name := a.name()
	if d.bus != nil {
		d.bus.Publish(eventbus.Event{Type: "maintenance.action.started", Data: actionEvent(a)})
	}

	out := a.runStep(d.log, dispatcherHost{d}, d.clock())

	if !out.newState.Terminal() {
		return
	}

	d.registry.Complete(a)

	if !d.log.IsZero() {
		res := a.Result()
		d.log.Info("maintenance.action.finished",
			logx.String("name", name),
			logx.Uint64("id", a.ID()),
			logx.String("state", out.newState.String()),
			logx.Int("result_code", res.Code),
		)
	}

	if d.bus != nil {
		evType := "maintenance.action.finished"
		if out.newState == StateFailed {
			evType = "maintenance.action.failed"
		}
		d.bus.Publish(eventbus.Event{Type: evType, Data: actionEvent(a)})
	}
}

// actionEvent builds the small, JSON-serializable payload published on the
// event bus for an action lifecycle transition (eventbus.Event.Data should
// be small per its own doc comment).
func actionEvent(a *Action) ActionEvent {
	res := a.Result()
	return ActionEvent{
		ID:       a.ID(),
		Name:     a.name(),
		State:    a.State().String(),
		Progress: a.Progress(),
		Code:     res.Code,
		Message:  res.Message,
	}
}

// ActionEvent is the payload shape published for maintenance.action.*
// events.
type ActionEvent struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	State    string `json:"state"`
	Progress uint64 `json:"progress"`
	Code     int    `json:"code"`
	Message  string `json:"message,omitempty"`
}

// dispatcherHost adapts the Dispatcher's own shutdown/config state into the
// hostCapabilities interface consumed by Action.runStep.
type dispatcherHost struct{ d *Dispatcher }

func (h dispatcherHost) nowMs() int64 { return h.d.clock().UnixMilli() }
func (h dispatcherHost) shutdownRequested() bool {
	return h.d.shutdown.Fired()
}
func (h dispatcherHost) config() map[string]string {
	h.d.cfgMu.Lock()
	defer h.d.cfgMu.Unlock()
	return map[string]string{
		"seconds_actions_block": h.d.cfg.ActionsBlock.String(),
		"threads_max":           fmt.Sprintf("%d", h.d.cfg.ThreadsMax),
	}
}
