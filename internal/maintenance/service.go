package maintenance

import (
	"context"
	"encoding/json"
	"time"

	"pewbot/internal/eventbus"
	logx "pewbot/pkg/logx"
)

// Config controls the maintenance scheduler as a whole. The app layer maps
// config.maintenance into this struct; see internal/app/maintenance_map.go.
type Config struct {
	Enabled             bool
	ThreadsMax          int
	SecondsActionsBlock time.Duration
	GraceWindow         time.Duration
	HistorySize         int
}

func (c Config) withDefaults() Config {
	if c.ThreadsMax <= 0 {
		c.ThreadsMax = 2
	}
	if c.GraceWindow <= 0 {
		c.GraceWindow = 10 * time.Minute
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 200
	}
	return c
}

// Service is the public facade for the maintenance action scheduler: the
// single entry point a plugin or operator-facing surface uses to admit
// work and inspect the registry. It combines a Registry (identity + state)
// with a Dispatcher (the worker pool that actually runs steps).
type Service struct {
	log logx.Logger
	bus eventbus.Bus

	cfg Config

	registry *Registry
	disp     *Dispatcher
	ready    *HostSignal
	shutdown *HostSignal

	host hostCapabilities
}

// New builds the facade. The factory resolves a description's "name" field
// to the Stepper that carries out the work; see internal/maintenance/actions
// for this repo's built-ins.
func New(cfg Config, factory Factory, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.withDefaults()

	ready := NewHostSignal()
	shutdown := NewHostSignal()

	s := &Service{
		log:      log,
		bus:      bus,
		cfg:      cfg,
		ready:    ready,
		shutdown: shutdown,
	}

	registry := NewRegistry(log, factory, WithGraceWindow(cfg.GraceWindow))
	disp := NewDispatcher(log, bus, registry, ready, shutdown, DispatcherConfig{
		ThreadsMax:   cfg.ThreadsMax,
		ActionsBlock: cfg.SecondsActionsBlock,
	})
	registry.notifyFn = disp.Notify

	s.registry = registry
	s.disp = disp
	s.host = facadeHost{s}
	return s
}

// Start spawns the worker pool. It blocks internally on host-ready before
// workers actually run, but Start itself returns immediately — callers
// should invoke MarkHostReady once the rest of the app is up.
func (s *Service) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}
	go s.disp.Start(ctx)
}

func (s *Service) Stop(ctx context.Context) {
	s.shutdown.Fire()
	s.disp.Stop(ctx)
}

// MarkHostReady fires the host-ready edge. Call this once, after the rest
// of the app's subsystems have finished starting: this is the single edge
// the scheduler actually needs from the host lifecycle.
func (s *Service) MarkHostReady() { s.ready.Fire() }

// AddAction admits a new action for the given description. If executeNow is
// true, the call blocks until the action reaches a terminal state and
// returns its final Result; otherwise it returns as soon as the action is
// registered in state READY.
func (s *Service) AddAction(description *Description, properties json.RawMessage, executeNow bool) (Result, *Action, error) {
	if s.shutdown.Fired() {
		return Result{}, nil, NewError(ShuttingDown, "maintenance scheduler is shutting down")
	}
	return s.registry.Admit(description, properties, executeNow, s.host)
}

// Lookup returns a previously admitted action by id.
func (s *Service) Lookup(id uint64) (*Action, bool) { return s.registry.Lookup(id) }

// Enabled reports whether the scheduler was configured on, for the app's
// startup/shutdown gating.
func (s *Service) Enabled() bool { return s.cfg.Enabled }

// SetSecondsActionsBlock changes the WAITING backoff window at runtime.
func (s *Service) SetSecondsActionsBlock(d time.Duration) { s.disp.SetActionsBlock(d) }

// SetMaintenanceThreadsMax resizes the worker pool, restarting it if
// already running (n <= 0 selects the default of 2 workers). If the pool is
// not running, the size is only recorded for the next Start; this call does
// not start any worker. A restart waits for the old workers to exit, so run
// it in its own goroutine if the caller must not block.
func (s *Service) SetMaintenanceThreadsMax(ctx context.Context, n int) {
	s.disp.SetThreadsMax(ctx, n)
}

// ToStructuredDocument renders every tracked action (admission order) as a
// JSON document, for diagnostics surfaces (e.g. a /maintenance command).
func (s *Service) ToStructuredDocument() ([]byte, error) {
	return toStructuredDocument(s.registry.Iterate())
}

// facadeHost adapts the Service's own shutdown/config state into the
// hostCapabilities interface used for executeNow admissions (which run
// synchronously on the caller's goroutine, outside the dispatcher's worker
// pool).
type facadeHost struct{ s *Service }

func (h facadeHost) nowMs() int64            { return time.Now().UnixMilli() }
func (h facadeHost) shutdownRequested() bool { return h.s.shutdown.Fired() }
func (h facadeHost) config() map[string]string {
	return map[string]string{
		"seconds_actions_block": h.s.cfg.SecondsActionsBlock.String(),
		"threads_max":           jsonInt(h.s.cfg.ThreadsMax),
	}
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
