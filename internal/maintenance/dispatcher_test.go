package maintenance

import (
	"context"
	"testing"
	"time"

	"pewbot/internal/eventbus"
	logx "pewbot/pkg/logx"
)

func waitForTerminal(t *testing.T, a *Action, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if a.Done() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("action %d did not reach a terminal state within %s (state=%v)", a.ID(), timeout, a.State())
}

func newTestDispatcher(t *testing.T, factory Factory, cfg DispatcherConfig) (*Dispatcher, *Registry) {
	t.Helper()
	bus := eventbus.New()
	ready := NewHostSignal()
	shutdown := NewHostSignal()
	disp := NewDispatcher(logx.Nop(), bus, nil, ready, shutdown, cfg)

	// The registry's enqueue-notify callback must point back at the
	// dispatcher, so it is built after the dispatcher and wired in before
	// Start, mirroring how Service constructs the pair.
	registry := NewRegistry(logx.Nop(), factory, WithEnqueueNotify(disp.Notify))
	disp.registry = registry

	ready.Fire()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		disp.Stop(context.Background())
		cancel()
	})
	disp.Start(ctx)
	return disp, registry
}

func TestDispatcherRunsAdmittedActionToCompletion(t *testing.T) {
	t.Parallel()

	disp, registry := newTestDispatcher(t, countingFactory(2, 0), DispatcherConfig{ThreadsMax: 2, PollInterval: 10 * time.Millisecond})
	_ = disp

	_, action, err := registry.Admit(NewDescription([2]string{"name", "x"}), nil, false, nil)
	if err != nil {
		t.Fatalf("Admit error: %v", err)
	}

	waitForTerminal(t, action, time.Second)
	if action.State() != StateComplete {
		t.Fatalf("State() = %v, want COMPLETE", action.State())
	}
}

func TestDispatcherFailedActionIsNotRetried(t *testing.T) {
	t.Parallel()

	disp, registry := newTestDispatcher(t, countingFactory(1, 1), DispatcherConfig{ThreadsMax: 1, PollInterval: 10 * time.Millisecond})
	_ = disp

	_, action, err := registry.Admit(NewDescription([2]string{"name", "x"}), nil, false, nil)
	if err != nil {
		t.Fatalf("Admit error: %v", err)
	}

	waitForTerminal(t, action, time.Second)
	if action.State() != StateFailed {
		t.Fatalf("State() = %v, want FAILED", action.State())
	}

	progressAfterFirst := action.Progress()
	time.Sleep(50 * time.Millisecond)
	if action.Progress() != progressAfterFirst {
		t.Fatal("FAILED action should never be stepped again")
	}
}

func TestDispatcherHonoursActionsBlock(t *testing.T) {
	t.Parallel()

	disp, registry := newTestDispatcher(t, countingFactory(2, 0), DispatcherConfig{ThreadsMax: 1, PollInterval: 5 * time.Millisecond})
	disp.SetActionsBlock(200 * time.Millisecond)

	_, action, err := registry.Admit(NewDescription([2]string{"name", "x"}), nil, false, nil)
	if err != nil {
		t.Fatalf("Admit error: %v", err)
	}

	// First step should happen quickly; the action should then sit in
	// WAITING for at least the configured backoff before its second step.
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) && action.Progress() == 0 {
		time.Sleep(time.Millisecond)
	}
	if action.Progress() == 0 {
		t.Fatal("expected first step to run promptly")
	}
	firstStepAt := time.Now()

	waitForTerminal(t, action, time.Second)
	if time.Since(firstStepAt) < 150*time.Millisecond {
		t.Fatal("second step ran before the actions-block backoff elapsed")
	}
}
