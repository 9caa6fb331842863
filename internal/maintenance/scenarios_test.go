package maintenance_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"pewbot/internal/eventbus"
	"pewbot/internal/maintenance"
	"pewbot/internal/maintenance/actiontest"
	logx "pewbot/pkg/logx"
)

func basicDescription(iterateCount, resultCode int) *maintenance.Description {
	return maintenance.NewDescription(
		[2]string{"name", "basic"},
		[2]string{"iterate_count", strconv.Itoa(iterateCount)},
		[2]string{"result_code", strconv.Itoa(resultCode)},
	)
}

func newScenarioService() *maintenance.Service {
	return maintenance.New(maintenance.Config{Enabled: true}, actiontest.NewBasic, logx.Nop(), eventbus.New())
}

// Scenario 1: iterate_count=0, result_code=0, synchronous.
func TestScenarioSynchronousImmediateSuccess(t *testing.T) {
	t.Parallel()
	s := newScenarioService()

	res, action, err := s.AddAction(basicDescription(0, 0), nil, true)
	if err != nil {
		t.Fatalf("AddAction error: %v", err)
	}
	if action.ID() != 1 {
		t.Fatalf("ID() = %d, want 1", action.ID())
	}
	if action.State() != maintenance.StateComplete {
		t.Fatalf("State() = %v, want COMPLETE", action.State())
	}
	if !res.OK() || res.Code != 0 {
		t.Fatalf("Result = %+v, want code 0", res)
	}
	if action.Progress() != 0 {
		t.Fatalf("Progress() = %d, want 0", action.Progress())
	}
}

// Scenario 2: iterate_count=0, result_code=1, synchronous.
func TestScenarioSynchronousImmediateFailure(t *testing.T) {
	t.Parallel()
	s := newScenarioService()

	res, action, err := s.AddAction(basicDescription(0, 1), nil, true)
	if err != nil {
		t.Fatalf("AddAction error: %v", err)
	}
	if action.State() != maintenance.StateFailed {
		t.Fatalf("State() = %v, want FAILED", action.State())
	}
	if res.Code != 1 {
		t.Fatalf("Result.Code = %d, want 1", res.Code)
	}
	if action.Progress() != 0 {
		t.Fatalf("Progress() = %d, want 0", action.Progress())
	}
}

// Scenario 3: iterate_count=1, result_code=0, synchronous.
func TestScenarioSynchronousOneStepSuccess(t *testing.T) {
	t.Parallel()
	s := newScenarioService()

	res, action, err := s.AddAction(basicDescription(1, 0), nil, true)
	if err != nil {
		t.Fatalf("AddAction error: %v", err)
	}
	if action.State() != maintenance.StateComplete {
		t.Fatalf("State() = %v, want COMPLETE", action.State())
	}
	if !res.OK() {
		t.Fatalf("Result = %+v, want OK", res)
	}
	if action.Progress() != 1 {
		t.Fatalf("Progress() = %d, want 1", action.Progress())
	}
}

// Scenario 4: iterate_count=100, result_code=1, synchronous.
func TestScenarioSynchronousManyStepsFailure(t *testing.T) {
	t.Parallel()
	s := newScenarioService()

	res, action, err := s.AddAction(basicDescription(100, 1), nil, true)
	if err != nil {
		t.Fatalf("AddAction error: %v", err)
	}
	if action.State() != maintenance.StateFailed {
		t.Fatalf("State() = %v, want FAILED", action.State())
	}
	if res.Code != 1 {
		t.Fatalf("Result.Code = %d, want 1", res.Code)
	}
	if action.Progress() != 100 {
		t.Fatalf("Progress() = %d, want 100", action.Progress())
	}
}

func waitDone(t *testing.T, a *maintenance.Action, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if a.Done() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("action %d did not finish within %s (state=%v)", a.ID(), timeout, a.State())
}

// Scenario 5: three queued actions including a duplicate, drained by one
// worker.
func TestScenarioDispatcherDrainWithDuplicate(t *testing.T) {
	t.Parallel()
	s := maintenance.New(maintenance.Config{Enabled: true, ThreadsMax: 1}, actiontest.NewBasic, logx.Nop(), eventbus.New())

	_, a, err := s.AddAction(basicDescription(100, 1), nil, false)
	if err != nil {
		t.Fatalf("AddAction A error: %v", err)
	}
	_, b, err := s.AddAction(maintenance.NewDescription(
		[2]string{"name", "basic"},
		[2]string{"iterate_count", "2"},
		[2]string{"result_code", "0"},
		[2]string{"shard", "b"},
	), nil, false)
	if err != nil {
		t.Fatalf("AddAction B error: %v", err)
	}

	_, _, err = s.AddAction(basicDescription(100, 1), nil, false)
	if err == nil {
		t.Fatal("expected duplicate rejection for A'")
	}
	if !maintenance.IsKind(err, maintenance.Duplicate) {
		t.Fatalf("expected Duplicate, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.MarkHostReady()
	defer s.Stop(context.Background())

	waitDone(t, a, 2*time.Second)
	waitDone(t, b, 2*time.Second)

	if a.ID() != 1 || b.ID() != 2 {
		t.Fatalf("ids = %d,%d want 1,2", a.ID(), b.ID())
	}
	if a.State() != maintenance.StateFailed || a.Result().Code != 1 || a.Progress() != 100 {
		t.Fatalf("A = state=%v result=%d progress=%d, want FAILED/1/100", a.State(), a.Result().Code, a.Progress())
	}
	if b.State() != maintenance.StateComplete || !b.Result().OK() || b.Progress() != 2 {
		t.Fatalf("B = state=%v result=%d progress=%d, want COMPLETE/0/2", b.State(), b.Result().Code, b.Progress())
	}
}

// Scenario 6: admit while no worker runs (threadsMax effectively 0),
// inspect READY, then start a one-worker pool and drain.
func TestScenarioZeroThreadsThenRaise(t *testing.T) {
	t.Parallel()
	s := maintenance.New(maintenance.Config{Enabled: true, ThreadsMax: 1}, actiontest.NewBasic, logx.Nop(), eventbus.New())

	// Admit without ever starting the dispatcher: the action should sit in
	// READY indefinitely.
	_, b, err := s.AddAction(maintenance.NewDescription(
		[2]string{"name", "basic"},
		[2]string{"iterate_count", "2"},
		[2]string{"result_code", "0"},
	), nil, false)
	if err != nil {
		t.Fatalf("AddAction error: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if b.State() != maintenance.StateReady {
		t.Fatalf("State() = %v, want READY before the pool runs", b.State())
	}
	if b.Progress() != 0 {
		t.Fatalf("Progress() = %d, want 0 before the pool runs", b.Progress())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.MarkHostReady()
	defer s.Stop(context.Background())

	waitDone(t, b, 2*time.Second)
	if b.State() != maintenance.StateComplete || b.Progress() != 2 {
		t.Fatalf("post-drain: state=%v progress=%d, want COMPLETE/2", b.State(), b.Progress())
	}
}
