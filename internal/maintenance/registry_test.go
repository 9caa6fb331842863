package maintenance

import (
	"encoding/json"
	"testing"
	"time"

	logx "pewbot/pkg/logx"
)

func countingFactory(remaining int, code int) Factory {
	return func(description *Description, properties json.RawMessage) (Stepper, error) {
		return &countingStepper{remaining: remaining, code: code}, nil
	}
}

func TestRegistryAdmitAssignsSequentialIDs(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logx.Nop(), countingFactory(1, 0))

	_, a1, err := r.Admit(NewDescription([2]string{"name", "x"}, [2]string{"shard", "s1"}), nil, false, nil)
	if err != nil {
		t.Fatalf("Admit #1 error: %v", err)
	}
	_, a2, err := r.Admit(NewDescription([2]string{"name", "x"}, [2]string{"shard", "s2"}), nil, false, nil)
	if err != nil {
		t.Fatalf("Admit #2 error: %v", err)
	}
	if a1.ID() == a2.ID() {
		t.Fatal("expected distinct ids")
	}
	if a2.ID() != a1.ID()+1 {
		t.Fatalf("expected sequential ids, got %d then %d", a1.ID(), a2.ID())
	}
}

func TestRegistryDuplicateRejected(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logx.Nop(), countingFactory(5, 0))
	desc := NewDescription([2]string{"name", "x"}, [2]string{"shard", "s1"})

	_, first, err := r.Admit(desc, nil, false, nil)
	if err != nil {
		t.Fatalf("first Admit error: %v", err)
	}

	_, _, err = r.Admit(NewDescription([2]string{"shard", "s1"}, [2]string{"name", "x"}), nil, false, nil)
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	if !IsKind(err, Duplicate) {
		t.Fatalf("expected Duplicate, got %v", err)
	}
	merr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if merr.Existing != first {
		t.Fatal("Existing should reference the already-admitted action")
	}
}

func TestRegistryExecuteNowRunsSynchronously(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logx.Nop(), countingFactory(1, 0))
	host := &fakeHost{now: time.Unix(1, 0)}

	result, action, err := r.Admit(NewDescription([2]string{"name", "x"}), nil, true, host)
	if err != nil {
		t.Fatalf("Admit error: %v", err)
	}
	if !result.OK() {
		t.Fatalf("result = %+v, want OK", result)
	}
	if !action.Done() {
		t.Fatal("executeNow action should be terminal on return")
	}

	// Hash slot should be released so an equivalent description can be
	// admitted again immediately.
	if _, ok := r.LookupByHash(NewDescription([2]string{"name", "x"}).Hash()); ok {
		t.Fatal("expected hash slot to be released after executeNow completion")
	}
}

func TestRegistryCompleteReleasesHashSlot(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logx.Nop(), countingFactory(1, 0))
	desc := NewDescription([2]string{"name", "x"})

	_, action, err := r.Admit(desc, nil, false, nil)
	if err != nil {
		t.Fatalf("Admit error: %v", err)
	}
	if _, ok := r.LookupByHash(desc.Hash()); !ok {
		t.Fatal("expected hash slot to be occupied before completion")
	}

	r.Complete(action)
	if _, ok := r.LookupByHash(desc.Hash()); ok {
		t.Fatal("expected hash slot to be released after Complete")
	}
	if _, ok := r.Lookup(action.ID()); !ok {
		t.Fatal("expected id-indexed entry to survive Complete")
	}
}

func TestRegistryEvictFinished(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logx.Nop(), countingFactory(1, 0), WithGraceWindow(time.Minute))
	host := &fakeHost{now: time.Unix(1, 0)}

	_, action, err := r.Admit(NewDescription([2]string{"name", "x"}), nil, true, host)
	if err != nil {
		t.Fatalf("Admit error: %v", err)
	}

	if n := r.EvictFinished(action.FinishedAt().Add(30 * time.Second)); n != 0 {
		t.Fatalf("evicted %d actions before grace window elapsed, want 0", n)
	}
	if n := r.EvictFinished(action.FinishedAt().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("evicted %d actions after grace window elapsed, want 1", n)
	}
	if _, ok := r.Lookup(action.ID()); ok {
		t.Fatal("expected action to be gone after eviction")
	}
}
