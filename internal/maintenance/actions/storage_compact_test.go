package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"pewbot/internal/maintenance"
	"pewbot/internal/storage"
)

type fakeStore struct {
	compactErr   error
	compactCalls int
}

func (f *fakeStore) AppendAudit(ctx context.Context, e storage.AuditEntry) error { return nil }
func (f *fakeStore) PutDedup(ctx context.Context, key string, until time.Time) error {
	return nil
}
func (f *fakeStore) GetDedup(ctx context.Context, key string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}
func (f *fakeStore) Compact(ctx context.Context) error {
	f.compactCalls++
	return f.compactErr
}
func (f *fakeStore) Close() error { return nil }

func TestStorageCompactRequiresStore(t *testing.T) {
	t.Parallel()

	_, err := newStorageCompact(nil, Deps{})
	if err == nil {
		t.Fatal("expected error when no store is configured")
	}
	if !maintenance.IsKind(err, maintenance.BadParameter) {
		t.Fatalf("expected BadParameter, got %v", err)
	}
}

func TestStorageCompactSucceeds(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{}
	stepper, err := newStorageCompact(nil, Deps{Store: fs})
	if err != nil {
		t.Fatalf("newStorageCompact error: %v", err)
	}

	ctx := &fakeActionCtx{}
	if more := stepper.First(ctx); more {
		t.Fatal("expected single-step action to report no more work")
	}
	if ctx.set {
		t.Fatalf("expected no failure result, got code=%d msg=%q", ctx.code, ctx.msg)
	}
	if fs.compactCalls != 1 {
		t.Fatalf("Compact called %d times, want 1", fs.compactCalls)
	}
}

func TestStorageCompactPropagatesError(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{compactErr: errors.New("disk full")}
	stepper, err := newStorageCompact(nil, Deps{Store: fs})
	if err != nil {
		t.Fatalf("newStorageCompact error: %v", err)
	}

	ctx := &fakeActionCtx{}
	stepper.First(ctx)
	if !ctx.set || ctx.code != maintenance.ResultActionFailed {
		t.Fatalf("expected ActionFailed result, got set=%v code=%d", ctx.set, ctx.code)
	}
}
