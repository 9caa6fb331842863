package actions

import (
	"os"
	"path/filepath"
	"testing"

	"pewbot/internal/config"
	"pewbot/internal/maintenance"
)

func newTestConfigManager(t *testing.T) *config.ConfigManager {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return config.NewConfigManager(path)
}

func TestConfigReloadRequiresManager(t *testing.T) {
	t.Parallel()

	_, err := newConfigReload(nil, Deps{})
	if err == nil {
		t.Fatal("expected error when no config manager is configured")
	}
	if !maintenance.IsKind(err, maintenance.BadParameter) {
		t.Fatalf("expected BadParameter, got %v", err)
	}
}

// Not run in parallel: exercises the package-level rate limiter shared by
// every configReload instance, so it needs to be the only test touching it.
func TestConfigReloadSucceedsThenRateLimitsImmediateRetry(t *testing.T) {
	cm := newTestConfigManager(t)

	first, err := newConfigReload(nil, Deps{ConfigManager: cm})
	if err != nil {
		t.Fatalf("newConfigReload error: %v", err)
	}
	ctx := &fakeActionCtx{}
	if more := first.First(ctx); more {
		t.Fatal("expected single-step action to report no more work")
	}
	if ctx.set {
		t.Fatalf("expected the first reload to succeed, got code=%d msg=%q", ctx.code, ctx.msg)
	}

	// Retrying immediately must be rejected by the shared limiter (burst 1,
	// refilling every 2s) before it ever touches the config manager.
	second, err := newConfigReload(nil, Deps{ConfigManager: cm})
	if err != nil {
		t.Fatalf("newConfigReload error: %v", err)
	}
	ctx2 := &fakeActionCtx{}
	if more := second.First(ctx2); more {
		t.Fatal("expected single-step action to report no more work")
	}
	if !ctx2.set || ctx2.code != maintenance.ResultActionFailed {
		t.Fatalf("expected the immediate retry to be rate-limited, got set=%v code=%d", ctx2.set, ctx2.code)
	}
}
