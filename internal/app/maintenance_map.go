package app

import (
	"fmt"
	"time"

	"pewbot/internal/config"
	"pewbot/internal/maintenance"
)

// mapMaintenanceConfig maps config.Config's JSON maintenance section into
// maintenance.Config. Unset durations default here (seconds_actions_block
// 1s, grace_window 10m); threads_max and history_size are passed through
// as-is, and 0 is left for maintenance.Config's own defaults.
func mapMaintenanceConfig(cfg *config.Config) (maintenance.Config, error) {
	if cfg == nil || cfg.Maintenance == nil {
		return maintenance.Config{Enabled: false}, nil
	}
	mc := cfg.Maintenance

	out := maintenance.Config{
		Enabled:    mc.Enabled != nil && *mc.Enabled,
		ThreadsMax: mc.ThreadsMax,
	}
	if out.ThreadsMax < 0 {
		return maintenance.Config{}, fmt.Errorf("maintenance.threads_max must be >= 0")
	}
	if mc.HistorySize < 0 {
		return maintenance.Config{}, fmt.Errorf("maintenance.history_size must be >= 0")
	}
	out.HistorySize = mc.HistorySize

	actionsBlock, err := parseDurationOrDefault("maintenance.seconds_actions_block", mc.SecondsActionsBlock, time.Second)
	if err != nil {
		return maintenance.Config{}, err
	}
	out.SecondsActionsBlock = actionsBlock

	graceWindow, err := parseDurationOrDefault("maintenance.grace_window", mc.GraceWindow, 10*time.Minute)
	if err != nil {
		return maintenance.Config{}, err
	}
	out.GraceWindow = graceWindow

	return out, nil
}

// maintenanceAllowUnits reads maintenance.allow_units so the built-in
// unit_restart action is bound by a configurable allowlist guardrail.
func maintenanceAllowUnits(cfg *config.Config) []string {
	if cfg == nil || cfg.Maintenance == nil {
		return nil
	}
	return cfg.Maintenance.AllowUnits
}
