package config

import (
	logx "pewbot/pkg/logx"
	"reflect"
	"sort"
	"strings"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 3)
	attrs := make([]logx.Field, 0, 12)

	// Logging
	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Storage (persistence)
	oldS := oldCfg.Storage
	newS := newCfg.Storage
	// Nil means disabled.
	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	if oldS != nil {
		oDriver = strings.TrimSpace(oldS.Driver)
		oBusy = strings.TrimSpace(oldS.BusyTimeout)
		oPathSet = strings.TrimSpace(oldS.Path) != ""
	}
	if newS != nil {
		nDriver = strings.TrimSpace(newS.Driver)
		nBusy = strings.TrimSpace(newS.BusyTimeout)
		nPathSet = strings.TrimSpace(newS.Path) != ""
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPathSet),
			logx.String("storage.busy_timeout", nBusy),
		)
	}

	// Maintenance (action scheduler)
	defM := MaintenanceConfig{ThreadsMax: 2, SecondsActionsBlock: "1s", GraceWindow: "10m", HistorySize: 200}
	oldM := oldCfg.Maintenance
	newM := newCfg.Maintenance
	oM := defM
	if oldM != nil {
		oM = *oldM
	}
	nM := defM
	if newM != nil {
		nM = *newM
	}
	if !reflect.DeepEqual(oM, nM) {
		changed = append(changed, "maintenance")
		enabled := nM.Enabled != nil && *nM.Enabled
		attrs = append(attrs,
			logx.Bool("maintenance.enabled", enabled),
			logx.Int("maintenance.threads_max", nM.ThreadsMax),
			logx.String("maintenance.seconds_actions_block", nM.SecondsActionsBlock),
			logx.String("maintenance.grace_window", nM.GraceWindow),
			logx.Int("maintenance.allow_units_count", len(nM.AllowUnits)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
