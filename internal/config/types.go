package config

// Config is the root configuration document for the maintenance host.
type Config struct {
	Logging LoggingConfig `json:"logging"`

	Storage *StorageConfig `json:"storage,omitempty"`

	// Maintenance controls the maintenance action scheduler.
	Maintenance *MaintenanceConfig `json:"maintenance,omitempty"`
}

// MaintenanceConfig controls the maintenance action scheduler: a bounded
// worker pool that drives administrative actions (config reload, storage
// compaction, systemd unit restarts, ...) admitted through
// internal/maintenance.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Enabled is a pointer so we can distinguish "omitted" (defaults to
// disabled) from an explicit false.
//
// Defaults (when fields are omitted/zero):
//   - enabled: false
//   - threads_max: 2
//   - seconds_actions_block: "1s"
//   - grace_window: "10m"
//   - history_size: 200
//   - allow_units: (empty, i.e. any unit name)
type MaintenanceConfig struct {
	Enabled    *bool `json:"enabled,omitempty"`
	ThreadsMax int   `json:"threads_max,omitempty"`

	// SecondsActionsBlock is the minimum dwell time a non-terminal action
	// spends in state WAITING before it becomes eligible to run again.
	SecondsActionsBlock string `json:"seconds_actions_block,omitempty"`

	// GraceWindow is how long a terminal (COMPLETE/FAILED) action stays in
	// the registry for diagnostics before being evicted.
	GraceWindow string `json:"grace_window,omitempty"`

	HistorySize int `json:"history_size,omitempty"`

	// AllowUnits restricts the unit_restart action to a fixed allowlist.
	// A nil/empty list allows any unit name.
	AllowUnits []string `json:"allow_units,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./pewbot_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}
