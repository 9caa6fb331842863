package actions

import (
	"encoding/json"
	"fmt"

	"pewbot/internal/config"
	"pewbot/internal/maintenance"
	"pewbot/internal/storage"
	sm "pewbot/pkg/systemdmanager"
)

const (
	NameConfigReload  = "config_reload"
	NameStorageCompact = "storage_compact"
	NameUnitRestart   = "unit_restart"
)

// Deps are the real collaborators the built-in actions drive. Any of them
// may be nil; an action whose dependency is missing fails fast with
// BadParameter rather than panicking.
type Deps struct {
	ConfigManager *config.ConfigManager
	Store         storage.Store

	// AllowUnits restricts unit_restart to a fixed allowlist (filled from
	// maintenance.allow_units). A nil/empty list allows any unit name.
	AllowUnits []string
}

// NewFactory builds a maintenance.Factory that dispatches by description
// name to this package's built-ins (a name->constructor switch).
func NewFactory(deps Deps) maintenance.Factory {
	return func(description *maintenance.Description, properties json.RawMessage) (maintenance.Stepper, error) {
		name, err := description.Name()
		if err != nil {
			return nil, err
		}
		switch name {
		case NameConfigReload:
			return newConfigReload(description, deps)
		case NameStorageCompact:
			return newStorageCompact(description, deps)
		case NameUnitRestart:
			return newUnitRestart(description, deps)
		default:
			return nil, maintenance.NewError(maintenance.BadParameter, fmt.Sprintf("unknown action name %q", name))
		}
	}
}

func newUnitServiceManager(unit string) (*sm.ServiceManager, error) {
	return sm.NewServiceManager([]string{unit})
}
