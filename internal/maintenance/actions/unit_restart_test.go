package actions

import (
	"testing"

	"pewbot/internal/maintenance"
)

func TestUnitRestartRequiresUnitField(t *testing.T) {
	t.Parallel()

	d := maintenance.NewDescription([2]string{"name", "unit_restart"})
	_, err := newUnitRestart(d, Deps{})
	if err == nil {
		t.Fatal("expected error when description has no \"unit\" field")
	}
	if !maintenance.IsKind(err, maintenance.BadParameter) {
		t.Fatalf("expected BadParameter, got %v", err)
	}
}

func TestUnitRestartRejectsUnallowedUnit(t *testing.T) {
	t.Parallel()

	d := maintenance.NewDescription([2]string{"name", "unit_restart"}, [2]string{"unit", "sshd.service"})
	_, err := newUnitRestart(d, Deps{AllowUnits: []string{"nginx.service"}})
	if err == nil {
		t.Fatal("expected error for a unit outside the allowlist")
	}
	if !maintenance.IsKind(err, maintenance.BadParameter) {
		t.Fatalf("expected BadParameter, got %v", err)
	}
}

func TestUnitAllowedHelper(t *testing.T) {
	t.Parallel()

	allow := []string{"a.service", "b.service"}
	if !unitAllowed("a.service", allow) {
		t.Fatal("expected a.service to be allowed")
	}
	if unitAllowed("c.service", allow) {
		t.Fatal("expected c.service to be rejected")
	}
}
