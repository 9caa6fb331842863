package actions

import (
	"testing"

	"pewbot/internal/maintenance"
)

func TestFactoryDispatchesByName(t *testing.T) {
	t.Parallel()

	factory := NewFactory(Deps{Store: &fakeStore{}})

	stepper, err := factory(maintenance.NewDescription([2]string{"name", NameStorageCompact}), nil)
	if err != nil {
		t.Fatalf("factory error: %v", err)
	}
	if _, ok := stepper.(*storageCompact); !ok {
		t.Fatalf("expected *storageCompact, got %T", stepper)
	}
}

func TestFactoryRejectsUnknownName(t *testing.T) {
	t.Parallel()

	factory := NewFactory(Deps{})
	_, err := factory(maintenance.NewDescription([2]string{"name", "does_not_exist"}), nil)
	if err == nil {
		t.Fatal("expected error for unknown action name")
	}
	if !maintenance.IsKind(err, maintenance.BadParameter) {
		t.Fatalf("expected BadParameter, got %v", err)
	}
}

func TestFactoryRequiresName(t *testing.T) {
	t.Parallel()

	factory := NewFactory(Deps{})
	_, err := factory(maintenance.NewDescription(), nil)
	if err == nil {
		t.Fatal("expected error for missing name field")
	}
}
