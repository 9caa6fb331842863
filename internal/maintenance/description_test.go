package maintenance

import "testing"

func TestDescriptionNameRequired(t *testing.T) {
	t.Parallel()

	d := NewDescription([2]string{"shard", "s1"})
	if _, err := d.Name(); err == nil {
		t.Fatal("expected error for missing name")
	} else if !IsKind(err, BadParameter) {
		t.Fatalf("expected BadParameter, got %v", err)
	}

	d = NewDescription([2]string{"name", "  "})
	if _, err := d.Name(); err == nil {
		t.Fatal("expected error for blank name")
	}

	d = NewDescription([2]string{"name", "config_reload"})
	name, err := d.Name()
	if err != nil {
		t.Fatalf("Name() error: %v", err)
	}
	if name != "config_reload" {
		t.Fatalf("Name() = %q, want config_reload", name)
	}
}

func TestDescriptionDuplicateKeyOverwrites(t *testing.T) {
	t.Parallel()

	d := NewDescription([2]string{"shard", "s1"}, [2]string{"shard", "s2"})
	v, ok := d.Get("shard")
	if !ok || v != "s2" {
		t.Fatalf("Get(shard) = %q, %v, want s2, true", v, ok)
	}
	if len(d.Extras()) != 1 {
		t.Fatalf("Extras() = %v, want one entry", d.Extras())
	}
}

func TestDescriptionHashOrderIndependent(t *testing.T) {
	t.Parallel()

	a := NewDescription([2]string{"name", "x"}, [2]string{"shard", "s1"}, [2]string{"db", "_system"})
	b := NewDescription([2]string{"db", "_system"}, [2]string{"shard", "s1"}, [2]string{"name", "x"})

	if a.Hash() != b.Hash() {
		t.Fatalf("Hash() not order independent: %x != %x", a.Hash(), b.Hash())
	}
	if !a.Equal(b) {
		t.Fatal("Equal() = false for same key/value set in different order")
	}
}

func TestDescriptionHashDiffersOnValue(t *testing.T) {
	t.Parallel()

	a := NewDescription([2]string{"name", "x"}, [2]string{"shard", "s1"})
	b := NewDescription([2]string{"name", "x"}, [2]string{"shard", "s2"})

	if a.Hash() == b.Hash() {
		t.Fatal("Hash() collided for differing value")
	}
	if a.Equal(b) {
		t.Fatal("Equal() = true for differing description")
	}
}

func TestDescriptionString(t *testing.T) {
	t.Parallel()

	d := NewDescription([2]string{"name", "x"}, [2]string{"shard", "s1"})
	want := "{name=x, shard=s1}"
	if got := d.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
