package maintenance

import (
	"hash/fnv"
	"sort"
	"strings"
)

// NameKey is the one reserved description key: it selects the plugin
// factory that builds the concrete Action. Every other key is a
// plugin-defined extra and is opaque to the core.
const NameKey = "name"

// Description is an immutable, ordered key/value description of an
// action's identity and parameters. Two descriptions denote the same
// action iff their key/value sets are equal, independent of order.
type Description struct {
	pairs []kv
}

type kv struct {
	key   string
	value string
}

// NewDescription builds a Description from an ordered list of key/value
// pairs. A later pair with a duplicate key overwrites an earlier one,
// matching map-assignment semantics while preserving first-seen order
// for the surviving key.
func NewDescription(pairs ...[2]string) *Description {
	d := &Description{pairs: make([]kv, 0, len(pairs))}
	seen := make(map[string]int, len(pairs))
	for _, p := range pairs {
		key, value := p[0], p[1]
		if idx, ok := seen[key]; ok {
			d.pairs[idx].value = value
			continue
		}
		seen[key] = len(d.pairs)
		d.pairs = append(d.pairs, kv{key: key, value: value})
	}
	return d
}

// Get returns the value for key and whether it was present.
func (d *Description) Get(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, p := range d.pairs {
		if p.key == key {
			return p.value, true
		}
	}
	return "", false
}

// Name returns the reserved "name" field. It fails fast (kind
// BAD_PARAMETER) when the field is absent, per spec §4.1.
func (d *Description) Name() (string, error) {
	v, ok := d.Get(NameKey)
	if !ok || strings.TrimSpace(v) == "" {
		return "", NewError(BadParameter, "description missing required \"name\" field")
	}
	return v, nil
}

// Extras returns every pair other than "name", in encounter order.
func (d *Description) Extras() [][2]string {
	if d == nil {
		return nil
	}
	out := make([][2]string, 0, len(d.pairs))
	for _, p := range d.pairs {
		if p.key == NameKey {
			continue
		}
		out = append(out, [2]string{p.key, p.value})
	}
	return out
}

// Hash returns an order-independent 64-bit hash of the full key/value
// set. It is the basis for deduplication.
func (d *Description) Hash() uint64 {
	if d == nil || len(d.pairs) == 0 {
		return 0
	}
	// Sort a copy so that hashing is independent of construction order,
	// matching the "order-independent over pairs" requirement in spec §4.1.
	sorted := make([]kv, len(d.pairs))
	copy(sorted, d.pairs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].key < sorted[j].key })

	h := fnv.New64a()
	for _, p := range sorted {
		_, _ = h.Write([]byte(p.key))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(p.value))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// Equal reports whether d and other describe the same key/value set.
func (d *Description) Equal(other *Description) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	if len(d.pairs) != len(other.pairs) {
		return false
	}
	return d.Hash() == other.Hash()
}

// String renders the description for logging. Key order follows
// construction order, not the sorted order used for hashing.
func (d *Description) String() string {
	if d == nil {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range d.pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	b.WriteByte('}')
	return b.String()
}
