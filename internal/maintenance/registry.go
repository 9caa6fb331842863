package maintenance

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	logx "pewbot/pkg/logx"
)

// Factory builds the Stepper for a description's "name" field. It returns a
// *Error with kind BadParameter for an unknown name.
type Factory func(description *Description, properties json.RawMessage) (Stepper, error)

// Registry is the shared index of in-flight and recently-finished actions.
// It owns identity dedup (by description hash), id assignment, and
// terminal-action retention.
type Registry struct {
	log     logx.Logger
	factory Factory
	clock   func() time.Time

	graceWindow time.Duration

	mu       sync.Mutex
	nextID   uint64
	byID     map[uint64]*Action
	byHash   map[uint64]*Action // only non-terminal entries
	order    []uint64           // admission order, for stable snapshot iteration
	notifyFn func(*Action)
}

// RegistryOption configures a Registry at construction time.
type RegistryOption func(*Registry)

func WithGraceWindow(d time.Duration) RegistryOption {
	return func(r *Registry) { r.graceWindow = d }
}

func WithClock(clock func() time.Time) RegistryOption {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithEnqueueNotify sets the callback invoked after a new READY action is
// admitted (not executeNow). The dispatcher uses this to learn about new
// work without polling.
func WithEnqueueNotify(fn func(*Action)) RegistryOption {
	return func(r *Registry) { r.notifyFn = fn }
}

func NewRegistry(log logx.Logger, factory Factory, opts ...RegistryOption) *Registry {
	r := &Registry{
		log:         log,
		factory:     factory,
		clock:       time.Now,
		graceWindow: 10 * time.Minute,
		byID:        make(map[uint64]*Action),
		byHash:      make(map[uint64]*Action),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Admit deduplicates description against existing non-terminal actions, then
// either builds and registers a new Action (executeNow=false: returns
// immediately in state READY and the dispatcher is notified) or builds and
// runs it synchronously to completion (executeNow=true).
//
// Admit never returns both a non-nil error and a non-nil *Action except for
// the Duplicate case, where the returned *Error's Existing field carries the
// action that already owns the identity hash.
func (r *Registry) Admit(description *Description, properties json.RawMessage, executeNow bool, host hostCapabilities) (Result, *Action, error) {
	if _, err := description.Name(); err != nil {
		return Result{}, nil, err
	}
	hash := description.Hash()

	r.mu.Lock()
	if existing, ok := r.byHash[hash]; ok {
		r.mu.Unlock()
		return Result{}, existing, &Error{Kind: Duplicate, Msg: "an equivalent action is already active", Existing: existing}
	}
	r.mu.Unlock()

	stepper, err := r.factory(description, properties)
	if err != nil {
		return Result{}, nil, err
	}

	now := r.clock()

	r.mu.Lock()
	// Re-check: an equivalent description may have been admitted while the
	// factory ran without the lock held.
	if existing, ok := r.byHash[hash]; ok {
		r.mu.Unlock()
		return Result{}, existing, &Error{Kind: Duplicate, Msg: "an equivalent action is already active", Existing: existing}
	}
	r.nextID++
	id := r.nextID
	action := newAction(id, description, properties, stepper, now)
	r.byID[id] = action
	r.byHash[hash] = action
	r.order = append(r.order, id)
	notify := r.notifyFn
	r.mu.Unlock()

	if !r.log.IsZero() {
		r.log.Info("maintenance.action.admitted",
			logx.Uint64("id", id),
			logx.String("description", description.String()),
			logx.Bool("execute_now", executeNow),
		)
	}

	if executeNow {
		result := action.runSync(r.log, host, r.clock)
		r.release(action)
		return result, action, nil
	}

	if notify != nil {
		notify(action)
	}
	return Result{}, action, nil
}

// release removes a terminal action's hash-index entry so a future
// description with the same identity can be admitted again. The id-indexed
// entry is retained (subject to grace-window eviction) for diagnostics.
func (r *Registry) release(a *Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash := a.description.Hash()
	if cur, ok := r.byHash[hash]; ok && cur == a {
		delete(r.byHash, hash)
	}
}

// Complete is called by the dispatcher once an action reaches a terminal
// state, to release its hash-index slot for reuse.
func (r *Registry) Complete(a *Action) {
	r.release(a)
}

func (r *Registry) Lookup(id uint64) (*Action, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	return a, ok
}

func (r *Registry) LookupByHash(hash uint64) (*Action, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byHash[hash]
	return a, ok
}

// Iterate returns a stable, admission-ordered snapshot of every action still
// tracked by the registry (terminal actions included, until evicted).
func (r *Registry) Iterate() []*Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Action, 0, len(r.order))
	for _, id := range r.order {
		if a, ok := r.byID[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// EvictFinished drops terminal actions whose FinishedAt is older than the
// registry's grace window. The dispatcher's ticker calls this once per
// PollInterval tick (not on every step, to keep this cheap).
func (r *Registry) EvictFinished(now time.Time) int {
	if r.graceWindow <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []uint64
	evicted := 0
	for _, id := range r.order {
		a, ok := r.byID[id]
		if !ok {
			continue
		}
		if a.Done() && now.Sub(a.FinishedAt()) > r.graceWindow {
			delete(r.byID, id)
			evicted++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return evicted
}

// sortedByID returns a copy of actions sorted by id, a deterministic view
// independent of map iteration order. Nothing in this package calls it.
func sortedByID(actions []*Action) []*Action {
	out := make([]*Action, len(actions))
	copy(out, actions)
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
