package pool

import (
	"fmt"
	"sort"

	"github.com/l1jgo/poolmgr/internal/core/ecs"
)

// kindEntry is the per-kind pool. The template never sits on the spare
// stack; created counts how many real instances were ever built, so "has
// this kind grown" never depends on the stack size.
type kindEntry struct {
	template Template
	spares   []*Instance // LIFO, inactive only
	created  int
}

// Registry maps kind keys to their spare stacks. Newly built instances are
// registered with the tracker and get an ID from ids.
type Registry struct {
	kinds   map[string]*kindEntry
	tracker *Tracker
	ids     *ecs.EntityPool
}

func NewRegistry(tracker *Tracker, ids *ecs.EntityPool) *Registry {
	return &Registry{tracker: tracker, ids: ids}
}

// Initialize creates one empty stack per catalog entry. It is all or
// nothing: on error no kind is registered.
func (r *Registry) Initialize(entries []CatalogEntry) error {
	if r.kinds != nil {
		return ErrAlreadyInitialized
	}
	kinds := make(map[string]*kindEntry, len(entries))
	for _, e := range entries {
		if e.Kind == "" {
			return ErrEmptyKind
		}
		if e.Template == nil {
			return fmt.Errorf("%w: %q", ErrNilTemplate, e.Kind)
		}
		if _, dup := kinds[e.Kind]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateKind, e.Kind)
		}
		kinds[e.Kind] = &kindEntry{template: e.Template}
	}
	r.kinds = kinds
	return nil
}

func (r *Registry) Initialized() bool {
	return r.kinds != nil
}

// Acquire hands out an active instance of kind. The most recently released
// spare is reused first; with no spares left a new instance is built from
// the template. The boolean reports whether the instance is new.
func (r *Registry) Acquire(kind string) (*Instance, bool, error) {
	e, ok := r.kinds[kind]
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if n := len(e.spares); n > 0 {
		inst := e.spares[n-1]
		e.spares[n-1] = nil
		e.spares = e.spares[:n-1]
		inst.spare = false
		inst.activate()
		return inst, false, nil
	}

	obj, err := e.template.Instantiate()
	if err != nil {
		return nil, false, fmt.Errorf("%w %q: %w", ErrInstantiate, kind, err)
	}
	if obj == nil {
		return nil, false, fmt.Errorf("%w %q: template returned nil", ErrInstantiate, kind)
	}
	inst := &Instance{
		id:   r.ids.Create(),
		kind: kind,
		obj:  obj,
	}
	e.created++
	r.tracker.Register(inst)
	inst.activate()
	return inst, true, nil
}

// Release pushes an inactive instance back onto its kind's stack. An
// instance sits on the stack at most once.
func (r *Registry) Release(kind string, inst *Instance) error {
	e, ok := r.kinds[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if inst.kind != kind {
		return fmt.Errorf("%w: instance %d is %q, stack is %q", ErrKindMismatch, inst.id, inst.kind, kind)
	}
	if inst.active {
		return fmt.Errorf("%w: instance %d (%q)", ErrStillActive, inst.id, kind)
	}
	if inst.spare {
		return fmt.Errorf("%w: instance %d (%q)", ErrAlreadyReleased, inst.id, kind)
	}
	inst.spare = true
	e.spares = append(e.spares, inst)
	return nil
}

func (r *Registry) Has(kind string) bool {
	_, ok := r.kinds[kind]
	return ok
}

// Kinds returns the registered kind keys in sorted order.
func (r *Registry) Kinds() []string {
	keys := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Spares returns the number of inactive instances waiting on kind's stack.
func (r *Registry) Spares(kind string) int {
	if e, ok := r.kinds[kind]; ok {
		return len(e.spares)
	}
	return 0
}

// Created returns how many instances of kind were ever built.
func (r *Registry) Created(kind string) int {
	if e, ok := r.kinds[kind]; ok {
		return e.created
	}
	return 0
}
