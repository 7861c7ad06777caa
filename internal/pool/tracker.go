package pool

import "iter"

// Tracker is the live set: every instance ever created, active or not.
// Iteration follows creation order.
type Tracker struct {
	index map[*Instance]struct{}
	order []*Instance
}

func NewTracker() *Tracker {
	return &Tracker{index: make(map[*Instance]struct{}, 64)}
}

// Register adds inst to the live set. Registering the same instance twice
// is a no-op.
func (t *Tracker) Register(inst *Instance) {
	if _, ok := t.index[inst]; ok {
		return
	}
	t.index[inst] = struct{}{}
	t.order = append(t.order, inst)
}

func (t *Tracker) Contains(inst *Instance) bool {
	_, ok := t.index[inst]
	return ok
}

func (t *Tracker) Len() int {
	return len(t.order)
}

// All yields every tracked instance. The sequence is restartable; each pass
// covers the instances registered when the pass began.
func (t *Tracker) All() iter.Seq[*Instance] {
	return func(yield func(*Instance) bool) {
		n := len(t.order)
		for i := 0; i < n; i++ {
			if !yield(t.order[i]) {
				return
			}
		}
	}
}
