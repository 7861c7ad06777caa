package pool

import (
	"sync"

	"go.uber.org/zap"
)

// Holder keeps the one Manager of a process. The composition root creates
// the Holder and passes it, or the Manager it returns, to consumers.
type Holder struct {
	mu  sync.Mutex
	mgr *Manager
	log *zap.Logger
}

func NewHolder(log *zap.Logger) *Holder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Holder{log: log}
}

// Get returns the held Manager, calling build to create it on first use.
func (h *Holder) Get(build func() *Manager) *Manager {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mgr == nil {
		h.mgr = build()
	}
	return h.mgr
}

// Adopt offers m as the process Manager. The first Manager offered is kept;
// a later, different one is closed and the kept one is returned instead.
func (h *Holder) Adopt(m *Manager) *Manager {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mgr == nil {
		h.mgr = m
		return m
	}
	if m != nil && m != h.mgr {
		m.Close()
		h.log.Warn("discarding second pool manager")
	}
	return h.mgr
}

// Current returns the held Manager, or nil if none was created yet.
func (h *Holder) Current() *Manager {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mgr
}
