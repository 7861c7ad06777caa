package pool

import (
	"context"
	"fmt"

	"github.com/l1jgo/poolmgr/internal/core/ecs"
	"github.com/l1jgo/poolmgr/internal/core/event"
	"go.uber.org/zap"
)

// Warmup asks Initialize to pre-grow kind by Count instances.
type Warmup struct {
	Kind  string
	Count int
}

// Manager is the public face of the pool: it bootstraps the registry from a
// catalog and exposes Spawn, Despawn and DespawnAll.
//
// Lifecycle:
//
//	New → Initialize → Start(bus) → Spawn/Despawn (repeatable) → Close
//
// All methods run on the tick goroutine; Manager does no locking.
type Manager struct {
	log      *zap.Logger
	metrics  *Metrics
	hooks    Hooks
	registry *Registry
	tracker  *Tracker
	ids      *ecs.EntityPool
	sub      *event.Subscription
	closed   bool
}

func New(opts ...Option) *Manager {
	tracker := NewTracker()
	ids := ecs.NewEntityPool()
	m := &Manager{
		log:      zap.NewNop(),
		registry: NewRegistry(tracker, ids),
		tracker:  tracker,
		ids:      ids,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize loads the catalog, seeds the registry and runs warm-up. It is
// called once by the composition root before any Spawn. On error the
// manager is left uninitialized.
func (m *Manager) Initialize(ctx context.Context, catalog Catalog, warmup []Warmup) error {
	if m.closed {
		return ErrClosed
	}
	if m.registry.Initialized() {
		return ErrAlreadyInitialized
	}
	entries, err := catalog.Entries(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	for _, w := range warmup {
		if !containsKind(entries, w.Kind) {
			return fmt.Errorf("warmup: %w: %q", ErrUnknownKind, w.Kind)
		}
		if w.Count < 0 {
			return fmt.Errorf("warmup %q: negative count %d", w.Kind, w.Count)
		}
	}
	if err := m.registry.Initialize(entries); err != nil {
		return fmt.Errorf("seed registry: %w", err)
	}
	m.log.Info("pool initialized", zap.Int("kinds", len(entries)))

	for _, w := range warmup {
		if err := m.warm(w); err != nil {
			m.rollback()
			return err
		}
	}
	return nil
}

// rollback undoes a failed Initialize: every instance built so far is
// despawned and the registry, tracker and ids start over, so Initialize can
// be called again.
func (m *Manager) rollback() {
	n := 0
	for inst := range m.tracker.All() {
		if inst.active && m.Despawn(inst) == nil {
			n++
		}
	}
	m.log.Warn("pool initialization rolled back",
		zap.Int("despawned", n),
		zap.Int("discarded", m.tracker.Len()),
	)
	m.tracker = NewTracker()
	m.ids = ecs.NewEntityPool()
	m.registry = NewRegistry(m.tracker, m.ids)
}

func containsKind(entries []CatalogEntry, kind string) bool {
	for _, e := range entries {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// warm spawns w.Count instances and despawns them again, leaving them as
// spares.
func (m *Manager) warm(w Warmup) error {
	batch := make([]*Instance, 0, w.Count)
	for i := 0; i < w.Count; i++ {
		inst, err := m.Spawn(w.Kind)
		if err != nil {
			return fmt.Errorf("warmup %q: %w", w.Kind, err)
		}
		batch = append(batch, inst)
	}
	for _, inst := range batch {
		if err := m.Despawn(inst); err != nil {
			return fmt.Errorf("warmup %q: %w", w.Kind, err)
		}
	}
	m.log.Info("pool warmed",
		zap.String("kind", w.Kind),
		zap.Int("spares", m.registry.Spares(w.Kind)),
	)
	return nil
}

// Spawn returns an active instance of kind, reusing a spare when one is
// available.
func (m *Manager) Spawn(kind string) (*Instance, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if !m.registry.Initialized() {
		return nil, ErrNotInitialized
	}
	inst, created, err := m.registry.Acquire(kind)
	if err != nil {
		return nil, err
	}
	if created {
		m.log.Debug("pool grew",
			zap.String("kind", kind),
			zap.Uint64("id", uint64(inst.id)),
			zap.Int("created", m.registry.Created(kind)),
		)
		if m.hooks != nil {
			m.hooks.OnCreate(inst)
		}
	}
	m.metrics.spawned(kind, created)
	if m.hooks != nil {
		m.hooks.OnSpawn(inst)
	}
	return inst, nil
}

// Despawn deactivates inst and returns it to its kind's stack. Despawning an
// inactive instance is a no-op.
func (m *Manager) Despawn(inst *Instance) error {
	if inst == nil || !m.tracker.Contains(inst) {
		return ErrForeignInstance
	}
	if !inst.active {
		return nil
	}
	inst.deactivate()
	if err := m.registry.Release(inst.kind, inst); err != nil {
		return err
	}
	m.metrics.despawned(inst.kind)
	if m.hooks != nil {
		m.hooks.OnDespawn(inst)
	}
	return nil
}

// DespawnAll despawns every active instance in the live set and returns how
// many were despawned.
func (m *Manager) DespawnAll() int {
	n := 0
	for inst := range m.tracker.All() {
		if !inst.active {
			continue
		}
		if err := m.Despawn(inst); err != nil {
			m.log.Error("despawn during reset",
				zap.String("kind", inst.kind),
				zap.Uint64("id", uint64(inst.id)),
				zap.Error(err),
			)
			continue
		}
		n++
	}
	m.metrics.reset()
	m.log.Info("pool reset", zap.Int("despawned", n), zap.Int("live", m.tracker.Len()))
	return n
}

// Start subscribes to RoundEnded on bus. Calling Start while subscribed is a
// no-op.
func (m *Manager) Start(bus *event.Bus) {
	if m.sub != nil || m.closed {
		return
	}
	m.sub = event.Subscribe(bus, func(ev event.RoundEnded) {
		m.log.Info("round ended, resetting pool",
			zap.Int("round", ev.Round),
			zap.String("reason", ev.Reason),
		)
		m.DespawnAll()
	})
}

// Stop drops the RoundEnded subscription. Safe to call more than once.
func (m *Manager) Stop() {
	m.sub.Unsubscribe()
	m.sub = nil
}

// Close stops the manager for good. Later Spawn calls fail with ErrClosed;
// Despawn keeps working so callers can still hand instances back.
func (m *Manager) Close() {
	m.Stop()
	m.closed = true
}

func (m *Manager) Closed() bool { return m.closed }

// KindStats describes one kind's pool.
type KindStats struct {
	Kind    string
	Created int
	Spares  int
	Active  int
}

// Stats is a snapshot of the whole pool.
type Stats struct {
	Kinds []KindStats
	Live  int
}

func (m *Manager) Stats() Stats {
	kinds := m.registry.Kinds()
	s := Stats{Kinds: make([]KindStats, 0, len(kinds)), Live: m.ids.Len()}
	for _, k := range kinds {
		created := m.registry.Created(k)
		spares := m.registry.Spares(k)
		s.Kinds = append(s.Kinds, KindStats{
			Kind:    k,
			Created: created,
			Spares:  spares,
			Active:  created - spares,
		})
	}
	return s
}
