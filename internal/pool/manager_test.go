package pool

import (
	"context"
	"math/rand"
	"testing"

	"github.com/l1jgo/poolmgr/internal/core/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestManager(t *testing.T, kinds ...string) (*Manager, map[string]*fakeTemplate) {
	t.Helper()
	m := New(WithLogger(zaptest.NewLogger(t)))
	catalog, templates := catalogOf(kinds...)
	require.NoError(t, m.Initialize(context.Background(), catalog, nil))
	return m, templates
}

func TestManagerBoltScenario(t *testing.T) {
	m, templates := newTestManager(t, "Bolt")

	a, err := m.Spawn("Bolt")
	require.NoError(t, err)
	assert.True(t, a.Active())
	assert.Equal(t, 1, m.tracker.Len())

	b, err := m.Spawn("Bolt")
	require.NoError(t, err)
	assert.NotSame(t, a, b, "an empty stack always grows")
	assert.Equal(t, 2, templates["Bolt"].built)

	require.NoError(t, m.Despawn(a))
	assert.False(t, a.Active())
	assert.Equal(t, 1, m.registry.Spares("Bolt"))

	c, err := m.Spawn("Bolt")
	require.NoError(t, err)
	assert.Same(t, a, c)
	assert.Zero(t, m.registry.Spares("Bolt"))
	assert.Equal(t, 2, templates["Bolt"].built)
}

func TestManagerDespawnAllThenSpawnReuses(t *testing.T) {
	m, _ := newTestManager(t, "Bolt")
	a, err := m.Spawn("Bolt")
	require.NoError(t, err)

	assert.Equal(t, 1, m.DespawnAll())
	assert.False(t, a.Active())
	assert.Equal(t, 1, m.registry.Spares("Bolt"))

	again, err := m.Spawn("Bolt")
	require.NoError(t, err)
	assert.Same(t, a, again)
}

func TestManagerDespawnIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t, "Bolt")
	inst, err := m.Spawn("Bolt")
	require.NoError(t, err)
	obj := inst.Object().(*fakeObject)

	require.NoError(t, m.Despawn(inst))
	require.NoError(t, m.Despawn(inst))

	assert.False(t, inst.Active())
	assert.Equal(t, 1, m.registry.Spares("Bolt"))
	assert.Equal(t, 1, obj.detached)
}

func TestManagerDespawnDetachesFromParent(t *testing.T) {
	m, _ := newTestManager(t, "Bolt")
	inst, err := m.Spawn("Bolt")
	require.NoError(t, err)
	obj := inst.Object().(*fakeObject)
	obj.parent = "boss"

	require.NoError(t, m.Despawn(inst))
	assert.Empty(t, obj.parent)
	assert.False(t, obj.active)
}

func TestManagerDespawnForeignInstance(t *testing.T) {
	m, _ := newTestManager(t, "Bolt")
	other, _ := newTestManager(t, "Bolt")
	inst, err := other.Spawn("Bolt")
	require.NoError(t, err)

	assert.ErrorIs(t, m.Despawn(inst), ErrForeignInstance)
	assert.ErrorIs(t, m.Despawn(nil), ErrForeignInstance)
	assert.True(t, inst.Active())
}

func TestManagerUnknownKindLeavesStateUntouched(t *testing.T) {
	m, _ := newTestManager(t, "Bolt")
	a, err := m.Spawn("Bolt")
	require.NoError(t, err)
	require.NoError(t, m.Despawn(a))
	before := m.Stats()

	inst, err := m.Spawn("NoSuchKind")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Nil(t, inst)
	assert.Equal(t, before, m.Stats())
	assert.Equal(t, 1, m.tracker.Len())
}

func TestManagerNoDoubleAllocation(t *testing.T) {
	kinds := []string{"Bolt", "Glyph", "Explosion"}
	m, _ := newTestManager(t, kinds...)
	rng := rand.New(rand.NewSource(7))

	active := make(map[*Instance]bool)
	var held []*Instance
	createdBefore := make(map[string]int)

	for step := 0; step < 2000; step++ {
		switch {
		case len(held) > 0 && rng.Intn(3) == 0:
			i := rng.Intn(len(held))
			inst := held[i]
			held = append(held[:i], held[i+1:]...)
			require.NoError(t, m.Despawn(inst))
			delete(active, inst)
		case rng.Intn(20) == 0:
			m.DespawnAll()
			held = held[:0]
			clear(active)
		default:
			kind := kinds[rng.Intn(len(kinds))]
			exhausted := m.registry.Spares(kind) == 0
			inst, err := m.Spawn(kind)
			require.NoError(t, err)
			require.False(t, active[inst], "step %d: %d handed out twice", step, inst.ID())
			active[inst] = true
			held = append(held, inst)

			created := m.registry.Created(kind)
			if exhausted {
				require.Equal(t, createdBefore[kind]+1, created, "step %d: growth only on exhaustion", step)
			} else {
				require.Equal(t, createdBefore[kind], created, "step %d: no growth with spares", step)
			}
			createdBefore[kind] = created
		}

		for _, k := range kinds {
			st := m.registry.Spares(k)
			require.LessOrEqual(t, st, m.registry.Created(k))
		}
	}
}

func TestManagerDespawnAllCompleteness(t *testing.T) {
	m, _ := newTestManager(t, "Bolt", "Glyph")
	for i := 0; i < 5; i++ {
		_, err := m.Spawn("Bolt")
		require.NoError(t, err)
		_, err = m.Spawn("Glyph")
		require.NoError(t, err)
	}
	first, err := m.Spawn("Bolt")
	require.NoError(t, err)
	require.NoError(t, m.Despawn(first))

	assert.Equal(t, 10, m.DespawnAll())
	for inst := range m.tracker.All() {
		assert.False(t, inst.Active())
	}
	before := m.Stats()

	assert.Zero(t, m.DespawnAll())
	assert.Equal(t, before, m.Stats())
	assert.Equal(t, 6, m.registry.Spares("Bolt"))
	assert.Equal(t, 5, m.registry.Spares("Glyph"))
}

func TestManagerWarmup(t *testing.T) {
	m := New(WithLogger(zaptest.NewLogger(t)))
	catalog, templates := catalogOf("FloatingDamage", "ElectricTouchBolt")
	warmup := []Warmup{{Kind: "FloatingDamage", Count: 1}, {Kind: "ElectricTouchBolt", Count: 15}}
	require.NoError(t, m.Initialize(context.Background(), catalog, warmup))

	assert.Equal(t, 1, m.registry.Spares("FloatingDamage"))
	assert.Equal(t, 15, m.registry.Spares("ElectricTouchBolt"))
	assert.Equal(t, 15, templates["ElectricTouchBolt"].built)

	for i := 0; i < 15; i++ {
		_, err := m.Spawn("ElectricTouchBolt")
		require.NoError(t, err)
	}
	assert.Equal(t, 15, templates["ElectricTouchBolt"].built, "warm spares cover the burst")
}

func TestManagerFailedWarmupRollsBack(t *testing.T) {
	ctx := context.Background()
	m := New(WithLogger(zaptest.NewLogger(t)))
	catalog, templates := catalogOf("Bolt", "Glyph")
	templates["Glyph"].limit = 2
	warmup := []Warmup{{Kind: "Bolt", Count: 3}, {Kind: "Glyph", Count: 5}}

	err := m.Initialize(ctx, catalog, warmup)
	assert.ErrorIs(t, err, ErrInstantiate)
	assert.ErrorIs(t, err, errBoom)

	for _, tpl := range templates {
		for _, obj := range tpl.objs {
			assert.False(t, obj.active, "%s object left active", tpl.kind)
		}
	}
	assert.False(t, m.registry.Initialized())
	assert.Empty(t, m.Stats().Kinds)
	assert.Zero(t, m.Stats().Live)
	_, err = m.Spawn("Bolt")
	assert.ErrorIs(t, err, ErrNotInitialized)

	templates["Glyph"].limit = 0
	require.NoError(t, m.Initialize(ctx, catalog, warmup))
	assert.Equal(t, 3, m.registry.Spares("Bolt"))
	assert.Equal(t, 5, m.registry.Spares("Glyph"))
	assert.Equal(t, 8, m.Stats().Live)
}

func TestManagerInitializeErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown warmup kind", func(t *testing.T) {
		m := New()
		catalog, _ := catalogOf("Bolt")
		err := m.Initialize(ctx, catalog, []Warmup{{Kind: "Glyph", Count: 1}})
		assert.ErrorIs(t, err, ErrUnknownKind)
		assert.False(t, m.registry.Initialized())
	})

	t.Run("negative warmup", func(t *testing.T) {
		m := New()
		catalog, _ := catalogOf("Bolt")
		assert.Error(t, m.Initialize(ctx, catalog, []Warmup{{Kind: "Bolt", Count: -1}}))
	})

	t.Run("catalog failure", func(t *testing.T) {
		m := New()
		catalog := CatalogFunc(func(context.Context) ([]CatalogEntry, error) { return nil, errBoom })
		assert.ErrorIs(t, m.Initialize(ctx, catalog, nil), errBoom)
	})

	t.Run("duplicate kind", func(t *testing.T) {
		m := New()
		catalog, _ := catalogOf("Bolt", "Bolt")
		assert.ErrorIs(t, m.Initialize(ctx, catalog, nil), ErrDuplicateKind)
	})

	t.Run("twice", func(t *testing.T) {
		m, _ := newTestManager(t, "Bolt")
		catalog, _ := catalogOf("Bolt")
		assert.ErrorIs(t, m.Initialize(ctx, catalog, nil), ErrAlreadyInitialized)
	})

	t.Run("spawn before initialize", func(t *testing.T) {
		_, err := New().Spawn("Bolt")
		assert.ErrorIs(t, err, ErrNotInitialized)
	})
}

func TestManagerResetsOnRoundEnded(t *testing.T) {
	m, _ := newTestManager(t, "Bolt")
	bus := event.NewBus()
	m.Start(bus)
	m.Start(bus)
	assert.Equal(t, 1, event.Subscribers[event.RoundEnded](bus))

	inst, err := m.Spawn("Bolt")
	require.NoError(t, err)

	event.Emit(bus, event.RoundEnded{Round: 1, Reason: "players died"})
	bus.SwapBuffers()
	bus.DispatchAll()
	assert.False(t, inst.Active())

	m.Stop()
	m.Stop()
	assert.Zero(t, event.Subscribers[event.RoundEnded](bus))

	inst, err = m.Spawn("Bolt")
	require.NoError(t, err)
	event.Emit(bus, event.RoundEnded{Round: 2})
	bus.SwapBuffers()
	bus.DispatchAll()
	assert.True(t, inst.Active(), "no listener after Stop")
}

func TestManagerHooks(t *testing.T) {
	hooks := &recordingHooks{}
	m := New(WithHooks(hooks))
	catalog, _ := catalogOf("Bolt")
	require.NoError(t, m.Initialize(context.Background(), catalog, nil))

	inst, err := m.Spawn("Bolt")
	require.NoError(t, err)
	require.NoError(t, m.Despawn(inst))
	require.NoError(t, m.Despawn(inst))
	_, err = m.Spawn("Bolt")
	require.NoError(t, err)

	assert.Equal(t, []string{"create:Bolt", "spawn:Bolt", "despawn:Bolt", "spawn:Bolt"}, hooks.events)
}

func TestManagerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg, "test")
	require.NoError(t, err)

	m := New(WithMetrics(metrics))
	catalog, _ := catalogOf("Bolt")
	require.NoError(t, m.Initialize(context.Background(), catalog, []Warmup{{Kind: "Bolt", Count: 2}}))

	_, err = m.Spawn("Bolt")
	require.NoError(t, err)
	m.DespawnAll()

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.spawns.WithLabelValues("Bolt")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.created.WithLabelValues("Bolt")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.despawns.WithLabelValues("Bolt")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.active.WithLabelValues("Bolt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.resets))

	_, err = NewMetrics(reg, "test")
	assert.Error(t, err, "registering twice collides")
}

func TestManagerClose(t *testing.T) {
	m, _ := newTestManager(t, "Bolt")
	bus := event.NewBus()
	m.Start(bus)
	inst, err := m.Spawn("Bolt")
	require.NoError(t, err)

	m.Close()
	assert.True(t, m.Closed())
	assert.Zero(t, event.Subscribers[event.RoundEnded](bus))

	_, err = m.Spawn("Bolt")
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, m.Despawn(inst))

	m.Start(bus)
	assert.Zero(t, event.Subscribers[event.RoundEnded](bus))
}

func TestManagerStats(t *testing.T) {
	m, _ := newTestManager(t, "Glyph", "Bolt")
	a, _ := m.Spawn("Bolt")
	_, _ = m.Spawn("Bolt")
	require.NoError(t, m.Despawn(a))

	assert.Equal(t, Stats{
		Kinds: []KindStats{
			{Kind: "Bolt", Created: 2, Spares: 1, Active: 1},
			{Kind: "Glyph"},
		},
		Live: 2,
	}, m.Stats())
}
