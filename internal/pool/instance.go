package pool

import (
	"context"

	"github.com/l1jgo/poolmgr/internal/core/ecs"
)

// Object is the host-side entity behind a pooled instance.
type Object interface {
	// SetActive shows or hides the entity in the host world.
	SetActive(active bool)
	// Detach removes the entity from its parent container, if any.
	Detach()
}

// Template is the prototype of a kind. It is never handed to callers; the
// registry only uses it to build new objects.
type Template interface {
	Instantiate() (Object, error)
}

// CatalogEntry pairs a kind key with its template.
type CatalogEntry struct {
	Kind     string
	Template Template
}

// Catalog supplies the poolable kinds at startup.
type Catalog interface {
	Entries(ctx context.Context) ([]CatalogEntry, error)
}

// CatalogFunc adapts a plain function to Catalog.
type CatalogFunc func(ctx context.Context) ([]CatalogEntry, error)

func (f CatalogFunc) Entries(ctx context.Context) ([]CatalogEntry, error) { return f(ctx) }

// Instance is a pooled entity handle. The pool owns the activation state;
// callers only read it.
type Instance struct {
	id     ecs.EntityID
	kind   string
	active bool
	spare  bool // on its kind's stack
	obj    Object
}

func (i *Instance) ID() ecs.EntityID { return i.id }
func (i *Instance) Kind() string     { return i.kind }
func (i *Instance) Active() bool     { return i.active }
func (i *Instance) Object() Object   { return i.obj }

func (i *Instance) activate() {
	i.active = true
	i.obj.SetActive(true)
}

func (i *Instance) deactivate() {
	i.obj.Detach()
	i.active = false
	i.obj.SetActive(false)
}

// Hooks observe instance lifecycle transitions. Implementations must not
// call back into the pool.
type Hooks interface {
	OnCreate(inst *Instance)
	OnSpawn(inst *Instance)
	OnDespawn(inst *Instance)
}
