package world

// Vec3 is a world-space position.
type Vec3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Entity is a node in the scene graph. Children are destroyed with their
// parent. Accessed only from the game loop goroutine — no locks needed.
type Entity struct {
	Name     string
	Position Vec3
	Props    map[string]string

	active     bool
	persistent bool
	destroyed  bool
	parent     *Entity
	children   []*Entity
	scene      *Scene
}

func (e *Entity) Active() bool     { return e.active }
func (e *Entity) Persistent() bool { return e.persistent }
func (e *Entity) Destroyed() bool  { return e.destroyed }
func (e *Entity) Parent() *Entity  { return e.parent }
func (e *Entity) Scene() *Scene    { return e.scene }

func (e *Entity) Children() []*Entity {
	return e.children
}

// SetActive shows or hides the entity.
func (e *Entity) SetActive(active bool) {
	e.active = active
}

// MarkPersistent exempts a root entity from Scene.Unload.
func (e *Entity) MarkPersistent() {
	e.persistent = true
}

// SetParent reparents e under p; a nil p makes e a scene root.
func (e *Entity) SetParent(p *Entity) {
	if e.parent == p {
		return
	}
	if e.parent != nil {
		e.parent.removeChild(e)
	}
	e.parent = p
	if p != nil {
		p.children = append(p.children, e)
	}
}

// Detach makes e a scene root again.
func (e *Entity) Detach() {
	e.SetParent(nil)
}

func (e *Entity) removeChild(c *Entity) {
	for i, ch := range e.children {
		if ch == c {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}
