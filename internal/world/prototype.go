package world

import (
	"fmt"
	"maps"

	"github.com/l1jgo/poolmgr/internal/pool"
)

// Prototype is the template of a poolable kind. Instantiate clones it into a
// persistent root entity of the scene.
type Prototype struct {
	Name     string
	Position Vec3
	Props    map[string]string

	scene *Scene
}

func NewPrototype(scene *Scene, name string, pos Vec3, props map[string]string) *Prototype {
	return &Prototype{Name: name, Position: pos, Props: props, scene: scene}
}

func (p *Prototype) Instantiate() (pool.Object, error) {
	if p.scene == nil {
		return nil, fmt.Errorf("prototype %q is not bound to a scene", p.Name)
	}
	e := p.scene.NewEntity(p.Name)
	e.Position = p.Position
	e.Props = maps.Clone(p.Props)
	// Pooled entities outlive level unloads.
	e.MarkPersistent()
	return e, nil
}
