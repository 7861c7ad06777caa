package world

// Scene owns every entity of the running level. Destruction is deferred:
// Destroy queues, Flush (run by SceneSystem at tick end) destroys.
type Scene struct {
	entities     []*Entity
	destroyQueue []*Entity
}

func NewScene() *Scene {
	return &Scene{
		entities:     make([]*Entity, 0, 256),
		destroyQueue: make([]*Entity, 0, 64),
	}
}

// NewEntity adds an active root entity to the scene.
func (s *Scene) NewEntity(name string) *Entity {
	e := &Entity{Name: name, active: true, scene: s}
	s.entities = append(s.entities, e)
	return e
}

// Destroy queues e and its subtree for end-of-tick destruction.
func (s *Scene) Destroy(e *Entity) {
	s.destroyQueue = append(s.destroyQueue, e)
}

// Unload queues every non-persistent root, as on a level transition.
// Persistent roots and their children survive.
func (s *Scene) Unload() {
	for _, e := range s.entities {
		if e.parent == nil && !e.persistent {
			s.Destroy(e)
		}
	}
}

// Flush destroys everything queued since the last flush and returns how
// many entities were destroyed.
func (s *Scene) Flush() int {
	if len(s.destroyQueue) == 0 {
		return 0
	}
	n := 0
	for _, e := range s.destroyQueue {
		n += s.destroy(e)
	}
	s.destroyQueue = s.destroyQueue[:0]

	kept := s.entities[:0]
	for _, e := range s.entities {
		if !e.destroyed {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(s.entities); i++ {
		s.entities[i] = nil
	}
	s.entities = kept
	return n
}

func (s *Scene) destroy(e *Entity) int {
	if e.destroyed {
		return 0
	}
	if e.parent != nil {
		e.parent.removeChild(e)
		e.parent = nil
	}
	e.destroyed = true
	e.active = false
	n := 1
	children := e.children
	e.children = nil
	for _, c := range children {
		c.parent = nil
		n += s.destroy(c)
	}
	return n
}

// Count returns the number of live entities.
func (s *Scene) Count() int {
	return len(s.entities)
}
