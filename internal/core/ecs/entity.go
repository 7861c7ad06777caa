package ecs

// EntityID identifies a pooled instance for the lifetime of the process.
// Zero is never handed out, so it can stand for "no entity".
type EntityID uint64

func (id EntityID) IsZero() bool { return id == 0 }

// EntityPool hands out entity IDs. Pooled instances are recycled rather than
// destroyed, so an ID is never freed or reused.
type EntityPool struct {
	next uint64
}

func NewEntityPool() *EntityPool {
	return &EntityPool{}
}

func (p *EntityPool) Create() EntityID {
	p.next++
	return EntityID(p.next)
}

// Len returns how many IDs have been created.
func (p *EntityPool) Len() int {
	return int(p.next)
}
