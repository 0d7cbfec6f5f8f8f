package particles

import (
	"github.com/mlange-42/ark/ecs"
)

// EmitterRef is a generational handle to an emitter registered in an Arena.
// A ref outlives its emitter safely: once the emitter is released, Resolve
// reports it as gone. The zero ref never resolves.
type EmitterRef struct {
	entity ecs.Entity
	set    bool
}

// Valid reports whether the ref was ever assigned.
func (r EmitterRef) Valid() bool { return r.set }

// emitterRecord is the arena component linking an entity to its emitter.
type emitterRecord struct {
	emitter *Emitter
}

// Arena hands out generational refs for live emitters. It is backed by an
// ECS world so a released slot is recycled with a new generation.
type Arena struct {
	world   *ecs.World
	records *ecs.Map1[emitterRecord]
	live    int
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	world := ecs.NewWorld()
	return &Arena{
		world:   world,
		records: ecs.NewMap1[emitterRecord](world),
	}
}

// Register adds an emitter and returns its ref.
func (a *Arena) Register(e *Emitter) EmitterRef {
	entity := a.records.NewEntity(&emitterRecord{emitter: e})
	a.live++
	return EmitterRef{entity: entity, set: true}
}

// Resolve returns the emitter behind ref if it is still registered.
func (a *Arena) Resolve(ref EmitterRef) (*Emitter, bool) {
	if !ref.set || !a.world.Alive(ref.entity) {
		return nil, false
	}
	rec := a.records.Get(ref.entity)
	if rec == nil || rec.emitter == nil {
		return nil, false
	}
	return rec.emitter, true
}

// Release unregisters the emitter behind ref. Releasing a stale ref is a no-op.
func (a *Arena) Release(ref EmitterRef) {
	if !ref.set || !a.world.Alive(ref.entity) {
		return
	}
	a.world.RemoveEntity(ref.entity)
	a.live--
}

// Len returns the number of registered emitters.
func (a *Arena) Len() int { return a.live }
