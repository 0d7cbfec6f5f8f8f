package particles

import (
	"slices"

	"github.com/pthm-cable/psys/node"
)

// Targets an affector kind applies to in the default pass.
type target uint8

const (
	targetParticles target = 1 << iota
	targetActiveEmitters
	targetInstancedEmitters

	targetEmitters = targetActiveEmitters | targetInstancedEmitters
	// targetMoving covers everything that is integrated each step. Forces
	// only make sense on these; an active emitter never moves, so a force
	// would accumulate in its direction without bound.
	targetMoving = targetParticles | targetInstancedEmitters
)

// affectorKind is the per-variant behaviour behind an Affector.
type affectorKind interface {
	kind() string
	targets() target
	apply(a *Affector, initial, current *PhysicsParameters, dt float64)
	clone() affectorKind
	write(m *node.Map)
}

// passer is implemented by kinds that replace the default pass entirely,
// because they need neighbour context or a time-gated cadence.
type passer interface {
	pass(a *Affector, dt float64)
}

// Affector mutates the current state of particles and emitters once per
// step.
type Affector struct {
	Name     string
	Enabled  bool
	Mass     float64
	Position Vec3
	Scale    Vec3

	excluded  []string
	impl      affectorKind
	technique *Technique

	// Instanced affectors are spawned by an emitter and expire like particles.
	instanced  bool
	timeToLive float64
}

func newAffector(c *Container, n node.Node) (*Affector, error) {
	typ, err := n.String("type")
	if err != nil {
		return nil, err
	}
	info, ok := c.kinds.Get(typ)
	if !ok || info.Category != CategoryAffector {
		return nil, n.Get("type").Errorf(ErrUnknownKind, "affector %q (known: %v)", typ, c.kinds.IDs(CategoryAffector))
	}

	a := &Affector{}
	if a.Name, err = n.StringOr("name", ""); err != nil {
		return nil, err
	}
	if a.Enabled, err = n.BoolOr("enabled", true); err != nil {
		return nil, err
	}
	if a.Mass, err = n.FloatOr("mass_affector", 1); err != nil {
		return nil, err
	}
	pos, err := n.Vec3Or("position", [3]float64{})
	if err != nil {
		return nil, err
	}
	a.Position = vecFromArray(pos)
	scale, err := n.Vec3Or("scale", [3]float64{1, 1, 1})
	if err != nil {
		return nil, err
	}
	a.Scale = vecFromArray(scale)
	if a.excluded, err = n.Strings("exclude_emitters"); err != nil {
		return nil, err
	}

	if a.impl, err = newAffectorKind(typ, n, c); err != nil {
		return nil, err
	}
	return a, nil
}

// clone returns an independent copy bound to no technique.
func (a *Affector) clone() *Affector {
	c := *a
	c.excluded = slices.Clone(a.excluded)
	c.impl = a.impl.clone()
	c.technique = nil
	c.instanced = false
	c.timeToLive = 0
	return &c
}

// Kind returns the affector type name.
func (a *Affector) Kind() string { return a.impl.kind() }

// Technique returns the owning technique, or nil for catalog prototypes.
func (a *Affector) Technique() *Technique { return a.technique }

// Excluded returns the names of emitters whose output this affector skips.
func (a *Affector) Excluded() []string { return a.excluded }

// Exclude adds an emitter name to the exclusion set.
func (a *Affector) Exclude(name string) {
	if !slices.Contains(a.excluded, name) {
		a.excluded = append(a.excluded, name)
	}
}

// Instanced reports whether the affector was spawned at runtime.
func (a *Affector) Instanced() bool { return a.instanced }

func (a *Affector) excludesName(name string) bool {
	return name != "" && slices.Contains(a.excluded, name)
}

// process runs one step of this affector over the owning technique.
func (a *Affector) process(dt float64) {
	if !a.Enabled {
		return
	}
	if p, ok := a.impl.(passer); ok {
		p.pass(a, dt)
		return
	}
	tg := a.impl.targets()
	if tg&targetEmitters != 0 {
		a.eachEmitter(tg, func(e *Emitter) {
			a.impl.apply(a, &e.Initial, &e.Current, dt)
		})
	}
	if tg&targetParticles != 0 {
		a.eachParticle(func(p *Particle) {
			a.impl.apply(a, &p.Initial, &p.Current, dt)
		})
	}
}

// eachEmitter visits the technique's emitters selected by tg, skipping
// excluded names.
func (a *Affector) eachEmitter(tg target, fn func(e *Emitter)) {
	t := a.technique
	if tg&targetActiveEmitters != 0 {
		for _, e := range t.emitters {
			if !a.excludesName(e.Name) {
				fn(e)
			}
		}
	}
	if tg&targetInstancedEmitters != 0 {
		for _, e := range t.instancedEmitters {
			if !a.excludesName(e.Name) {
				fn(e)
			}
		}
	}
}

// eachParticle visits live particles in pool order, skipping those spawned
// by an excluded emitter.
func (a *Affector) eachParticle(fn func(p *Particle)) {
	ps := a.technique.particles
	for i := range ps {
		if len(a.excluded) > 0 && a.excludesName(ps[i].EmitterName) {
			continue
		}
		fn(&ps[i])
	}
}

// Write serializes the affector to its configuration form.
func (a *Affector) Write() *node.Map {
	m := node.NewMap()
	m.Set("type", a.impl.kind())
	if a.Name != "" {
		m.Set("name", a.Name)
	}
	if !a.Enabled {
		m.Set("enabled", false)
	}
	m.Set("mass_affector", a.Mass)
	m.Set("position", vecToList(a.Position))
	m.Set("scale", vecToList(a.Scale))
	if len(a.excluded) > 0 {
		ex := make([]any, len(a.excluded))
		for i, s := range a.excluded {
			ex[i] = s
		}
		m.Set("exclude_emitters", ex)
	}
	a.impl.write(m)
	return m
}
