package particles

import (
	"math/rand"
	"slices"

	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/renderer"
)

// PhaseTimer receives a mark at the start of each technique step phase.
// telemetry.PerfCollector satisfies it.
type PhaseTimer interface {
	StartPhase(phase string)
}

// Technique owns a particle pool together with the emitters and affectors
// that drive it, and the material it is drawn with.
type Technique struct {
	Name     string
	Material Material

	ParticleQuota  int
	EmitterQuota   int
	AffectorQuota  int
	TechniqueQuota int
	SystemQuota    int

	DefaultDimensions Vec3
	MaxVelocity       float64 // zero means unbounded
	LODIndex          int

	container *Container
	system    *ParticleSystem

	emitters           []*Emitter
	affectors          []*Affector
	instancedEmitters  []*Emitter
	instancedAffectors []*Affector

	particles []Particle
	vertices  *renderer.AttributeBuffer

	// Lifetime totals, for telemetry.
	spawned int
	expired int

	// Names from active_emitters / active_affectors, resolved at link time.
	emitterNames  []string
	affectorNames []string
}

func newTechnique(c *Container, n node.Node) (*Technique, error) {
	t := &Technique{container: c}
	var err error
	if t.Name, err = n.StringOr("name", ""); err != nil {
		return nil, err
	}
	if t.ParticleQuota, err = n.Int("visual_particle_quota"); err != nil {
		return nil, err
	}
	if t.ParticleQuota < 0 {
		return nil, n.Get("visual_particle_quota").Errorf(node.ErrValue, "must be non-negative")
	}
	quotas := []struct {
		dst *int
		key string
		def int
	}{
		{&t.EmitterQuota, "emitted_emitter_quota", 50},
		{&t.AffectorQuota, "emitted_affector_quota", 10},
		{&t.TechniqueQuota, "emitted_technique_quota", 10},
		{&t.SystemQuota, "emitted_system_quota", 10},
		{&t.LODIndex, "lod_index", 0},
	}
	for _, q := range quotas {
		if *q.dst, err = n.IntOr(q.key, q.def); err != nil {
			return nil, err
		}
	}
	for i, key := range []string{"default_particle_width", "default_particle_height", "default_particle_depth"} {
		if t.DefaultDimensions[i], err = n.FloatOr(key, 1); err != nil {
			return nil, err
		}
	}
	if t.MaxVelocity, err = n.FloatOr("max_velocity", 0); err != nil {
		return nil, err
	}

	mat, err := n.Child("material")
	if err != nil {
		return nil, err
	}
	if t.Material, err = parseMaterial(mat); err != nil {
		return nil, err
	}

	entries, err := n.Get("emitter").Entries()
	if err != nil {
		return nil, err
	}
	for _, ent := range entries {
		e, err := newEmitter(c, ent.Node)
		if err != nil {
			return nil, err
		}
		if e.Name == "" {
			e.Name = ent.Name
		}
		c.registerEmitter(e)
		e.technique = t
		t.emitters = append(t.emitters, e)
	}

	entries, err = n.Get("affector").Entries()
	if err != nil {
		return nil, err
	}
	for _, ent := range entries {
		a, err := newAffector(c, ent.Node)
		if err != nil {
			return nil, err
		}
		if a.Name == "" {
			a.Name = ent.Name
		}
		c.registerAffector(a)
		a.technique = t
		t.affectors = append(t.affectors, a)
	}

	if t.emitterNames, err = n.Strings("active_emitters"); err != nil {
		return nil, err
	}
	if t.affectorNames, err = n.Strings("active_affectors"); err != nil {
		return nil, err
	}
	return t, nil
}

// link resolves active_emitters and active_affectors. A name declared
// inline is used as is; anything else is cloned from the catalog.
func (t *Technique) link() error {
	if t.emitterNames != nil {
		var active []*Emitter
		for _, name := range t.emitterNames {
			i := slices.IndexFunc(t.emitters, func(e *Emitter) bool { return e.Name == name })
			if i >= 0 {
				active = append(active, t.emitters[i])
				continue
			}
			e, err := t.container.CloneEmitter(name)
			if err != nil {
				return err
			}
			e.technique = t
			active = append(active, e)
		}
		t.emitters = active
		t.emitterNames = nil
	}
	if t.affectorNames != nil {
		var active []*Affector
		for _, name := range t.affectorNames {
			i := slices.IndexFunc(t.affectors, func(a *Affector) bool { return a.Name == name })
			if i >= 0 {
				active = append(active, t.affectors[i])
				continue
			}
			a, err := t.container.CloneAffector(name)
			if err != nil {
				return err
			}
			a.technique = t
			active = append(active, a)
		}
		t.affectors = active
		t.affectorNames = nil
	}
	for _, e := range t.emitters {
		if e.emitsType == EmitsEmitter && !t.container.hasEmitter(e.emitsName) {
			return notFound("emitter", e.emitsName)
		}
		if e.emitsType == EmitsAffector && !t.container.hasAffector(e.emitsName) {
			return notFound("affector", e.emitsName)
		}
	}
	return nil
}

// clone deep-copies the technique and its emitters and affectors, pointing
// every back-reference at the copy. Runtime state is not carried over.
func (t *Technique) clone() *Technique {
	c := new(Technique)
	*c = *t
	c.system = nil
	c.emitterNames = slices.Clone(t.emitterNames)
	c.affectorNames = slices.Clone(t.affectorNames)
	c.emitters = make([]*Emitter, len(t.emitters))
	for i, e := range t.emitters {
		ec := e.clone()
		ec.technique = c
		c.emitters[i] = ec
	}
	c.affectors = make([]*Affector, len(t.affectors))
	for i, a := range t.affectors {
		ac := a.clone()
		ac.technique = c
		c.affectors[i] = ac
	}
	c.instancedEmitters = nil
	c.instancedAffectors = nil
	c.particles = nil
	c.vertices = nil
	c.spawned, c.expired = 0, 0
	return c
}

func (t *Technique) rng() *rand.Rand { return t.container.rng }

func (t *Technique) arena() *Arena { return t.container.arena }

// elapsed returns the owning system's elapsed time.
func (t *Technique) elapsed() float64 {
	if t.system == nil {
		return 0
	}
	return t.system.elapsed
}

func (t *Technique) systemScale() Vec3 {
	if t.system == nil {
		return Vec3{1, 1, 1}
	}
	return t.system.Scale
}

func (t *Technique) scaleVelocity() float64 {
	if t.system == nil {
		return 1
	}
	return t.system.ScaleVelocity
}

func (t *Technique) phase(name string) {
	if pt := t.container.timer; pt != nil {
		pt.StartPhase(name)
	}
}

// ensurePool reserves the particle pool and vertex buffer at quota so that
// steady-state steps never allocate.
func (t *Technique) ensurePool() {
	if t.particles == nil {
		t.particles = make([]Particle, 0, t.ParticleQuota)
	}
	if t.vertices == nil {
		t.vertices = renderer.NewAttributeBuffer(t.ParticleQuota * renderer.VerticesPerParticle)
	}
}

// allocateParticles appends up to n zeroed particles, clamped to the quota,
// and returns the new range. This is the only place the quota is enforced.
func (t *Technique) allocateParticles(n int) []Particle {
	t.ensurePool()
	free := t.ParticleQuota - len(t.particles)
	n = min(n, free)
	if n <= 0 {
		return nil
	}
	start := len(t.particles)
	t.spawned += n
	t.particles = t.particles[:start+n]
	fresh := t.particles[start:]
	clear(fresh)
	return fresh
}

// spawnEmitter clones the catalog emitter name into the instanced set, or
// returns nil when the emitted-emitter quota is full.
func (t *Technique) spawnEmitter(name string) *Emitter {
	if len(t.instancedEmitters) >= t.EmitterQuota {
		return nil
	}
	e, err := t.container.CloneEmitter(name)
	if err != nil {
		return nil
	}
	e.technique = t
	e.instanced = true
	t.instancedEmitters = append(t.instancedEmitters, e)
	return e
}

// spawnAffector clones the catalog affector name into the instanced set, or
// returns nil when the emitted-affector quota is full.
func (t *Technique) spawnAffector(name string) *Affector {
	if len(t.instancedAffectors) >= t.AffectorQuota {
		return nil
	}
	a, err := t.container.CloneAffector(name)
	if err != nil {
		return nil
	}
	a.technique = t
	a.instanced = true
	t.instancedAffectors = append(t.instancedAffectors, a)
	return a
}

// Process advances the technique by dt. The phase order is fixed.
func (t *Technique) Process(dt float64) {
	t.ensurePool()

	t.phase(PhaseEmit)
	for _, e := range t.emitters {
		e.process(dt)
	}
	for i := 0; i < len(t.instancedEmitters); i++ {
		t.instancedEmitters[i].process(dt)
	}

	t.phase(PhaseAffect)
	for _, a := range t.affectors {
		a.process(dt)
	}
	for _, a := range t.instancedAffectors {
		a.process(dt)
	}

	t.phase(PhaseAge)
	for i := range t.particles {
		t.particles[i].Current.TimeToLive -= dt
	}
	for _, e := range t.instancedEmitters {
		e.Current.TimeToLive -= dt
	}
	for _, a := range t.instancedAffectors {
		a.timeToLive -= dt
	}

	t.phase(PhaseCull)
	t.cull()

	t.phase(PhaseIntegrate)
	t.integrate(dt)

	t.phase(PhaseUpload)
	t.upload()
}

// cull removes expired particles and instanced elements, keeping order.
func (t *Technique) cull() {
	live := t.particles[:0]
	for i := range t.particles {
		if !t.particles[i].Expired() {
			live = append(live, t.particles[i])
		}
	}
	clear(t.particles[len(live):])
	t.expired += len(t.particles) - len(live)
	t.particles = live

	t.instancedEmitters = slices.DeleteFunc(t.instancedEmitters, func(e *Emitter) bool {
		if e.Current.TimeToLive < 0 {
			t.arena().Release(e.ref)
			return true
		}
		return false
	})
	t.instancedAffectors = slices.DeleteFunc(t.instancedAffectors, func(a *Affector) bool {
		return a.timeToLive < 0
	})
}

func (t *Technique) integrate(dt float64) {
	step := dt * t.scaleVelocity()
	for i := range t.particles {
		cur := &t.particles[i].Current
		cur.Direction = clampSpeed(cur.Direction, t.MaxVelocity)
		cur.Position = cur.Position.Add(cur.Direction.Mul(step))
	}
	for _, e := range t.instancedEmitters {
		e.Current.Direction = clampSpeed(e.Current.Direction, t.MaxVelocity)
		e.Current.Position = e.Current.Position.Add(e.Current.Direction.Mul(step))
	}
}

// clampSpeed shortens v to length limit. A limit of zero or less disables it.
func clampSpeed(v Vec3, limit float64) Vec3 {
	if limit <= 0 {
		return v
	}
	if l := v.Len(); l > limit {
		return v.Mul(limit / l)
	}
	return v
}

// upload writes one quad (two triangles) per particle into the back buffer
// and publishes it.
func (t *Technique) upload() {
	buf := t.vertices.Back()
	for i := range t.particles {
		buf = appendQuad(buf, &t.particles[i])
	}
	t.vertices.Swap(buf)
}

func appendQuad(buf []renderer.Vertex, p *Particle) []renderer.Vertex {
	c := p.Current
	right := c.Orientation.Rotate(unitX).Mul(c.Dimensions[0] / 2)
	up := c.Orientation.Rotate(unitY).Mul(c.Dimensions[1] / 2)
	corners := [4]Vec3{
		c.Position.Sub(right).Sub(up),
		c.Position.Add(right).Sub(up),
		c.Position.Add(right).Add(up),
		c.Position.Sub(right).Add(up),
	}
	uv := p.UV
	uvs := [4][2]float32{
		{uv.X, uv.Y + uv.H},
		{uv.X + uv.W, uv.Y + uv.H},
		{uv.X + uv.W, uv.Y},
		{uv.X, uv.Y},
	}
	col := [4]uint8{c.Color.R, c.Color.G, c.Color.B, c.Color.A}
	for _, k := range [renderer.VerticesPerParticle]int{0, 1, 2, 0, 2, 3} {
		v := corners[k]
		buf = append(buf, renderer.Vertex{
			Pos:   [3]float32{float32(v[0]), float32(v[1]), float32(v[2])},
			UV:    uvs[k],
			Color: col,
		})
	}
	return buf
}

// System returns the owning particle system, or nil for catalog prototypes.
func (t *Technique) System() *ParticleSystem { return t.system }

// Emitters returns the active (configured) emitters.
func (t *Technique) Emitters() []*Emitter { return t.emitters }

// Affectors returns the active (configured) affectors.
func (t *Technique) Affectors() []*Affector { return t.affectors }

// InstancedEmitters returns the emitters spawned at runtime.
func (t *Technique) InstancedEmitters() []*Emitter { return t.instancedEmitters }

// InstancedAffectors returns the affectors spawned at runtime.
func (t *Technique) InstancedAffectors() []*Affector { return t.instancedAffectors }

// Particles returns the live pool. The slice is only valid until the next
// Process call.
func (t *Technique) Particles() []Particle { return t.particles }

// ParticleCount returns the number of live particles.
func (t *Technique) ParticleCount() int { return len(t.particles) }

// Totals returns how many particles have been spawned and expired since
// the technique was created.
func (t *Technique) Totals() (spawned, expired int) { return t.spawned, t.expired }

// AddEmitter attaches e to the technique.
func (t *Technique) AddEmitter(e *Emitter) {
	e.technique = t
	t.emitters = append(t.emitters, e)
}

// AddAffector attaches a to the technique.
func (t *Technique) AddAffector(a *Affector) {
	a.technique = t
	t.affectors = append(t.affectors, a)
}

// Batch returns the draw request for the last published vertices.
func (t *Technique) Batch() renderer.Batch {
	b := renderer.Batch{Name: t.Name, Texture: t.Material.Texture, Blend: t.Material.Blend}
	if t.vertices != nil {
		b.Vertices = t.vertices.Front()
	}
	return b
}

// release unregisters every emitter of this technique from the arena.
func (t *Technique) release() {
	for _, e := range t.emitters {
		t.arena().Release(e.ref)
		e.ref = EmitterRef{}
	}
	for _, e := range t.instancedEmitters {
		t.arena().Release(e.ref)
	}
	t.instancedEmitters = nil
	t.instancedAffectors = nil
	t.particles = t.particles[:0]
}

// Write serializes the technique to its configuration form.
func (t *Technique) Write() *node.Map {
	m := node.NewMap()
	if t.Name != "" {
		m.Set("name", t.Name)
	}
	m.Set("visual_particle_quota", t.ParticleQuota)
	m.Set("emitted_emitter_quota", t.EmitterQuota)
	m.Set("emitted_affector_quota", t.AffectorQuota)
	m.Set("emitted_technique_quota", t.TechniqueQuota)
	m.Set("emitted_system_quota", t.SystemQuota)
	m.Set("default_particle_width", t.DefaultDimensions[0])
	m.Set("default_particle_height", t.DefaultDimensions[1])
	m.Set("default_particle_depth", t.DefaultDimensions[2])
	if t.MaxVelocity > 0 {
		m.Set("max_velocity", t.MaxVelocity)
	}
	if t.LODIndex != 0 {
		m.Set("lod_index", t.LODIndex)
	}
	m.Set("material", t.Material.write())
	if len(t.emitters) > 0 {
		list := make([]any, len(t.emitters))
		for i, e := range t.emitters {
			list[i] = e.Write()
		}
		m.Set("emitter", list)
	}
	if len(t.affectors) > 0 {
		list := make([]any, len(t.affectors))
		for i, a := range t.affectors {
			list[i] = a.Write()
		}
		m.Set("affector", list)
	}
	return m
}
