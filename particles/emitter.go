package particles

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/params"
)

// EmitsType selects what an emitter produces.
type EmitsType uint8

const (
	EmitsVisual EmitsType = iota
	EmitsEmitter
	EmitsAffector
)

var emitsNames = map[string]EmitsType{
	"visual_particle":   EmitsVisual,
	"emitter_particle":  EmitsEmitter,
	"affector_particle": EmitsAffector,
}

func (t EmitsType) String() string {
	for k, v := range emitsNames {
		if v == t {
			return k
		}
	}
	return fmt.Sprintf("EmitsType(%d)", t)
}

// instancedEmitterTTL is the life of an emitter that was not spawned by another.
const instancedEmitterTTL = 100000000.0

// Emitter spawns particles into its technique's pool. The shape decides
// where new particles appear; everything else is shared bookkeeping.
type Emitter struct {
	Name    string
	Enabled bool

	// Initial and Current are the emitter's own kinematic state. Spawned
	// particles start at Current.Position heading along Current.Direction.
	Initial PhysicsParameters
	Current PhysicsParameters

	shape     shape
	technique *Technique

	emissionRate params.Parameter
	timeToLive   params.Parameter
	velocity     params.Parameter
	angle        params.Parameter
	mass         params.Parameter
	duration     params.Parameter
	repeatDelay  params.Parameter
	scaling      params.Parameter
	rollAngle    params.Parameter // optional, degrees about +Z
	width        params.Parameter // optional
	height       params.Parameter // optional
	depth        params.Parameter // optional

	color            [4]float64
	hasColorRange    bool
	colorLo, colorHi Color

	hasOrientationRange      bool
	orientStart, orientEnd   Quat
	emitOnly2D               bool
	orientationFollowsAngle  bool
	forceEmission, forceDone bool

	emitsType EmitsType
	emitsName string

	emissionFraction     float64
	durationRemaining    float64
	repeatDelayRemaining float64

	ref       EmitterRef
	emittedBy EmitterRef
	instanced bool
}

func newEmitter(c *Container, n node.Node) (*Emitter, error) {
	typ, err := n.String("type")
	if err != nil {
		return nil, err
	}
	info, ok := c.kinds.Get(typ)
	if !ok || info.Category != CategoryEmitter {
		return nil, n.Get("type").Errorf(ErrUnknownKind, "emitter %q (known: %v)", typ, c.kinds.IDs(CategoryEmitter))
	}

	e := &Emitter{Enabled: true}
	e.Initial = DefaultPhysics()
	e.Initial.TimeToLive = instancedEmitterTTL
	e.Initial.Velocity = 0

	if e.Name, err = n.StringOr("name", ""); err != nil {
		return nil, err
	}
	if e.Enabled, err = n.BoolOr("enabled", true); err != nil {
		return nil, err
	}

	rng := c.rng
	fields := []struct {
		dst *params.Parameter
		key string
		def float64
	}{
		{&e.emissionRate, "emission_rate", 10},
		{&e.timeToLive, "time_to_live", 10},
		{&e.velocity, "velocity", 100},
		{&e.angle, "angle", 20},
		{&e.mass, "mass", 1},
		{&e.duration, "duration", 0},
		{&e.repeatDelay, "repeat_delay", 0},
		{&e.scaling, "scaling", 1},
	}
	for _, f := range fields {
		if *f.dst, err = params.OrDefault(n, f.key, f.def, rng); err != nil {
			return nil, err
		}
	}

	if n.Has("all_dimensions") {
		p, err := params.Factory(n.Get("all_dimensions"), rng)
		if err != nil {
			return nil, err
		}
		e.width, e.height, e.depth = p, p, p
	}
	for _, f := range []struct {
		dst *params.Parameter
		key string
	}{{&e.width, "particle_width"}, {&e.height, "particle_height"}, {&e.depth, "particle_depth"}} {
		p, err := params.Optional(n, f.key, rng)
		if err != nil {
			return nil, err
		}
		if p != nil {
			*f.dst = p
		}
	}

	pos, err := n.Vec3Or("position", [3]float64{})
	if err != nil {
		return nil, err
	}
	e.Initial.Position = vecFromArray(pos)
	dir, err := n.Vec3Or("direction", [3]float64{0, 1, 0})
	if err != nil {
		return nil, err
	}
	e.Initial.Direction = vecFromArray(dir)

	if err := e.parseOrientation(c, n); err != nil {
		return nil, err
	}
	if err := e.parseColor(n); err != nil {
		return nil, err
	}

	if e.forceEmission, err = n.BoolOr("force_emission", false); err != nil {
		return nil, err
	}
	if e.emitOnly2D, err = n.BoolOr("emit_only_2d", false); err != nil {
		return nil, err
	}
	if e.orientationFollowsAngle, err = n.BoolOr("orientation_follows_angle", false); err != nil {
		return nil, err
	}

	emits, err := n.StringOr("emits_type", "visual_particle")
	if err != nil {
		return nil, err
	}
	switch emits {
	case "technique_particle", "system_particle":
		return nil, n.Get("emits_type").Errorf(node.ErrValue, "%q is not supported", emits)
	}
	if e.emitsType, ok = emitsNames[emits]; !ok {
		return nil, n.Get("emits_type").Errorf(node.ErrValue, "unknown emits_type %q", emits)
	}
	if e.emitsType != EmitsVisual {
		if e.emitsName, err = n.String("emits_name"); err != nil {
			return nil, err
		}
	}

	if e.shape, err = newShape(typ, n, rng); err != nil {
		return nil, err
	}

	e.Current = e.Initial
	e.resetCycle()
	return e, nil
}

func (e *Emitter) parseOrientation(c *Container, n node.Node) error {
	e.Initial.Orientation = mgl64.QuatIdent()
	if n.Has("orientation") {
		o := n.Get("orientation")
		if o.IsList() {
			q, err := n.Vec4Or("orientation", [4]float64{1, 0, 0, 0})
			if err != nil {
				return err
			}
			e.Initial.Orientation = Quat{W: q[0], V: Vec3{q[1], q[2], q[3]}}.Normalize()
		} else {
			p, err := params.Factory(o, c.rng)
			if err != nil {
				return err
			}
			e.rollAngle = p
		}
	}
	if n.Has("orientation_start") && n.Has("orientation_end") {
		s, err := n.Vec4Or("orientation_start", [4]float64{1, 0, 0, 0})
		if err != nil {
			return err
		}
		t, err := n.Vec4Or("orientation_end", [4]float64{1, 0, 0, 0})
		if err != nil {
			return err
		}
		e.hasOrientationRange = true
		e.orientStart = Quat{W: s[0], V: Vec3{s[1], s[2], s[3]}}.Normalize()
		e.orientEnd = Quat{W: t[0], V: Vec3{t[1], t[2], t[3]}}.Normalize()
	}
	return nil
}

func (e *Emitter) parseColor(n node.Node) error {
	e.color = [4]float64{1, 1, 1, 1}
	key := "color"
	if !n.Has(key) && n.Has("colour") {
		key = "colour"
	}
	c, err := n.Vec4Or(key, e.color)
	if err != nil {
		return err
	}
	e.color = c

	if n.Has("start_colour_range") && n.Has("end_colour_range") {
		lo, err := n.Vec4Or("start_colour_range", [4]float64{})
		if err != nil {
			return err
		}
		hi, err := n.Vec4Or("end_colour_range", [4]float64{})
		if err != nil {
			return err
		}
		e.hasColorRange = true
		e.colorLo = Color{clampByte(lo[0]), clampByte(lo[1]), clampByte(lo[2]), clampByte(lo[3])}
		e.colorHi = Color{clampByte(hi[0]), clampByte(hi[1]), clampByte(hi[2]), clampByte(hi[3])}
	}
	return nil
}

func clampByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, v)))
}

// resetCycle rearms the duration and repeat-delay counters.
func (e *Emitter) resetCycle() {
	e.emissionFraction = 0
	e.forceDone = false
	e.durationRemaining = e.duration.Value(0)
	e.repeatDelayRemaining = e.repeatDelay.Value(0)
}

// clone returns an independent copy bound to no technique. Parameters are
// immutable and shared; runtime counters restart.
func (e *Emitter) clone() *Emitter {
	c := *e
	c.shape = e.shape.clone()
	c.technique = nil
	c.ref = EmitterRef{}
	c.emittedBy = EmitterRef{}
	c.instanced = false
	c.Current = c.Initial
	c.resetCycle()
	return &c
}

// Kind returns the emitter shape name.
func (e *Emitter) Kind() string { return e.shape.kind() }

// Technique returns the owning technique, or nil for catalog prototypes.
func (e *Emitter) Technique() *Technique { return e.technique }

// Ref returns the arena handle, assigned the first time the emitter runs.
func (e *Emitter) Ref() EmitterRef { return e.ref }

// EmittedBy returns the emitter that spawned this one, for instanced emitters.
func (e *Emitter) EmittedBy() EmitterRef { return e.emittedBy }

// Instanced reports whether the emitter was spawned at runtime.
func (e *Emitter) Instanced() bool { return e.instanced }

// EmissionRate returns the rate parameter in particles per second.
func (e *Emitter) EmissionRate() params.Parameter { return e.emissionRate }

// SetEmissionRate replaces the rate parameter.
func (e *Emitter) SetEmissionRate(p params.Parameter) {
	if p == nil {
		p = params.NewFixed(10)
	}
	e.emissionRate = p
}

// TimeToLive returns the particle lifetime parameter.
func (e *Emitter) TimeToLive() params.Parameter { return e.timeToLive }

// SetPosition moves the emitter.
func (e *Emitter) SetPosition(p Vec3) {
	e.Initial.Position = p
	e.Current.Position = p
}

// CircleRadius returns the radius parameter of a circle emitter.
func (e *Emitter) CircleRadius() (params.Parameter, bool) {
	c, ok := e.shape.(*circleShape)
	if !ok {
		return nil, false
	}
	return c.radius, true
}

// SetCircleRadius replaces the radius of a circle emitter. It reports false
// for other shapes.
func (e *Emitter) SetCircleRadius(p params.Parameter) bool {
	c, ok := e.shape.(*circleShape)
	if !ok {
		return false
	}
	if p == nil {
		p = params.NewFixed(1)
	}
	c.radius = p
	return true
}

// process runs one step of emission and duration cycling.
func (e *Emitter) process(dt float64) {
	if !e.Enabled {
		return
	}
	if !e.ref.Valid() {
		e.ref = e.technique.arena().Register(e)
	}
	duration := e.duration.Value(dt)
	if duration == 0 || e.durationRemaining >= 0 {
		if n := e.spawnCount(dt); n > 0 {
			e.emit(n)
		}
		if duration != 0 {
			e.durationRemaining -= dt
			if e.durationRemaining < 0 {
				e.repeatDelayRemaining = e.repeatDelay.Value(dt)
			}
		}
		return
	}
	e.repeatDelayRemaining -= dt
	if e.repeatDelayRemaining < 0 {
		e.durationRemaining = e.duration.Value(dt)
	}
}

// spawnCount returns how many elements to emit this step, carrying the
// fractional remainder forward so the long-run rate is exact.
func (e *Emitter) spawnCount(dt float64) int {
	t := e.technique.elapsed()
	if e.forceEmission {
		if e.forceDone {
			return 0
		}
		e.forceDone = true
		return int(math.Max(0, e.emissionRate.Value(t)))
	}
	whole, frac := math.Modf(e.emissionFraction + math.Max(0, e.emissionRate.Value(t)*dt))
	e.emissionFraction = frac
	return int(whole)
}

func (e *Emitter) emit(n int) {
	tech := e.technique
	switch e.emitsType {
	case EmitsVisual:
		fresh := tech.allocateParticles(n)
		for i := range fresh {
			p := &fresh[i]
			e.initPhysics(&p.Initial)
			p.EmittedBy = e.ref
			p.EmitterName = e.Name
			p.UV = FullRect
		}
		for i := range fresh {
			e.shape.perturb(e, &fresh[i].Initial)
		}
		for i := range fresh {
			fresh[i].Current = fresh[i].Initial
		}

	case EmitsEmitter:
		for i := 0; i < n; i++ {
			child := tech.spawnEmitter(e.emitsName)
			if child == nil {
				return
			}
			e.initPhysics(&child.Initial)
			e.shape.perturb(e, &child.Initial)
			child.Current = child.Initial
			child.emittedBy = e.ref
		}

	case EmitsAffector:
		for i := 0; i < n; i++ {
			a := tech.spawnAffector(e.emitsName)
			if a == nil {
				return
			}
			var p PhysicsParameters
			e.initPhysics(&p)
			e.shape.perturb(e, &p)
			a.Position = p.Position
			a.timeToLive = p.TimeToLive
		}
	}
}

// initPhysics fills p with a freshly spawned state.
func (e *Emitter) initPhysics(p *PhysicsParameters) {
	tech := e.technique
	rng := tech.rng()
	t := tech.elapsed()

	*p = DefaultPhysics()
	p.Position = e.Current.Position
	if e.emitOnly2D {
		p.Position[2] = 0
	}
	p.Color = e.spawnColor()
	p.TimeToLive = e.timeToLive.Value(t)
	p.Velocity = e.velocity.Value(t)
	p.Mass = e.mass.Value(t)

	dims := tech.DefaultDimensions
	if e.width != nil {
		dims[0] = e.width.Value(t)
	}
	if e.height != nil {
		dims[1] = e.height.Value(t)
	}
	if e.depth != nil {
		dims[2] = e.depth.Value(t)
	}
	scale := e.scaling.Value(t)
	sys := tech.systemScale()
	p.Dimensions = Vec3{dims[0] * sys[0] * scale, dims[1] * sys[1] * scale, dims[2] * sys[2]}

	switch {
	case e.hasOrientationRange:
		p.Orientation = mgl64.QuatSlerp(e.orientStart, e.orientEnd, rng.Float64())
	case e.rollAngle != nil:
		p.Orientation = angleAxis(e.rollAngle.Value(t), unitZ).Mul(e.Current.Orientation)
	default:
		p.Orientation = e.Current.Orientation
	}

	dir := normalizeOr(e.Current.Direction, unitY)
	angle := e.angle.Value(t)
	if params.IsFixed(e.angle) {
		// A fixed angle is the maximum spread, not the exact deviation.
		angle *= rng.Float64()
	}
	if angle != 0 {
		dir = deviate(rng, angle, dir)
	}
	if e.emitOnly2D {
		dir[2] = 0
	}
	if e.orientationFollowsAngle {
		p.Orientation = rotationBetween(unitY, dir)
	}
	p.Direction = dir.Mul(p.Velocity)
}

func (e *Emitter) spawnColor() Color {
	if e.hasColorRange {
		rng := e.technique.rng()
		ch := func(lo, hi uint8) uint8 {
			return uint8(randRange(rng, float64(lo), float64(hi)))
		}
		return Color{
			ch(e.colorLo.R, e.colorHi.R),
			ch(e.colorLo.G, e.colorHi.G),
			ch(e.colorLo.B, e.colorHi.B),
			ch(e.colorLo.A, e.colorHi.A),
		}
	}
	return Color{
		clampByte(e.color[0] * 255),
		clampByte(e.color[1] * 255),
		clampByte(e.color[2] * 255),
		clampByte(e.color[3] * 255),
	}
}

// Write serializes the emitter to its configuration form.
func (e *Emitter) Write() *node.Map {
	m := node.NewMap()
	m.Set("type", e.shape.kind())
	if e.Name != "" {
		m.Set("name", e.Name)
	}
	if !e.Enabled {
		m.Set("enabled", false)
	}
	m.Set("emission_rate", params.Write(e.emissionRate))
	m.Set("time_to_live", params.Write(e.timeToLive))
	m.Set("velocity", params.Write(e.velocity))
	m.Set("angle", params.Write(e.angle))
	m.Set("mass", params.Write(e.mass))
	m.Set("duration", params.Write(e.duration))
	m.Set("repeat_delay", params.Write(e.repeatDelay))
	m.Set("scaling", params.Write(e.scaling))
	for _, f := range []struct {
		key string
		p   params.Parameter
	}{{"particle_width", e.width}, {"particle_height", e.height}, {"particle_depth", e.depth}} {
		if f.p != nil {
			m.Set(f.key, params.Write(f.p))
		}
	}
	m.Set("position", vecToList(e.Initial.Position))
	m.Set("direction", vecToList(e.Initial.Direction))
	if e.rollAngle != nil {
		m.Set("orientation", params.Write(e.rollAngle))
	} else {
		m.Set("orientation", quatToList(e.Initial.Orientation))
	}
	if e.hasOrientationRange {
		m.Set("orientation_start", quatToList(e.orientStart))
		m.Set("orientation_end", quatToList(e.orientEnd))
	}
	m.Set("color", []any{e.color[0], e.color[1], e.color[2], e.color[3]})
	if e.hasColorRange {
		lo, hi := e.colorLo, e.colorHi
		m.Set("start_colour_range", []any{int(lo.R), int(lo.G), int(lo.B), int(lo.A)})
		m.Set("end_colour_range", []any{int(hi.R), int(hi.G), int(hi.B), int(hi.A)})
	}
	if e.forceEmission {
		m.Set("force_emission", true)
	}
	if e.emitOnly2D {
		m.Set("emit_only_2d", true)
	}
	if e.orientationFollowsAngle {
		m.Set("orientation_follows_angle", true)
	}
	if e.emitsType != EmitsVisual {
		m.Set("emits_type", e.emitsType.String())
		m.Set("emits_name", e.emitsName)
	}
	e.shape.write(m)
	return m
}
