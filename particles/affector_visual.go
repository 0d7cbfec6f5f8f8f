package particles

import (
	"cmp"
	"slices"

	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/params"
)

func newAffectorKind(typ string, n node.Node, c *Container) (affectorKind, error) {
	rng := c.rng
	switch typ {
	case "time_colour":
		return newTimeColour(n)
	case "scale":
		return newScaleKind(n, c)
	case "texture_rotator":
		return newTextureRotator(n, c)
	case "animation":
		return newAnimation(n)
	case "jet":
		p, err := params.OrDefault(n, "acceleration", 1, rng)
		return &jetKind{acceleration: p}, err
	case "vortex":
		return newVortex(n, c)
	case "gravity":
		p, err := params.OrDefault(n, "gravity", 1, rng)
		return &gravityKind{gravity: p}, err
	case "linear_force":
		return newLinearForce(n, c)
	case "sine_force":
		return newSineForce(n)
	case "black_hole":
		return newBlackHole(n, c)
	case "turbulence":
		return newTurbulence(n, c)
	case "particle_follower":
		return newFollower(n)
	case "align":
		resize, err := n.BoolOr("resize", false)
		return &alignKind{resize: resize}, err
	case "flock_centering":
		return &flockKind{}, nil
	case "path_follower":
		return newPathFollower(n)
	case "randomiser":
		return newRandomiser(n)
	}
	return nil, n.Get("type").Errorf(ErrUnknownKind, "affector %q", typ)
}

// timeColourKind blends colour between control points by life progress.
type timeColourKind struct {
	times       []float64
	colors      [][4]float64
	multiply    bool
	interpolate bool
}

func newTimeColour(n node.Node) (*timeColourKind, error) {
	k := &timeColourKind{interpolate: true}
	op := "set"
	for _, key := range []string{"colour_operation", "color_operation"} {
		if n.Has(key) {
			var err error
			if op, err = n.String(key); err != nil {
				return nil, err
			}
		}
	}
	switch op {
	case "set":
	case "multiply":
		k.multiply = true
	default:
		return nil, n.Errorf(node.ErrValue, "unknown colour operation %q", op)
	}
	var err error
	if k.interpolate, err = n.BoolOr("interpolate", true); err != nil {
		return nil, err
	}

	key := "time_colour"
	if !n.Has(key) {
		key = "time_color"
	}
	tc, err := n.Child(key)
	if err != nil {
		return nil, err
	}
	var entries []node.Node
	switch {
	case tc.IsMap():
		entries = []node.Node{tc}
	case tc.IsList():
		for i := 0; i < tc.Len(); i++ {
			entries = append(entries, tc.Index(i))
		}
	default:
		return nil, tc.Errorf(node.ErrType, "expected map or list")
	}
	if len(entries) == 0 {
		return nil, tc.Errorf(node.ErrValue, "needs at least one entry")
	}

	type stop struct {
		t float64
		c [4]float64
	}
	stops := make([]stop, 0, len(entries))
	for _, e := range entries {
		t, err := e.Float("time")
		if err != nil {
			return nil, err
		}
		ck := "color"
		if !e.Has(ck) {
			ck = "colour"
		}
		if !e.Has(ck) {
			return nil, e.Errorf(node.ErrMissing, "needs a color or colour")
		}
		c, err := e.Vec4Or(ck, [4]float64{})
		if err != nil {
			return nil, err
		}
		stops = append(stops, stop{t, c})
	}
	slices.SortStableFunc(stops, func(a, b stop) int { return cmp.Compare(a.t, b.t) })
	for _, s := range stops {
		k.times = append(k.times, s.t)
		k.colors = append(k.colors, s.c)
	}
	return k, nil
}

func (k *timeColourKind) kind() string    { return "time_colour" }
func (k *timeColourKind) targets() target { return targetParticles }

// nearest returns the index of the last stop at or before t, or 0.
func (k *timeColourKind) nearest(t float64) int {
	for i, st := range k.times {
		if t < st {
			if i == 0 {
				return 0
			}
			return i - 1
		}
	}
	return len(k.times) - 1
}

func (k *timeColourKind) colorAt(progress float64) [4]float64 {
	i := k.nearest(progress)
	c := k.colors[i]
	if !k.interpolate || i+1 >= len(k.times) {
		return c
	}
	span := k.times[i+1] - k.times[i]
	if span <= 0 {
		return c
	}
	f := (progress - k.times[i]) / span
	next := k.colors[i+1]
	for j := range c {
		c[j] += (next[j] - c[j]) * f
	}
	return c
}

func (k *timeColourKind) apply(a *Affector, initial, current *PhysicsParameters, dt float64) {
	c := k.colorAt(Progress(initial, current))
	if k.multiply {
		ic := initial.Color
		current.Color = Color{
			clampByte(c[0] * float64(ic.R)),
			clampByte(c[1] * float64(ic.G)),
			clampByte(c[2] * float64(ic.B)),
			clampByte(c[3] * float64(ic.A)),
		}
		return
	}
	current.Color = Color{clampByte(c[0] * 255), clampByte(c[1] * 255), clampByte(c[2] * 255), clampByte(c[3] * 255)}
}

func (k *timeColourKind) clone() affectorKind {
	c := *k
	c.times = slices.Clone(k.times)
	c.colors = slices.Clone(k.colors)
	return &c
}

func (k *timeColourKind) write(m *node.Map) {
	if k.multiply {
		m.Set("colour_operation", "multiply")
	}
	if !k.interpolate {
		m.Set("interpolate", false)
	}
	list := make([]any, len(k.times))
	for i := range k.times {
		e := node.NewMap()
		e.Set("time", k.times[i])
		c := k.colors[i]
		e.Set("colour", []any{c[0], c[1], c[2], c[3]})
		list[i] = e
	}
	m.Set("time_colour", list)
}

// scaleKind adds a parameter value to each dimension, evaluated at life
// progress or at system time. A dimension never drops to zero or below.
type scaleKind struct {
	x, y, z, xyz     params.Parameter
	sinceSystemStart bool
}

func newScaleKind(n node.Node, c *Container) (*scaleKind, error) {
	k := &scaleKind{}
	var err error
	for _, f := range []struct {
		dst *params.Parameter
		key string
	}{{&k.x, "scale_x"}, {&k.y, "scale_y"}, {&k.z, "scale_z"}, {&k.xyz, "scale_xyz"}} {
		if *f.dst, err = params.Optional(n, f.key, c.rng); err != nil {
			return nil, err
		}
	}
	if k.sinceSystemStart, err = n.BoolOr("since_system_start", false); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *scaleKind) kind() string    { return "scale" }
func (k *scaleKind) targets() target { return targetParticles }

func (k *scaleKind) apply(a *Affector, initial, current *PhysicsParameters, dt float64) {
	t := Progress(initial, current)
	if k.sinceSystemStart {
		t = a.technique.elapsed()
	}
	grow := func(axis int, p params.Parameter) {
		if v := current.Dimensions[axis] + p.Value(t); v > 0 {
			current.Dimensions[axis] = v
		}
	}
	if k.xyz != nil {
		for axis := 0; axis < 3; axis++ {
			grow(axis, k.xyz)
		}
		return
	}
	for axis, p := range []params.Parameter{k.x, k.y, k.z} {
		if p != nil {
			grow(axis, p)
		}
	}
}

func (k *scaleKind) clone() affectorKind { c := *k; return &c }

func (k *scaleKind) write(m *node.Map) {
	for _, f := range []struct {
		key string
		p   params.Parameter
	}{{"scale_x", k.x}, {"scale_y", k.y}, {"scale_z", k.z}, {"scale_xyz", k.xyz}} {
		if f.p != nil {
			m.Set(f.key, params.Write(f.p))
		}
	}
	if k.sinceSystemStart {
		m.Set("since_system_start", true)
	}
}

// textureRotatorKind spins particles about +Z: a start angle plus speed
// degrees per second of particle age.
type textureRotatorKind struct {
	angle, speed params.Parameter
}

func newTextureRotator(n node.Node, c *Container) (*textureRotatorKind, error) {
	k := &textureRotatorKind{}
	var err error
	angleKey, speedKey := "angle", "speed"
	if !n.Has(angleKey) && n.Has("rotation") {
		angleKey = "rotation"
	}
	if !n.Has(speedKey) && n.Has("rotation_speed") {
		speedKey = "rotation_speed"
	}
	if k.angle, err = params.OrDefault(n, angleKey, 0, c.rng); err != nil {
		return nil, err
	}
	if k.speed, err = params.OrDefault(n, speedKey, 1, c.rng); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *textureRotatorKind) kind() string    { return "texture_rotator" }
func (k *textureRotatorKind) targets() target { return targetParticles }

func (k *textureRotatorKind) apply(a *Affector, initial, current *PhysicsParameters, dt float64) {
	age := initial.TimeToLive - current.TimeToLive
	t := Progress(initial, current)
	deg := k.angle.Value(t) + k.speed.Value(t)*age
	current.Orientation = angleAxis(deg, unitZ).Mul(initial.Orientation)
}

func (k *textureRotatorKind) clone() affectorKind { c := *k; return &c }

func (k *textureRotatorKind) write(m *node.Map) {
	m.Set("angle", params.Write(k.angle))
	m.Set("speed", params.Write(k.speed))
}

// animationKind selects a texture sub-rectangle by life progress, or by
// particle mass when use_mass_instead_of_time is set.
type animationKind struct {
	times   []float64
	areas   []Rect
	useMass bool
}

func newAnimation(n node.Node) (*animationKind, error) {
	k := &animationKind{}
	var err error
	if k.useMass, err = n.BoolOr("use_mass_instead_of_time", false); err != nil {
		return nil, err
	}
	uv, err := n.Child("time_uv")
	if err != nil {
		return nil, err
	}
	var entries []node.Node
	if uv.IsMap() {
		entries = []node.Node{uv}
	} else {
		for i := 0; i < uv.Len(); i++ {
			entries = append(entries, uv.Index(i))
		}
	}
	if len(entries) == 0 {
		return nil, uv.Errorf(node.ErrValue, "needs at least one entry")
	}
	type frame struct {
		t    float64
		area Rect
	}
	frames := make([]frame, 0, len(entries))
	for _, e := range entries {
		t, err := e.Float("time")
		if err != nil {
			return nil, err
		}
		r, err := e.Vec4Or("area", [4]float64{0, 0, 1, 1})
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame{t, Rect{float32(r[0]), float32(r[1]), float32(r[2]), float32(r[3])}})
	}
	slices.SortStableFunc(frames, func(a, b frame) int { return cmp.Compare(a.t, b.t) })
	for _, f := range frames {
		k.times = append(k.times, f.t)
		k.areas = append(k.areas, f.area)
	}
	return k, nil
}

func (k *animationKind) kind() string    { return "animation" }
func (k *animationKind) targets() target { return targetParticles }

func (k *animationKind) apply(*Affector, *PhysicsParameters, *PhysicsParameters, float64) {}

func (k *animationKind) pass(a *Affector, dt float64) {
	a.eachParticle(func(p *Particle) {
		key := Progress(&p.Initial, &p.Current)
		if k.useMass {
			key = p.Current.Mass
		}
		i := 0
		for j, t := range k.times {
			if key >= t {
				i = j
			}
		}
		p.UV = k.areas[i]
	})
}

func (k *animationKind) clone() affectorKind {
	c := *k
	c.times = slices.Clone(k.times)
	c.areas = slices.Clone(k.areas)
	return &c
}

func (k *animationKind) write(m *node.Map) {
	if k.useMass {
		m.Set("use_mass_instead_of_time", true)
	}
	list := make([]any, len(k.times))
	for i := range k.times {
		e := node.NewMap()
		e.Set("time", k.times[i])
		r := k.areas[i]
		e.Set("area", []any{float64(r.X), float64(r.Y), float64(r.W), float64(r.H)})
		list[i] = e
	}
	m.Set("time_uv", list)
}
