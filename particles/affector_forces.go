package particles

import (
	"math"

	"github.com/ojrac/opensimplex-go"
	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/params"
)

// jetKind accelerates along the particle's own initial direction.
type jetKind struct {
	acceleration params.Parameter
}

func (k *jetKind) kind() string    { return "jet" }
func (k *jetKind) targets() target { return targetMoving }

func (k *jetKind) apply(a *Affector, initial, current *PhysicsParameters, dt float64) {
	scale := dt * k.acceleration.Value(Progress(initial, current))
	current.Direction = current.Direction.Add(initial.Direction.Mul(scale))
}

func (k *jetKind) clone() affectorKind { c := *k; return &c }

func (k *jetKind) write(m *node.Map) {
	m.Set("acceleration", params.Write(k.acceleration))
}

// vortexKind rotates position about the affector and direction by a fixed
// angle every step. The angle is per step, not per second.
type vortexKind struct {
	speed params.Parameter // degrees per step
	axis  Vec3
}

func newVortex(n node.Node, c *Container) (*vortexKind, error) {
	k := &vortexKind{}
	var err error
	if k.speed, err = params.OrDefault(n, "rotation_speed", 1, c.rng); err != nil {
		return nil, err
	}
	axis, err := n.Vec3Or("rotation_axis", [3]float64{0, 1, 0})
	if err != nil {
		return nil, err
	}
	if vecFromArray(axis).Len() < epsilon {
		return nil, n.Get("rotation_axis").Errorf(node.ErrValue, "axis must be non-zero")
	}
	k.axis = vecFromArray(axis)
	return k, nil
}

func (k *vortexKind) kind() string    { return "vortex" }
func (k *vortexKind) targets() target { return targetParticles | targetEmitters }

func (k *vortexKind) apply(a *Affector, initial, current *PhysicsParameters, dt float64) {
	q := angleAxis(k.speed.Value(a.technique.elapsed()), k.axis)
	local := current.Position.Sub(a.Position)
	current.Position = a.Position.Add(q.Rotate(local))
	current.Direction = q.Rotate(current.Direction)
}

func (k *vortexKind) clone() affectorKind { c := *k; return &c }

func (k *vortexKind) write(m *node.Map) {
	m.Set("rotation_speed", params.Write(k.speed))
	m.Set("rotation_axis", vecToList(k.axis))
}

// gravityKind pulls toward the affector position with inverse-square force.
type gravityKind struct {
	gravity params.Parameter
}

func (k *gravityKind) kind() string    { return "gravity" }
func (k *gravityKind) targets() target { return targetMoving }

func (k *gravityKind) apply(a *Affector, initial, current *PhysicsParameters, dt float64) {
	d := a.Position.Sub(current.Position)
	lenSqr := d.LenSqr()
	if lenSqr < epsilon {
		return
	}
	force := k.gravity.Value(a.technique.elapsed()) * current.Mass * a.Mass / lenSqr
	current.Direction = current.Direction.Add(d.Mul(force * dt / math.Sqrt(lenSqr)))
}

func (k *gravityKind) clone() affectorKind { c := *k; return &c }

func (k *gravityKind) write(m *node.Map) {
	m.Set("gravity", params.Write(k.gravity))
}

// linearForceKind applies a constant force vector scaled by a parameter.
type linearForceKind struct {
	force     params.Parameter
	direction Vec3
}

func newLinearForce(n node.Node, c *Container) (*linearForceKind, error) {
	k := &linearForceKind{}
	var err error
	if k.force, err = params.OrDefault(n, "force", 1, c.rng); err != nil {
		return nil, err
	}
	dir, err := n.Vec3Or("direction", [3]float64{0, 0, 1})
	if err != nil {
		return nil, err
	}
	k.direction = vecFromArray(dir)
	return k, nil
}

func (k *linearForceKind) kind() string    { return "linear_force" }
func (k *linearForceKind) targets() target { return targetMoving }

func (k *linearForceKind) apply(a *Affector, initial, current *PhysicsParameters, dt float64) {
	f := k.force.Value(Progress(initial, current))
	current.Direction = current.Direction.Add(k.direction.Mul(dt * f))
}

func (k *linearForceKind) clone() affectorKind { c := *k; return &c }

func (k *linearForceKind) write(m *node.Map) {
	m.Set("force", params.Write(k.force))
	m.Set("direction", vecToList(k.direction))
}

// sineForceKind pushes along force_vector with a sinusoidal envelope. The
// phase advances once per step; after every full cycle a new frequency is
// drawn from [min_frequency, max_frequency].
type sineForceKind struct {
	force        Vec3
	minFrequency float64
	maxFrequency float64
	average      bool

	frequency float64
	angle     float64
	scaled    Vec3
}

func newSineForce(n node.Node) (*sineForceKind, error) {
	k := &sineForceKind{}
	var err error
	if k.maxFrequency, err = n.FloatOr("max_frequency", 1); err != nil {
		return nil, err
	}
	if k.minFrequency, err = n.FloatOr("min_frequency", 1); err != nil {
		return nil, err
	}
	if k.minFrequency > k.maxFrequency {
		return nil, n.Errorf(node.ErrValue, "min_frequency %v exceeds max_frequency %v", k.minFrequency, k.maxFrequency)
	}
	force, err := n.Vec3Or("force_vector", [3]float64{})
	if err != nil {
		return nil, err
	}
	k.force = vecFromArray(force)
	app, err := n.StringOr("force_application", "add")
	if err != nil {
		return nil, err
	}
	switch app {
	case "add":
	case "average":
		k.average = true
	default:
		return nil, n.Get("force_application").Errorf(node.ErrValue, "expected add or average, got %q", app)
	}
	k.frequency = k.maxFrequency
	return k, nil
}

func (k *sineForceKind) kind() string    { return "sine_force" }
func (k *sineForceKind) targets() target { return targetMoving }

func (k *sineForceKind) pass(a *Affector, dt float64) {
	k.angle += k.frequency * dt
	k.scaled = k.force.Mul(dt * math.Sin(k.angle))
	if k.angle > 2*math.Pi {
		k.angle -= 2 * math.Pi
		if k.minFrequency != k.maxFrequency {
			k.frequency = randRange(a.technique.rng(), k.minFrequency, k.maxFrequency)
		}
	}
	a.eachEmitter(targetInstancedEmitters, func(e *Emitter) {
		k.apply(a, &e.Initial, &e.Current, dt)
	})
	a.eachParticle(func(p *Particle) {
		k.apply(a, &p.Initial, &p.Current, dt)
	})
}

func (k *sineForceKind) apply(a *Affector, initial, current *PhysicsParameters, dt float64) {
	if k.average {
		current.Direction = current.Direction.Add(k.force).Mul(0.5)
		return
	}
	current.Direction = current.Direction.Add(k.scaled)
}

func (k *sineForceKind) clone() affectorKind {
	c := *k
	c.frequency = c.maxFrequency
	c.angle = 0
	c.scaled = Vec3{}
	return &c
}

func (k *sineForceKind) write(m *node.Map) {
	m.Set("force_vector", vecToList(k.force))
	m.Set("min_frequency", k.minFrequency)
	m.Set("max_frequency", k.maxFrequency)
	if k.average {
		m.Set("force_application", "average")
	}
}

// blackHoleKind drags particles toward the affector at a working speed that
// grows by acceleration each step. A particle within reach is consumed.
type blackHoleKind struct {
	velocity     params.Parameter
	acceleration params.Parameter
	working      float64
}

func newBlackHole(n node.Node, c *Container) (*blackHoleKind, error) {
	k := &blackHoleKind{}
	var err error
	if k.velocity, err = params.OrDefault(n, "velocity", 1, c.rng); err != nil {
		return nil, err
	}
	if k.acceleration, err = params.OrDefault(n, "acceleration", 0, c.rng); err != nil {
		return nil, err
	}
	k.working = k.velocity.Value(0)
	return k, nil
}

func (k *blackHoleKind) kind() string    { return "black_hole" }
func (k *blackHoleKind) targets() target { return targetParticles }

func (k *blackHoleKind) pass(a *Affector, dt float64) {
	k.working += k.acceleration.Value(dt)
	a.eachParticle(func(p *Particle) {
		k.apply(a, &p.Initial, &p.Current, dt)
	})
}

func (k *blackHoleKind) apply(a *Affector, initial, current *PhysicsParameters, dt float64) {
	diff := a.Position.Sub(current.Position)
	l := diff.Len()
	if l > k.working {
		diff = diff.Mul(k.working / l)
	} else {
		current.TimeToLive = 0
	}
	current.Position = current.Position.Add(diff)
}

func (k *blackHoleKind) clone() affectorKind {
	c := *k
	c.working = c.velocity.Value(0)
	return &c
}

func (k *blackHoleKind) write(m *node.Map) {
	m.Set("velocity", params.Write(k.velocity))
	m.Set("acceleration", params.Write(k.acceleration))
}

// turbulenceKind pushes along a 4D simplex noise field sampled at the
// element position and scrolled through time.
type turbulenceKind struct {
	strength params.Parameter
	scale    float64
	speed    float64
	seed     int64
	noise    opensimplex.Noise
}

// Offsets that decorrelate the three noise channels.
const (
	turbulenceOffsetY = 31.416
	turbulenceOffsetZ = 47.853
)

func newTurbulence(n node.Node, c *Container) (*turbulenceKind, error) {
	k := &turbulenceKind{}
	var err error
	if k.strength, err = params.OrDefault(n, "strength", 1, c.rng); err != nil {
		return nil, err
	}
	if k.scale, err = n.FloatOr("frequency", 0.05); err != nil {
		return nil, err
	}
	if k.speed, err = n.FloatOr("speed", 1); err != nil {
		return nil, err
	}
	seed, err := n.IntOr("seed", int(c.rng.Int63()))
	if err != nil {
		return nil, err
	}
	k.seed = int64(seed)
	k.noise = opensimplex.New(k.seed)
	return k, nil
}

func (k *turbulenceKind) kind() string    { return "turbulence" }
func (k *turbulenceKind) targets() target { return targetMoving }

func (k *turbulenceKind) apply(a *Affector, initial, current *PhysicsParameters, dt float64) {
	t := a.technique.elapsed() * k.speed
	p := current.Position.Mul(k.scale)
	f := Vec3{
		k.noise.Eval4(p[0], p[1], p[2], t),
		k.noise.Eval4(p[0]+turbulenceOffsetY, p[1], p[2], t),
		k.noise.Eval4(p[0], p[1]+turbulenceOffsetZ, p[2], t),
	}
	s := k.strength.Value(Progress(initial, current))
	current.Direction = current.Direction.Add(f.Mul(s * dt))
}

func (k *turbulenceKind) clone() affectorKind { c := *k; return &c }

func (k *turbulenceKind) write(m *node.Map) {
	m.Set("strength", params.Write(k.strength))
	m.Set("frequency", k.scale)
	m.Set("speed", k.speed)
	m.Set("seed", k.seed)
}
