package particles

import (
	"math"

	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/spline"
)

// followerKind keeps each particle within reach of the one before it in
// pool order.
type followerKind struct {
	minDistance float64
	maxDistance float64
}

func newFollower(n node.Node) (*followerKind, error) {
	k := &followerKind{}
	var err error
	if k.minDistance, err = n.FloatOr("min_distance", 1); err != nil {
		return nil, err
	}
	if k.maxDistance, err = n.FloatOr("max_distance", math.Inf(1)); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *followerKind) kind() string    { return "particle_follower" }
func (k *followerKind) targets() target { return targetParticles }

func (k *followerKind) apply(*Affector, *PhysicsParameters, *PhysicsParameters, float64) {}

func (k *followerKind) pass(a *Affector, dt float64) {
	var prev *Particle
	a.eachParticle(func(p *Particle) {
		if prev != nil {
			delta := p.Current.Position.Sub(prev.Current.Position)
			dist := delta.Len()
			if dist > k.minDistance && dist < k.maxDistance {
				p.Current.Position = prev.Current.Position.Add(delta.Mul(k.minDistance / dist))
			}
		}
		prev = p
	})
}

func (k *followerKind) clone() affectorKind { c := *k; return &c }

func (k *followerKind) write(m *node.Map) {
	m.Set("min_distance", k.minDistance)
	if !math.IsInf(k.maxDistance, 1) {
		m.Set("max_distance", k.maxDistance)
	}
}

// alignKind turns each particle's +Y toward the previous particle, and with
// resize stretches its height to the gap.
type alignKind struct {
	resize bool
}

func (k *alignKind) kind() string    { return "align" }
func (k *alignKind) targets() target { return targetParticles }

func (k *alignKind) apply(*Affector, *PhysicsParameters, *PhysicsParameters, float64) {}

func (k *alignKind) pass(a *Affector, dt float64) {
	var prev *Particle
	a.eachParticle(func(p *Particle) {
		if prev == nil {
			prev = p
			return
		}
		delta := prev.Current.Position.Sub(p.Current.Position)
		l := delta.Len()
		if l > epsilon {
			if k.resize {
				p.Current.Dimensions[1] = l
			}
			p.Current.Orientation = rotationBetween(unitY, delta)
		}
		prev = p
	})
}

func (k *alignKind) clone() affectorKind { c := *k; return &c }

func (k *alignKind) write(m *node.Map) {
	if k.resize {
		m.Set("resize", true)
	}
}

// flockKind steers every particle toward the mean position of the flock.
type flockKind struct{}

func (k *flockKind) kind() string    { return "flock_centering" }
func (k *flockKind) targets() target { return targetParticles }

func (k *flockKind) apply(*Affector, *PhysicsParameters, *PhysicsParameters, float64) {}

func (k *flockKind) pass(a *Affector, dt float64) {
	var sum Vec3
	count := 0
	a.eachParticle(func(p *Particle) {
		sum = sum.Add(p.Current.Position)
		count++
	})
	if count == 0 {
		return
	}
	avg := sum.Mul(1 / float64(count))
	a.eachParticle(func(p *Particle) {
		p.Current.Direction = avg.Sub(p.Current.Position).Mul(dt)
	})
}

func (k *flockKind) clone() affectorKind { return &flockKind{} }
func (k *flockKind) write(*node.Map)     {}

// pathFollowerKind moves each particle along a spline path, parameterized by
// its life progress.
type pathFollowerKind struct {
	path *spline.Path
}

func newPathFollower(n node.Node) (*pathFollowerKind, error) {
	list, err := n.Child("path")
	if err != nil {
		return nil, err
	}
	if !list.IsList() {
		return nil, list.Errorf(node.ErrType, "expected list of points")
	}
	pts := make([][3]float64, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		fs, err := list.Index(i).AsFloats()
		if err != nil {
			return nil, err
		}
		if len(fs) < 1 || len(fs) > 3 {
			return nil, list.Index(i).Errorf(node.ErrValue, "points need 1 to 3 components")
		}
		var p [3]float64
		copy(p[:], fs)
		pts = append(pts, p)
	}
	path, err := spline.NewPath(pts)
	if err != nil {
		return nil, list.Errorf(node.ErrValue, "%v", err)
	}
	return &pathFollowerKind{path: path}, nil
}

func (k *pathFollowerKind) kind() string    { return "path_follower" }
func (k *pathFollowerKind) targets() target { return targetParticles }

func (k *pathFollowerKind) apply(a *Affector, initial, current *PhysicsParameters, dt float64) {
	ttl := initial.TimeToLive
	if ttl <= 0 {
		return
	}
	frac := (ttl - current.TimeToLive) / ttl
	next := math.Min(1, (ttl-(current.TimeToLive-dt))/ttl)
	from, to := k.path.At(frac), k.path.At(next)
	current.Position = current.Position.Add(Vec3{to[0] - from[0], to[1] - from[1], to[2] - from[2]})
}

// The path is immutable once built.
func (k *pathFollowerKind) clone() affectorKind { return &pathFollowerKind{path: k.path} }

func (k *pathFollowerKind) write(m *node.Map) {
	pts := k.path.Points()
	list := make([]any, len(pts))
	for i, p := range pts {
		list[i] = []any{p[0], p[1], p[2]}
	}
	m.Set("path", list)
}

// PathPoints returns the control points of a path_follower affector.
func (a *Affector) PathPoints() ([][3]float64, bool) {
	k, ok := a.impl.(*pathFollowerKind)
	if !ok {
		return nil, false
	}
	return k.path.Points(), true
}

// SetPathPoints refits the path of a path_follower affector. It reports
// false for other kinds.
func (a *Affector) SetPathPoints(pts [][3]float64) (bool, error) {
	k, ok := a.impl.(*pathFollowerKind)
	if !ok {
		return false, nil
	}
	path, err := spline.NewPath(pts)
	if err != nil {
		return true, err
	}
	k.path = path
	return true, nil
}

// randomiserKind jitters direction, or position, by uniform per-axis noise
// at most once every time_step seconds. Particles and emitters keep separate
// clocks.
type randomiserKind struct {
	maxDeviation Vec3
	timeStep     float64
	useDirection bool

	particleClock float64
	emitterClock  float64
}

func newRandomiser(n node.Node) (*randomiserKind, error) {
	k := &randomiserKind{}
	var err error
	if k.timeStep, err = n.FloatOr("time_step", 0); err != nil {
		return nil, err
	}
	if k.useDirection, err = n.BoolOr("use_direction", true); err != nil {
		return nil, err
	}
	for i, key := range []string{"max_deviation_x", "max_deviation_y", "max_deviation_z"} {
		if k.maxDeviation[i], err = n.FloatOr(key, 0); err != nil {
			return nil, err
		}
	}
	return k, nil
}

func (k *randomiserKind) kind() string    { return "randomiser" }
func (k *randomiserKind) targets() target { return targetParticles | targetEmitters }

func (k *randomiserKind) pass(a *Affector, dt float64) {
	k.particleClock += dt
	if k.particleClock > k.timeStep {
		k.particleClock -= k.timeStep
		a.eachParticle(func(p *Particle) {
			k.apply(a, &p.Initial, &p.Current, dt)
		})
	}
	k.emitterClock += dt
	if k.emitterClock > k.timeStep {
		k.emitterClock -= k.timeStep
		a.eachEmitter(targetEmitters, func(e *Emitter) {
			k.apply(a, &e.Initial, &e.Current, dt)
		})
	}
}

func (k *randomiserKind) apply(a *Affector, initial, current *PhysicsParameters, dt float64) {
	rng := a.technique.rng()
	var jitter Vec3
	for i := range jitter {
		jitter[i] = randRange(rng, -k.maxDeviation[i], k.maxDeviation[i])
	}
	if k.useDirection {
		current.Direction = current.Direction.Add(jitter)
		return
	}
	for i := range jitter {
		jitter[i] *= a.Scale[i]
	}
	current.Position = current.Position.Add(jitter)
}

func (k *randomiserKind) clone() affectorKind {
	c := *k
	c.particleClock, c.emitterClock = 0, 0
	return &c
}

func (k *randomiserKind) write(m *node.Map) {
	m.Set("time_step", k.timeStep)
	if !k.useDirection {
		m.Set("use_direction", false)
	}
	for i, key := range []string{"max_deviation_x", "max_deviation_y", "max_deviation_z"} {
		m.Set(key, k.maxDeviation[i])
	}
}
