package particles

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/params"
)

// shape places a freshly initialized element. The set is closed.
type shape interface {
	kind() string
	perturb(e *Emitter, p *PhysicsParameters)
	clone() shape
	write(m *node.Map)
}

func newShape(typ string, n node.Node, rng *rand.Rand) (shape, error) {
	switch typ {
	case "point":
		return pointShape{}, nil
	case "box":
		return newBoxShape(n)
	case "circle":
		return newCircleShape(n, rng)
	case "line":
		return newLineShape(n)
	case "sphere_surface":
		return newSphereShape(n, rng)
	}
	return nil, n.Get("type").Errorf(ErrUnknownKind, "emitter %q", typ)
}

// pointShape leaves the spawn position at the emitter.
type pointShape struct{}

func (pointShape) kind() string                         { return "point" }
func (pointShape) perturb(*Emitter, *PhysicsParameters) {}
func (s pointShape) clone() shape                       { return s }
func (pointShape) write(*node.Map)                      {}

// boxShape offsets uniformly within a box centred on the emitter.
type boxShape struct {
	dims Vec3
}

func newBoxShape(n node.Node) (*boxShape, error) {
	s := &boxShape{}
	for i, key := range []string{"box_width", "box_height", "box_depth"} {
		v, err := n.FloatOr(key, 1)
		if err != nil {
			return nil, err
		}
		s.dims[i] = v
	}
	return s, nil
}

func (s *boxShape) kind() string { return "box" }

func (s *boxShape) perturb(e *Emitter, p *PhysicsParameters) {
	rng := e.technique.rng()
	for i := 0; i < 3; i++ {
		p.Position[i] += rng.Float64()*s.dims[i] - s.dims[i]/2
	}
	if e.emitOnly2D {
		p.Position[2] = 0
	}
}

func (s *boxShape) clone() shape { c := *s; return &c }

func (s *boxShape) write(m *node.Map) {
	m.Set("box_width", s.dims[0])
	m.Set("box_height", s.dims[1])
	m.Set("box_depth", s.dims[2])
}

// circleShape places elements on a circle around the emitter, either at a
// random angle or advancing a fixed step per element.
type circleShape struct {
	radius params.Parameter
	step   float64
	angle  float64 // radians, stepped cursor
	start  float64 // degrees
	random bool
	normal Vec3
}

func newCircleShape(n node.Node, rng *rand.Rand) (*circleShape, error) {
	s := &circleShape{}
	var err error
	if s.radius, err = params.OrDefault(n, "circle_radius", 1, rng); err != nil {
		return nil, err
	}
	if s.step, err = n.FloatOr("circle_step", 0.1); err != nil {
		return nil, err
	}
	if s.start, err = n.FloatOr("circle_angle", 0); err != nil {
		return nil, err
	}
	if s.random, err = n.BoolOr("emit_random", true); err != nil {
		return nil, err
	}
	normal, err := n.Vec3Or("normal", [3]float64{0, 1, 0})
	if err != nil {
		return nil, err
	}
	s.normal = normalizeOr(vecFromArray(normal), unitY)
	s.angle = s.start * math.Pi / 180
	return s, nil
}

func (s *circleShape) kind() string { return "circle" }

func (s *circleShape) perturb(e *Emitter, p *PhysicsParameters) {
	rng := e.technique.rng()
	var theta float64
	if s.random {
		theta = rng.Float64() * 2 * math.Pi
	} else {
		theta = s.angle
		s.angle += s.step
	}
	r := s.radius.Value(e.technique.elapsed())

	if e.emitOnly2D {
		p.Position[0] += r * math.Sin(theta)
		p.Position[1] += r * math.Cos(theta)
		return
	}
	v1 := perpendicular(s.normal)
	v2 := s.normal.Cross(v1)
	offset := v1.Mul(r * math.Cos(theta)).Add(v2.Mul(r * math.Sin(theta)))
	p.Position = p.Position.Add(offset)
}

func (s *circleShape) clone() shape {
	c := *s
	c.angle = c.start * math.Pi / 180
	return &c
}

func (s *circleShape) write(m *node.Map) {
	m.Set("circle_radius", params.Write(s.radius))
	m.Set("circle_step", s.step)
	m.Set("circle_angle", s.start)
	m.Set("emit_random", s.random)
	m.Set("normal", vecToList(s.normal))
}

// lineShape spawns along the segment from the emitter to end. With a
// positive max_increment a cursor walks the segment in random strides,
// otherwise each element picks a uniform point. max_deviation pushes the
// element off the line in a random perpendicular direction.
type lineShape struct {
	end          Vec3
	maxDeviation float64
	minIncrement float64
	maxIncrement float64
	cursor       float64
}

func newLineShape(n node.Node) (*lineShape, error) {
	s := &lineShape{}
	end, err := n.Vec3Or("end", [3]float64{1, 0, 0})
	if err != nil {
		return nil, err
	}
	s.end = vecFromArray(end)
	if s.maxDeviation, err = n.FloatOr("max_deviation", 0); err != nil {
		return nil, err
	}
	if s.minIncrement, err = n.FloatOr("min_increment", 0); err != nil {
		return nil, err
	}
	if s.maxIncrement, err = n.FloatOr("max_increment", 0); err != nil {
		return nil, err
	}
	if s.minIncrement < 0 || s.maxIncrement < s.minIncrement {
		return nil, n.Errorf(node.ErrValue, "line increments must satisfy 0 <= min_increment <= max_increment")
	}
	return s, nil
}

func (s *lineShape) kind() string { return "line" }

func (s *lineShape) perturb(e *Emitter, p *PhysicsParameters) {
	rng := e.technique.rng()
	length := s.end.Len()
	if length < epsilon {
		return
	}
	var frac float64
	if s.maxIncrement > 0 {
		s.cursor += randRange(rng, s.minIncrement, s.maxIncrement) / length
		if s.cursor > 1 {
			s.cursor = 0
		}
		frac = s.cursor
	} else {
		frac = rng.Float64()
	}
	p.Position = p.Position.Add(s.end.Mul(frac))

	if s.maxDeviation > 0 {
		off := perpendicular(s.end)
		off = angleAxis(rng.Float64()*360, s.end).Rotate(off)
		p.Position = p.Position.Add(off.Mul(rng.Float64() * s.maxDeviation))
	}
	if e.emitOnly2D {
		p.Position[2] = 0
	}
}

func (s *lineShape) clone() shape {
	c := *s
	c.cursor = 0
	return &c
}

func (s *lineShape) write(m *node.Map) {
	m.Set("end", vecToList(s.end))
	m.Set("max_deviation", s.maxDeviation)
	m.Set("min_increment", s.minIncrement)
	m.Set("max_increment", s.maxIncrement)
}

// sphereShape places elements uniformly on a sphere surface.
type sphereShape struct {
	radius params.Parameter
}

func newSphereShape(n node.Node, rng *rand.Rand) (*sphereShape, error) {
	r, err := params.OrDefault(n, "radius", 1, rng)
	if err != nil {
		return nil, err
	}
	return &sphereShape{radius: r}, nil
}

func (s *sphereShape) kind() string { return "sphere_surface" }

func (s *sphereShape) perturb(e *Emitter, p *PhysicsParameters) {
	rng := e.technique.rng()
	theta := rng.Float64() * 2 * math.Pi
	phi := math.Acos(randRange(rng, -1, 1))
	r := s.radius.Value(e.technique.elapsed())
	p.Position = p.Position.Add(Vec3{
		r * math.Sin(phi) * math.Cos(theta),
		r * math.Sin(phi) * math.Sin(theta),
		r * math.Cos(phi),
	})
}

func (s *sphereShape) clone() shape { c := *s; return &c }

func (s *sphereShape) write(m *node.Map) {
	m.Set("radius", params.Write(s.radius))
}
