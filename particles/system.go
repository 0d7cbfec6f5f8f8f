package particles

import (
	"math"
	"slices"

	"github.com/pthm-cable/psys/node"
)

// FastForward pre-simulates a system on activation so it starts in its
// steady state.
type FastForward struct {
	Time     float64
	Interval float64
}

// Steps returns the number of Process(Interval) calls run while the elapsed
// time is still below Time, so a partial last interval counts as a step.
func (f FastForward) Steps() int {
	if f.Interval <= 0 || f.Time <= 0 {
		return 0
	}
	return int(math.Ceil(f.Time/f.Interval - 1e-9))
}

// ParticleSystem is a named bundle of techniques sharing a clock and scale
// factors.
type ParticleSystem struct {
	Name          string
	ScaleVelocity float64
	ScaleTime     float64
	Scale         Vec3
	FastForward   *FastForward

	container  *Container
	techniques []*Technique
	elapsed    float64

	techniqueNames []string
}

func newSystem(c *Container, n node.Node) (*ParticleSystem, error) {
	s := &ParticleSystem{container: c}
	var err error
	if s.Name, err = n.StringOr("name", ""); err != nil {
		return nil, err
	}
	if s.ScaleVelocity, err = n.FloatOr("scale_velocity", 1); err != nil {
		return nil, err
	}
	if s.ScaleTime, err = n.FloatOr("scale_time", 1); err != nil {
		return nil, err
	}
	scale, err := n.Vec3Or("scale", [3]float64{1, 1, 1})
	if err != nil {
		return nil, err
	}
	s.Scale = vecFromArray(scale)

	if n.Has("fast_forward") {
		ff := n.Get("fast_forward")
		f := &FastForward{}
		if f.Time, err = ff.Float("time"); err != nil {
			return nil, err
		}
		if f.Interval, err = ff.Float("interval"); err != nil {
			return nil, err
		}
		if f.Interval <= 0 {
			return nil, ff.Get("interval").Errorf(node.ErrValue, "must be positive")
		}
		s.FastForward = f
	}

	entries, err := n.Get("technique").Entries()
	if err != nil {
		return nil, err
	}
	for _, ent := range entries {
		t, err := newTechnique(c, ent.Node)
		if err != nil {
			return nil, err
		}
		if t.Name == "" {
			t.Name = ent.Name
		}
		c.registerTechnique(t)
		t.system = s
		s.techniques = append(s.techniques, t)
	}
	if s.techniqueNames, err = n.Strings("active_techniques"); err != nil {
		return nil, err
	}
	return s, nil
}

// link resolves active_techniques. With neither inline techniques nor
// names, the system takes a clone of every catalog technique.
func (s *ParticleSystem) link() error {
	switch {
	case s.techniqueNames != nil:
		var active []*Technique
		for _, name := range s.techniqueNames {
			i := slices.IndexFunc(s.techniques, func(t *Technique) bool { return t.Name == name })
			if i >= 0 {
				active = append(active, s.techniques[i])
				continue
			}
			t, err := s.container.CloneTechnique(name)
			if err != nil {
				return err
			}
			active = append(active, t)
		}
		s.techniques = active
		s.techniqueNames = nil
	case len(s.techniques) == 0:
		for _, proto := range s.container.techniques {
			s.techniques = append(s.techniques, proto.clone())
		}
	}
	for _, t := range s.techniques {
		t.system = s
		if err := t.link(); err != nil {
			return err
		}
	}
	return nil
}

// clone deep-copies the system and every technique below it.
func (s *ParticleSystem) clone() *ParticleSystem {
	c := new(ParticleSystem)
	*c = *s
	c.elapsed = 0
	c.techniqueNames = slices.Clone(s.techniqueNames)
	if s.FastForward != nil {
		ff := *s.FastForward
		c.FastForward = &ff
	}
	c.techniques = make([]*Technique, len(s.techniques))
	for i, t := range s.techniques {
		tc := t.clone()
		tc.system = c
		c.techniques[i] = tc
	}
	return c
}

// Process advances every technique by dt scaled by ScaleTime, then the
// system clock.
func (s *ParticleSystem) Process(dt float64) {
	dt *= s.ScaleTime
	for _, t := range s.techniques {
		t.Process(dt)
	}
	s.elapsed += dt
}

// fastForward runs the configured pre-simulation with the normal step.
func (s *ParticleSystem) fastForward() {
	if s.FastForward == nil {
		return
	}
	for range s.FastForward.Steps() {
		s.Process(s.FastForward.Interval)
	}
}

// Elapsed returns the simulated time since activation.
func (s *ParticleSystem) Elapsed() float64 { return s.elapsed }

// Techniques returns the active techniques.
func (s *ParticleSystem) Techniques() []*Technique { return s.techniques }

// AddTechnique attaches t to the system.
func (s *ParticleSystem) AddTechnique(t *Technique) {
	t.system = s
	s.techniques = append(s.techniques, t)
}

// ParticleCount returns the live particles across all techniques.
func (s *ParticleSystem) ParticleCount() int {
	n := 0
	for _, t := range s.techniques {
		n += t.ParticleCount()
	}
	return n
}

func (s *ParticleSystem) release() {
	for _, t := range s.techniques {
		t.release()
	}
}

// Write serializes the system to its configuration form.
func (s *ParticleSystem) Write() *node.Map {
	m := node.NewMap()
	if s.Name != "" {
		m.Set("name", s.Name)
	}
	m.Set("scale_velocity", s.ScaleVelocity)
	m.Set("scale_time", s.ScaleTime)
	m.Set("scale", vecToList(s.Scale))
	if s.FastForward != nil {
		ff := node.NewMap()
		ff.Set("time", s.FastForward.Time)
		ff.Set("interval", s.FastForward.Interval)
		m.Set("fast_forward", ff)
	}
	list := make([]any, len(s.techniques))
	for i, t := range s.techniques {
		list[i] = t.Write()
	}
	m.Set("technique", list)
	return m
}
