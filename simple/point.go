package simple

import (
	"math/rand"

	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/renderer"
)

// fixedOne is the fixed-point scale of point particle positions.
const fixedOne = 1024

// PointConfig holds the settings of a point system. Offsets are whole
// units, velocities are 1/1024 units per cycle and accelerations are
// thousandths of a velocity step.
type PointConfig struct {
	Name                 string
	GenerationRateMillis int
	PosX, PosY           int
	PosXRand, PosYRand   int
	VelocityX            int
	VelocityY            int
	VelocityXRand        int
	VelocityYRand        int
	AccelX, AccelY       int
	TimeToLive           int
	TimeToLiveRand       int
	DotSize              int
	DotRounded           bool

	RGBA      [4]int
	RGBARand  [4]int
	RGBADelta [4]int

	// Colors, when two or more are given, replace the particle colour by
	// a lookup on remaining lifetime: the first entry at spawn, the last
	// as the particle dies.
	Colors [][4]uint8
}

// ParsePointConfig reads a point system configuration.
func ParsePointConfig(n node.Node) (PointConfig, error) {
	var c PointConfig
	var err error
	if c.Name, err = n.StringOr("id", ""); err != nil {
		return c, err
	}
	err = readInts(n, []intField{
		{"generation_rate_millis", &c.GenerationRateMillis, 0},
		{"pos_x", &c.PosX, 0},
		{"pos_y", &c.PosY, 0},
		{"pos_x_rand", &c.PosXRand, 0},
		{"pos_y_rand", &c.PosYRand, 0},
		{"velocity_x", &c.VelocityX, 0},
		{"velocity_y", &c.VelocityY, 0},
		{"velocity_x_rand", &c.VelocityXRand, 0},
		{"velocity_y_rand", &c.VelocityYRand, 0},
		{"accel_x", &c.AccelX, 0},
		{"accel_y", &c.AccelY, 0},
		{"time_to_live", &c.TimeToLive, 0},
		{"time_to_live_rand", &c.TimeToLiveRand, 0},
		{"dot_size", &c.DotSize, 1},
		{"red", &c.RGBA[0], 0},
		{"green", &c.RGBA[1], 0},
		{"blue", &c.RGBA[2], 0},
		{"alpha", &c.RGBA[3], 255},
		{"red_rand", &c.RGBARand[0], 0},
		{"green_rand", &c.RGBARand[1], 0},
		{"blue_rand", &c.RGBARand[2], 0},
		{"alpha_rand", &c.RGBARand[3], 0},
		{"red_delta", &c.RGBADelta[0], 0},
		{"green_delta", &c.RGBADelta[1], 0},
		{"blue_delta", &c.RGBADelta[2], 0},
		{"alpha_delta", &c.RGBADelta[3], 0},
	})
	if err != nil {
		return c, err
	}
	if c.DotRounded, err = n.BoolOr("dot_rounded", false); err != nil {
		return c, err
	}
	colors := n.Get("colors")
	for i := 0; i < colors.Len(); i++ {
		v, err := colors.Index(i).AsFloats()
		if err != nil {
			return c, err
		}
		if len(v) != 3 && len(v) != 4 {
			return c, colors.Index(i).Errorf(node.ErrValue, "expected [r, g, b] or [r, g, b, a]")
		}
		col := [4]uint8{clampByte(int(v[0])), clampByte(int(v[1])), clampByte(int(v[2])), 255}
		if len(v) == 4 {
			col[3] = clampByte(int(v[3]))
		}
		c.Colors = append(c.Colors, col)
	}
	return c, nil
}

type pointParticle struct {
	pos   [2]int
	vel   [2]int
	color [4]uint8
	ttl   int
}

// Point is the fixed-point dot system. Every generation_rate_millis per
// mille accumulated spawns one particle; each particle is one vertex.
type Point struct {
	cfg        PointConfig
	rng        *rand.Rand
	generation int
	palette    [][4]uint8
	divisor    int
	particles  []pointParticle
	vertices   *renderer.AttributeBuffer
}

// NewPoint creates a point system.
func NewPoint(cfg PointConfig, rng *rand.Rand) *Point {
	s := &Point{cfg: cfg, rng: rng}
	if len(cfg.Colors) >= 2 {
		s.palette = make([][4]uint8, len(cfg.Colors))
		for i, c := range cfg.Colors {
			s.palette[len(cfg.Colors)-1-i] = c
		}
		s.divisor = max((cfg.TimeToLive+cfg.TimeToLiveRand)/(len(cfg.Colors)-1), 1)
	}
	capacity := max(cfg.GenerationRateMillis/1000+1, 1) * max(cfg.TimeToLive+cfg.TimeToLiveRand, 1)
	s.particles = make([]pointParticle, 0, capacity)
	s.vertices = renderer.NewAttributeBuffer(capacity)
	return s
}

// GenerationRate returns the spawn rate in particles per thousand cycles.
func (s *Point) GenerationRate() int { return s.cfg.GenerationRateMillis }

// SetGenerationRate changes the spawn rate.
func (s *Point) SetGenerationRate(millis int) { s.cfg.GenerationRateMillis = millis }

// Offset returns the spawn offset from the anchor in whole units.
func (s *Point) Offset() (x, y int) { return s.cfg.PosX, s.cfg.PosY }

// SetOffset moves the spawn point relative to the anchor.
func (s *Point) SetOffset(x, y int) { s.cfg.PosX, s.cfg.PosY = x, y }

// SetOffsetRand sets the spawn spread in whole units.
func (s *Point) SetOffsetRand(x, y int) { s.cfg.PosXRand, s.cfg.PosYRand = x, y }

// ParticleCount returns the number of live particles.
func (s *Point) ParticleCount() int { return len(s.particles) }

// Destroyed is always false; point systems live as long as their owner.
func (s *Point) Destroyed() bool { return false }

// ShouldSave is always true.
func (s *Point) ShouldSave() bool { return true }

// Process advances one cycle: cull, move and age, spawn, upload.
func (s *Point) Process(a Anchor) {
	cfg := &s.cfg
	s.generation += cfg.GenerationRateMillis

	alive := 0
	for i := range s.particles {
		if s.particles[i].ttl <= 0 {
			continue
		}
		s.particles[alive] = s.particles[i]
		alive++
	}
	s.particles = s.particles[:alive]

	ax := cfg.AccelX / 1000
	if !a.FacingRight {
		ax = -ax
	}
	ay := cfg.AccelY / 1000
	for i := range s.particles {
		p := &s.particles[i]
		p.pos[0] += p.vel[0]
		p.pos[1] += p.vel[1]
		p.vel[0] += ax
		p.vel[1] += ay
		for c := range p.color {
			p.color[c] = clampByte(int(p.color[c]) + cfg.RGBADelta[c])
		}
		p.ttl--
	}

	for s.generation >= 1000 {
		s.particles = append(s.particles, s.newParticle(a))
		s.generation -= 1000
	}
	s.upload()
}

func (s *Point) newParticle(a Anchor) pointParticle {
	cfg := &s.cfg
	p := pointParticle{ttl: cfg.TimeToLive}
	if cfg.TimeToLiveRand > 0 {
		p.ttl += s.rng.Intn(cfg.TimeToLiveRand)
	}
	p.vel = [2]int{cfg.VelocityX, cfg.VelocityY}
	if cfg.VelocityXRand > 0 {
		p.vel[0] += s.rng.Intn(cfg.VelocityXRand)
	}
	if cfg.VelocityYRand > 0 {
		p.vel[1] += s.rng.Intn(cfg.VelocityYRand)
	}
	p.pos[0] = int(a.X)*fixedOne + cfg.PosX*fixedOne
	p.pos[1] = int(a.Y)*fixedOne + cfg.PosY*fixedOne
	if cfg.PosXRand > 0 {
		p.pos[0] += s.rng.Intn(cfg.PosXRand * fixedOne)
	}
	if cfg.PosYRand > 0 {
		p.pos[1] += s.rng.Intn(cfg.PosYRand * fixedOne)
	}
	for c := range p.color {
		v := cfg.RGBA[c]
		if cfg.RGBARand[c] > 0 {
			v += s.rng.Intn(cfg.RGBARand[c])
		}
		p.color[c] = clampByte(v)
	}
	return p
}

func (s *Point) upload() {
	out := s.vertices.Back()
	for i := range s.particles {
		p := &s.particles[i]
		col := p.color
		if s.palette != nil {
			idx := min(max(p.ttl/s.divisor, 0), len(s.palette)-1)
			col = s.palette[idx]
		}
		out = append(out, renderer.Vertex{
			Pos:   [3]float32{float32(p.pos[0] / fixedOne), float32(p.pos[1] / fixedOne), 0},
			Color: col,
		})
	}
	s.vertices.Swap(out)
}

// Batch returns the last uploaded points.
func (s *Point) Batch() renderer.Batch {
	return renderer.Batch{
		Name:      s.cfg.Name,
		Blend:     renderer.BlendAlpha,
		Primitive: renderer.Points,
		PointSize: float32(s.cfg.DotSize),
		Vertices:  s.vertices.Front(),
	}
}

func clampByte(v int) uint8 {
	return uint8(min(max(v, 0), 255))
}
