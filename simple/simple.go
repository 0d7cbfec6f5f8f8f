// Package simple implements the lightweight cycle-driven particle systems
// attached to game objects: the generation-batched sprite system and the
// fixed-point point system. Both advance one integer cycle per Process call
// and read all rates in whole units, per-mille or thousandths.
package simple

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/renderer"
)

// Anchor is the object a system is attached to.
type Anchor struct {
	X, Y        float64
	Width       float64
	FacingRight bool
}

func (a Anchor) facing() float32 {
	if a.FacingRight {
		return 1
	}
	return -1
}

// System is a cycle-driven particle system.
type System interface {
	Process(a Anchor)
	Batch() renderer.Batch
	ParticleCount() int
	Destroyed() bool
	ShouldSave() bool
}

// Create builds a system from its configuration, dispatching on type.
func Create(n node.Node, rng *rand.Rand) (System, error) {
	kind, err := n.String("type")
	if err != nil {
		return nil, err
	}
	var s System
	switch kind {
	case "simple":
		cfg, err := ParseConfig(n)
		if err != nil {
			return nil, err
		}
		s = New(cfg, rng)
	case "point":
		cfg, err := ParsePointConfig(n)
		if err != nil {
			return nil, err
		}
		s = NewPoint(cfg, rng)
	default:
		return nil, n.Get("type").Errorf(node.ErrValue, "unknown particle system type %q", kind)
	}
	slog.Debug("simple system created", "type", kind, "path", n.Path())
	return s, nil
}

// Config holds the settings of a generation-batched system. Velocities and
// accelerations are thousandths of a unit per cycle, spawn rates are
// per-mille particles per cycle and lifetimes are in cycles.
type Config struct {
	Name                    string
	SpawnRate               int
	SpawnRateRandom         int
	SystemTimeToLive        int
	TimeToLive              int
	MinX, MaxX              int
	MinY, MaxY              int
	VelocityX               int
	VelocityY               int
	VelocityXRandom         int
	VelocityYRandom         int
	VelocityMagnitude       int
	VelocityMagnitudeRandom int
	VelocityRotate          int
	VelocityRotateRandom    int
	AccelX, AccelY          int
	PrePumpCycles           int
	DeltaA                  int

	// Schedules add raw per-cycle velocity offsets indexed by particle age.
	VelocityXSchedule []int
	VelocityYSchedule []int
	RandomSchedule    bool

	Animations []*Animation
}

// ParseConfig reads a simple system configuration.
func ParseConfig(n node.Node) (Config, error) {
	var c Config
	var err error
	if c.Name, err = n.StringOr("id", ""); err != nil {
		return c, err
	}
	err = readInts(n, []intField{
		{"spawn_rate", &c.SpawnRate, 1},
		{"spawn_rate_random", &c.SpawnRateRandom, 0},
		{"system_time_to_live", &c.SystemTimeToLive, -1},
		{"time_to_live", &c.TimeToLive, 50},
		{"min_x", &c.MinX, 0},
		{"max_x", &c.MaxX, 0},
		{"min_y", &c.MinY, 0},
		{"max_y", &c.MaxY, 0},
		{"velocity_x", &c.VelocityX, 0},
		{"velocity_y", &c.VelocityY, 0},
		{"velocity_x_random", &c.VelocityXRandom, 0},
		{"velocity_y_random", &c.VelocityYRandom, 0},
		{"velocity_magnitude", &c.VelocityMagnitude, 0},
		{"velocity_magnitude_random", &c.VelocityMagnitudeRandom, 0},
		{"velocity_rotate", &c.VelocityRotate, 0},
		{"velocity_rotate_random", &c.VelocityRotateRandom, 0},
		{"accel_x", &c.AccelX, 0},
		{"accel_y", &c.AccelY, 0},
		{"pre_pump_cycles", &c.PrePumpCycles, 0},
		{"delta_a", &c.DeltaA, 0},
	})
	if err != nil {
		return c, err
	}
	if c.TimeToLive < 1 {
		return c, n.Get("time_to_live").Errorf(node.ErrValue, "must be at least 1 cycle")
	}
	if c.VelocityXSchedule, err = readIntList(n, "velocity_x_schedule"); err != nil {
		return c, err
	}
	if c.VelocityYSchedule, err = readIntList(n, "velocity_y_schedule"); err != nil {
		return c, err
	}
	hasSchedule := len(c.VelocityXSchedule) > 0 || len(c.VelocityYSchedule) > 0
	if c.RandomSchedule, err = n.BoolOr("random_schedule", hasSchedule); err != nil {
		return c, err
	}

	anims := n.Get("animation")
	for i := 0; i < anims.Len(); i++ {
		a, err := parseAnimation(anims.Index(i))
		if err != nil {
			return c, fmt.Errorf("animation %d: %w", i, err)
		}
		c.Animations = append(c.Animations, a)
	}
	return c, nil
}

// Generation is a batch of particles spawned in the same cycle. Members
// are a contiguous run of the particle slice.
type Generation struct {
	Members   int
	CreatedAt int
}

type particle struct {
	pos    [2]float32
	vel    [2]float32
	anim   int
	random int
}

// maxScheduleOffset bounds the random start index into a velocity schedule.
const maxScheduleOffset = 1 << 30

// Simple is the generation-batched sprite system. Particles live in one
// slice ordered by generation, so a whole generation expires by dropping a
// prefix.
type Simple struct {
	cfg         Config
	rng         *rand.Rand
	anims       []*Animation
	cycle       int
	buildup     int
	particles   []particle
	generations []Generation
	vertices    *renderer.AttributeBuffer
	texture     string
}

// New creates a simple system. A config without animations draws one
// full-texture frame per particle.
func New(cfg Config, rng *rand.Rand) *Simple {
	anims := cfg.Animations
	if len(anims) == 0 {
		anims = []*Animation{defaultAnimation()}
	}
	perCycle := (cfg.SpawnRate+max(cfg.SpawnRateRandom, 0))/1000 + 1
	capacity := max(perCycle*cfg.TimeToLive, 1)
	return &Simple{
		cfg:       cfg,
		rng:       rng,
		anims:     anims,
		particles: make([]particle, 0, capacity),
		vertices:  renderer.NewAttributeBuffer(capacity * renderer.VerticesPerParticle),
	}
}

// Config returns the live settings. Changes apply from the next cycle.
func (s *Simple) Config() *Config { return &s.cfg }

// Cycle returns the number of processed cycles, pre-pump included.
func (s *Simple) Cycle() int { return s.cycle }

// ParticleCount returns the number of live particles.
func (s *Simple) ParticleCount() int { return len(s.particles) }

// Generations returns a read-only view of the live generations.
func (s *Simple) Generations() []Generation { return s.generations }

// Destroyed reports whether the system has run out its own lifetime, or
// stopped spawning and drained.
func (s *Simple) Destroyed() bool {
	return s.cfg.SystemTimeToLive == 0 || (s.cfg.SpawnRate < 0 && len(s.particles) == 0)
}

// ShouldSave reports whether the system belongs in a saved object.
func (s *Simple) ShouldSave() bool { return s.cfg.SpawnRate >= 0 }

// Process advances one cycle. The first cycle also runs pre_pump_cycles
// extra cycles so the effect looks like it has been running for a while.
func (s *Simple) Process(a Anchor) {
	s.cfg.SystemTimeToLive--
	s.cycle++
	if s.cycle == 1 {
		for i := 0; i < s.cfg.PrePumpCycles; i++ {
			s.Process(a)
		}
	}

	s.expire()
	s.move(a)
	s.applySchedule(0, s.cfg.VelocityXSchedule)
	s.applySchedule(1, s.cfg.VelocityYSchedule)
	s.spawn(a)
	s.upload(a)
}

func (s *Simple) expire() {
	n, drop := 0, 0
	for n < len(s.generations) && s.cycle-s.generations[n].CreatedAt >= s.cfg.TimeToLive {
		drop += s.generations[n].Members
		n++
	}
	if n == 0 {
		return
	}
	s.generations = append(s.generations[:0], s.generations[n:]...)
	s.particles = append(s.particles[:0], s.particles[drop:]...)
}

func (s *Simple) move(a Anchor) {
	ax := a.facing() * float32(s.cfg.AccelX) / 1000
	ay := float32(s.cfg.AccelY) / 1000
	for i := range s.particles {
		p := &s.particles[i]
		p.pos[0] += p.vel[0]
		p.pos[1] += p.vel[1]
		p.vel[0] += ax
		p.vel[1] += ay
	}
}

// applySchedule swaps last cycle's schedule offset for this cycle's.
func (s *Simple) applySchedule(axis int, schedule []int) {
	if len(schedule) == 0 {
		return
	}
	i := 0
	for _, g := range s.generations {
		age := s.cycle - g.CreatedAt
		for k := 0; k < g.Members; k++ {
			p := &s.particles[i]
			i++
			step := p.random + age - 1
			p.vel[axis] += float32(schedule[step%len(schedule)])
			if age > 1 {
				p.vel[axis] -= float32(schedule[(step-1)%len(schedule)])
			}
		}
	}
}

func (s *Simple) spawn(a Anchor) {
	cfg := &s.cfg
	count := cfg.SpawnRate
	if cfg.SpawnRateRandom > 0 {
		count += s.rng.Intn(cfg.SpawnRateRandom)
	}
	if count > 0 {
		count += s.buildup
	}
	s.buildup = max(count%1000, 0)
	count = max(count/1000, 0)

	s.generations = append(s.generations, Generation{Members: count, CreatedAt: s.cycle})

	for ; count > 0; count-- {
		var p particle
		if a.FacingRight {
			p.pos[0] = float32(a.X + float64(cfg.MinX))
		} else {
			p.pos[0] = float32(a.X + a.Width - float64(cfg.MaxX))
		}
		p.pos[1] = float32(a.Y + float64(cfg.MinY))
		p.vel[0] = float32(cfg.VelocityX) / 1000
		p.vel[1] = float32(cfg.VelocityY) / 1000
		if cfg.VelocityXRandom > 0 {
			p.vel[0] += float32(s.rng.Intn(cfg.VelocityXRandom)) / 1000
		}
		if cfg.VelocityYRandom > 0 {
			p.vel[1] += float32(s.rng.Intn(cfg.VelocityYRandom)) / 1000
		}

		magnitude := cfg.VelocityMagnitude
		if cfg.VelocityMagnitudeRandom > 0 {
			magnitude += s.rng.Intn(cfg.VelocityMagnitudeRandom)
		}
		if magnitude != 0 {
			rotate := cfg.VelocityRotate
			if cfg.VelocityRotateRandom > 0 {
				rotate += s.rng.Intn(cfg.VelocityRotateRandom)
			}
			rad := float64(rotate) / 360 * 2 * math.Pi
			m := float64(magnitude) / 1000
			p.vel[0] += float32(math.Sin(rad) * m)
			p.vel[1] += float32(math.Cos(rad) * m)
		}

		p.anim = s.rng.Intn(len(s.anims))

		if dx := cfg.MaxX - cfg.MinX; dx > 0 {
			p.pos[0] += float32(s.rng.Intn(dx)) + float32(s.rng.Intn(1000))*0.001
		}
		if dy := cfg.MaxY - cfg.MinY; dy > 0 {
			p.pos[1] += float32(s.rng.Intn(dy)) + float32(s.rng.Intn(1000))*0.001
		}
		if !a.FacingRight {
			p.vel[0] = -p.vel[0]
		}
		if cfg.RandomSchedule {
			p.random = s.rng.Intn(maxScheduleOffset)
		}
		s.particles = append(s.particles, p)
	}
}

// upload writes six vertices per particle. Alpha fades by delta_a per
// cycle of generation age.
func (s *Simple) upload(a Anchor) {
	out := s.vertices.Back()
	if len(s.particles) == 0 {
		s.vertices.Swap(out)
		return
	}
	s.texture = s.anims[s.particles[0].anim].Texture
	facing := a.facing()
	i := 0
	for _, g := range s.generations {
		age := s.cycle - g.CreatedAt
		color := [4]uint8{255, 255, 255, 255}
		if s.cfg.DeltaA != 0 {
			color[3] = uint8(min(max(256-s.cfg.DeltaA*age, 0), 255))
		}
		for k := 0; k < g.Members; k++ {
			p := &s.particles[i]
			i++
			an := s.anims[p.anim]
			f := an.Frame(age)
			halfW := float32(an.Width) / 2
			halfH := float32(an.Height) / 2
			x1 := p.pos[0] + (float32(f.XAdjust)-halfW)*facing
			x2 := p.pos[0] + (halfW-float32(f.X2Adjust))*facing
			y1 := p.pos[1] + float32(f.YAdjust) - halfH
			y2 := p.pos[1] + halfH - float32(f.Y2Adjust)
			out = append(out,
				renderer.Vertex{Pos: [3]float32{x1, y1, 0}, UV: [2]float32{f.U1, f.V1}, Color: color},
				renderer.Vertex{Pos: [3]float32{x2, y1, 0}, UV: [2]float32{f.U2, f.V1}, Color: color},
				renderer.Vertex{Pos: [3]float32{x1, y2, 0}, UV: [2]float32{f.U1, f.V2}, Color: color},
				renderer.Vertex{Pos: [3]float32{x1, y2, 0}, UV: [2]float32{f.U1, f.V2}, Color: color},
				renderer.Vertex{Pos: [3]float32{x2, y1, 0}, UV: [2]float32{f.U2, f.V1}, Color: color},
				renderer.Vertex{Pos: [3]float32{x2, y2, 0}, UV: [2]float32{f.U2, f.V2}, Color: color},
			)
		}
	}
	s.vertices.Swap(out)
}

// Batch returns the last uploaded vertices.
func (s *Simple) Batch() renderer.Batch {
	return renderer.Batch{
		Name:     s.cfg.Name,
		Texture:  s.texture,
		Blend:    renderer.BlendAlpha,
		Vertices: s.vertices.Front(),
	}
}
