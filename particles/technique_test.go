package particles

import (
	"fmt"
	"math"
	"testing"

	"github.com/pthm-cable/psys/renderer"
)

func pointTechnique(rate, ttl float64, quota int) string {
	return fmt.Sprintf(`
technique:
  - name: main
    visual_particle_quota: %d
    material: plain
    emitter:
      - type: point
        name: spout
        emission_rate: %v
        time_to_live: %v
        velocity: 0
        angle: 0
`, quota, rate, ttl)
}

func TestEmissionAccumulatesFractions(t *testing.T) {
	tests := []struct {
		name  string
		rate  float64
		dt    float64
		steps int
	}{
		{"half per step", 4, 0.125, 8},
		{"seven per second", 7, 0.1, 100},
		{"third per step", 10, 1.0 / 30, 90},
		{"below one per step", 0.3, 0.02, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := load(t, pointTechnique(tt.rate, 100000, 2000))
			for i := 0; i < tt.steps; i++ {
				c.Process(tt.dt)
			}
			want := tt.rate * tt.dt * float64(tt.steps)
			got := float64(c.ParticleCount())
			if math.Abs(got-want) > 1 {
				t.Errorf("expected %v +/- 1 particles, got %v", want, got)
			}
		})
	}
}

func TestQuotaClampsPool(t *testing.T) {
	c := load(t, pointTechnique(1000, 100, 50))
	tech := firstTechnique(t, c)
	for i := 0; i < 20; i++ {
		c.Process(0.125)
		if n := tech.ParticleCount(); n > 50 {
			t.Fatalf("step %d: expected at most 50 particles, got %d", i, n)
		}
	}
	if tech.ParticleCount() != 50 {
		t.Errorf("expected pool filled to quota 50, got %d", tech.ParticleCount())
	}
	if cap(tech.Particles()) != 50 {
		t.Errorf("expected pool capacity 50, got %d", cap(tech.Particles()))
	}
}

func TestLifetimeBoundary(t *testing.T) {
	src := `
technique:
  - name: main
    visual_particle_quota: 100
    material: plain
    emitter:
      - type: point
        emission_rate: 5
        force_emission: true
        time_to_live: 2
        velocity: 0
        angle: 0
`
	c := load(t, src)
	tech := firstTechnique(t, c)

	// 0.125 is exact in binary, so after 16 steps the ttl is exactly zero.
	for i := 1; i <= 16; i++ {
		c.Process(0.125)
		if tech.ParticleCount() != 5 {
			t.Fatalf("step %d: expected 5 live particles, got %d", i, tech.ParticleCount())
		}
	}
	if ttl := tech.Particles()[0].Current.TimeToLive; ttl != 0 {
		t.Errorf("expected ttl exactly 0 after 2s, got %v", ttl)
	}
	c.Process(0.125)
	if tech.ParticleCount() != 0 {
		t.Errorf("expected all particles removed once ttl < 0, got %d", tech.ParticleCount())
	}
}

func TestPointEmitterScenario(t *testing.T) {
	c := load(t, pointTechnique(10, 2, 1000))
	tech := firstTechnique(t, c)

	for i := 0; i < 20; i++ {
		c.Process(0.1)
	}
	// Twenty spawned; the first sits on the ttl == 0 boundary and may be
	// culled depending on rounding of the repeated 0.1 decrements.
	if n := tech.ParticleCount(); n < 19 || n > 20 {
		t.Fatalf("expected 19-20 particles after 2s, got %d", n)
	}

	for i := 0; i < 10; i++ {
		c.Process(0.1)
	}
	for _, p := range tech.Particles() {
		if age := p.Initial.TimeToLive - p.Current.TimeToLive; age > 2+1e-9 {
			t.Errorf("expected no particle older than its ttl, got age %v", age)
		}
	}
	if n := tech.ParticleCount(); n > 21 {
		t.Errorf("expected steady state of about 20 particles, got %d", n)
	}

	tech.Emitters()[0].Enabled = false
	for i := 0; i < 21; i++ {
		c.Process(0.1)
	}
	if tech.ParticleCount() != 0 {
		t.Errorf("expected every particle expired, got %d", tech.ParticleCount())
	}
}

func TestDurationAndRepeatDelay(t *testing.T) {
	src := `
technique:
  - name: main
    visual_particle_quota: 100
    material: plain
    emitter:
      - type: point
        emission_rate: 8
        time_to_live: 100
        duration: 0.25
        repeat_delay: 0.25
        velocity: 0
        angle: 0
`
	c := load(t, src)
	tech := firstTechnique(t, c)
	want := []int{1, 2, 3, 3, 3, 3, 4}
	for i, w := range want {
		c.Process(0.125)
		if got := tech.ParticleCount(); got != w {
			t.Errorf("step %d: expected %d particles, got %d", i+1, w, got)
		}
	}
}

func TestMaxVelocityClamp(t *testing.T) {
	src := `
technique:
  - name: main
    visual_particle_quota: 10
    max_velocity: 5
    material: plain
    emitter:
      - type: point
        emission_rate: 1
        force_emission: true
        velocity: 100
        angle: 0
`
	c := load(t, src)
	tech := firstTechnique(t, c)
	c.Process(0.5)
	p := tech.Particles()[0]
	if !near(p.Current.Direction.Len(), 5, 1e-9) {
		t.Errorf("expected direction clamped to 5, got %v", p.Current.Direction.Len())
	}
	if !nearVec(p.Current.Position, Vec3{0, 2.5, 0}, 1e-9) {
		t.Errorf("expected position (0,2.5,0), got %v", p.Current.Position)
	}
}

func TestScaleVelocityAndTime(t *testing.T) {
	src := `
scale_velocity: 2
scale_time: 0.5
technique:
  - name: main
    visual_particle_quota: 10
    material: plain
    emitter:
      - type: point
        emission_rate: 1
        force_emission: true
        velocity: 1
        angle: 0
`
	c := load(t, src)
	sys := c.ActiveSystems()[0]
	c.Process(1)
	if sys.Elapsed() != 0.5 {
		t.Errorf("expected elapsed 0.5, got %v", sys.Elapsed())
	}
	p := sys.Techniques()[0].Particles()[0]
	// dt 0.5 after time scaling, doubled by scale_velocity.
	if !nearVec(p.Current.Position, Vec3{0, 1, 0}, 1e-9) {
		t.Errorf("expected position (0,1,0), got %v", p.Current.Position)
	}
}

func TestUploadWritesSixVerticesPerParticle(t *testing.T) {
	c := load(t, pointTechnique(1000, 100, 7))
	tech := firstTechnique(t, c)
	c.Process(0.1)
	b := tech.Batch()
	if len(b.Vertices) != 7*renderer.VerticesPerParticle {
		t.Fatalf("expected %d vertices, got %d", 7*renderer.VerticesPerParticle, len(b.Vertices))
	}
	if b.Blend != renderer.BlendAlpha {
		t.Errorf("expected alpha blend, got %v", b.Blend)
	}
	v := b.Vertices[0]
	if v.Color != [4]uint8{255, 255, 255, 255} {
		t.Errorf("expected white vertex, got %v", v.Color)
	}
	// Unit quad centred on the origin.
	if v.Pos != [3]float32{-0.5, -0.5, 0} {
		t.Errorf("expected first corner (-0.5,-0.5,0), got %v", v.Pos)
	}
}

func TestStepDoesNotAllocateAtSteadyState(t *testing.T) {
	c := load(t, pointTechnique(100, 0.5, 200))
	for i := 0; i < 50; i++ {
		c.Process(0.02)
	}
	allocs := testing.AllocsPerRun(100, func() {
		c.Process(0.02)
	})
	if allocs > 0 {
		t.Errorf("expected no allocations per step, got %v", allocs)
	}
}

type recordingTimer struct {
	phases []string
}

func (r *recordingTimer) StartPhase(p string) { r.phases = append(r.phases, p) }

func TestPhaseOrder(t *testing.T) {
	src := pointTechnique(10, 1, 10)
	rt := &recordingTimer{}
	n := mustParse(t, src)
	c, err := Load(n, WithSeed(1), WithPhaseTimer(rt), quietLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Process(0.1)
	want := []string{PhaseEmit, PhaseAffect, PhaseAge, PhaseCull, PhaseIntegrate, PhaseUpload}
	if fmt.Sprint(rt.phases) != fmt.Sprint(want) {
		t.Errorf("expected phases %v, got %v", want, rt.phases)
	}
}

func TestInstancedEmitterRefsGoStale(t *testing.T) {
	src := `
emitters:
  - type: point
    name: child
    emission_rate: 8
    time_to_live: 100
    velocity: 0
    angle: 0
technique:
  - name: main
    visual_particle_quota: 100
    material: plain
    emitter:
      - type: point
        name: spawner
        emission_rate: 2
        force_emission: true
        time_to_live: 0.25
        velocity: 0
        angle: 0
        emits_type: emitter_particle
        emits_name: child
`
	c := load(t, src)
	tech := firstTechnique(t, c)

	c.Process(0.125)
	if len(tech.InstancedEmitters()) != 2 {
		t.Fatalf("expected 2 instanced emitters, got %d", len(tech.InstancedEmitters()))
	}
	if tech.ParticleCount() != 2 {
		t.Fatalf("expected each child to emit once, got %d particles", tech.ParticleCount())
	}
	first := tech.Particles()[0].EmittedBy
	e, ok := c.Arena().Resolve(first)
	if !ok || e.Name != "child" {
		t.Fatalf("expected particle ref to resolve to child, got %v %v", e, ok)
	}
	if !tech.InstancedEmitters()[0].EmittedBy().Valid() {
		t.Error("expected instanced emitter to record its spawner")
	}

	c.Process(0.125)
	c.Process(0.125)
	if len(tech.InstancedEmitters()) != 0 {
		t.Fatalf("expected instanced emitters expired, got %d", len(tech.InstancedEmitters()))
	}
	if _, ok := c.Arena().Resolve(first); ok {
		t.Error("expected ref of expired emitter to be stale")
	}
	if tech.ParticleCount() != 6 {
		t.Errorf("expected orphaned particles to live on, got %d", tech.ParticleCount())
	}
}

func TestEmittedEmitterQuota(t *testing.T) {
	src := `
emitters:
  - type: point
    name: child
    emission_rate: 0
technique:
  - name: main
    visual_particle_quota: 10
    emitted_emitter_quota: 3
    material: plain
    emitter:
      - type: point
        emission_rate: 10
        force_emission: true
        emits_type: emitter_particle
        emits_name: child
`
	c := load(t, src)
	tech := firstTechnique(t, c)
	c.Process(0.1)
	if n := len(tech.InstancedEmitters()); n != 3 {
		t.Errorf("expected instanced emitters clamped to 3, got %d", n)
	}
}

func TestAffectorParticleEmission(t *testing.T) {
	src := `
affectors:
  - type: gravity
    name: well
    gravity: 10
technique:
  - name: main
    visual_particle_quota: 10
    material: plain
    emitter:
      - type: point
        position: [3, 4, 0]
        emission_rate: 1
        force_emission: true
        time_to_live: 0.2
        emits_type: affector_particle
        emits_name: well
`
	c := load(t, src)
	tech := firstTechnique(t, c)
	c.Process(0.1)
	if len(tech.InstancedAffectors()) != 1 {
		t.Fatalf("expected 1 instanced affector, got %d", len(tech.InstancedAffectors()))
	}
	a := tech.InstancedAffectors()[0]
	if a.Position != (Vec3{3, 4, 0}) || !a.Instanced() {
		t.Errorf("expected instanced affector at (3,4,0), got %v", a.Position)
	}
	c.Process(0.1)
	c.Process(0.1)
	if len(tech.InstancedAffectors()) != 0 {
		t.Errorf("expected instanced affector expired, got %d", len(tech.InstancedAffectors()))
	}
}

func TestEmittedEmitterKeepsOwnVelocity(t *testing.T) {
	src := `
emitters:
  - type: point
    name: child
    emission_rate: 8
    time_to_live: 100
    velocity: 10
    angle: 0
technique:
  - name: main
    visual_particle_quota: 10
    material: plain
    emitter:
      - type: point
        name: spawner
        emission_rate: 1
        force_emission: true
        time_to_live: 100
        velocity: 10
        angle: 0
        emits_type: emitter_particle
        emits_name: child
`
	c := load(t, src)
	tech := firstTechnique(t, c)
	c.Process(0.125)
	if len(tech.InstancedEmitters()) != 1 {
		t.Fatalf("expected 1 instanced emitter, got %d", len(tech.InstancedEmitters()))
	}
	if got := tech.InstancedEmitters()[0].Current.Direction.Len(); !near(got, 10, 1e-9) {
		t.Errorf("expected instanced emitter speed 10, got %v", got)
	}
	if tech.ParticleCount() != 1 {
		t.Fatalf("expected 1 particle, got %d", tech.ParticleCount())
	}
	p := tech.Particles()[0]
	if !near(p.Initial.Direction.Len(), 10, 1e-9) {
		t.Errorf("expected particle speed 10, got %v", p.Initial.Direction.Len())
	}
	if !nearVec(p.Initial.Direction, Vec3{0, 10, 0}, 1e-9) {
		t.Errorf("expected particle direction (0,10,0), got %v", p.Initial.Direction)
	}
}

func TestMaxVelocityClampsInstancedEmitters(t *testing.T) {
	src := `
emitters:
  - type: point
    name: child
    emission_rate: 0
    time_to_live: 100
technique:
  - name: main
    visual_particle_quota: 10
    max_velocity: 5
    material: plain
    emitter:
      - type: point
        emission_rate: 1
        force_emission: true
        time_to_live: 100
        velocity: 100
        angle: 0
        emits_type: emitter_particle
        emits_name: child
`
	c := load(t, src)
	tech := firstTechnique(t, c)
	c.Process(0.5)
	if len(tech.InstancedEmitters()) != 1 {
		t.Fatalf("expected 1 instanced emitter, got %d", len(tech.InstancedEmitters()))
	}
	e := tech.InstancedEmitters()[0]
	if !near(e.Current.Direction.Len(), 5, 1e-9) {
		t.Errorf("expected emitter direction clamped to 5, got %v", e.Current.Direction.Len())
	}
	if !nearVec(e.Current.Position, Vec3{0, 2.5, 0}, 1e-9) {
		t.Errorf("expected emitter position (0,2.5,0), got %v", e.Current.Position)
	}
}
