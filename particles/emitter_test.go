package particles

import (
	"fmt"
	"math"
	"testing"
)

// burst emits n particles once from a single emitter with the given extra
// emitter keys, and returns the technique after one step.
func burst(t *testing.T, n int, emitter string) *Technique {
	t.Helper()
	c := load(t, fmt.Sprintf(`
technique:
  - name: main
    visual_particle_quota: 1000
    material: plain
    emitter:
      - emission_rate: %d
        force_emission: true
        velocity: 0
        angle: 0
        time_to_live: 100
%s
`, n, emitter))
	tech := firstTechnique(t, c)
	c.Process(0.01)
	if tech.ParticleCount() != n {
		t.Fatalf("expected %d particles, got %d", n, tech.ParticleCount())
	}
	return tech
}

func TestBoxShape(t *testing.T) {
	tech := burst(t, 200, `        type: box
        position: [10, 0, 0]
        box_width: 2
        box_height: 4
        box_depth: 6`)
	half := Vec3{1, 2, 3}
	centre := Vec3{10, 0, 0}
	for _, p := range tech.Particles() {
		d := p.Current.Position.Sub(centre)
		for i := range d {
			if math.Abs(d[i]) > half[i] {
				t.Fatalf("expected particle inside box, got offset %v", d)
			}
		}
	}
}

func TestCircleShapeRandom(t *testing.T) {
	tech := burst(t, 100, `        type: circle
        circle_radius: 3
        normal: [0, 0, 1]`)
	for _, p := range tech.Particles() {
		pos := p.Current.Position
		if !near(pos.Len(), 3, 1e-9) {
			t.Fatalf("expected distance 3 from centre, got %v", pos.Len())
		}
		if !near(pos[2], 0, 1e-9) {
			t.Fatalf("expected particle in the plane normal to z, got %v", pos)
		}
	}
}

func TestCircleShapeStepped(t *testing.T) {
	tech := burst(t, 4, `        type: circle
        circle_radius: 1
        emit_random: false
        emit_only_2d: true
        circle_step: 1.5707963267948966`)
	want := []Vec3{{0, 1, 0}, {1, 0, 0}, {0, -1, 0}, {-1, 0, 0}}
	for i, p := range tech.Particles() {
		if !nearVec(p.Current.Position, want[i], 1e-9) {
			t.Errorf("particle %d: expected %v, got %v", i, want[i], p.Current.Position)
		}
	}
}

func TestSphereSurfaceShape(t *testing.T) {
	tech := burst(t, 200, `        type: sphere_surface
        radius: 2.5`)
	var sum Vec3
	for _, p := range tech.Particles() {
		if !near(p.Current.Position.Len(), 2.5, 1e-9) {
			t.Fatalf("expected distance 2.5, got %v", p.Current.Position.Len())
		}
		sum = sum.Add(p.Current.Position)
	}
	if mean := sum.Mul(1.0 / 200); mean.Len() > 0.5 {
		t.Errorf("expected samples spread over the sphere, mean %v", mean)
	}
}

func TestLineShape(t *testing.T) {
	tech := burst(t, 100, `        type: line
        end: [10, 0, 0]
        max_deviation: 0.5`)
	for _, p := range tech.Particles() {
		pos := p.Current.Position
		if pos[0] < 0 || pos[0] > 10 {
			t.Fatalf("expected x along the segment, got %v", pos)
		}
		if off := math.Hypot(pos[1], pos[2]); off > 0.5+1e-9 {
			t.Fatalf("expected deviation at most 0.5, got %v", off)
		}
	}
}

func TestLineShapeIncrements(t *testing.T) {
	tech := burst(t, 5, `        type: line
        end: [10, 0, 0]
        min_increment: 1
        max_increment: 1`)
	for i, p := range tech.Particles() {
		if want := float64(i + 1); !near(p.Current.Position[0], want, 1e-9) {
			t.Errorf("particle %d: expected x %v, got %v", i, want, p.Current.Position[0])
		}
	}
}

func TestColourRange(t *testing.T) {
	tech := burst(t, 100, `        type: point
        start_colour_range: [10, 20, 30, 40]
        end_colour_range: [50, 60, 70, 80]`)
	for _, p := range tech.Particles() {
		c := p.Current.Color
		if c.R < 10 || c.R > 50 || c.G < 20 || c.G > 60 || c.B < 30 || c.B > 70 || c.A < 40 || c.A > 80 {
			t.Fatalf("expected colour inside range, got %v", c)
		}
	}
}

func TestFixedAngleIsMaximum(t *testing.T) {
	c := load(t, `
technique:
  - name: main
    visual_particle_quota: 500
    material: plain
    emitter:
      - type: point
        emission_rate: 500
        force_emission: true
        velocity: 1
        angle: 30
`)
	tech := firstTechnique(t, c)
	c.Process(0.01)
	var below int
	for _, p := range tech.Particles() {
		d := p.Current.Direction
		if !near(d.Len(), 1, 1e-9) {
			t.Fatalf("expected unit speed, got %v", d.Len())
		}
		deg := math.Acos(math.Max(-1, math.Min(1, d.Dot(unitY)))) * 180 / math.Pi
		if deg > 30+1e-6 {
			t.Fatalf("expected deviation at most 30 degrees, got %v", deg)
		}
		if deg < 25 {
			below++
		}
	}
	// A uniform fraction of the maximum puts most samples well inside it.
	if below < 300 {
		t.Errorf("expected most deviations below 25 degrees, got %d of 500", below)
	}
}

func TestRandomAngleIsExact(t *testing.T) {
	c := load(t, `
technique:
  - name: main
    visual_particle_quota: 100
    material: plain
    emitter:
      - type: point
        emission_rate: 100
        force_emission: true
        velocity: 1
        angle: {type: random, min: 45, max: 45.0001}
`)
	tech := firstTechnique(t, c)
	c.Process(0.01)
	for _, p := range tech.Particles() {
		deg := math.Acos(math.Max(-1, math.Min(1, p.Current.Direction.Dot(unitY)))) * 180 / math.Pi
		if !near(deg, 45, 1e-3) {
			t.Fatalf("expected 45 degree deviation, got %v", deg)
		}
	}
}

func TestDimensionsScaling(t *testing.T) {
	c := load(t, `
scale: [2, 3, 4]
technique:
  - name: main
    visual_particle_quota: 10
    default_particle_width: 5
    material: plain
    emitter:
      - type: point
        emission_rate: 1
        force_emission: true
        particle_height: 7
        scaling: 0.5
`)
	tech := firstTechnique(t, c)
	c.Process(0.01)
	got := tech.Particles()[0].Current.Dimensions
	// width 5*2*0.5, height 7*3*0.5, depth 1*4 (scaling is planar)
	if !nearVec(got, Vec3{5, 10.5, 4}, 1e-9) {
		t.Errorf("expected (5,10.5,4), got %v", got)
	}
}

func TestOrientationFollowsAngle(t *testing.T) {
	c := load(t, `
technique:
  - name: main
    visual_particle_quota: 10
    material: plain
    emitter:
      - type: point
        emission_rate: 1
        force_emission: true
        direction: [1, 0, 0]
        angle: 0
        orientation_follows_angle: true
`)
	tech := firstTechnique(t, c)
	c.Process(0.01)
	p := tech.Particles()[0]
	if got := p.Current.Orientation.Rotate(unitY); !nearVec(got, unitX, 1e-9) {
		t.Errorf("expected +Y aligned with +X, got %v", got)
	}
}

func TestCloneResetsEmitterState(t *testing.T) {
	c := load(t, `
emitters:
  - type: circle
    name: ring
    emission_rate: 3
    emit_random: false
`)
	a := c.MustCloneEmitter("ring")
	a.emissionFraction = 0.7
	a.shape.(*circleShape).angle = 2
	b := c.MustCloneEmitter("ring")
	if b.emissionFraction != 0 || b.shape.(*circleShape).angle != 0 {
		t.Errorf("expected fresh runtime state in clone, got fraction %v angle %v", b.emissionFraction, b.shape.(*circleShape).angle)
	}
	if b.Ref().Valid() {
		t.Error("expected clone without arena ref")
	}
}

func TestEmitterAccessors(t *testing.T) {
	c := load(t, `
emitters:
  - type: circle
    name: ring
    circle_radius: 2
  - type: point
    name: dot
`)
	ring := c.MustCloneEmitter("ring")
	r, ok := ring.CircleRadius()
	if !ok || r.Value(0) != 2 {
		t.Fatalf("expected radius 2, got %v %v", r, ok)
	}
	dot := c.MustCloneEmitter("dot")
	if _, ok := dot.CircleRadius(); ok {
		t.Error("expected no radius on a point emitter")
	}
	if dot.SetCircleRadius(nil) {
		t.Error("expected SetCircleRadius to fail on a point emitter")
	}
	dot.SetPosition(Vec3{1, 2, 3})
	if dot.Initial.Position != (Vec3{1, 2, 3}) || dot.Current.Position != (Vec3{1, 2, 3}) {
		t.Errorf("expected position set on both states, got %v %v", dot.Initial.Position, dot.Current.Position)
	}
}
