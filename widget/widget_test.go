package widget

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/params"
	"github.com/pthm-cable/psys/particles"
	"github.com/pthm-cable/psys/renderer"
	"github.com/pthm-cable/psys/telemetry"
)

const ring = `
technique:
  - name: ring
    visual_particle_quota: 200
    material: {name: ring, scene_blend: add}
    emitter:
      - type: circle
        circle_radius: 3
        emission_rate: 50
        time_to_live: 1
    affector:
      - type: path_follower
        path: [[0, 0, 0], [4, 0, 0]]
`

type recordingBackend struct {
	batches []renderer.Batch
}

func (r *recordingBackend) BeginFrame()          { r.batches = r.batches[:0] }
func (r *recordingBackend) Draw(b renderer.Batch) { r.batches = append(r.batches, b) }
func (r *recordingBackend) EndFrame()            {}
func (r *recordingBackend) Close() error         { return nil }

func parse(t *testing.T, src string) node.Node {
	t.Helper()
	n, err := node.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return n
}

func newWidget(t *testing.T, src string, opts ...Option) *Widget {
	t.Helper()
	c, err := particles.Load(parse(t, src), particles.WithSeed(5), particles.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	opts = append([]Option{WithStepTime(0.02), WithMaxSteps(3), WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	return New(c, opts...)
}

func TestProcessRunsWholeSteps(t *testing.T) {
	w := newWidget(t, ring)
	t0 := time.Unix(100, 0)

	tests := []struct {
		name    string
		advance time.Duration
		want    int
	}{
		{"first call starts the clock", 0, 0},
		{"two and a half steps", 50 * time.Millisecond, 2},
		{"remainder carries", 15 * time.Millisecond, 1},
		{"capped per call", time.Second, 3},
		{"excess dropped", 10 * time.Millisecond, 0},
	}
	now := t0
	for _, tt := range tests {
		now = now.Add(tt.advance)
		if got := w.Process(now); got != tt.want {
			t.Errorf("%s: expected %d steps, got %d", tt.name, tt.want, got)
		}
	}
	if w.Steps() != 6 {
		t.Errorf("expected 6 steps in total, got %d", w.Steps())
	}
}

func TestStoppedWidgetSkipsTimeAndDraw(t *testing.T) {
	w := newWidget(t, ring)
	t0 := time.Unix(100, 0)
	w.Process(t0)
	w.SetRunning(false)
	if got := w.Process(t0.Add(time.Second)); got != 0 {
		t.Errorf("expected no steps while stopped, got %d", got)
	}

	b := &recordingBackend{}
	w.Draw(b)
	if len(b.batches) != 0 {
		t.Errorf("expected no draws while stopped, got %d", len(b.batches))
	}

	w.SetRunning(true)
	if got := w.Process(t0.Add(time.Second + 20*time.Millisecond)); got != 1 {
		t.Errorf("expected stopped time to be skipped, got %d steps", got)
	}
	w.Draw(b)
	if len(b.batches) != 1 || b.batches[0].Name != "ring" || b.batches[0].Blend != renderer.BlendAdd {
		t.Errorf("expected one additive ring batch, got %+v", b.batches)
	}
}

func TestSystemHooks(t *testing.T) {
	w := newWidget(t, ring)

	if err := w.SetScaleTime(2); err != nil {
		t.Fatalf("SetScaleTime: %v", err)
	}
	if v, _ := w.ScaleTime(); v != 2 {
		t.Errorf("expected time scale 2, got %v", v)
	}
	if err := w.SetScaleDimensions([3]float64{2, 3, 1}); err != nil {
		t.Fatalf("SetScaleDimensions: %v", err)
	}
	if v, _ := w.ScaleDimensions(); v != [3]float64{2, 3, 1} {
		t.Errorf("expected scale (2,3,1), got %v", v)
	}

	if err := w.SetEmissionRate(params.NewFixed(120)); err != nil {
		t.Fatalf("SetEmissionRate: %v", err)
	}
	if r, _ := w.EmissionRate(); r.Value(0) != 120 {
		t.Errorf("expected emission rate 120, got %v", r.Value(0))
	}

	if err := w.SetCircleRadius(params.NewFixed(7)); err != nil {
		t.Fatalf("SetCircleRadius: %v", err)
	}
	if r, _ := w.CircleRadius(); r.Value(0) != 7 {
		t.Errorf("expected radius 7, got %v", r.Value(0))
	}

	if err := w.SetEmitterPosition([3]float64{1, 2, 0}); err != nil {
		t.Fatalf("SetEmitterPosition: %v", err)
	}
	if p, _ := w.EmitterPosition(); p != [3]float64{1, 2, 0} {
		t.Errorf("expected emitter at (1,2,0), got %v", p)
	}

	if err := w.SetPathPoints([][3]float64{{0, 0, 0}, {0, 5, 0}, {5, 5, 0}}); err != nil {
		t.Fatalf("SetPathPoints: %v", err)
	}
	if pts, _ := w.PathPoints(); len(pts) != 3 {
		t.Errorf("expected 3 path points, got %v", pts)
	}
}

func TestHooksReportMissingTargets(t *testing.T) {
	w := newWidget(t, `
technique:
  - name: dots
    visual_particle_quota: 10
    material: plain
    emitter:
      - type: point
`)
	if _, err := w.CircleRadius(); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind for a point emitter, got %v", err)
	}
	if err := w.SetPathPoints([][3]float64{{0, 0, 0}, {1, 0, 0}}); !errors.Is(err, ErrWrongKind) {
		t.Errorf("expected ErrWrongKind without a path follower, got %v", err)
	}

	empty := New(particles.NewContainer())
	if _, err := empty.ScaleTime(); !errors.Is(err, ErrNoSystem) {
		t.Errorf("expected ErrNoSystem, got %v", err)
	}
	if err := empty.SetEmitterPosition([3]float64{}); !errors.Is(err, ErrNoSystem) {
		t.Errorf("expected ErrNoSystem, got %v", err)
	}
}

func TestCreate(t *testing.T) {
	w := newWidget(t, ring)

	name, err := w.Create("system", parse(t, `
name: sparks
technique:
  - name: sparks
    visual_particle_quota: 20
    material: plain
    emitter:
      - type: point
        emission_rate: 100
`))
	if err != nil {
		t.Fatalf("Create system: %v", err)
	}
	if name != "sparks" || len(w.Container().ActiveSystems()) != 2 {
		t.Errorf("expected sparks to be active beside ring, got %q with %d active", name, len(w.Container().ActiveSystems()))
	}

	if name, err := w.Create("emitter", parse(t, "{name: puff, type: box, box_width: 2}")); err != nil || name != "puff" {
		t.Errorf("expected puff emitter, got %q (%v)", name, err)
	}
	if _, err := w.Container().CloneEmitter("puff"); err != nil {
		t.Errorf("expected puff in the catalog: %v", err)
	}

	if _, err := w.Create("simple", parse(t, "{type: simple, spawn_rate: 1000, time_to_live: 5}")); err != nil {
		t.Fatalf("Create simple: %v", err)
	}
	if len(w.SimpleSystems()) != 1 {
		t.Fatalf("expected one simple system, got %d", len(w.SimpleSystems()))
	}
	w.Step()
	if w.SimpleSystems()[0].ParticleCount() != 1 {
		t.Errorf("expected the simple system to spawn, got %d", w.SimpleSystems()[0].ParticleCount())
	}

	if _, err := w.Create("galaxy", parse(t, "{}")); !errors.Is(err, particles.ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestDestroyedSimpleSystemsAreDropped(t *testing.T) {
	w := newWidget(t, ring)
	if _, err := w.Create("simple", parse(t, "{type: simple, system_time_to_live: 2}")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	w.Step()
	if len(w.SimpleSystems()) != 1 {
		t.Fatal("expected the system to survive one step")
	}
	w.Step()
	if len(w.SimpleSystems()) != 0 {
		t.Errorf("expected the system to be dropped, got %d", len(w.SimpleSystems()))
	}
}

func TestPerfTimesStepsAndDraw(t *testing.T) {
	pc := telemetry.NewPerfCollector(10)
	c, err := particles.Load(parse(t, ring), particles.WithSeed(5), particles.WithPhaseTimer(pc),
		particles.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	w := New(c, WithStepTime(0.02), WithPerf(pc))
	b := &recordingBackend{}
	for i := 0; i < 4; i++ {
		w.Step()
		w.Draw(b)
	}

	stats := pc.Stats()
	if _, ok := stats.PhaseAvg[telemetry.PhaseDraw]; !ok {
		t.Error("expected draw phase to be timed")
	}
	if _, ok := stats.PhaseAvg[particles.PhaseEmit]; !ok {
		t.Error("expected emit phase to be timed")
	}
}

func TestWriteRoundTrips(t *testing.T) {
	w := newWidget(t, ring)
	data, err := node.Marshal(w.Write())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	c, err := particles.Load(parse(t, string(data)), particles.WithSeed(5), particles.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("reloading written effect: %v\n%s", err, data)
	}
	if len(c.ActiveSystems()) != 1 {
		t.Errorf("expected one active system after reload, got %d", len(c.ActiveSystems()))
	}
}
