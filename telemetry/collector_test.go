package telemetry

import (
	"log/slog"
	"testing"

	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/particles"
)

const sprayEffect = `
technique:
  - name: spray
    visual_particle_quota: 40
    material: plain
    emitter:
      - type: point
        emission_rate: 100
        time_to_live: 0.1
        velocity: 2
`

func loadSpray(t *testing.T) *particles.Container {
	t.Helper()
	n, err := node.Parse([]byte(sprayEffect))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c, err := particles.Load(n, particles.WithSeed(3), particles.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(0.5, 0.1)
	if c.WindowDurationSteps() != 5 {
		t.Fatalf("expected 5 steps per window, got %d", c.WindowDurationSteps())
	}
	if c.ShouldFlush(4) {
		t.Error("expected no flush before the window ends")
	}
	if !c.ShouldFlush(5) {
		t.Error("expected flush at the window end")
	}

	if got := NewCollector(0.01, 0.1).WindowDurationSteps(); got != 1 {
		t.Errorf("expected at least one step per window, got %d", got)
	}
}

func TestCollectorFlush(t *testing.T) {
	src := loadSpray(t)
	const dt = 0.02
	c := NewCollector(0.2, dt)

	var step int32
	for !c.ShouldFlush(step) {
		src.Process(dt)
		step++
	}
	first := c.Flush(step, src)

	if first.Systems != 1 || first.Techniques != 1 {
		t.Errorf("expected one system and technique, got %d/%d", first.Systems, first.Techniques)
	}
	if first.Particles != src.ParticleCount() {
		t.Errorf("expected %d particles, got %d", src.ParticleCount(), first.Particles)
	}
	if first.Spawned == 0 {
		t.Error("expected spawned particles in the first window")
	}
	if first.Expired == 0 {
		t.Error("expected expired particles, ttl is shorter than the window")
	}
	if first.QuotaUse <= 0 || first.QuotaUse > 1 {
		t.Errorf("expected quota use in (0,1], got %v", first.QuotaUse)
	}
	if first.TTLP90 > 0.1 {
		t.Errorf("expected ttl below 0.1s, got p90 %v", first.TTLP90)
	}
	if first.SpeedMean <= 0 {
		t.Errorf("expected moving particles, got mean speed %v", first.SpeedMean)
	}
	if c.ShouldFlush(step) {
		t.Error("expected a new window after flush")
	}

	// Totals are cumulative, so the second window only counts its own spawns.
	for i := 0; i < int(c.WindowDurationSteps()); i++ {
		src.Process(dt)
		step++
	}
	second := c.Flush(step, src)
	if second.WindowStartStep != first.WindowEndStep {
		t.Errorf("expected window to start at %d, got %d", first.WindowEndStep, second.WindowStartStep)
	}
	if second.Spawned > 2*first.Spawned+5 {
		t.Errorf("expected per-window spawn count, got %d after %d", second.Spawned, first.Spawned)
	}
}

func TestCollectorEmptyContainer(t *testing.T) {
	c := NewCollector(1, 0.1)
	stats := c.Flush(10, particles.NewContainer())
	if stats.Particles != 0 || stats.QuotaUse != 0 || stats.TTLMean != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
	if stats.SimTimeSec != 1 {
		t.Errorf("expected sim time 1s, got %v", stats.SimTimeSec)
	}
}
