package telemetry

import "github.com/pthm-cable/psys/particles"

// Collector samples a container at the end of each stats window and
// produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationSteps int32
	dt                  float64

	windowStartStep int32

	// Technique totals at the last flush
	lastSpawned int
	lastExpired int

	// Scratch reused between flushes
	ttl   []float64
	speed []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per step (used for step-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	stepsPerWindow := int32(windowDurationSec/dt + 1e-9)
	if stepsPerWindow < 1 {
		stepsPerWindow = 1
	}
	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationSteps: stepsPerWindow,
		dt:                  dt,
	}
}

// ShouldFlush returns true if enough steps have passed to flush the window.
func (c *Collector) ShouldFlush(step int32) bool {
	return step-c.windowStartStep >= c.windowDurationSteps
}

// WindowDurationSteps returns the number of steps per window.
func (c *Collector) WindowDurationSteps() int32 {
	return c.windowDurationSteps
}

// Flush samples every active system of src and starts the next window.
func (c *Collector) Flush(step int32, src *particles.Container) WindowStats {
	stats := WindowStats{
		WindowStartStep: c.windowStartStep,
		WindowEndStep:   step,
		SimTimeSec:      float64(step) * c.dt,
	}

	c.ttl = c.ttl[:0]
	c.speed = c.speed[:0]
	var spawned, expired, quota int
	for _, sys := range src.ActiveSystems() {
		stats.Systems++
		for _, t := range sys.Techniques() {
			stats.Techniques++
			stats.InstancedEmitters += len(t.InstancedEmitters())
			stats.InstancedAffectors += len(t.InstancedAffectors())
			quota += t.ParticleQuota
			s, e := t.Totals()
			spawned += s
			expired += e
			for _, p := range t.Particles() {
				c.ttl = append(c.ttl, p.Current.TimeToLive)
				c.speed = append(c.speed, p.Current.Direction.Len())
			}
		}
	}
	stats.Particles = len(c.ttl)
	if quota > 0 {
		stats.QuotaUse = float64(stats.Particles) / float64(quota)
	}

	// Deactivated systems take their totals with them.
	stats.Spawned = max(spawned-c.lastSpawned, 0)
	stats.Expired = max(expired-c.lastExpired, 0)
	c.lastSpawned, c.lastExpired = spawned, expired

	ttl := Summarize(c.ttl)
	stats.TTLMean, stats.TTLP10, stats.TTLP50, stats.TTLP90 = ttl.Mean, ttl.P10, ttl.P50, ttl.P90
	speed := Summarize(c.speed)
	stats.SpeedMean, stats.SpeedStd, stats.SpeedP90 = speed.Mean, speed.Std, speed.P90

	c.windowStartStep = step
	return stats
}
