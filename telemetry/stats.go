package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary is the distribution of one particle attribute.
type Summary struct {
	Mean float64
	Std  float64
	P10  float64
	P50  float64
	P90  float64
}

// Summarize computes the distribution of values. values is sorted in place.
// Returns the zero Summary for an empty slice.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sort.Float64s(values)
	var s Summary
	if len(values) == 1 {
		s.Mean = values[0]
	} else {
		s.Mean, s.Std = stat.MeanStdDev(values, nil)
	}
	s.P10 = stat.Quantile(0.10, stat.Empirical, values, nil)
	s.P50 = stat.Quantile(0.50, stat.Empirical, values, nil)
	s.P90 = stat.Quantile(0.90, stat.Empirical, values, nil)
	return s
}

// WindowStats holds aggregated particle statistics for a time window.
type WindowStats struct {
	WindowStartStep int32   `csv:"-"`
	WindowEndStep   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Counts at window end
	Systems            int `csv:"systems"`
	Techniques         int `csv:"techniques"`
	Particles          int `csv:"particles"`
	InstancedEmitters  int `csv:"instanced_emitters"`
	InstancedAffectors int `csv:"instanced_affectors"`

	// Events during window
	Spawned int `csv:"spawned"`
	Expired int `csv:"expired"`

	// Live particles over the summed technique quotas
	QuotaUse float64 `csv:"quota_use"`

	// Remaining lifetime in seconds (sampled at window end)
	TTLMean float64 `csv:"ttl_mean"`
	TTLP10  float64 `csv:"ttl_p10"`
	TTLP50  float64 `csv:"ttl_p50"`
	TTLP90  float64 `csv:"ttl_p90"`

	// Speed in units per second (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP90  float64 `csv:"speed_p90"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartStep)),
		slog.Int("window_end", int(s.WindowEndStep)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("systems", s.Systems),
		slog.Int("techniques", s.Techniques),
		slog.Int("particles", s.Particles),
		slog.Int("instanced_emitters", s.InstancedEmitters),
		slog.Int("instanced_affectors", s.InstancedAffectors),
		slog.Int("spawned", s.Spawned),
		slog.Int("expired", s.Expired),
		slog.Float64("quota_use", s.QuotaUse),
		slog.Float64("ttl_mean", s.TTLMean),
		slog.Float64("ttl_p50", s.TTLP50),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p90", s.SpeedP90),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
