package main

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/params"
	"github.com/pthm-cable/psys/particles"
	"github.com/pthm-cable/psys/telemetry"
	"github.com/pthm-cable/psys/widget"
)

// Fitness weights.
const (
	weightCount     = 1.0
	weightStability = 0.25

	warmupFraction = 0.5 // skip the first half of each run
	statsWindowSec = 0.5
)

// FitnessEvaluator runs headless effect simulations and scores how closely
// the live particle count settles on the target.
type FitnessEvaluator struct {
	params     *ParamVector
	effect     node.Node
	target     float64
	simSeconds float64
	stepTime   float64
	seeds      []int64

	mu       sync.Mutex
	lastMean float64 // mean live count from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(pv *ParamVector, effect node.Node, target, simSeconds, stepTime float64, seeds []int64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     pv,
		effect:     effect,
		target:     target,
		simSeconds: simSeconds,
		stepTime:   stepTime,
		seeds:      seeds,
	}
}

// LastMean returns the mean live count from the most recent evaluation.
func (fe *FitnessEvaluator) LastMean() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastMean
}

// runResult holds the window stats of one seeded run.
type runResult struct {
	windows []telemetry.WindowStats
	err     error
}

// Evaluate computes fitness for raw parameter values (lower = better).
// Seeds run in parallel, each on its own container.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	x = fe.params.Clamp(x)
	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(x, s)
		}(i, seed)
	}
	wg.Wait()

	var total, meanSum float64
	var n, failed int
	for _, r := range results {
		if r.err != nil {
			slog.Debug("run failed", "error", r.err)
			failed++
			continue
		}
		f, mean := fe.computeFitness(r.windows)
		total += f
		meanSum += mean
		n++
	}

	if failed > 0 {
		slog.Warn("runs failed", "failed", failed, "seeds", len(fe.seeds))
	}
	fe.mu.Lock()
	if n > 0 {
		fe.lastMean = meanSum / float64(n)
	}
	fe.mu.Unlock()

	if n == 0 {
		return math.Inf(1)
	}
	return total / float64(n)
}

// runSimulation loads a fresh container, applies x and steps it for the
// configured simulated time.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) runResult {
	c, err := particles.Load(fe.effect, particles.WithSeed(seed), particles.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		return runResult{err: fmt.Errorf("loading effect: %w", err)}
	}
	w := widget.New(c, widget.WithStepTime(fe.stepTime))
	if err := w.SetEmissionRate(params.NewFixed(x[0])); err != nil {
		return runResult{err: err}
	}

	collector := telemetry.NewCollector(statsWindowSec, fe.stepTime)
	steps := int32(fe.simSeconds / fe.stepTime)
	var result runResult
	for step := int32(1); step <= steps; step++ {
		w.Step()
		if collector.ShouldFlush(step) {
			result.windows = append(result.windows, collector.Flush(step, c))
		}
	}
	return result
}

// computeFitness scores the post-warmup windows: squared relative error of
// the mean live count plus a penalty on its coefficient of variation.
// Returns the fitness and the mean count.
func (fe *FitnessEvaluator) computeFitness(windows []telemetry.WindowStats) (float64, float64) {
	skip := int(float64(len(windows)) * warmupFraction)
	valid := windows[skip:]
	if len(valid) == 0 {
		return math.Inf(1), 0
	}
	counts := make([]float64, len(valid))
	for i, w := range valid {
		counts[i] = float64(w.Particles)
	}
	s := telemetry.Summarize(counts)

	relErr := (s.Mean - fe.target) / math.Max(fe.target, 1)
	cv := 0.0
	if s.Mean > 0 {
		cv = s.Std / s.Mean
	}
	return weightCount*relErr*relErr + weightStability*cv*cv, s.Mean
}
