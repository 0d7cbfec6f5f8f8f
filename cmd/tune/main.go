// Package main tunes an effect's emission rate with CMA-ES so that its live
// particle count settles on a target.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/psys/config"
	"github.com/pthm-cable/psys/effects"
	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/params"
	"github.com/pthm-cable/psys/particles"
	"github.com/pthm-cable/psys/widget"
)

// evalRow is one line of tune_log.csv.
type evalRow struct {
	Eval         int     `csv:"eval"`
	Fitness      float64 `csv:"fitness"`
	EmissionRate float64 `csv:"emission_rate"`
	MeanCount    float64 `csv:"mean_count"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	effectName := flag.String("effect", "", "Effect from the library (empty = config default)")
	effectFile := flag.String("file", "", "Effect YAML file (overrides -effect)")
	target := flag.Float64("target", 500, "Target live particle count")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 0, "Maximum number of evaluations (0 = config)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if err := run(*configPath, *effectName, *effectFile, *target, *seeds, *maxEvals, *outputDir); err != nil {
		slog.Error("tune failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, effectName, effectFile string, target float64, seeds, maxEvals int, outputDir string) error {
	if outputDir == "" {
		return fmt.Errorf("--output is required")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := config.Init(configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.Cfg()
	if maxEvals <= 0 {
		maxEvals = cfg.Tune.Evaluations
	}

	effect, err := loadEffect(cfg, effectName, effectFile)
	if err != nil {
		return err
	}
	if effects.IsSimple(effect) {
		return fmt.Errorf("simple systems have no tunable emitter")
	}

	startRate, err := currentRate(effect, cfg)
	if err != nil {
		return err
	}
	pv := NewParamVector(cfg.Tune, startRate)

	evalSeeds := make([]int64, seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(pv, effect, target, cfg.Tune.SimSeconds, cfg.Simulation.StepTime, evalSeeds)

	logFile, err := os.Create(filepath.Join(outputDir, "tune_log.csv"))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := 1e9
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := pv.Clamp(pv.Denormalize(x))
			fitness := evaluator.Evaluate(raw)
			evalCount++
			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = raw
			}

			row := []evalRow{{Eval: evalCount, Fitness: fitness, EmissionRate: raw[0], MeanCount: evaluator.LastMean()}}
			var werr error
			if evalCount == 1 {
				werr = gocsv.Marshal(row, logFile)
			} else {
				werr = gocsv.MarshalWithoutHeaders(row, logFile)
			}
			if werr != nil {
				slog.Warn("writing tune log", "error", werr)
			}

			elapsed := time.Since(startTime)
			remaining := time.Duration(maxEvals-evalCount) * (elapsed / time.Duration(evalCount))
			fmt.Printf("Eval %d/%d: rate=%.2f mean=%.0f fitness=%.4f (best=%.4f) | elapsed: %s, ETA: %s\n",
				evalCount, maxEvals, raw[0], evaluator.LastMean(), fitness, bestFitness,
				formatDuration(elapsed), formatDuration(remaining))
			return fitness
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Concurrent:      0, // seeds already run in parallel
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   4 + 3*pv.Dim(),
	}

	fmt.Printf("Tuning toward %.0f particles, %d seeds, %.0fs per run, max_evals=%d\n",
		target, seeds, cfg.Tune.SimSeconds, maxEvals)
	result, err := optimize.Minimize(problem, pv.Normalize(pv.DefaultVector()), settings, method)
	if err != nil {
		slog.Info("optimization ended", "reason", err)
	}
	if bestParams == nil {
		if result == nil {
			return fmt.Errorf("no evaluation completed")
		}
		bestParams = pv.Clamp(pv.Denormalize(result.X))
	}

	fmt.Printf("\nTuning complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	for i, spec := range pv.Specs {
		fmt.Printf("  %s: %.4f\n", spec.Name, bestParams[i])
	}

	outPath := filepath.Join(outputDir, "best_effect.yaml")
	if err := writeBest(effect, bestParams, outPath); err != nil {
		return err
	}
	fmt.Printf("Best effect saved to: %s\n", outPath)
	return nil
}

func loadEffect(cfg *config.Config, name, file string) (node.Node, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading effect: %w", err)
		}
		return node.Parse(data)
	}
	if name == "" {
		name = cfg.Effects.Default
	}
	return effects.Parse(name)
}

// currentRate returns the effect's own fixed rate, or the middle of the
// tuning range when the rate is not fixed.
func currentRate(effect node.Node, cfg *config.Config) (float64, error) {
	c, err := particles.Load(effect, particles.WithSeed(1), particles.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		return 0, fmt.Errorf("loading effect: %w", err)
	}
	rate, err := widget.New(c).EmissionRate()
	if err != nil {
		return 0, err
	}
	if params.IsFixed(rate) {
		return rate.Value(0), nil
	}
	return (cfg.Tune.MinRate + cfg.Tune.MaxRate) / 2, nil
}

// writeBest applies x to a fresh load of effect and saves the result.
func writeBest(effect node.Node, x []float64, path string) error {
	c, err := particles.Load(effect, particles.WithSeed(1), particles.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		return fmt.Errorf("loading effect: %w", err)
	}
	w := widget.New(c)
	if err := w.SetEmissionRate(params.NewFixed(x[0])); err != nil {
		return err
	}
	data, err := node.Marshal(w.Write())
	if err != nil {
		return fmt.Errorf("serializing effect: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing best effect: %w", err)
	}
	return nil
}
