package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/psys/config"
	"github.com/pthm-cable/psys/effects"
	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	effectName := flag.String("effect", "", "Effect from the built-in library (empty = config default)")
	effectFile := flag.String("file", "", "Effect YAML file (overrides -effect)")
	list := flag.Bool("list", false, "List built-in effects and exit")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config, then time-based)")
	maxSteps := flag.Int("max-steps", 0, "Stop after N steps (0 = unlimited)")
	flag.Parse()

	if *list {
		fmt.Println(strings.Join(effects.Names(), "\n"))
		return
	}

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = cfg.Simulation.Seed
	}
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	name, doc, err := loadEffect(cfg, *effectName, *effectFile)
	if err != nil {
		slog.Error("failed to load effect", "error", err)
		os.Exit(1)
	}

	opts := viewer.Options{
		Seed:       rngSeed,
		Effect:     doc,
		EffectName: name,
		LogStats:   *logStats,
		OutputDir:  *outputDir,
		Headless:   *headless || cfg.Renderer.Backend == "terminal",
	}

	switch {
	case *headless:
		err = runHeadless(cfg, opts, *maxSteps)
	case cfg.Renderer.Backend == "terminal":
		err = runTerminal(cfg, opts)
	default:
		err = runWindow(cfg, opts, *maxSteps)
	}
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// loadEffect returns the effect's display name and parsed document.
func loadEffect(cfg *config.Config, name, file string) (string, node.Node, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", node.Node{}, fmt.Errorf("reading effect: %w", err)
		}
		doc, err := node.Parse(data)
		return strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)), doc, err
	}
	if name == "" {
		name = cfg.Effects.Default
	}
	doc, err := effects.Parse(name)
	return name, doc, err
}

// runHeadless is a pure CPU run, no raylib needed.
func runHeadless(cfg *config.Config, opts viewer.Options, maxSteps int) error {
	v, err := viewer.New(cfg, opts)
	if err != nil {
		return err
	}
	defer v.Unload()

	if maxSteps <= 0 {
		slog.Warn("headless run without -max-steps runs until interrupted")
	}
	slog.Info("starting headless run",
		"effect", opts.EffectName,
		"seed", opts.Seed,
		"max_steps", maxSteps,
	)
	for maxSteps <= 0 || v.Steps() < int64(maxSteps) {
		v.UpdateHeadless()
	}
	slog.Info("max steps reached", "step", v.Steps(), "particles", v.Widget().ParticleCount())
	return nil
}

func runTerminal(cfg *config.Config, opts viewer.Options) error {
	v, err := viewer.New(cfg, opts)
	if err != nil {
		return err
	}
	defer v.Unload()

	// Logs would draw over the screen.
	slog.SetDefault(slog.New(slog.DiscardHandler))

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	return v.RunTerminal(screen)
}

func runWindow(cfg *config.Config, opts viewer.Options, maxSteps int) error {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), cfg.Screen.Title)
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	v, err := viewer.New(cfg, opts)
	if err != nil {
		return err
	}
	defer v.Unload()

	for !rl.WindowShouldClose() {
		v.Update(time.Now())
		v.Draw()

		if maxSteps > 0 && v.Steps() >= int64(maxSteps) {
			break
		}
	}
	return nil
}
