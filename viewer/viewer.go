// Package viewer runs an effect: in a raylib window with a control panel,
// or headless for telemetry runs.
package viewer

import (
	"fmt"
	"log/slog"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/psys/config"
	"github.com/pthm-cable/psys/effects"
	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/particles"
	"github.com/pthm-cable/psys/renderer"
	"github.com/pthm-cable/psys/telemetry"
	"github.com/pthm-cable/psys/widget"
)

// Options configures a Viewer.
type Options struct {
	Seed       int64
	Effect     node.Node // Parsed effect document
	EffectName string    // For logs only
	LogStats   bool
	OutputDir  string // Empty disables CSV output
	Headless   bool
}

// Viewer holds the running effect and everything that watches it.
type Viewer struct {
	cfg    *config.Config
	opts   Options
	widget *widget.Widget

	perfCollector    *telemetry.PerfCollector
	collector        *telemetry.Collector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager

	// Graphics only
	projection renderer.Projection
	backend    *renderer.Raylib
	backdrop   *renderer.Backdrop
	panel      *widget.Panel
	showHUD    bool

	screenWidth, screenHeight float32
}

// New loads the effect and sets up telemetry. Graphics resources are
// created only when Headless is false, so the raylib window must already
// be open.
func New(cfg *config.Config, opts Options) (*Viewer, error) {
	v := &Viewer{
		cfg:              cfg,
		opts:             opts,
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		collector:        telemetry.NewCollector(cfg.Telemetry.StatsInterval, cfg.Simulation.StepTime),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		showHUD:          true,
	}

	w, err := v.load()
	if err != nil {
		return nil, err
	}
	v.widget = w

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	v.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}
	if data, err := node.Marshal(opts.Effect.Raw()); err == nil {
		if err := om.WriteEffect(data); err != nil {
			slog.Error("failed to write effect", "error", err)
		}
	}

	if !opts.Headless {
		v.initGraphics()
	}
	return v, nil
}

// load builds a widget around a fresh container for the effect. Simple
// system documents get an empty container and one hosted simple system.
func (v *Viewer) load() (*widget.Widget, error) {
	copts := []particles.Option{
		particles.WithSeed(v.opts.Seed),
		particles.WithPhaseTimer(v.perfCollector),
	}
	wopts := []widget.Option{
		widget.WithStepTime(v.cfg.Simulation.StepTime),
		widget.WithMaxSteps(v.cfg.Simulation.MaxStepsPerFrame),
		widget.WithPerf(v.perfCollector),
	}

	if effects.IsSimple(v.opts.Effect) {
		w := widget.New(particles.NewContainer(copts...), wopts...)
		kind, err := v.opts.Effect.StringOr("type", "simple")
		if err != nil {
			return nil, err
		}
		if _, err := w.Create(kind, v.opts.Effect); err != nil {
			return nil, fmt.Errorf("creating %s system: %w", kind, err)
		}
		return w, nil
	}

	c, err := particles.Load(v.opts.Effect, copts...)
	if err != nil {
		return nil, fmt.Errorf("loading effect %q: %w", v.opts.EffectName, err)
	}
	return widget.New(c, wopts...), nil
}

// Reload restarts the effect from its document with the same seed.
func (v *Viewer) Reload() error {
	w, err := v.load()
	if err != nil {
		return err
	}
	w.SetRunning(v.widget.Running())
	v.widget = w
	// Step numbering restarts with the new widget.
	v.collector = telemetry.NewCollector(v.cfg.Telemetry.StatsInterval, v.cfg.Simulation.StepTime)
	v.bookmarkDetector = telemetry.NewBookmarkDetector(10)
	slog.Info("effect reloaded", "effect", v.opts.EffectName)
	return nil
}

func (v *Viewer) initGraphics() {
	rc := v.cfg.Renderer
	v.screenWidth = v.cfg.Derived.ScreenW32
	v.screenHeight = v.cfg.Derived.ScreenH32
	v.projection = renderer.Projection{
		Scale:   float32(rc.PixelsPerUnit),
		OriginX: v.cfg.Derived.OriginPxX,
		OriginY: v.cfg.Derived.OriginPxY,
		FlipY:   rc.FlipY,
	}
	bg := rl.Color{R: uint8(rc.Background[0]), G: uint8(rc.Background[1]), B: uint8(rc.Background[2]), A: 255}
	v.backend = renderer.NewRaylib(v.projection, bg, "textures")
	v.backdrop = renderer.NewBackdrop(v.projection, int32(v.screenWidth), int32(v.screenHeight), bg)
	wc := v.cfg.Widget
	v.panel = widget.NewPanel(wc.PanelX, wc.PanelY, wc.PanelWidth, wc.MaxTimeScale, wc.MaxEmission)
}

// Widget returns the hosting widget.
func (v *Viewer) Widget() *widget.Widget { return v.widget }

// Steps returns the number of simulation steps run.
func (v *Viewer) Steps() int64 { return v.widget.Steps() }

// Update handles input and advances the effect by the wall time elapsed.
func (v *Viewer) Update(now time.Time) {
	v.handleInput()
	v.perfCollector.RecordFrame()
	if v.widget.Process(now) > 0 {
		v.flushTelemetry()
	}
}

// UpdateHeadless runs one fixed step.
func (v *Viewer) UpdateHeadless() {
	v.widget.Step()
	v.flushTelemetry()
}

// Draw renders one frame.
func (v *Viewer) Draw() {
	v.backend.BeginFrame()
	v.backdrop.Draw()
	v.widget.Draw(v.backend)
	v.panel.Draw(v.widget)
	if v.showHUD {
		v.drawHUD()
	}
	v.backend.EndFrame()
}

// Unload frees graphics resources and closes output files.
func (v *Viewer) Unload() {
	if v.backend != nil {
		if err := v.backend.Close(); err != nil {
			slog.Error("failed to close renderer", "error", err)
		}
	}
	if err := v.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
