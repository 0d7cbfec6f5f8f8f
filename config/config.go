// Package config provides configuration loading and access for the particle engine host.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all application configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Simulation SimulationConfig `yaml:"simulation"`
	Renderer   RendererConfig   `yaml:"renderer"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Widget     WidgetConfig     `yaml:"widget"`
	Effects    EffectsConfig    `yaml:"effects"`
	Tune       TuneConfig       `yaml:"tune"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	TargetFPS int    `yaml:"target_fps"`
	Title     string `yaml:"title"`
}

// SimulationConfig holds stepping parameters shared by every particle system.
type SimulationConfig struct {
	StepTime         float64 `yaml:"step_time"`           // Fixed step in seconds (1/50 by default)
	MaxStepsPerFrame int     `yaml:"max_steps_per_frame"` // Accumulator cap; excess wall time is dropped
	Seed             int64   `yaml:"seed"`                // 0 = seed from the clock
}

// RendererConfig holds world-to-screen mapping and backend choice.
type RendererConfig struct {
	Backend       string  `yaml:"backend"`         // "raylib" or "terminal"
	PixelsPerUnit float64 `yaml:"pixels_per_unit"` // World units to screen pixels
	OriginX       float64 `yaml:"origin_x"`        // Screen-space origin as a fraction of width
	OriginY       float64 `yaml:"origin_y"`        // Screen-space origin as a fraction of height
	FlipY         bool    `yaml:"flip_y"`          // World +Y points up on screen
	Background    [3]int  `yaml:"background"`      // Clear colour
}

// TelemetryConfig holds perf and stats collection parameters.
type TelemetryConfig struct {
	PerfWindow    int     `yaml:"perf_window"`    // Steps averaged by the perf collector
	StatsInterval float64 `yaml:"stats_interval"` // Seconds between particle stats windows
}

// WidgetConfig holds control panel geometry.
type WidgetConfig struct {
	PanelX       float32 `yaml:"panel_x"`
	PanelY       float32 `yaml:"panel_y"`
	PanelWidth   float32 `yaml:"panel_width"`
	MaxTimeScale float32 `yaml:"max_time_scale"`
	MaxEmission  float32 `yaml:"max_emission"`
}

// EffectsConfig selects the effect loaded at startup.
type EffectsConfig struct {
	Default string `yaml:"default"` // Name in the embedded effect library
}

// TuneConfig holds emission tuner settings.
type TuneConfig struct {
	Evaluations int     `yaml:"evaluations"` // Objective evaluations per run
	SimSeconds  float64 `yaml:"sim_seconds"` // Simulated seconds per evaluation
	MinRate     float64 `yaml:"min_rate"`
	MaxRate     float64 `yaml:"max_rate"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ScreenW32 float32 // Screen.Width as float32
	ScreenH32 float32 // Screen.Height as float32
	StepsPerS float64 // 1 / Simulation.StepTime
	OriginPxX float32 // Renderer.OriginX in pixels
	OriginPxY float32 // Renderer.OriginY in pixels
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Simulation.StepTime <= 0 {
		return fmt.Errorf("simulation.step_time must be positive, got %v", c.Simulation.StepTime)
	}
	switch c.Renderer.Backend {
	case "raylib", "terminal":
	default:
		return fmt.Errorf("renderer.backend: unknown backend %q", c.Renderer.Backend)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)
	c.Derived.StepsPerS = 1 / c.Simulation.StepTime
	c.Derived.OriginPxX = float32(c.Renderer.OriginX) * c.Derived.ScreenW32
	c.Derived.OriginPxY = float32(c.Renderer.OriginY) * c.Derived.ScreenH32

	if c.Simulation.MaxStepsPerFrame < 1 {
		c.Simulation.MaxStepsPerFrame = 1
	}
	if c.Telemetry.PerfWindow < 1 {
		c.Telemetry.PerfWindow = 60
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
