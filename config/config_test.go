package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if math.Abs(cfg.Simulation.StepTime-0.02) > 1e-12 {
		t.Errorf("expected step_time 0.02, got %v", cfg.Simulation.StepTime)
	}
	if math.Abs(cfg.Derived.StepsPerS-50) > 1e-9 {
		t.Errorf("expected 50 steps per second, got %v", cfg.Derived.StepsPerS)
	}
	if cfg.Effects.Default == "" {
		t.Error("expected a default effect name")
	}
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte("simulation:\n  step_time: 0.01\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.StepTime != 0.01 {
		t.Errorf("expected overridden step_time 0.01, got %v", cfg.Simulation.StepTime)
	}
	// Untouched sections keep their defaults
	if cfg.Screen.Width != 1280 {
		t.Errorf("expected default width 1280, got %d", cfg.Screen.Width)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero step":       "simulation:\n  step_time: 0\n",
		"unknown backend": "renderer:\n  backend: vulkan\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Simulation.Seed = 99
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Simulation.Seed != 99 {
		t.Errorf("expected seed 99, got %d", back.Simulation.Seed)
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	saved := global
	global = nil
	defer func() {
		global = saved
		if recover() == nil {
			t.Error("expected Cfg to panic before Init")
		}
	}()
	Cfg()
}
