package viewer

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/psys/config"
	"github.com/pthm-cable/psys/effects"
	"github.com/pthm-cable/psys/renderer"
)

func init() {
	slog.SetDefault(slog.New(slog.DiscardHandler))
}

func newHeadless(t *testing.T, effect, outputDir string) *Viewer {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	doc, err := effects.Parse(effect)
	if err != nil {
		t.Fatalf("effects.Parse: %v", err)
	}
	v, err := New(cfg, Options{Seed: 7, Effect: doc, EffectName: effect, OutputDir: outputDir, Headless: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(v.Unload)
	return v
}

func TestHeadlessRunWritesOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	v := newHeadless(t, "fountain", dir)
	// Two stats windows at the default interval.
	for i := 0; i < 100; i++ {
		v.UpdateHeadless()
	}
	if v.Steps() != 100 {
		t.Fatalf("expected 100 steps, got %d", v.Steps())
	}
	v.Unload()

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 3 {
		t.Errorf("expected header and two windows, got %d lines", len(lines))
	}
	for _, name := range []string{"perf.csv", "bookmarks.csv", "config.yaml", "effect.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

func TestHeadlessSimpleEffect(t *testing.T) {
	v := newHeadless(t, "campfire", "")
	if len(v.Widget().SimpleSystems()) != 1 {
		t.Fatalf("expected one hosted simple system, got %d", len(v.Widget().SimpleSystems()))
	}
	peak := 0
	for i := 0; i < 150; i++ {
		v.UpdateHeadless()
		peak = max(peak, v.Widget().ParticleCount())
	}
	if peak == 0 {
		t.Error("expected the campfire to emit")
	}
}

func TestReloadRestartsEffect(t *testing.T) {
	v := newHeadless(t, "fountain", "")
	fresh := v.Widget().ParticleCount()
	for i := 0; i < 20; i++ {
		v.UpdateHeadless()
	}
	v.Widget().SetRunning(false)

	if err := v.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if v.Steps() != 0 {
		t.Errorf("expected the step count to restart, got %d", v.Steps())
	}
	if got := v.Widget().ParticleCount(); got != fresh {
		t.Errorf("expected %d particles after reload, got %d", fresh, got)
	}
	if v.Widget().Running() {
		t.Error("expected reload to keep the widget stopped")
	}
}

func TestScreenToWorld(t *testing.T) {
	v := &Viewer{projection: renderer.Projection{Scale: 2, OriginX: 100, OriginY: 300, FlipY: true}}
	x, y := v.screenToWorld(120, 260)
	if x != 10 || y != 20 {
		t.Errorf("expected (10, 20), got (%v, %v)", x, y)
	}
	px, py := v.projection.Apply([3]float32{float32(x), float32(y), 0})
	if px != 120 || py != 260 {
		t.Errorf("expected the projection to invert, got (%v, %v)", px, py)
	}
}

func TestTerminalKeys(t *testing.T) {
	v := newHeadless(t, "fountain", "")
	if !v.handleTerminalKey(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)) || v.Widget().Running() {
		t.Error("expected space to stop the widget")
	}

	before, _ := v.Widget().ScaleTime()
	v.handleTerminalKey(tcell.NewEventKey(tcell.KeyRune, '.', tcell.ModNone))
	if after, _ := v.Widget().ScaleTime(); after <= before {
		t.Errorf("expected '.' to speed up time, got %v from %v", after, before)
	}

	if v.handleTerminalKey(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Error("expected q to quit")
	}
	if v.handleTerminalKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Error("expected Esc to quit")
	}
}

func TestTerminalProjectionFitsHeight(t *testing.T) {
	v := newHeadless(t, "fountain", "")
	p := v.terminalProjection(100, 40)
	if p.OriginX != 50 || p.OriginY != 30 {
		t.Errorf("expected origin (50, 30), got (%v, %v)", p.OriginX, p.OriginY)
	}
	if want := float32(40) / 800; p.Scale != want {
		t.Errorf("expected scale %v, got %v", want, p.Scale)
	}
}
