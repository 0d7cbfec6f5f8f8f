package viewer

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// handleInput processes keyboard and mouse input.
func (v *Viewer) handleInput() {
	v.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		v.widget.SetRunning(!v.widget.Running())
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		v.panel.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyH) {
		v.showHUD = !v.showHUD
	}
	if rl.IsKeyPressed(rl.KeyR) {
		if err := v.Reload(); err != nil {
			slog.Error("reload failed", "error", err)
		}
	}

	// Time scale with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) {
		v.nudgeTimeScale(0.8)
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		v.nudgeTimeScale(1.25)
	}

	// Right mouse drags the emitter; the panel keeps the left button.
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		m := rl.GetMousePosition()
		x, y := v.screenToWorld(m.X, m.Y)
		if err := v.widget.SetEmitterPosition([3]float64{x, y, 0}); err != nil {
			slog.Debug("cannot move emitter", "error", err)
		}
	}

	v.handleZoom()
}

func (v *Viewer) nudgeTimeScale(f float64) {
	s, err := v.widget.ScaleTime()
	if err != nil {
		return
	}
	_ = v.widget.SetScaleTime(min(max(s*f, 0.05), float64(v.cfg.Widget.MaxTimeScale)))
}

// handleZoom changes pixels per world unit with the mouse wheel or +/-.
func (v *Viewer) handleZoom() {
	factor := float32(1)
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		factor = 1 + wheel*0.1
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		factor = 1.25
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		factor = 0.8
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		factor = float32(v.cfg.Renderer.PixelsPerUnit) / v.projection.Scale
	}
	if factor == 1 {
		return
	}
	v.projection.Scale = min(max(v.projection.Scale*factor, 0.05), 50)
	v.applyProjection()
}

// handleResize checks for window resize and propagates new dimensions.
func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == v.screenWidth && h == v.screenHeight {
		return
	}
	v.screenWidth = w
	v.screenHeight = h
	v.projection.OriginX = w * float32(v.cfg.Renderer.OriginX)
	v.projection.OriginY = h * float32(v.cfg.Renderer.OriginY)
	v.backdrop.Resize(int32(w), int32(h))
	v.applyProjection()
}

func (v *Viewer) applyProjection() {
	v.backend.Projection = v.projection
	v.backdrop.Projection = v.projection
}

// screenToWorld inverts the projection on the z=0 plane.
func (v *Viewer) screenToWorld(x, y float32) (float64, float64) {
	p := v.projection
	wx := (x - p.OriginX) / p.Scale
	wy := (y - p.OriginY) / p.Scale
	if p.FlipY {
		wy = -wy
	}
	return float64(wx), float64(wy)
}
