package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Backdrop draws a vertical gradient behind the particles, with optional
// world grid lines and the world axes.
type Backdrop struct {
	Projection Projection
	Top        rl.Color
	Bottom     rl.Color
	GridColor  rl.Color
	AxisColor  rl.Color
	GridStep   float32 // World units between grid lines (0 = no grid)

	screenW, screenH int32
}

// NewBackdrop creates a backdrop whose gradient runs from base at the
// bottom to a darker tone at the top.
func NewBackdrop(p Projection, screenW, screenH int32, base rl.Color) *Backdrop {
	return &Backdrop{
		Projection: p,
		Top:        rl.Color{R: base.R / 2, G: base.G / 2, B: base.B / 2, A: 255},
		Bottom:     base,
		GridColor:  rl.Color{R: 255, G: 255, B: 255, A: 12},
		AxisColor:  rl.Color{R: 255, G: 255, B: 255, A: 30},
		GridStep:   50,
		screenW:    screenW,
		screenH:    screenH,
	}
}

// Resize updates the screen dimensions.
func (b *Backdrop) Resize(w, h int32) {
	b.screenW, b.screenH = w, h
}

// Draw renders the gradient, grid and axes.
func (b *Backdrop) Draw() {
	rl.DrawRectangleGradientV(0, 0, b.screenW, b.screenH, b.Top, b.Bottom)

	ox, oy := b.Projection.Apply([3]float32{})
	if step := b.GridStep * b.Projection.Scale; step >= 4 {
		for _, x := range gridLines(ox, step, float32(b.screenW)) {
			rl.DrawLine(int32(x), 0, int32(x), b.screenH, b.GridColor)
		}
		for _, y := range gridLines(oy, step, float32(b.screenH)) {
			rl.DrawLine(0, int32(y), b.screenW, int32(y), b.GridColor)
		}
	}
	rl.DrawLine(int32(ox), 0, int32(ox), b.screenH, b.AxisColor)
	rl.DrawLine(0, int32(oy), b.screenW, int32(oy), b.AxisColor)
}

// gridLines returns the screen coordinates in [0, extent) of lines spaced
// step apart and passing through origin.
func gridLines(origin, step, extent float32) []float32 {
	first := origin - step*float32(math.Floor(float64(origin/step)))
	var out []float32
	for v := first; v < extent; v += step {
		out = append(out, v)
	}
	return out
}
