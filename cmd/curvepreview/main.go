// Parameter curve preview tool - interactive plot of dynamic parameters
// with sliders and the matching effect YAML.
//
// Usage: go run ./cmd/curvepreview
package main

import (
	"fmt"
	"math"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/psys/params"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	plotSize     = 560
	panelWidth   = windowWidth - plotSize - 40
	sampleCount  = 200
)

// slider draws a labelled slider bar and returns the new value.
func slider(x float32, y *float32, label, format string, v, lo, hi float32) float32 {
	rl.DrawText(label, int32(x), int32(*y), 14, rl.Gray)
	*y += 18
	nv := gui.SliderBar(
		rl.Rectangle{X: x, Y: *y, Width: float32(panelWidth - 80), Height: 20},
		fmt.Sprintf(format, lo), fmt.Sprintf(format, hi),
		v, lo, hi,
	)
	rl.DrawText(fmt.Sprintf(format, v), int32(x+float32(panelWidth-70)), int32(*y+2), 16, rl.DarkGray)
	*y += 35
	return nv
}

func main() {
	rl.InitWindow(windowWidth, windowHeight, "Parameter Curve Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	state := DefaultState()
	var clock float64
	animating := true

	for !rl.WindowShouldClose() {
		p, err := state.Param()
		span := state.Span()
		if animating && span > 0 {
			clock = math.Mod(clock+float64(rl.GetFrameTime()), span)
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		plotRect := rl.Rectangle{X: 10, Y: 10, Width: plotSize, Height: plotSize}
		rl.DrawRectangleLinesEx(plotRect, 1, rl.DarkGray)
		if err != nil {
			rl.DrawText(err.Error(), 20, 20, 16, rl.Red)
		} else {
			drawPlot(plotRect, p, span, clock)
		}

		// Control panel
		panelX := float32(plotSize + 30)
		panelY := float32(10)
		rl.DrawText("Parameter: "+state.Mode.String(), int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Next Type") {
			state.Mode = (state.Mode + 1) % modeCount
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, toggleText(animating, "Stop", "Animate")) {
			animating = !animating
		}
		panelY += 45

		switch state.Mode {
		case ModeOscillate:
			if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 26}, toggleText(state.Square, "Square", "Sine")) {
				state.Square = !state.Square
			}
			panelY += 36
			state.Frequency = slider(panelX, &panelY, "Frequency (Hz)", "%.2f", state.Frequency, 0.05, 5)
			state.Base = slider(panelX, &panelY, "Base", "%.2f", state.Base, -2, 2)
			state.Amplitude = slider(panelX, &panelY, "Amplitude", "%.2f", state.Amplitude, 0, 2)
			state.Phase = slider(panelX, &panelY, "Phase (radians)", "%.2f", state.Phase, 0, 2*math.Pi)
		case ModeEased:
			names := params.EasingNames()
			rl.DrawText("Easing: "+names[state.Easing], int32(panelX), int32(panelY), 16, rl.DarkGray)
			panelY += 22
			state.Easing = int(slider(panelX, &panelY, "Curve", "%.0f", float32(state.Easing), 0, float32(len(names)-1)))
			state.From = slider(panelX, &panelY, "From", "%.2f", state.From, -2, 2)
			state.To = slider(panelX, &panelY, "To", "%.2f", state.To, -2, 2)
			state.Duration = slider(panelX, &panelY, "Duration (s)", "%.2f", state.Duration, 0.1, 5)
		case ModeCurved:
			if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 26}, toggleText(state.Spline, "Spline", "Linear")) {
				state.Spline = !state.Spline
			}
			panelY += 36
			for i := range state.Ys {
				label := fmt.Sprintf("Point at t=%.2f", float64(i)/(curvePoints-1))
				state.Ys[i] = slider(panelX, &panelY, label, "%.2f", state.Ys[i], -1, 2)
			}
		}

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			mode := state.Mode
			state = DefaultState()
			state.Mode = mode
			clock = 0
		}
		panelY += 45

		if err == nil {
			text, yerr := YAML("value", p)
			if yerr != nil {
				text = yerr.Error()
			}
			rl.DrawText("YAML:", int32(panelX), int32(panelY), 16, rl.DarkGray)
			panelY += 25
			for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
				rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
				panelY += 16
			}
			rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
			if rl.IsKeyPressed(rl.KeyC) && yerr == nil {
				rl.SetClipboardText(text)
			}
		}

		rl.EndDrawing()
	}
}

// drawPlot draws the curve over [0, span] inside r with a marker at clock.
func drawPlot(r rl.Rectangle, p params.Parameter, span, clock float64) {
	vals, lo, hi := Sample(p, span, sampleCount)
	pad := (hi - lo) * 0.1
	lo, hi = lo-pad, hi+pad
	toScreen := func(t, v float64) rl.Vector2 {
		return rl.Vector2{
			X: r.X + float32(t/span)*r.Width,
			Y: r.Y + r.Height - float32((v-lo)/(hi-lo))*r.Height,
		}
	}

	if lo < 0 && hi > 0 {
		zero := toScreen(0, 0)
		rl.DrawLine(int32(r.X), int32(zero.Y), int32(r.X+r.Width), int32(zero.Y), rl.LightGray)
	}
	pts := make([]rl.Vector2, len(vals))
	for i, v := range vals {
		pts[i] = toScreen(span*float64(i)/float64(len(vals)-1), v)
	}
	rl.DrawLineStrip(pts, rl.DarkBlue)

	marker := toScreen(clock, p.Value(clock))
	rl.DrawLine(int32(marker.X), int32(r.Y), int32(marker.X), int32(r.Y+r.Height), rl.Fade(rl.Red, 0.3))
	rl.DrawCircleV(marker, 5, rl.Red)

	rl.DrawText(fmt.Sprintf("%.2f", hi), int32(r.X)+4, int32(r.Y)+4, 12, rl.Gray)
	rl.DrawText(fmt.Sprintf("%.2f", lo), int32(r.X)+4, int32(r.Y+r.Height)-16, 12, rl.Gray)
	rl.DrawText(fmt.Sprintf("t=%.2fs  value=%.3f  span=%.2fs", clock, p.Value(clock), span), int32(r.X), int32(r.Y+r.Height)+10, 16, rl.DarkGray)
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
