package widget

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/psys/params"
)

// Theme holds panel styling constants.
type Theme struct {
	PanelBg     rl.Color
	PanelBorder rl.Color
	Title       rl.Color
	LabelColor  rl.Color
	ValueColor  rl.Color
	Padding     float32
	LineHeight  float32
	FontSize    int32
}

// DefaultTheme returns the default panel theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:     rl.Color{R: 20, G: 25, B: 30, A: 240},
		PanelBorder: rl.Color{R: 60, G: 70, B: 80, A: 255},
		Title:       rl.Yellow,
		LabelColor:  rl.LightGray,
		ValueColor:  rl.RayWhite,
		Padding:     10,
		LineHeight:  18,
		FontSize:    12,
	}
}

// Panel is the raygui control panel for a widget: a running toggle, a time
// scale slider and an emission rate slider for the active emitter.
type Panel struct {
	X, Y, Width  float32
	MaxTimeScale float32
	MaxEmission  float32
	Theme        Theme
	visible      bool
}

// NewPanel creates a visible panel.
func NewPanel(x, y, width, maxTimeScale, maxEmission float32) *Panel {
	return &Panel{
		X:            x,
		Y:            y,
		Width:        width,
		MaxTimeScale: maxTimeScale,
		MaxEmission:  maxEmission,
		Theme:        DefaultTheme(),
		visible:      true,
	}
}

// Toggle switches panel visibility.
func (p *Panel) Toggle() bool {
	p.visible = !p.visible
	return p.visible
}

// Draw renders the panel and applies any edits to w.
func (p *Panel) Draw(w *Widget) {
	if !p.visible {
		return
	}
	th := p.Theme
	height := th.Padding*2 + th.LineHeight*8 + 30
	rl.DrawRectangle(int32(p.X), int32(p.Y), int32(p.Width), int32(height), th.PanelBg)
	rl.DrawRectangleLines(int32(p.X), int32(p.Y), int32(p.Width), int32(height), th.PanelBorder)

	x := p.X + th.Padding
	y := p.Y + th.Padding
	inner := p.Width - th.Padding*2

	rl.DrawText("Particles", int32(x), int32(y), th.FontSize+2, th.Title)
	y += th.LineHeight + 4

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: inner, Height: 24}, toggleText(w.Running(), "Stop", "Run")) {
		w.SetRunning(!w.Running())
	}
	y += 30

	p.label(x, y, "Particles", fmt.Sprintf("%d", w.ParticleCount()))
	y += th.LineHeight

	if scale, err := w.ScaleTime(); err == nil {
		p.label(x, y, "Time scale", fmt.Sprintf("%.2f", scale))
		y += th.LineHeight
		v := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: inner, Height: 14}, "", "", float32(scale), 0, p.MaxTimeScale)
		if v != float32(scale) {
			_ = w.SetScaleTime(float64(v))
		}
		y += th.LineHeight + 4
	}

	if rate, err := w.EmissionRate(); err == nil {
		// Only fixed rates are sampled; a random rate would draw from the
		// container's source.
		var current float32
		text := rate.Kind().String()
		if params.IsFixed(rate) {
			current = float32(rate.Value(0))
			text = fmt.Sprintf("%.1f/s", current)
		}
		p.label(x, y, "Emission", text)
		y += th.LineHeight
		v := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: inner, Height: 14}, "", "", current, 0, p.MaxEmission)
		// Dragging replaces a curve with a fixed rate.
		if v != current {
			_ = w.SetEmissionRate(params.NewFixed(float64(v)))
		}
	}
}

func (p *Panel) label(x, y float32, label, value string) {
	th := p.Theme
	rl.DrawText(label+":", int32(x), int32(y), th.FontSize, th.LabelColor)
	rl.DrawText(value, int32(x)+90, int32(y), th.FontSize, th.ValueColor)
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
