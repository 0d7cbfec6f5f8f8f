package renderer

import (
	"github.com/gdamore/tcell/v2"
)

// densityGlyphs shade a cell by how many particles landed on it this frame.
var densityGlyphs = []rune{'·', '•', '●', '█'}

// Terminal plots one cell per particle into a tcell screen. Projection
// scale is in cells per world unit.
type Terminal struct {
	Projection Projection

	screen tcell.Screen
	hits   map[[2]int]int
}

// NewTerminal wraps an initialised screen.
func NewTerminal(screen tcell.Screen, p Projection) *Terminal {
	return &Terminal{Projection: p, screen: screen, hits: make(map[[2]int]int)}
}

// Screen returns the underlying screen.
func (t *Terminal) Screen() tcell.Screen { return t.screen }

// BeginFrame clears the screen.
func (t *Terminal) BeginFrame() {
	t.screen.Clear()
	clear(t.hits)
}

// Draw plots a batch. Quads are plotted at their centre, points as is.
func (t *Terminal) Draw(b Batch) {
	if b.Primitive == Points {
		for i := range b.Vertices {
			t.plot(b.Vertices[i].Pos, b.Vertices[i].Color)
		}
		return
	}
	for i := 0; i+VerticesPerParticle <= len(b.Vertices); i += VerticesPerParticle {
		t.plot(quadCentre(b.Vertices, i), b.Vertices[i].Color)
	}
}

func (t *Terminal) plot(pos [3]float32, c [4]uint8) {
	fx, fy := t.Projection.Apply(pos)
	x, y := int(fx), int(fy)
	w, h := t.screen.Size()
	if fx < 0 || fy < 0 || x >= w || y >= h || c[3] == 0 {
		return
	}
	key := [2]int{x, y}
	n := min(t.hits[key], len(densityGlyphs)-1)
	t.hits[key]++
	// Alpha dims the colour; terminals have no blending.
	a := int32(c[3])
	col := tcell.NewRGBColor(int32(c[0])*a/255, int32(c[1])*a/255, int32(c[2])*a/255)
	t.screen.SetContent(x, y, densityGlyphs[n], nil, tcell.StyleDefault.Foreground(col))
}

// EndFrame shows the frame.
func (t *Terminal) EndFrame() {
	t.screen.Show()
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	t.screen.Fini()
	return nil
}
