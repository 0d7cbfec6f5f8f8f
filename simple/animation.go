package simple

import (
	"github.com/pthm-cable/psys/node"
)

// Frame is one cell of a sprite sheet animation. Adjust values trim the
// quad edges in world units.
type Frame struct {
	U1, V1, U2, V2   float32
	XAdjust, YAdjust int
	X2Adjust         int
	Y2Adjust         int
}

// Animation is a strip of frames cut from one texture.
type Animation struct {
	ID       string
	Texture  string
	Width    int
	Height   int
	Duration int
	Reverse  bool
	Loops    bool
	Frames   []Frame
}

// defaultAnimation is a single full-texture frame used when a system
// configures no animation.
func defaultAnimation() *Animation {
	return &Animation{Width: 2, Height: 2, Duration: 1, Frames: []Frame{{U2: 1, V2: 1}}}
}

// Frame returns the frame shown t cycles after spawn.
func (a *Animation) Frame(t int) Frame {
	n := len(a.Frames)
	index := t / a.Duration
	switch {
	case index < 0:
		index = 0
	case index >= n && a.Loops && a.Reverse:
		if index%(2*n) >= n {
			index = n - 1 - index%n
		} else {
			index %= n
		}
	case index >= n && a.Loops:
		index %= n
	case index >= n:
		index = n - 1
	}
	return a.Frames[index]
}

// parseAnimation reads one entry of an animation list. Frames are laid out
// left to right from the base rect, wrapping after frames_per_row.
func parseAnimation(n node.Node) (*Animation, error) {
	a := &Animation{}
	var err error
	if a.ID, err = n.StringOr("id", ""); err != nil {
		return nil, err
	}
	if a.Texture, err = n.StringOr("image", ""); err != nil {
		return nil, err
	}
	if a.Duration, err = n.IntOr("duration", 1); err != nil {
		return nil, err
	}
	if a.Duration < 1 {
		return nil, n.Get("duration").Errorf(node.ErrValue, "must be at least 1")
	}
	if a.Reverse, err = n.BoolOr("reverse", false); err != nil {
		return nil, err
	}
	if a.Loops, err = n.BoolOr("loops", false); err != nil {
		return nil, err
	}

	var x, y, w, h int
	if n.Has("rect") {
		r, err := n.Get("rect").AsFloats()
		if err != nil {
			return nil, err
		}
		if len(r) != 4 {
			return nil, n.Get("rect").Errorf(node.ErrValue, "expected [x, y, w, h]")
		}
		x, y, w, h = int(r[0]), int(r[1]), int(r[2]), int(r[3])
	} else if err := readInts(n, []intField{
		{"x", &x, 0}, {"y", &y, 0}, {"w", &w, 1}, {"h", &h, 1},
	}); err != nil {
		return nil, err
	}

	var scale, frames, perRow, pad int
	if err := readInts(n, []intField{
		{"scale", &scale, 2},
		{"frames", &frames, 1},
		{"frames_per_row", &perRow, -1},
		{"pad", &pad, 0},
	}); err != nil {
		return nil, err
	}
	frames = max(frames, 1)
	a.Width = w * scale
	a.Height = h * scale

	cols := frames
	if perRow > 0 {
		cols = min(frames, perRow)
	}
	rows := (frames + cols - 1) / cols
	var texW, texH int
	if err := readInts(n, []intField{
		{"texture_width", &texW, x + cols*(w+pad) - pad},
		{"texture_height", &texH, y + rows*(h+pad) - pad},
	}); err != nil {
		return nil, err
	}
	if texW <= 0 || texH <= 0 {
		return nil, n.Errorf(node.ErrValue, "texture size must be positive")
	}

	row, col := 0, 0
	for i := 0; i < frames; i++ {
		fx := x + col*(w+pad)
		fy := y + row*(h+pad)
		a.Frames = append(a.Frames, Frame{
			U1: float32(fx) / float32(texW),
			V1: float32(fy) / float32(texH),
			U2: float32(fx+w) / float32(texW),
			V2: float32(fy+h) / float32(texH),
		})
		col++
		if col == perRow {
			col = 0
			row++
		}
	}
	return a, nil
}

type intField struct {
	key string
	dst *int
	def int
}

func readInts(n node.Node, fields []intField) error {
	for _, f := range fields {
		v, err := n.IntOr(f.key, f.def)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}

func readIntList(n node.Node, key string) ([]int, error) {
	if !n.Has(key) {
		return nil, nil
	}
	fs, err := n.Get(key).AsFloats()
	if err != nil {
		return nil, err
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		out[i] = int(f)
	}
	return out, nil
}
