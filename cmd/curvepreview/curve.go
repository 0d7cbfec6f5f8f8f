package main

import (
	"math"

	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/params"
	"github.com/pthm-cable/psys/spline"
)

// Mode selects which parameter type is being edited.
type Mode int

const (
	ModeOscillate Mode = iota
	ModeEased
	ModeCurved
	modeCount
)

func (m Mode) String() string {
	switch m {
	case ModeOscillate:
		return "oscillate"
	case ModeEased:
		return "eased"
	}
	return "curved"
}

const curvePoints = 5

// CurveState holds every slider of the preview.
type CurveState struct {
	Mode Mode

	// Oscillate
	Square    bool
	Frequency float32
	Base      float32
	Amplitude float32
	Phase     float32

	// Eased
	Easing   int // index into params.EasingNames
	From, To float32
	Duration float32

	// Curved, control points evenly spaced over [0,1]
	Spline bool
	Ys     [curvePoints]float32
}

// DefaultState returns the starting slider values.
func DefaultState() CurveState {
	return CurveState{
		Frequency: 1,
		Amplitude: 1,
		From:      0,
		To:        1,
		Duration:  1,
		Ys:        [curvePoints]float32{0, 0.8, 1, 0.6, 0},
	}
}

// Param builds the parameter the sliders describe.
func (s CurveState) Param() (params.Parameter, error) {
	switch s.Mode {
	case ModeOscillate:
		p := &params.Oscillate{
			Wave:      params.WaveSine,
			Frequency: float64(s.Frequency),
			Phase:     float64(s.Phase),
			Base:      float64(s.Base),
			Amplitude: float64(s.Amplitude),
		}
		if s.Square {
			p.Wave = params.WaveSquare
		}
		return p, nil
	case ModeEased:
		names := params.EasingNames()
		name := names[min(max(s.Easing, 0), len(names)-1)]
		return params.NewEased(float64(s.From), float64(s.To), float64(s.Duration), name)
	}
	pts := make([]spline.Point, curvePoints)
	for i, y := range s.Ys {
		pts[i] = spline.Point{X: float64(i) / (curvePoints - 1), Y: float64(y)}
	}
	if s.Spline {
		return params.NewCurvedSpline(pts)
	}
	return params.NewCurvedLinear(pts)
}

// Span returns the time range worth plotting for the current mode.
func (s CurveState) Span() float64 {
	switch s.Mode {
	case ModeOscillate:
		if s.Frequency > 0 {
			return 2 / float64(s.Frequency)
		}
		return 1
	case ModeEased:
		return float64(s.Duration)
	}
	return 1
}

// Sample evaluates p at n evenly spaced times over [0, span] and returns
// the values with their range.
func Sample(p params.Parameter, span float64, n int) (vals []float64, lo, hi float64) {
	vals = make([]float64, n)
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := range vals {
		t := span * float64(i) / float64(n-1)
		vals[i] = p.Value(t)
		lo = math.Min(lo, vals[i])
		hi = math.Max(hi, vals[i])
	}
	if hi-lo < 1e-9 {
		lo, hi = lo-0.5, hi+0.5
	}
	return vals, lo, hi
}

// YAML renders p as it would appear in an effect file.
func YAML(key string, p params.Parameter) (string, error) {
	m := node.NewMap()
	m.Set(key, params.Write(p))
	data, err := node.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
