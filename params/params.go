// Package params implements the time-varying scalar parameters used throughout
// particle effects: emission rates, forces, scales and so on.
//
// A parameter is written in an effect file either as a bare number (fixed) or
// as a mapping with a "type" key:
//
//	velocity: 100
//	angle: {type: random, min: 10, max: 30}
//	acceleration:
//	  type: curved_spline
//	  control_point: [[0, 0], [0.5, 40], [1, 0]]
//
// Parameters are immutable once built and may be shared between clones.
package params

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/spline"
	"github.com/tanema/gween/ease"
)

// ErrUnknownType is wrapped when a parameter names a type that does not exist.
var ErrUnknownType = errors.New("unknown parameter type")

// Parameter is a scalar function of time.
type Parameter interface {
	Value(t float64) float64
	// Kind identifies the variant for serialization.
	Kind() Kind
}

// Kind enumerates parameter variants.
type Kind uint8

const (
	KindFixed Kind = iota
	KindRandom
	KindOscillate
	KindCurvedLinear
	KindCurvedSpline
	KindEased
)

var kindNames = [...]string{
	KindFixed:        "fixed",
	KindRandom:       "random",
	KindOscillate:    "oscillate",
	KindCurvedLinear: "curved_linear",
	KindCurvedSpline: "curved_spline",
	KindEased:        "eased",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Fixed returns a constant.
type Fixed struct {
	V float64
}

// NewFixed creates a constant parameter.
func NewFixed(v float64) *Fixed { return &Fixed{V: v} }

func (p *Fixed) Value(float64) float64 { return p.V }
func (p *Fixed) Kind() Kind            { return KindFixed }

// Random returns a fresh uniform sample in [Min, Max) on every call.
type Random struct {
	Min, Max float64
	rng      *rand.Rand
}

// NewRandom creates a random parameter drawing from rng.
func NewRandom(min, max float64, rng *rand.Rand) *Random {
	return &Random{Min: min, Max: max, rng: rng}
}

func (p *Random) Value(float64) float64 {
	return p.Min + p.rng.Float64()*(p.Max-p.Min)
}
func (p *Random) Kind() Kind { return KindRandom }

// Wave selects the oscillator shape.
type Wave uint8

const (
	WaveSine Wave = iota
	WaveSquare
)

// Oscillate is base + amplitude * wave(2*pi*frequency*t + phase).
type Oscillate struct {
	Wave      Wave
	Frequency float64
	Phase     float64
	Base      float64
	Amplitude float64
}

func (p *Oscillate) Value(t float64) float64 {
	s := math.Sin(2*math.Pi*p.Frequency*t + p.Phase)
	if p.Wave == WaveSquare {
		switch {
		case s > 0:
			s = 1
		case s < 0:
			s = -1
		}
	}
	return p.Base + p.Amplitude*s
}
func (p *Oscillate) Kind() Kind { return KindOscillate }

// Eased tweens from From to To over Duration using a named easing curve.
// Time is clamped to [0, Duration].
type Eased struct {
	From, To float64
	Duration float64
	Easing   string
	fn       ease.TweenFunc
}

// NewEased looks up an easing curve by name.
func NewEased(from, to, duration float64, easing string) (*Eased, error) {
	fn, ok := easings[easing]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q", easing)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("eased duration must be positive, got %v", duration)
	}
	return &Eased{From: from, To: to, Duration: duration, Easing: easing, fn: fn}, nil
}

func (p *Eased) Value(t float64) float64 {
	t = math.Max(0, math.Min(p.Duration, t))
	return float64(p.fn(float32(t), float32(p.From), float32(p.To-p.From), float32(p.Duration)))
}
func (p *Eased) Kind() Kind { return KindEased }

// EasingNames lists the supported easing curves.
func EasingNames() []string {
	out := make([]string, 0, len(easingOrder))
	return append(out, easingOrder...)
}

var easingOrder = []string{
	"linear",
	"in_quad", "out_quad", "in_out_quad", "out_in_quad",
	"in_cubic", "out_cubic", "in_out_cubic", "out_in_cubic",
	"in_quart", "out_quart", "in_out_quart", "out_in_quart",
	"in_quint", "out_quint", "in_out_quint", "out_in_quint",
	"in_sine", "out_sine", "in_out_sine", "out_in_sine",
	"in_expo", "out_expo", "in_out_expo", "out_in_expo",
	"in_circ", "out_circ", "in_out_circ", "out_in_circ",
	"in_elastic", "out_elastic", "in_out_elastic", "out_in_elastic",
	"in_back", "out_back", "in_out_back", "out_in_back",
	"in_bounce", "out_bounce", "in_out_bounce", "out_in_bounce",
}

var easings = map[string]ease.TweenFunc{
	"linear":         ease.Linear,
	"in_quad":        ease.InQuad,
	"out_quad":       ease.OutQuad,
	"in_out_quad":    ease.InOutQuad,
	"out_in_quad":    ease.OutInQuad,
	"in_cubic":       ease.InCubic,
	"out_cubic":      ease.OutCubic,
	"in_out_cubic":   ease.InOutCubic,
	"out_in_cubic":   ease.OutInCubic,
	"in_quart":       ease.InQuart,
	"out_quart":      ease.OutQuart,
	"in_out_quart":   ease.InOutQuart,
	"out_in_quart":   ease.OutInQuart,
	"in_quint":       ease.InQuint,
	"out_quint":      ease.OutQuint,
	"in_out_quint":   ease.InOutQuint,
	"out_in_quint":   ease.OutInQuint,
	"in_sine":        ease.InSine,
	"out_sine":       ease.OutSine,
	"in_out_sine":    ease.InOutSine,
	"out_in_sine":    ease.OutInSine,
	"in_expo":        ease.InExpo,
	"out_expo":       ease.OutExpo,
	"in_out_expo":    ease.InOutExpo,
	"out_in_expo":    ease.OutInExpo,
	"in_circ":        ease.InCirc,
	"out_circ":       ease.OutCirc,
	"in_out_circ":    ease.InOutCirc,
	"out_in_circ":    ease.OutInCirc,
	"in_elastic":     ease.InElastic,
	"out_elastic":    ease.OutElastic,
	"in_out_elastic": ease.InOutElastic,
	"out_in_elastic": ease.OutInElastic,
	"in_back":        ease.InBack,
	"out_back":       ease.OutBack,
	"in_out_back":    ease.InOutBack,
	"out_in_back":    ease.OutInBack,
	"in_bounce":      ease.InBounce,
	"out_bounce":     ease.OutBounce,
	"in_out_bounce":  ease.InOutBounce,
	"out_in_bounce":  ease.OutInBounce,
}

// IsFixed reports whether p is a constant parameter.
func IsFixed(p Parameter) bool {
	_, ok := p.(*Fixed)
	return ok
}

// ValueOr evaluates p, or returns def when p is nil.
func ValueOr(p Parameter, t, def float64) float64 {
	if p == nil {
		return def
	}
	return p.Value(t)
}

// controlPoints converts a control point list into spline points.
func controlPoints(n node.Node) ([]spline.Point, error) {
	if !n.IsList() {
		return nil, n.Errorf(node.ErrType, "expected list of [x, y] pairs")
	}
	if n.Len() < 2 {
		return nil, n.Errorf(node.ErrValue, "need at least 2 control points, got %d", n.Len())
	}
	pts := make([]spline.Point, n.Len())
	for i := range pts {
		pair, err := n.Index(i).AsFloats()
		if err != nil {
			return nil, err
		}
		if len(pair) != 2 {
			return nil, n.Index(i).Errorf(node.ErrValue, "expected [x, y], got %d values", len(pair))
		}
		pts[i] = spline.Point{X: pair[0], Y: pair[1]}
		if i > 0 && pts[i].X <= pts[i-1].X {
			return nil, n.Index(i).Errorf(node.ErrValue, "control points must have strictly increasing x")
		}
	}
	return pts, nil
}
