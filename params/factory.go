package params

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/psys/node"
	"github.com/pthm-cable/psys/spline"
)

// Factory builds a parameter from its configuration node.
func Factory(n node.Node, rng *rand.Rand) (Parameter, error) {
	if n.IsNumber() {
		v, _ := n.AsFloat()
		return NewFixed(v), nil
	}
	if !n.IsMap() {
		return nil, n.Errorf(node.ErrType, "parameter must be a number or a map with a type")
	}

	typ, err := n.String("type")
	if err != nil {
		return nil, err
	}

	switch typ {
	case "fixed":
		v, err := n.FloatOr("value", 0)
		if err != nil {
			return nil, err
		}
		return NewFixed(v), nil

	case "random":
		lo, err := n.FloatOr("min", 0.1)
		if err != nil {
			return nil, err
		}
		hi, err := n.FloatOr("max", 1.0)
		if err != nil {
			return nil, err
		}
		return NewRandom(lo, hi, rng), nil

	case "oscillate":
		return oscillateFrom(n)

	case "curved_linear", "curved_spline":
		cp, err := n.Child("control_point")
		if err != nil {
			return nil, err
		}
		pts, err := controlPoints(cp)
		if err != nil {
			return nil, err
		}
		if typ == "curved_linear" {
			return NewCurvedLinear(pts)
		}
		return NewCurvedSpline(pts)

	case "eased":
		from, err := n.FloatOr("from", 0)
		if err != nil {
			return nil, err
		}
		to, err := n.FloatOr("to", 1)
		if err != nil {
			return nil, err
		}
		dur, err := n.FloatOr("duration", 1)
		if err != nil {
			return nil, err
		}
		name, err := n.StringOr("easing", "linear")
		if err != nil {
			return nil, err
		}
		p, err := NewEased(from, to, dur, name)
		if err != nil {
			return nil, n.Errorf(node.ErrValue, "%v", err)
		}
		return p, nil
	}

	return nil, n.Get("type").Errorf(ErrUnknownType, "%q", typ)
}

func oscillateFrom(n node.Node) (*Oscillate, error) {
	p := &Oscillate{Frequency: 1}
	var err error
	if p.Frequency, err = n.FloatOr("oscillate_frequency", 1); err != nil {
		return nil, err
	}
	if p.Phase, err = n.FloatOr("oscillate_phase", 0); err != nil {
		return nil, err
	}
	if p.Base, err = n.FloatOr("oscillate_base", 0); err != nil {
		return nil, err
	}
	if p.Amplitude, err = n.FloatOr("oscillate_amplitude", 1); err != nil {
		return nil, err
	}
	wave, err := n.StringOr("oscillate_type", "sine")
	if err != nil {
		return nil, err
	}
	switch wave {
	case "sine", "sin":
		p.Wave = WaveSine
	case "square", "sq":
		p.Wave = WaveSquare
	default:
		return nil, n.Get("oscillate_type").Errorf(node.ErrValue, "unknown wave %q", wave)
	}
	return p, nil
}

// Optional builds the parameter at key, returning nil when the key is absent.
func Optional(n node.Node, key string, rng *rand.Rand) (Parameter, error) {
	if !n.Has(key) {
		return nil, nil
	}
	return Factory(n.Get(key), rng)
}

// OrDefault builds the parameter at key, or a fixed def when absent.
func OrDefault(n node.Node, key string, def float64, rng *rand.Rand) (Parameter, error) {
	if !n.Has(key) {
		return NewFixed(def), nil
	}
	return Factory(n.Get(key), rng)
}

// Write serializes a parameter back to its configuration form. Fixed
// parameters become bare numbers.
func Write(p Parameter) any {
	switch v := p.(type) {
	case nil:
		return nil
	case *Fixed:
		return v.V
	case *Random:
		m := node.NewMap()
		m.Set("type", "random")
		m.Set("min", v.Min)
		m.Set("max", v.Max)
		return m
	case *Oscillate:
		m := node.NewMap()
		m.Set("type", "oscillate")
		m.Set("oscillate_frequency", v.Frequency)
		m.Set("oscillate_phase", v.Phase)
		m.Set("oscillate_base", v.Base)
		m.Set("oscillate_amplitude", v.Amplitude)
		if v.Wave == WaveSquare {
			m.Set("oscillate_type", "square")
		} else {
			m.Set("oscillate_type", "sine")
		}
		return m
	case *CurvedLinear:
		return writeCurve("curved_linear", v.Points())
	case *CurvedSpline:
		return writeCurve("curved_spline", v.Points())
	case *Eased:
		m := node.NewMap()
		m.Set("type", "eased")
		m.Set("from", v.From)
		m.Set("to", v.To)
		m.Set("duration", v.Duration)
		m.Set("easing", v.Easing)
		return m
	}
	panic(fmt.Sprintf("params: Write of unknown parameter %T", p))
}

func writeCurve(typ string, pts []spline.Point) *node.Map {
	cps := make([]any, len(pts))
	for i, p := range pts {
		cps[i] = []any{p.X, p.Y}
	}
	m := node.NewMap()
	m.Set("type", typ)
	m.Set("control_point", cps)
	return m
}
