package params

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/psys/node"
)

func build(t *testing.T, src string) Parameter {
	t.Helper()
	n, err := node.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p, err := Factory(n.Get("p"), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	return p
}

func TestFixedIsConstant(t *testing.T) {
	p := build(t, "p: 4.5")
	for _, ti := range []float64{-10, 0, 0.3, 1e6} {
		if got := p.Value(ti); got != 4.5 {
			t.Errorf("at t=%v expected 4.5, got %v", ti, got)
		}
	}
	q := build(t, "p: {type: fixed, value: 2}")
	if q.Value(0) != 2 {
		t.Errorf("expected 2, got %v", q.Value(0))
	}
}

func TestRandomRange(t *testing.T) {
	p := build(t, "p: {type: random, min: 3, max: 5}")
	seen := map[float64]bool{}
	for i := 0; i < 200; i++ {
		v := p.Value(0)
		if v < 3 || v >= 5 {
			t.Fatalf("expected value in [3,5), got %v", v)
		}
		seen[v] = true
	}
	if len(seen) < 100 {
		t.Errorf("expected varied samples at the same t, got %d distinct", len(seen))
	}
}

func TestRandomDeterministicWithSeed(t *testing.T) {
	a := NewRandom(0, 1, rand.New(rand.NewSource(7)))
	b := NewRandom(0, 1, rand.New(rand.NewSource(7)))
	for i := 0; i < 10; i++ {
		if a.Value(0) != b.Value(0) {
			t.Fatal("expected identical sequences for identical seeds")
		}
	}
}

func TestOscillate(t *testing.T) {
	sine := build(t, "p: {type: oscillate, oscillate_frequency: 1, oscillate_base: 10, oscillate_amplitude: 2}")
	if got := sine.Value(0.25); math.Abs(got-12) > 1e-9 {
		t.Errorf("expected peak 12, got %v", got)
	}
	sq := build(t, "p: {type: oscillate, oscillate_type: sq, oscillate_amplitude: 3}")
	if got := sq.Value(0.1); got != 3 {
		t.Errorf("expected 3 in positive half, got %v", got)
	}
	if got := sq.Value(0.6); got != -3 {
		t.Errorf("expected -3 in negative half, got %v", got)
	}
}

func TestCurvedLinear(t *testing.T) {
	p := build(t, "p: {type: curved_linear, control_point: [[0, 0], [1, 10]]}")
	tests := []struct {
		t, want float64
	}{
		{0.5, 5},
		{0, 0},
		{1, 10},
		{3, 10},   // past the end holds the last value
		{-1, -10}, // before the start follows the first segment
	}
	for _, tt := range tests {
		if got := p.Value(tt.t); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("at t=%v expected %v, got %v", tt.t, tt.want, got)
		}
	}
}

func TestCurvedSplineHitsPoints(t *testing.T) {
	p := build(t, "p: {type: curved_spline, control_point: [[0, 1], [0.5, 4], [1, 0]]}")
	for _, pt := range [][2]float64{{0, 1}, {0.5, 4}, {1, 0}} {
		if got := p.Value(pt[0]); math.Abs(got-pt[1]) > 1e-9 {
			t.Errorf("at t=%v expected %v, got %v", pt[0], pt[1], got)
		}
	}
}

func TestEased(t *testing.T) {
	p := build(t, "p: {type: eased, from: 10, to: 20, duration: 2, easing: linear}")
	if got := p.Value(1); math.Abs(got-15) > 1e-4 {
		t.Errorf("expected 15 at midpoint, got %v", got)
	}
	if got := p.Value(5); math.Abs(got-20) > 1e-4 {
		t.Errorf("expected clamp to 20, got %v", got)
	}
	if got := p.Value(-1); math.Abs(got-10) > 1e-4 {
		t.Errorf("expected clamp to 10, got %v", got)
	}
}

func TestAllVariantsFinite(t *testing.T) {
	srcs := []string{
		"p: 1",
		"p: {type: random}",
		"p: {type: oscillate, oscillate_type: square}",
		"p: {type: curved_linear, control_point: [[0, 0], [1, 1], [2, 0]]}",
		"p: {type: curved_spline, control_point: [[0, 0], [1, 1], [2, 0]]}",
		"p: {type: eased, easing: out_bounce}",
	}
	for _, src := range srcs {
		p := build(t, src)
		for ti := -2.0; ti <= 4; ti += 0.05 {
			v := p.Value(ti)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("%s: non-finite value %v at t=%v", p.Kind(), v, ti)
			}
		}
	}
}

func TestFactoryErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown type", "p: {type: wobble}", ErrUnknownType},
		{"missing type", "p: {min: 1}", node.ErrMissing},
		{"one control point", "p: {type: curved_linear, control_point: [[0, 1]]}", node.ErrValue},
		{"unsorted points", "p: {type: curved_spline, control_point: [[1, 1], [0, 0]]}", node.ErrValue},
		{"bad wave", "p: {type: oscillate, oscillate_type: saw}", node.ErrValue},
		{"string", "p: fast", node.ErrType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := node.Parse([]byte(tt.src))
			if err != nil {
				t.Fatal(err)
			}
			_, err = Factory(n.Get("p"), rand.New(rand.NewSource(1)))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	srcs := []string{
		"p: 3",
		"p: {type: random, min: 2, max: 4}",
		"p: {type: oscillate, oscillate_type: square, oscillate_frequency: 2}",
		"p: {type: curved_linear, control_point: [[0, 0], [1, 5]]}",
		"p: {type: curved_spline, control_point: [[0, 0], [1, 5], [2, 1]]}",
		"p: {type: eased, from: 1, to: 2, duration: 3, easing: in_quad}",
	}
	for _, src := range srcs {
		p := build(t, src)
		data, err := node.Marshal(map[string]any{"p": Write(p)})
		if err != nil {
			t.Fatal(err)
		}
		q := build(t, string(data))
		if q.Kind() != p.Kind() {
			t.Errorf("expected kind %s after round trip, got %s", p.Kind(), q.Kind())
		}
		if p.Kind() != KindRandom {
			for _, ti := range []float64{0, 0.4, 1.7} {
				if math.Abs(p.Value(ti)-q.Value(ti)) > 1e-9 {
					t.Errorf("%s: value mismatch at %v", p.Kind(), ti)
				}
			}
		}
	}
	if _, ok := Write(NewFixed(2)).(float64); !ok {
		t.Error("expected fixed to write as a bare number")
	}
}
