package spline

import (
	"errors"
	"math"
	"testing"
)

func TestSplineHitsControlPoints(t *testing.T) {
	pts := []Point{{0, 0}, {1, 3}, {2.5, -1}, {4, 2}, {5, 2}}
	s, err := New(pts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, p := range pts {
		if got := s.Interpolate(p.X); math.Abs(got-p.Y) > 1e-9 {
			t.Errorf("at x=%v expected %v, got %v", p.X, p.Y, got)
		}
	}
}

func TestSplineLinearData(t *testing.T) {
	// A natural spline through collinear points is the line itself.
	s, err := New([]Point{{0, 1}, {1, 3}, {2, 5}, {3, 7}})
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range []float64{0.25, 1.5, 2.75} {
		want := 1 + 2*x
		if got := s.Interpolate(x); math.Abs(got-want) > 1e-9 {
			t.Errorf("at x=%v expected %v, got %v", x, want, got)
		}
	}
}

func TestSplineHoldsEnds(t *testing.T) {
	s, err := New([]Point{{0, 2}, {1, 4}, {2, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Interpolate(-5); got != 2 {
		t.Errorf("expected 2 before range, got %v", got)
	}
	if got := s.Interpolate(10); got != 1 {
		t.Errorf("expected 1 after range, got %v", got)
	}
}

func TestSplineRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
	}{
		{"single point", []Point{{0, 0}}},
		{"duplicate x", []Point{{0, 0}, {0, 1}}},
		{"descending", []Point{{1, 0}, {0, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.pts); !errors.Is(err, ErrPoints) {
				t.Errorf("expected ErrPoints, got %v", err)
			}
		})
	}
}

func TestPathEndpoints(t *testing.T) {
	p, err := NewPath([][3]float64{{0, 0, 0}, {0, 0, 0}, {10, 0, 0}, {10, 10, 0}})
	if err != nil {
		t.Fatalf("NewPath: %v", err)
	}
	if len(p.Points()) != 3 {
		t.Errorf("expected duplicate dropped, got %d points", len(p.Points()))
	}
	if math.Abs(p.Length()-20) > 1e-9 {
		t.Errorf("expected length 20, got %v", p.Length())
	}
	end := p.At(1)
	if math.Abs(end[0]-10) > 1e-9 || math.Abs(end[1]-10) > 1e-9 {
		t.Errorf("expected end (10,10), got %v", end)
	}
	mid := p.At(0.5)
	if math.Abs(mid[0]-10) > 1e-6 || math.Abs(mid[1]) > 1e-6 {
		t.Errorf("expected knot (10,0) at u=0.5, got %v", mid)
	}
}
