// Package spline provides natural cubic splines over control points.
package spline

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// ErrPoints is returned for control point sets a spline cannot be fit through.
var ErrPoints = errors.New("spline: invalid control points")

// Point is a control point (x, y).
type Point struct {
	X, Y float64
}

// Spline is a natural cubic spline: second derivative zero at both ends.
// Outside the control range it holds the end values.
type Spline struct {
	points []Point
	fit    interp.NaturalCubic
}

// New fits a spline through points, which must number at least two and have
// strictly increasing X.
func New(points []Point) (*Spline, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: need at least 2, got %d", ErrPoints, len(points))
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		if i > 0 && p.X <= points[i-1].X {
			return nil, fmt.Errorf("%w: x not strictly increasing at index %d", ErrPoints, i)
		}
		xs[i], ys[i] = p.X, p.Y
	}
	s := &Spline{points: append([]Point(nil), points...)}
	if err := s.fit.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fitting spline: %w", err)
	}
	return s, nil
}

// Interpolate evaluates the spline at x.
func (s *Spline) Interpolate(x float64) float64 {
	return s.fit.Predict(x)
}

// Points returns a copy of the control points.
func (s *Spline) Points() []Point {
	return append([]Point(nil), s.points...)
}

// Path is a 3D curve through control points, parameterised by arc fraction.
// Each axis is a natural cubic spline over cumulative chord length.
type Path struct {
	points [][3]float64
	length float64
	axes   [3]interp.NaturalCubic
}

// NewPath fits a path. Consecutive duplicate points are dropped; at least
// two distinct points must remain.
func NewPath(points [][3]float64) (*Path, error) {
	var kept [][3]float64
	for _, p := range points {
		if len(kept) > 0 && dist(kept[len(kept)-1], p) < 1e-9 {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) < 2 {
		return nil, fmt.Errorf("%w: path needs 2 distinct points, got %d", ErrPoints, len(kept))
	}

	ts := make([]float64, len(kept))
	for i := 1; i < len(kept); i++ {
		ts[i] = ts[i-1] + dist(kept[i-1], kept[i])
	}
	p := &Path{points: kept, length: ts[len(ts)-1]}

	vals := make([]float64, len(kept))
	for axis := 0; axis < 3; axis++ {
		for i, k := range kept {
			vals[i] = k[axis]
		}
		if err := p.axes[axis].Fit(ts, vals); err != nil {
			return nil, fmt.Errorf("fitting path axis %d: %w", axis, err)
		}
	}
	return p, nil
}

// At returns the point at fraction u of the path length, clamped to [0, 1].
func (p *Path) At(u float64) [3]float64 {
	u = math.Max(0, math.Min(1, u))
	s := u * p.length
	return [3]float64{p.axes[0].Predict(s), p.axes[1].Predict(s), p.axes[2].Predict(s)}
}

// Length returns the chord length of the control polygon.
func (p *Path) Length() float64 { return p.length }

// Points returns a copy of the control points.
func (p *Path) Points() [][3]float64 {
	return append([][3]float64(nil), p.points...)
}

func dist(a, b [3]float64) float64 {
	dx, dy, dz := b[0]-a[0], b[1]-a[1], b[2]-a[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
