package params

import (
	"fmt"

	"github.com/pthm-cable/psys/spline"
	"gonum.org/v1/gonum/interp"
)

// CurvedLinear interpolates linearly between control points.
//
// Times past the last point return the last value. Times before the first
// point evaluate the first segment, so they extrapolate along it.
type CurvedLinear struct {
	points []spline.Point
	fit    interp.PiecewiseLinear
}

// NewCurvedLinear builds a linear curve. Points must have strictly increasing x.
func NewCurvedLinear(points []spline.Point) (*CurvedLinear, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: need at least 2, got %d", spline.ErrPoints, len(points))
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		if i > 0 && p.X <= points[i-1].X {
			return nil, fmt.Errorf("%w: x not strictly increasing at index %d", spline.ErrPoints, i)
		}
		xs[i], ys[i] = p.X, p.Y
	}
	c := &CurvedLinear{points: append([]spline.Point(nil), points...)}
	if err := c.fit.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fitting curve: %w", err)
	}
	return c, nil
}

func (p *CurvedLinear) Value(t float64) float64 {
	if first := p.points[0]; t < first.X {
		next := p.points[1]
		return first.Y + (next.Y-first.Y)*(t-first.X)/(next.X-first.X)
	}
	return p.fit.Predict(t)
}
func (p *CurvedLinear) Kind() Kind { return KindCurvedLinear }

// Points returns a copy of the control points.
func (p *CurvedLinear) Points() []spline.Point {
	return append([]spline.Point(nil), p.points...)
}

// CurvedSpline evaluates a natural cubic spline through control points,
// holding the end values outside the control range.
type CurvedSpline struct {
	s *spline.Spline
}

// NewCurvedSpline builds a spline curve.
func NewCurvedSpline(points []spline.Point) (*CurvedSpline, error) {
	s, err := spline.New(points)
	if err != nil {
		return nil, err
	}
	return &CurvedSpline{s: s}, nil
}

func (p *CurvedSpline) Value(t float64) float64 { return p.s.Interpolate(t) }
func (p *CurvedSpline) Kind() Kind              { return KindCurvedSpline }

// Points returns a copy of the control points.
func (p *CurvedSpline) Points() []spline.Point { return p.s.Points() }
