package particles

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 and Quat are the engine's vector and rotation types.
type (
	Vec3 = mgl64.Vec3
	Quat = mgl64.Quat
)

const epsilon = 1e-9

var (
	unitX = Vec3{1, 0, 0}
	unitY = Vec3{0, 1, 0}
	unitZ = Vec3{0, 0, 1}
)

// normalizeOr returns v normalized, or fallback when v is (near) zero.
func normalizeOr(v, fallback Vec3) Vec3 {
	l := v.Len()
	if l < epsilon {
		return fallback
	}
	return v.Mul(1 / l)
}

// perpendicular returns a unit vector perpendicular to v.
func perpendicular(v Vec3) Vec3 {
	p := v.Cross(unitX)
	if p.LenSqr() < epsilon {
		p = v.Cross(unitY)
	}
	return normalizeOr(p, unitZ)
}

// angleAxis builds a rotation of deg degrees about axis.
func angleAxis(deg float64, axis Vec3) Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(deg), normalizeOr(axis, unitY))
}

// deviate rotates v by angle degrees away from itself, around a random
// azimuth. The result keeps the length of v.
func deviate(rng *rand.Rand, angle float64, v Vec3) Vec3 {
	if v.LenSqr() < epsilon {
		return v
	}
	up := perpendicular(v)
	up = angleAxis(rng.Float64()*360, v).Rotate(up)
	return angleAxis(angle, up).Rotate(v)
}

// rotationBetween returns the shortest rotation taking a onto b.
func rotationBetween(a, b Vec3) Quat {
	a = normalizeOr(a, unitY)
	b = normalizeOr(b, unitY)
	d := a.Dot(b)
	if d > 1-epsilon {
		return mgl64.QuatIdent()
	}
	if d < -1+epsilon {
		return mgl64.QuatRotate(math.Pi, perpendicular(a))
	}
	axis := a.Cross(b)
	return mgl64.QuatRotate(math.Acos(d), axis.Normalize())
}

func randRange(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func vecFromArray(a [3]float64) Vec3 { return Vec3{a[0], a[1], a[2]} }

func vecToList(v Vec3) []any { return []any{v[0], v[1], v[2]} }

func quatToList(q Quat) []any { return []any{q.W, q.V[0], q.V[1], q.V[2]} }
