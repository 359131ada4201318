// Package vector provides the 3-component vector value type used by the
// steering engine, including the approximate-length metric that the vehicle
// and steering code use for truncation and distance decisions.
//
// Every operation returns a new Vector3; nothing mutates its receiver.
package vector

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Coefficients of the approximate-length estimator.
const (
	approxMajor = 0.9375
	approxMinor = 0.375
)

// Vector3 is a point or free vector in 3D space.
type Vector3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// New returns the vector (x, y, z).
func New(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// Zero returns the zero vector.
func Zero() Vector3 {
	return Vector3{}
}

func (v Vector3) Add(b Vector3) Vector3 {
	return Vector3{v.X + b.X, v.Y + b.Y, v.Z + b.Z}
}

func (v Vector3) Sub(b Vector3) Vector3 {
	return Vector3{v.X - b.X, v.Y - b.Y, v.Z - b.Z}
}

func (v Vector3) Scale(k float64) Vector3 {
	return Vector3{v.X * k, v.Y * k, v.Z * k}
}

// Cross returns the right-handed cross product v × b.
func (v Vector3) Cross(b Vector3) Vector3 {
	return Vector3{
		v.Y*b.Z - v.Z*b.Y,
		v.Z*b.X - v.X*b.Z,
		v.X*b.Y - v.Y*b.X,
	}
}

func (v Vector3) MagnitudeSquared() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Magnitude returns the exact Euclidean length.
func (v Vector3) Magnitude() float64 {
	return math.Sqrt(v.MagnitudeSquared())
}

// ApproximateLength estimates the length without a square root. The largest
// absolute component is moved to the front with two compare-swaps (this is
// not a full sort: b and c keep whatever order is left) and weighted against
// the other two.
func (v Vector3) ApproximateLength() float64 {
	a := math.Abs(v.X)
	b := math.Abs(v.Y)
	c := math.Abs(v.Z)

	if a < b {
		a, b = b, a
	}
	if a < c {
		a, c = c, a
	}

	return a*approxMajor + (b+c)*approxMinor
}

// ApproximateDistance is the approximate length of v - b.
func (v Vector3) ApproximateDistance(b Vector3) float64 {
	return v.Sub(b).ApproximateLength()
}

// Normalize returns v scaled to unit length, or v itself when its exact
// magnitude is zero.
func (v Vector3) Normalize() Vector3 {
	mag := v.Magnitude()
	if mag == 0 {
		return v
	}
	return v.Scale(1 / mag)
}

// TruncateApprox clamps the approximate length of v to limit, keeping its
// direction. Vectors already within the limit are returned unchanged.
func (v Vector3) TruncateApprox(limit float64) Vector3 {
	length := v.ApproximateLength()
	if length > limit {
		return v.Scale(limit / length)
	}
	return v
}

// Lerp returns from + blend*(to - from).
func Lerp(blend float64, from, to Vector3) Vector3 {
	return Vector3{
		from.X + blend*(to.X-from.X),
		from.Y + blend*(to.Y-from.Y),
		from.Z + blend*(to.Z-from.Z),
	}
}

// RandomUnitBall draws a point uniformly distributed inside the unit ball by
// rejection sampling: the whole triple is redrawn until it falls inside.
// The result is not normalised.
func RandomUnitBall(r *rand.Rand) Vector3 {
	for {
		v := Vector3{
			X: r.Float64()*2 - 1,
			Y: r.Float64()*2 - 1,
			Z: r.Float64()*2 - 1,
		}
		if v.MagnitudeSquared() <= 1.0 {
			return v
		}
	}
}

// Equal reports whether every component of v and b differs by at most eps.
func (v Vector3) Equal(b Vector3, eps float64) bool {
	return math.Abs(v.X-b.X) <= eps &&
		math.Abs(v.Y-b.Y) <= eps &&
		math.Abs(v.Z-b.Z) <= eps
}

func (v Vector3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vector3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", v.X, v.Y, v.Z)
}
