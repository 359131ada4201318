package vector

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestArithmetic(t *testing.T) {
	a := New(1, -2, 3)
	b := New(0.5, 4, -1)

	assert.Equal(t, New(1.5, 2, 2), a.Add(b))
	assert.Equal(t, New(0.5, -6, 4), a.Sub(b))
	assert.Equal(t, New(2, -4, 6), a.Scale(2))
	assert.Equal(t, New(1, -2, 3), a, "receiver must not change")
}

func TestSubAddRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		a := RandomUnitBall(r).Scale(1000)
		b := RandomUnitBall(r).Scale(1000)
		assert.True(t, a.Add(b).Sub(b).Equal(a, 1e-9), "a=%v b=%v", a, b)
	}
}

func TestCross(t *testing.T) {
	x, y, z := New(1, 0, 0), New(0, 1, 0), New(0, 0, 1)

	assert.Equal(t, z, x.Cross(y))
	assert.Equal(t, x, y.Cross(z))
	assert.Equal(t, y, z.Cross(x))

	r := rand.New(rand.NewPCG(3, 4))
	for range 200 {
		a, b := RandomUnitBall(r), RandomUnitBall(r)
		assert.True(t, a.Cross(b).Equal(b.Cross(a).Scale(-1), eps))
		assert.True(t, a.Cross(a).Equal(Zero(), eps))
	}
}

func TestMagnitude(t *testing.T) {
	assert.Equal(t, 0.0, Zero().Magnitude())
	assert.Equal(t, 5.0, New(3, 4, 0).Magnitude())
	assert.Equal(t, 49.0, New(2, 3, 6).MagnitudeSquared())
	assert.Equal(t, 7.0, New(2, -3, 6).Magnitude())

	r := rand.New(rand.NewPCG(5, 6))
	for range 200 {
		v := RandomUnitBall(r)
		assert.GreaterOrEqual(t, v.Magnitude(), 0.0)
		if !v.IsZero() {
			assert.Greater(t, v.Magnitude(), 0.0)
		}
	}
}

func TestApproximateLength(t *testing.T) {
	tests := []struct {
		name string
		v    Vector3
		want float64
	}{
		{"zero", Zero(), 0},
		{"x axis", New(1, 0, 0), 0.9375},
		{"negative y axis", New(0, -2, 0), 1.875},
		{"z axis", New(0, 0, 4), 3.75},
		{"largest first", New(4, 2, 1), 4*0.9375 + 3*0.375},
		{"largest last", New(1, 2, 4), 4*0.9375 + 3*0.375},
		{"equal", New(1, 1, 1), 0.9375 + 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.v.ApproximateLength(), eps)
		})
	}
}

func TestApproximateLengthErrorBound(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 8))
	var sumErr float64
	n := 0
	for range 20000 {
		v := RandomUnitBall(r)
		exact := v.Magnitude()
		if exact == 0 {
			continue
		}
		approx := v.ApproximateLength()
		require.GreaterOrEqual(t, approx, 0.0)

		ratio := approx / exact
		assert.InDelta(t, 1.0, ratio, 0.08, "v=%v", v)
		sumErr += math.Abs(ratio - 1)
		n++
	}
	assert.Less(t, sumErr/float64(n), 0.045)
}

func TestApproximateDistance(t *testing.T) {
	a := New(10, 0, 0)
	b := New(4, 0, 0)
	assert.InDelta(t, 6*0.9375, a.ApproximateDistance(b), eps)
	assert.InDelta(t, a.ApproximateDistance(b), b.ApproximateDistance(a), eps)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Zero(), Zero().Normalize())

	r := rand.New(rand.NewPCG(9, 10))
	for range 500 {
		v := RandomUnitBall(r).Scale(50)
		if v.IsZero() {
			continue
		}
		assert.InDelta(t, 1.0, v.Normalize().Magnitude(), 1e-12)
	}

	// exact magnitude, not the estimate
	assert.True(t, New(3, 4, 0).Normalize().Equal(New(0.6, 0.8, 0), eps))
}

func TestTruncateApprox(t *testing.T) {
	v := New(10, 0, 0)
	got := v.TruncateApprox(1.5)
	assert.InDelta(t, 1.5, got.ApproximateLength(), eps)
	assert.InDelta(t, 1.6, got.X, eps)
	assert.Zero(t, got.Y)

	small := New(0.1, 0.1, 0)
	assert.Equal(t, small, small.TruncateApprox(1))

	assert.Equal(t, Zero(), New(3, 2, 1).TruncateApprox(0))
}

func TestLerp(t *testing.T) {
	from := New(0, 10, 0)
	to := New(10, 0, 0)

	assert.Equal(t, from, Lerp(0, from, to))
	assert.Equal(t, to, Lerp(1, from, to))
	assert.True(t, Lerp(0.99, from, to).Equal(New(9.9, 0.1, 0), eps))
}

func TestRandomUnitBall(t *testing.T) {
	r := rand.New(rand.NewPCG(11, 12))
	var octants [8]int
	const draws = 8000
	for range draws {
		v := RandomUnitBall(r)
		require.LessOrEqual(t, v.MagnitudeSquared(), 1.0)

		idx := 0
		if v.X >= 0 {
			idx |= 1
		}
		if v.Y >= 0 {
			idx |= 2
		}
		if v.Z >= 0 {
			idx |= 4
		}
		octants[idx]++
	}
	for i, n := range octants {
		assert.InDelta(t, draws/8, n, 200, "octant %d", i)
	}
}

func TestRandomUnitBallIsDeterministicPerSeed(t *testing.T) {
	a := RandomUnitBall(rand.New(rand.NewPCG(42, 42)))
	b := RandomUnitBall(rand.New(rand.NewPCG(42, 42)))
	assert.Equal(t, a, b)
}

func TestIsFinite(t *testing.T) {
	assert.True(t, New(1, 2, 3).IsFinite())
	assert.False(t, New(math.NaN(), 0, 0).IsFinite())
	assert.False(t, New(0, math.Inf(-1), 0).IsFinite())
}
