package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/gunguys/internal/vec"
)

func TestBody_SpeedNeverExceedsMax(t *testing.T) {
	cases := []struct {
		name   string
		ax, ay float64
		dt     float64
	}{
		{"ось X", 10000, 0, 1.0 / 60},
		{"диагональ", 5000, -5000, 1.0 / 30},
		{"огромный шаг", 1e6, 1e6, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBody(0, 0, 10, 1)
			for i := 0; i < 50; i++ {
				b.ApplyAcceleration(tc.ax, tc.ay)
				b.Integrate(tc.dt)
				assert.LessOrEqual(t, b.Speed(), b.MaxSpeed+1e-9)
			}
		})
	}
}

func TestBody_RestingBodyDoesNotMove(t *testing.T) {
	b := NewBody(12.5, -3, 10, 1)
	for i := 0; i < 100; i++ {
		b.Integrate(1.0 / 60)
	}
	assert.Equal(t, vec.Vec2{X: 12.5, Y: -3}, b.Pos)
	assert.Equal(t, vec.Vec2{}, b.Vel)
}

func TestBody_FrictionSnapsToZero(t *testing.T) {
	b := NewBody(0, 0, 10, 1)
	b.Friction = 50
	b.Vel = vec.Vec2{X: 0.4, Y: 0}

	// 50 * 1/60 ≈ 0.83 > 0.4: скорость обнуляется, а не меняет знак
	b.Integrate(1.0 / 60)
	assert.Equal(t, 0.0, b.Vel.X)
	assert.InDelta(t, 0.0, b.Pos.X, 1e-12)

	b.Integrate(1.0 / 60)
	assert.Equal(t, 0.0, b.Vel.X, "трение не должно раскачивать тело")
}

func TestBody_AccelerationResetAfterIntegrate(t *testing.T) {
	b := NewBody(0, 0, 10, 1)
	b.ApplyAcceleration(100, 0)
	b.Integrate(0.1)
	assert.Equal(t, vec.Vec2{}, b.Acc)
	assert.InDelta(t, 10.0, b.Vel.X, 1e-9)
	assert.InDelta(t, 1.0, b.Pos.X, 1e-9)
}

func TestBody_NonPositiveDtIsNoop(t *testing.T) {
	b := NewBody(1, 1, 10, 1)
	b.Vel = vec.Vec2{X: 5}
	b.ApplyAcceleration(10, 0)
	b.Integrate(0)
	assert.Equal(t, vec.Vec2{X: 1, Y: 1}, b.Pos)
	assert.Equal(t, vec.Vec2{X: 10}, b.Acc)
}

func TestBody_DirectionToSamePointIsFinite(t *testing.T) {
	b := NewBody(5, 5, 10, 1)
	d := b.DirectionTo(vec.Vec2{X: 5, Y: 5}, 0.1)
	require.True(t, d.IsFinite())
	assert.False(t, math.IsNaN(d.X))
}
