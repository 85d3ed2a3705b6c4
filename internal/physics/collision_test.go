package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/gunguys/internal/vec"
)

func TestResolveElastic_ConservesMomentum(t *testing.T) {
	a := NewBody(0, 0, 10, 2)
	b := NewBody(15, 0, 10, 5)
	a.Vel = vec.Vec2{X: 30}
	b.Vel = vec.Vec2{X: -10}

	before := a.Vel.Mul(a.Mass).Add(b.Vel.Mul(b.Mass))
	assert.True(t, ResolveElastic(a, b))
	after := a.Vel.Mul(a.Mass).Add(b.Vel.Mul(b.Mass))

	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)

	// Упругий удар сохраняет и кинетическую энергию
	eBefore := 0.5*2*30*30 + 0.5*5*10*10
	eAfter := 0.5*a.Mass*a.Vel.Dot(a.Vel) + 0.5*b.Mass*b.Vel.Dot(b.Vel)
	assert.InDelta(t, eBefore, eAfter, 1e-6)
}

func TestResolveElastic_SeparatesMassAgnostic(t *testing.T) {
	a := NewBody(0, 0, 10, 1)
	b := NewBody(10, 0, 10, 100)

	ResolveElastic(a, b)

	// Перекрытие 10, каждое тело смещается на 5 независимо от массы
	assert.InDelta(t, -5.0, a.Pos.X, 1e-9)
	assert.InDelta(t, 15.0, b.Pos.X, 1e-9)
}

func TestResolveElastic_SkipsSeparatingBodies(t *testing.T) {
	a := NewBody(0, 0, 10, 1)
	b := NewBody(15, 0, 10, 1)
	a.Vel = vec.Vec2{X: -5}
	b.Vel = vec.Vec2{X: 5}

	ResolveElastic(a, b)
	assert.Equal(t, -5.0, a.Vel.X)
	assert.Equal(t, 5.0, b.Vel.X)
}

func TestResolveElastic_CoincidentCentersStayFinite(t *testing.T) {
	a := NewBody(3, 3, 10, 1)
	b := NewBody(3, 3, 10, 1)
	ResolveElastic(a, b)
	assert.True(t, a.Pos.IsFinite())
	assert.True(t, b.Pos.IsFinite())
	assert.InDelta(t, 20.0, a.Pos.DistanceTo(b.Pos), 1e-9)
}

func TestMoveBlocking_WallBounce(t *testing.T) {
	wall := StaticObstacle(Rect{MinX: 15, MinY: -100, MaxX: 40, MaxY: 100})

	b := NewBody(0, 0, 10, 1)
	b.Vel = vec.Vec2{X: 100}
	MoveBlocking(b, 0.1, []Obstacle{wall})

	assert.InDelta(t, -90.0, b.Vel.X, 1e-9, "скорость по заблокированной оси равна -0.9v")
	assert.Equal(t, 0.0, b.Pos.X, "заблокированная ось не сдвигается")
}

func TestMoveBlocking_SlowWallBounceSnapsToMinimum(t *testing.T) {
	wall := StaticObstacle(Rect{MinX: 10, MinY: -100, MaxX: 40, MaxY: 100})

	b := NewBody(0, 0, 10, 1)
	b.Pos.X = -0.01
	b.Vel = vec.Vec2{X: 0.3}
	MoveBlocking(b, 1, []Obstacle{wall})

	assert.Equal(t, -MinBounceSpeed, b.Vel.X)
}

func TestMoveBlocking_FreeAxisStillMoves(t *testing.T) {
	wall := StaticObstacle(Rect{MinX: 15, MinY: -100, MaxX: 40, MaxY: 100})

	b := NewBody(0, 0, 10, 1)
	b.Vel = vec.Vec2{X: 100, Y: 50}
	MoveBlocking(b, 0.1, []Obstacle{wall})

	assert.Equal(t, 0.0, b.Pos.X)
	assert.InDelta(t, 5.0, b.Pos.Y, 1e-9)
}

func TestMoveBlocking_EntityExchangeLosesFivePercent(t *testing.T) {
	a := NewBody(0, 0, 10, 2)
	b := NewBody(21, 0, 10, 2)
	a.Vel = vec.Vec2{X: 100}

	hits := MoveBlocking(a, 0.1, []Obstacle{BodyObstacle(a), BodyObstacle(b)})

	assert.Len(t, hits, 1)
	// Равные массы: скорость переходит ко второму телу с потерей 5%,
	// первое отскакивает с минимальной скоростью
	assert.InDelta(t, -MinBounceSpeed, a.Vel.X, 1e-9)
	assert.InDelta(t, 95.0, b.Vel.X, 1e-9)
	assert.Equal(t, 0.0, a.Pos.X)
}

func TestMoveBlocking_HeavyBodyRecoilsFromLightOne(t *testing.T) {
	a := NewBody(0, 0, 10, 10)
	b := NewBody(21, 0, 10, 2)
	a.Vel = vec.Vec2{X: 100}

	MoveBlocking(a, 0.1, []Obstacle{BodyObstacle(a), BodyObstacle(b)})

	v1, v2 := MomentumExchange(100, 10, 0, 2)
	assert.InDelta(t, -v1*WallDamping, a.Vel.X, 1e-9, "после обмена скорость отражается с гашением")
	assert.Less(t, a.Vel.X, 0.0)
	assert.InDelta(t, v2, b.Vel.X, 1e-9)
}

func TestMomentumExchange_ConservesMomentumBeforeDamping(t *testing.T) {
	m1, m2 := 3.0, 7.0
	u1, u2 := 40.0, -15.0
	v1, v2 := MomentumExchange(u1, m1, u2, m2)

	before := m1*u1 + m2*u2
	after := (m1*v1 + m2*v2) / EntityEnergyKeep
	assert.InDelta(t, before, after, 1e-9)
}

func TestRect_Intersects(t *testing.T) {
	r := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	assert.True(t, r.Intersects(Rect{MinX: 5, MinY: 5, MaxX: 15, MaxY: 15}))
	assert.False(t, r.Intersects(Rect{MinX: 10, MinY: 0, MaxX: 20, MaxY: 10}), "касание не считается")
	assert.True(t, r.IsPointInside(vec.Vec2{X: 0, Y: 9.9}))
}
