package combat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/gunguys/internal/vec"
)

type dummy struct {
	id     uint64
	pos    vec.Vec2
	health float64
	pushed vec.Vec2
}

func newDummy(id uint64, x, y, health float64) *dummy {
	return &dummy{id: id, pos: vec.Vec2{X: x, Y: y}, health: health}
}

func (d *dummy) EntityID() uint64 { return d.id }
func (d *dummy) Position() vec.Vec2 { return d.pos }
func (d *dummy) HitRadius() float64 { return 10 }
func (d *dummy) Alive() bool { return d.health > 0 }
func (d *dummy) Push(dv vec.Vec2) { d.pushed = d.pushed.Add(dv) }
func (d *dummy) TakeDamage(a float64) bool {
	if d.health <= 0 {
		return false
	}
	d.health -= a
	return d.health <= 0
}

func targets(ds ...*dummy) []Target {
	out := make([]Target, len(ds))
	for i, d := range ds {
		out[i] = d
	}
	return out
}

func TestCooldown(t *testing.T) {
	assert.InDelta(t, 0.5, Cooldown(2.0, 1), 1e-9)
	assert.InDelta(t, 0.5*0.55, Cooldown(2.0, 10), 1e-9)
	assert.Equal(t, MinCooldown, Cooldown(6.0, 20), "перезарядка не опускается ниже минимума")
	assert.True(t, math.IsInf(Cooldown(0, 1), 1))
}

func TestFireTimer_IgnoresAttemptsDuringCooldown(t *testing.T) {
	ft := NewFireTimer()
	assert.True(t, ft.TryFire("Pistol", 0.5, 10.0))
	assert.False(t, ft.TryFire("Pistol", 0.5, 10.2))
	assert.InDelta(t, 0.6, ft.Fraction("Pistol", 0.5, 10.2), 1e-9)

	// Попытка не сдвигает время последнего выстрела
	assert.True(t, ft.TryFire("Pistol", 0.5, 10.5))

	// У другого оружия свой таймер
	assert.True(t, ft.TryFire("Rifle", 0.2, 10.5))
	assert.Equal(t, 0.0, ft.Fraction("Bow", 1, 0))
}

func TestPiercing_RemovedExactlyAtThirdHit(t *testing.T) {
	sniper, ok := WeaponByName("sniper")
	require.True(t, ok)

	p := NewProjectile(sniper, 1, 10, 1) // урона хватает, чтобы никого не убить
	require.Equal(t, 3, p.MaxPierce)

	for i := 1; i <= 3; i++ {
		d := newDummy(uint64(i), 100, 0, 1000)
		out := ResolveHit(&p, vec.Vec2{X: 100}, vec.Vec2{X: 1}, d, targets(d), 0)
		if i < 3 {
			assert.False(t, out.Remove, "снаряд не должен исчезнуть после %d попадания", i)
		} else {
			assert.True(t, out.Remove, "снаряд исчезает после третьего попадания")
		}
	}
}

func TestExplosion_LinearFalloff(t *testing.T) {
	const D, R = 80.0, 200.0
	near := newDummy(1, 50, 0, 1000)
	edge := newDummy(2, 200, 0, 1000)
	far := newDummy(3, 0, 250, 1000)

	hits := Explode(vec.Vec2{}, R, D, KnockbackRocket, targets(near, edge, far))

	require.Len(t, hits, 1)
	assert.InDelta(t, D*(1-50.0/R), hits[0].Damage, 1e-9)
	assert.InDelta(t, 1000-60.0, near.health, 1e-9)
	assert.Equal(t, 1000.0, edge.health, "на границе радиуса урон нулевой")
	assert.Equal(t, 1000.0, far.health)

	// Радиальное отбрасывание от центра
	assert.Greater(t, near.pushed.X, 0.0)
	assert.InDelta(t, 0.0, near.pushed.Y, 1e-9)
}

func TestExplosion_DeadTargetsIgnored(t *testing.T) {
	d := newDummy(1, 10, 0, 5)
	first := Explode(vec.Vec2{}, 200, 80, 0, targets(d))
	second := Explode(vec.Vec2{}, 200, 80, 0, targets(d))

	require.Len(t, first, 1)
	assert.True(t, first[0].Killed)
	assert.Empty(t, second, "повторный взрыв не засчитывает убийство дважды")
}

func TestMeleeCone(t *testing.T) {
	deg := math.Pi / 180
	aim := vec.Vec2{X: 1}

	at := func(angleDeg, r float64) vec.Vec2 {
		return vec.FromAngle(angleDeg * deg).Mul(r)
	}

	assert.True(t, InMeleeCone(vec.Vec2{}, aim, at(59, 50), 120))
	assert.False(t, InMeleeCone(vec.Vec2{}, aim, at(61, 50), 120))
	assert.True(t, InMeleeCone(vec.Vec2{}, aim, at(-59, 50), 120))
	assert.False(t, InMeleeCone(vec.Vec2{}, aim, at(59, 121), 120), "вне дальности")

	// Переход через ±180°
	back := vec.Vec2{X: -1}
	assert.True(t, InMeleeCone(vec.Vec2{}, back, at(-170, 50), 120))
	assert.True(t, InMeleeCone(vec.Vec2{}, back, at(170, 50), 120))
}

func TestMelee_DamagesAllAndKnocksBackSurvivors(t *testing.T) {
	weak := newDummy(1, 30, 0, 10)
	strong := newDummy(2, 0, 30, 100)
	outside := newDummy(3, -30, 0, 100)

	// Направление удара 45°, обе первые цели в секторе
	hits := Melee(vec.Vec2{}, vec.Vec2{X: 1, Y: 1}, 120, 40, KnockbackSword, targets(weak, strong, outside))

	require.Len(t, hits, 2)
	assert.True(t, hits[0].Killed)
	assert.False(t, hits[1].Killed)
	assert.Equal(t, vec.Vec2{}, weak.pushed, "убитые не отбрасываются")
	assert.InDelta(t, KnockbackSword*KnockbackUnit, strong.pushed.Length(), 1e-9)
	assert.Equal(t, 100.0, outside.health)
}

func TestZoneProjectile_SeedsZoneOnDistanceAndHit(t *testing.T) {
	wand, ok := WeaponByName("Wand")
	require.True(t, ok)

	p := NewProjectile(wand, 7, 1, wand.Damage)
	assert.False(t, p.Advance(0.5, 270))
	assert.True(t, p.Advance(0.1, 54), "зона создаётся при достижении максимальной дистанции")

	out := ResolveExpiry(&p, vec.Vec2{X: 324}, nil, 2.0)
	require.NotNil(t, out.Zone)
	assert.True(t, out.Remove)
	assert.Equal(t, uint64(7), out.Zone.CreditID)

	q := NewProjectile(wand, 7, 1, wand.Damage)
	d := newDummy(1, 0, 0, 100)
	hit := ResolveHit(&q, vec.Vec2{}, vec.Vec2{X: 1}, d, targets(d), 1.0)
	require.NotNil(t, hit.Zone)
	assert.True(t, hit.Remove)
	assert.InDelta(t, 80.0, d.health, 1e-9)
}

func TestZone_ExpiryAndTick(t *testing.T) {
	z := NewZone(vec.Vec2{}, 20, 1.0, 0)
	assert.False(t, z.Expired(4.0))
	assert.True(t, z.Expired(4.01))

	in := newDummy(1, 50, 0, 100)
	out := newDummy(2, 100, 0, 100)
	hits := z.Tick(0.5, targets(in, out))

	require.Len(t, hits, 1)
	assert.InDelta(t, 90.0, in.health, 1e-9)
	assert.Equal(t, 100.0, out.health)
}

func TestPlainProjectile_ExpiresByLifetime(t *testing.T) {
	p := NewMonsterProjectile(3, 10)
	assert.False(t, p.Advance(4.9, 100))
	assert.True(t, p.Advance(0.1, 100))
	assert.True(t, OwnerMonster.Opposes(OwnerPlayer))
	assert.False(t, OwnerPlayer.Opposes(OwnerPlayer))
}
