package combat

import (
	"math"

	"github.com/annel0/gunguys/internal/util"
	"github.com/annel0/gunguys/internal/vec"
)

// KillExperience опыт за убийство
const KillExperience = 10

// KnockbackUnit переводит величину отбрасывания в импульс скорости, пикселей/с
const KnockbackUnit = 10.0

// MeleeHalfAngle половина сектора ближней атаки
const MeleeHalfAngle = math.Pi / 3

// Target цель, которой можно нанести урон
type Target interface {
	EntityID() uint64
	Position() vec.Vec2
	HitRadius() float64
	Alive() bool
	// TakeDamage возвращает true, если именно этот урон убил цель
	TakeDamage(amount float64) bool
	// Push мгновенно добавляет скорость
	Push(dv vec.Vec2)
}

// Hit результат нанесения урона одной цели
type Hit struct {
	Target Target
	Damage float64
	Killed bool
}

// Outcome результат попадания снаряда
type Outcome struct {
	Hits   []Hit
	Remove bool
	Zone   *Zone
}

// Kills возвращает цели, убитые в этом исходе
func (o Outcome) Kills() []Target {
	var out []Target
	for _, h := range o.Hits {
		if h.Killed {
			out = append(out, h.Target)
		}
	}
	return out
}

// Knockback отталкивает цель от точки origin
func Knockback(t Target, origin vec.Vec2, magnitude float64) {
	if magnitude <= 0 {
		return
	}
	dir := t.Position().Sub(origin).Normalized()
	if dir == (vec.Vec2{}) {
		return
	}
	t.Push(dir.Mul(magnitude * KnockbackUnit))
}

// ExplosionDamage урон на расстоянии d от центра взрыва радиуса r
func ExplosionDamage(damage, d, r float64) float64 {
	if r <= 0 || d >= r {
		return 0
	}
	if d < 0 {
		d = 0
	}
	return damage * (1 - d/r)
}

// Explode наносит урон всем живым целям в радиусе с линейным спадом
// и отбрасывает выживших от центра.
func Explode(center vec.Vec2, radius, damage, knockback float64, targets []Target) []Hit {
	var hits []Hit
	for _, t := range targets {
		if !t.Alive() {
			continue
		}
		d := center.DistanceTo(t.Position())
		dmg := ExplosionDamage(damage, d, radius)
		if dmg <= 0 {
			continue
		}
		killed := t.TakeDamage(dmg)
		if !killed {
			Knockback(t, center, knockback*ExplosionKnockbackFactor*(1-d/radius))
		}
		hits = append(hits, Hit{Target: t, Damage: dmg, Killed: killed})
	}
	return hits
}

// InMeleeCone проверяет, попадает ли точка в сектор ±60° вокруг направления aim
func InMeleeCone(origin, aim, target vec.Vec2, reach float64) bool {
	delta := target.Sub(origin)
	if delta.Length() > reach {
		return false
	}
	if delta.Length() < vec.Epsilon {
		return true
	}
	return util.AngleDiff(delta.Angle(), aim.Angle()) <= MeleeHalfAngle+1e-9
}

// Melee наносит урон всем целям в секторе одновременно и отбрасывает выживших
func Melee(origin, aim vec.Vec2, reach, damage, knockback float64, targets []Target) []Hit {
	var selected []Target
	for _, t := range targets {
		if t.Alive() && InMeleeCone(origin, aim, t.Position(), reach) {
			selected = append(selected, t)
		}
	}

	hits := make([]Hit, 0, len(selected))
	for _, t := range selected {
		hits = append(hits, Hit{Target: t, Damage: damage, Killed: t.TakeDamage(damage)})
	}
	for _, h := range hits {
		if !h.Killed {
			Knockback(h.Target, origin, knockback)
		}
	}
	return hits
}

// ResolveHit применяет прямое попадание снаряда в цель по его поведению.
// vel скорость снаряда, задаёт направление отбрасывания. all используется для взрыва.
func ResolveHit(p *ProjectileState, pos, vel vec.Vec2, target Target, all []Target, now float64) Outcome {
	switch p.Behavior {
	case BehaviorExplosive:
		return Outcome{
			Hits:   Explode(pos, p.ExplosionRadius, p.Damage, p.Knockback, all),
			Remove: true,
		}

	case BehaviorPiercing:
		hit := direct(p, pos, vel, target)
		return Outcome{Hits: []Hit{hit}, Remove: p.RegisterPierce()}

	case BehaviorZone:
		hit := direct(p, pos, vel, target)
		return Outcome{
			Hits:   []Hit{hit},
			Remove: true,
			Zone:   NewZone(pos, p.Damage, now, p.OwnerID),
		}

	default:
		hit := direct(p, pos, vel, target)
		return Outcome{Hits: []Hit{hit}, Remove: true}
	}
}

// ResolveExpiry обрабатывает исчерпание бюджета снаряда
func ResolveExpiry(p *ProjectileState, pos vec.Vec2, all []Target, now float64) Outcome {
	switch p.Behavior {
	case BehaviorExplosive:
		return Outcome{Hits: Explode(pos, p.ExplosionRadius, p.Damage, p.Knockback, all), Remove: true}
	case BehaviorZone:
		return Outcome{Remove: true, Zone: NewZone(pos, p.Damage, now, p.OwnerID)}
	default:
		return Outcome{Remove: true}
	}
}

func direct(p *ProjectileState, pos, vel vec.Vec2, t Target) Hit {
	killed := t.TakeDamage(p.Damage)
	if !killed && p.Knockback > 0 {
		if dir := vel.Normalized(); dir != (vec.Vec2{}) {
			t.Push(dir.Mul(p.Knockback * KnockbackUnit))
		} else {
			Knockback(t, pos, p.Knockback)
		}
	}
	return Hit{Target: t, Damage: p.Damage, Killed: killed}
}
