package combat

import "github.com/annel0/gunguys/internal/vec"

// Параметры зоны, которую оставляет магический снаряд
const (
	ZoneRadius   = 80.0
	ZoneDuration = 3.0
)

// Zone неподвижная область, наносящая урон в секунду всем врагам внутри
type Zone struct {
	ID        uint64
	Pos       vec.Vec2
	Radius    float64
	DPS       float64
	Activated float64 // время активации по часам симуляции
	Duration  float64

	// CreditID игрок, получающий опыт за убийства в зоне (0, если никто)
	CreditID uint64
}

// NewZone создаёт зону, активную с момента now
func NewZone(pos vec.Vec2, dps, now float64, creditID uint64) *Zone {
	return &Zone{
		Pos:       pos,
		Radius:    ZoneRadius,
		DPS:       dps,
		Activated: now,
		Duration:  ZoneDuration,
		CreditID:  creditID,
	}
}

// Expired истина, когда now - activation > duration
func (z *Zone) Expired(now float64) bool {
	return now-z.Activated > z.Duration
}

// Contains проверяет, находится ли точка в радиусе зоны
func (z *Zone) Contains(p vec.Vec2) bool {
	return z.Pos.DistanceTo(p) <= z.Radius
}

// Tick наносит урон за dt всем живым целям в зоне
func (z *Zone) Tick(dt float64, targets []Target) []Hit {
	if dt <= 0 {
		return nil
	}
	var hits []Hit
	for _, t := range targets {
		if !t.Alive() || !z.Contains(t.Position()) {
			continue
		}
		dmg := z.DPS * dt
		hits = append(hits, Hit{Target: t, Damage: dmg, Killed: t.TakeDamage(dmg)})
	}
	return hits
}
