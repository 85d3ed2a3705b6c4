package combat

// Владелец снаряда
type Owner string

const (
	OwnerPlayer  Owner = "player"
	OwnerMonster Owner = "monster"
)

// Opposes проверяет, может ли снаряд этого владельца поразить сущность стороны other
func (o Owner) Opposes(other Owner) bool {
	return o != other
}

// Параметры снарядов
const (
	ProjectileLifetime = 5.0 // секунд
	ProjectileRadius   = 5.0
	ProjectileMass     = 1.0

	// MonsterProjectileSpeed скорость снаряда монстра, пикселей/с
	MonsterProjectileSpeed = 300.0

	// pierceLevelStep каждые столько уровней добавляют одно пробитие
	pierceLevelStep = 5
)

// ProjectileState боевая часть снаряда; кинематика хранится в теле сущности
type ProjectileState struct {
	Owner    Owner
	OwnerID  uint64
	Weapon   string
	Behavior Behavior

	Damage    float64
	Knockback float64

	Age      float64
	Lifetime float64

	Travelled   float64
	MaxDistance float64 // только для BehaviorZone

	PierceCount int
	MaxPierce   int

	ExplosionRadius float64

	// уже поражённые цели, пробивающий снаряд не бьёт их повторно
	hits []uint64
}

// NewProjectile создаёт снаряд оружия игрока заданного уровня.
// damage итоговый урон с учётом характеристик стрелка.
func NewProjectile(w Weapon, ownerID uint64, level int, damage float64) ProjectileState {
	p := ProjectileState{
		Owner:     OwnerPlayer,
		OwnerID:   ownerID,
		Weapon:    w.Name,
		Behavior:  w.Behavior,
		Damage:    damage,
		Knockback: w.Knockback,
		Lifetime:  ProjectileLifetime,
	}

	switch w.Behavior {
	case BehaviorPiercing:
		p.MaxPierce = MaxPierce(w.BaseMaxPierce, level)
	case BehaviorExplosive:
		p.ExplosionRadius = w.ExplosionRadius
	case BehaviorZone:
		p.MaxDistance = w.MaxDistance
	}
	return p
}

// NewMonsterProjectile создаёт обычный снаряд монстра
func NewMonsterProjectile(ownerID uint64, damage float64) ProjectileState {
	return ProjectileState{
		Owner:     OwnerMonster,
		OwnerID:   ownerID,
		Weapon:    "monster",
		Behavior:  BehaviorPlain,
		Damage:    damage,
		Knockback: KnockbackGeneric,
		Lifetime:  ProjectileLifetime,
	}
}

// MaxPierce число попаданий, после которого пробивающий снаряд исчезает
func MaxPierce(base, level int) int {
	if level < 0 {
		level = 0
	}
	return base + level/pierceLevelStep
}

// Advance старит снаряд на dt и учитывает пройденный путь.
// Возвращает true, если бюджет времени или дистанции исчерпан.
func (p *ProjectileState) Advance(dt, distance float64) bool {
	p.Age += dt
	p.Travelled += distance
	return p.Exhausted()
}

// Exhausted проверяет, исчерпан ли бюджет снаряда
func (p *ProjectileState) Exhausted() bool {
	if p.Behavior == BehaviorZone && p.MaxDistance > 0 && p.Travelled >= p.MaxDistance {
		return true
	}
	return p.Lifetime > 0 && p.Age >= p.Lifetime
}

// RegisterPierce засчитывает пробитие. Возвращает true, если снаряд должен исчезнуть.
func (p *ProjectileState) RegisterPierce() bool {
	p.PierceCount++
	return p.PierceCount >= p.MaxPierce
}

// AlreadyHit проверяет, поражал ли снаряд цель
func (p *ProjectileState) AlreadyHit(id uint64) bool {
	for _, h := range p.hits {
		if h == id {
			return true
		}
	}
	return false
}

// MarkHit запоминает поражённую цель
func (p *ProjectileState) MarkHit(id uint64) {
	p.hits = append(p.hits, id)
}
