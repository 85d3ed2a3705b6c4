// Package combat описывает оружие, снаряды, зоны поражения и разрешение попаданий.
package combat

import "strings"

// Behavior определяет, какой снаряд (или удар) производит оружие
type Behavior uint8

const (
	BehaviorPlain     Behavior = iota // Летит по прямой, исчезает при первом попадании
	BehaviorPiercing                  // Пробивает несколько целей
	BehaviorExplosive                 // Взрывается при попадании
	BehaviorZone                      // Оставляет зону поражения
	BehaviorMelee                     // Мгновенный удар по сектору
)

func (b Behavior) String() string {
	switch b {
	case BehaviorPlain:
		return "plain"
	case BehaviorPiercing:
		return "piercing"
	case BehaviorExplosive:
		return "explosive"
	case BehaviorZone:
		return "zone"
	case BehaviorMelee:
		return "melee"
	default:
		return "unknown"
	}
}

// Величины отбрасывания по типам оружия
const (
	KnockbackSniper  = 15.0
	KnockbackRocket  = 12.0
	KnockbackWand    = 3.0
	KnockbackSword   = 15.0
	KnockbackMelee   = 10.0 // Кинжал и прочее ближнее оружие
	KnockbackGeneric = 5.0

	// ExplosionKnockbackFactor дополнительный множитель для взрыва
	ExplosionKnockbackFactor = 4.0
)

// Weapon неизменяемая запись каталога
type Weapon struct {
	Name     string
	Damage   float64
	FireRate float64 // выстрелов в секунду
	Behavior Behavior

	// Для дальнего боя
	ProjectileSpeed float64 // пикселей/с
	ExplosionRadius float64
	BaseMaxPierce   int
	MaxDistance     float64 // для зон

	// Для ближнего боя
	Range float64

	Knockback float64
}

// IsMelee возвращает true для оружия ближнего боя
func (w Weapon) IsMelee() bool {
	return w.Behavior == BehaviorMelee
}

// Каталог оружия. Порядок задаёт индекс выбора оружия.
var catalog = []Weapon{
	{Name: "Pistol", Damage: 25, FireRate: 2.0, Behavior: BehaviorPlain, ProjectileSpeed: 600, Knockback: KnockbackGeneric},
	{Name: "Rifle", Damage: 15, FireRate: 5.0, Behavior: BehaviorPlain, ProjectileSpeed: 720, Knockback: KnockbackGeneric},
	{Name: "Sniper", Damage: 100, FireRate: 0.5, Behavior: BehaviorPiercing, ProjectileSpeed: 1200, BaseMaxPierce: 1, Knockback: KnockbackSniper},
	{Name: "Shotgun", Damage: 30, FireRate: 1.0, Behavior: BehaviorPlain, ProjectileSpeed: 480, Knockback: KnockbackGeneric},
	{Name: "Rocket Launcher", Damage: 80, FireRate: 0.3, Behavior: BehaviorExplosive, ProjectileSpeed: 360, ExplosionRadius: 200, Knockback: KnockbackRocket},
	{Name: "Bow", Damage: 35, FireRate: 1.5, Behavior: BehaviorPlain, ProjectileSpeed: 900, Knockback: KnockbackGeneric},
	{Name: "Wand", Damage: 20, FireRate: 3.0, Behavior: BehaviorZone, ProjectileSpeed: 540, MaxDistance: 300, Knockback: KnockbackWand},
	{Name: "Sword", Damage: 40, FireRate: 2.5, Behavior: BehaviorMelee, Range: 120, Knockback: KnockbackSword},
	{Name: "Dagger", Damage: 15, FireRate: 6.0, Behavior: BehaviorMelee, Range: 100, Knockback: KnockbackMelee},
}

// Catalog возвращает копию каталога
func Catalog() []Weapon {
	out := make([]Weapon, len(catalog))
	copy(out, catalog)
	return out
}

// DefaultWeapon оружие нового игрока
func DefaultWeapon() Weapon {
	return catalog[0]
}

// WeaponByIndex возвращает оружие по индексу выбора
func WeaponByIndex(i int) (Weapon, bool) {
	if i < 0 || i >= len(catalog) {
		return Weapon{}, false
	}
	return catalog[i], true
}

// WeaponByName ищет оружие по имени без учёта регистра
func WeaponByName(name string) (Weapon, bool) {
	for _, w := range catalog {
		if strings.EqualFold(w.Name, name) {
			return w, true
		}
	}
	return Weapon{}, false
}
