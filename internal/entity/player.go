package entity

import (
	"github.com/annel0/gunguys/internal/combat"
	"github.com/annel0/gunguys/internal/physics"
)

// Базовые характеристики игрока первого уровня
const (
	PlayerRadius      = 20.0
	PlayerMass        = 10.0
	PlayerBaseHealth  = 100
	PlayerBaseSpeed   = 200
	PlayerBaseAccel   = 100.0
	PlayerFriction    = 50.0
	PlayerBaseDamage  = 10
	PlayerBaseRange   = 50
	PlayerFirstNeeded = 100
)

// Множители за уровень
const (
	levelHealthMul = 1.1
	levelDamageMul = 1.1
	levelSpeedMul  = 1.05
	levelAccelMul  = 1.05
	levelRangeMul  = 1.05
	levelNeededMul = 1.5
)

// PlayerData состояние игрока
type PlayerData struct {
	NetID string
	Name  string

	Level            int
	Experience       int
	ExperienceNeeded int

	Weapon combat.Weapon
	Fire   *combat.FireTimer

	// Базовые характеристики без учёта оружия
	BaseMaxHealth int
	BaseSpeed     int
	BaseAccel     float64
	BaseFriction  float64
	BaseDamage    int
	BaseRange     int

	// Итоговые характеристики
	Damage      float64
	AttackRange float64

	Dead bool
}

// NewPlayer создаёт игрока первого уровня с оружием по умолчанию
func NewPlayer(netID, name string, x, y float64) *Entity {
	e := &Entity{
		Kind:   KindPlayer,
		Body:   physics.NewBody(x, y, PlayerRadius, PlayerMass),
		Active: true,
		Player: &PlayerData{
			NetID:            netID,
			Name:             name,
			Level:            1,
			ExperienceNeeded: PlayerFirstNeeded,
			Fire:             combat.NewFireTimer(),
			BaseMaxHealth:    PlayerBaseHealth,
			BaseSpeed:        PlayerBaseSpeed,
			BaseAccel:        PlayerBaseAccel,
			BaseFriction:     PlayerFriction,
			BaseDamage:       PlayerBaseDamage,
			BaseRange:        PlayerBaseRange,
		},
	}
	e.Equip(combat.DefaultWeapon())
	e.Health = e.MaxHealth
	return e
}

// Equip экипирует оружие и пересчитывает характеристики
func (e *Entity) Equip(w combat.Weapon) {
	e.Player.Weapon = w
	e.applyStats()
}

// applyStats накладывает модификаторы оружия поверх базовых характеристик
func (e *Entity) applyStats() {
	p := e.Player
	e.MaxHealth = float64(p.BaseMaxHealth)
	e.Body.MaxSpeed = float64(p.BaseSpeed)
	e.Body.AccelRate = p.BaseAccel
	e.Body.Friction = p.BaseFriction
	p.Damage = float64(p.BaseDamage) + p.Weapon.Damage
	p.AttackRange = float64(p.BaseRange)
	if e.Health > e.MaxHealth {
		e.Health = e.MaxHealth
	}
}

// BaseDamageAt базовый урон игрока уровня level, как после повышений levelUp
func BaseDamageAt(level int) int {
	d := PlayerBaseDamage
	for l := 1; l < level; l++ {
		d = int(float64(d) * levelDamageMul)
	}
	return d
}

// GainExperience начисляет опыт и обрабатывает все повышения уровня.
// Возвращает число полученных уровней.
func (e *Entity) GainExperience(amount int) int {
	p := e.Player
	if p == nil || amount <= 0 {
		return 0
	}
	p.Experience += amount

	levels := 0
	for p.Experience >= p.ExperienceNeeded && p.ExperienceNeeded > 0 {
		e.levelUp()
		levels++
	}
	return levels
}

func (e *Entity) levelUp() {
	p := e.Player
	p.Level++
	p.Experience -= p.ExperienceNeeded
	p.ExperienceNeeded = int(float64(p.ExperienceNeeded) * levelNeededMul)

	p.BaseMaxHealth = int(float64(p.BaseMaxHealth) * levelHealthMul)
	p.BaseSpeed = int(float64(p.BaseSpeed) * levelSpeedMul)
	p.BaseAccel *= levelAccelMul
	p.BaseDamage = int(float64(p.BaseDamage) * levelDamageMul)
	p.BaseRange = int(float64(p.BaseRange) * levelRangeMul)

	e.applyStats()
	e.Health = e.MaxHealth
}

// Cooldown текущий интервал перезарядки оружия
func (e *Entity) Cooldown() float64 {
	return combat.Cooldown(e.Player.Weapon.FireRate, e.Player.Level)
}

// CooldownFraction доля оставшейся перезарядки для интерфейса
func (e *Entity) CooldownFraction(now float64) float64 {
	if e.Player == nil {
		return 0
	}
	return e.Player.Fire.Fraction(e.Player.Weapon.Name, e.Cooldown(), now)
}

// MeleeReach дальность удара с учётом роста дальности атаки по уровням
func (e *Entity) MeleeReach() float64 {
	return e.Player.Weapon.Range * e.Player.AttackRange / PlayerBaseRange
}

// Respawn восстанавливает игрока в точке x, y
func (e *Entity) Respawn(x, y float64) {
	e.Body.Pos.X, e.Body.Pos.Y = x, y
	e.Body.Vel.X, e.Body.Vel.Y = 0, 0
	e.Health = e.MaxHealth
	e.Player.Dead = false
}

// Restore поднимает игрока первого уровня до сохранённого уровня и опыта
func (e *Entity) Restore(level, experience int, weapon combat.Weapon) {
	p := e.Player
	for p.Level < level {
		p.Experience += p.ExperienceNeeded
		e.levelUp()
	}
	if experience >= 0 && experience < p.ExperienceNeeded {
		p.Experience = experience
	}
	e.Equip(weapon)
	e.Health = e.MaxHealth
}
