package entity

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/annel0/gunguys/internal/physics"
	"github.com/annel0/gunguys/internal/vec"
)

// Difficulty уровень сложности, выбираемый при старте сессии
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyBalanced Difficulty = "balanced"
	DifficultyHard     Difficulty = "hard"
)

// Tier множители характеристик монстров и частота их появления
type Tier struct {
	Health    float64
	Damage    float64
	Speed     float64
	SpawnRate float64 // монстров в секунду
}

var tiers = map[Difficulty]Tier{
	DifficultyEasy:     {Health: 0.75, Damage: 0.5, Speed: 0.9, SpawnRate: 0.2},
	DifficultyBalanced: {Health: 1.0, Damage: 1.0, Speed: 1.0, SpawnRate: 0.35},
	DifficultyHard:     {Health: 1.5, Damage: 1.5, Speed: 1.15, SpawnRate: 0.6},
}

// Tier возвращает множители уровня сложности
func (d Difficulty) Tier() Tier {
	if t, ok := tiers[d]; ok {
		return t
	}
	return tiers[DifficultyBalanced]
}

// ParseDifficulty разбирает название уровня сложности ("medium" и "normal" синонимы "balanced")
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy, nil
	case "", "balanced", "medium", "normal":
		return DifficultyBalanced, nil
	case "hard":
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("неизвестная сложность: %q", s)
}

// Диапазоны характеристик монстров
const (
	monsterRadiusMin, monsterRadiusMax     = 15, 25
	monsterMassMin, monsterMassMax         = 5, 20
	monsterHealthMin, monsterHealthMax     = 30, 80
	monsterSpeedMin, monsterSpeedMax       = 50, 150
	monsterAccelMin, monsterAccelMax       = 30, 80
	monsterFrictionMin, monsterFrictionMax = 20, 60

	MonsterBaseDamage  = 10.0
	MonsterAttackRange = 300.0

	retargetMin, retargetMax = 0.5, 2.0
	attackCDMin, attackCDMax = 1.5, 3.0
	aiJitter                 = 0.5
	aiMinDistance            = 0.1
)

// MonsterData состояние ИИ монстра
type MonsterData struct {
	Difficulty Difficulty
	Mul        Tier

	Damage      float64
	AttackRange float64

	// AttackCooldown фиксируется при появлении
	AttackCooldown float64
	AttackTimer    float64

	RetargetTimer float64
	Direction     vec.Vec2
}

// randInt равномерно в [lo, hi]
func randInt(rng *rand.Rand, lo, hi int) float64 {
	return float64(lo + rng.Intn(hi-lo+1))
}

func randRange(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// NewMonster создаёт монстра со случайными характеристиками, масштабированными по сложности
func NewMonster(x, y float64, d Difficulty, rng *rand.Rand) *Entity {
	mul := d.Tier()

	body := physics.NewBody(x, y,
		randInt(rng, monsterRadiusMin, monsterRadiusMax),
		randInt(rng, monsterMassMin, monsterMassMax))
	body.MaxSpeed = randInt(rng, monsterSpeedMin, monsterSpeedMax) * mul.Speed
	body.AccelRate = randInt(rng, monsterAccelMin, monsterAccelMax) * mul.Speed
	body.Friction = randInt(rng, monsterFrictionMin, monsterFrictionMax)

	health := randInt(rng, monsterHealthMin, monsterHealthMax) * mul.Health

	cd := randRange(rng, attackCDMin, attackCDMax)
	return &Entity{
		Kind:      KindMonster,
		Body:      body,
		Health:    health,
		MaxHealth: health,
		Active:    true,
		Monster: &MonsterData{
			Difficulty:     d,
			Mul:            mul,
			Damage:         MonsterBaseDamage * mul.Damage,
			AttackRange:    MonsterAttackRange,
			AttackCooldown: cd,
			AttackTimer:    cd,
		},
	}
}

// Think продвигает ИИ монстра на dt: при необходимости выбирает новое
// направление к цели, прикладывает ускорение и отсчитывает перезарядку атаки.
// Возвращает true, если монстр атакует в этом тике.
func (e *Entity) Think(dt float64, target vec.Vec2, hasTarget bool, rng *rand.Rand) bool {
	m := e.Monster
	if m == nil || !e.Alive() {
		return false
	}

	m.RetargetTimer -= dt
	if m.RetargetTimer <= 0 {
		m.RetargetTimer = randRange(rng, retargetMin, retargetMax)
		if hasTarget {
			dir := e.Body.DirectionTo(target, aiMinDistance)
			dir.X += randRange(rng, -aiJitter, aiJitter)
			dir.Y += randRange(rng, -aiJitter, aiJitter)
			m.Direction = dir.NormalizedFloor(aiMinDistance)
		} else {
			m.Direction = vec.Vec2{}
		}
	}

	e.Body.ApplyAcceleration(m.Direction.X*e.Body.AccelRate, m.Direction.Y*e.Body.AccelRate)

	if m.AttackTimer > 0 {
		m.AttackTimer -= dt
	}
	if !hasTarget || e.Body.Pos.DistanceTo(target) > m.AttackRange || m.AttackTimer > 0 {
		return false
	}
	m.AttackTimer = m.AttackCooldown
	return true
}
