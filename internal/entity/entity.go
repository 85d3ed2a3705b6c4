// Package entity содержит сущности игры и реестр их жизненного цикла.
package entity

import (
	"strconv"

	"github.com/annel0/gunguys/internal/combat"
	"github.com/annel0/gunguys/internal/physics"
	"github.com/annel0/gunguys/internal/vec"
)

// Kind тег варианта сущности
type Kind uint8

const (
	KindPlayer     Kind = iota // Локальный игрок
	KindMonster                // Монстр под управлением ИИ
	KindProjectile             // Снаряд
	KindPeer                   // Тень удалённого игрока
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindMonster:
		return "monster"
	case KindProjectile:
		return "projectile"
	case KindPeer:
		return "peer"
	default:
		return "unknown"
	}
}

// Entity единая сущность: тело, здоровье и полезная нагрузка по тегу Kind.
// Заполнено ровно одно из полей Player, Monster, Projectile, Peer.
type Entity struct {
	ID   uint64
	Kind Kind
	Body *physics.Body

	Health    float64
	MaxHealth float64

	// Active сбрасывается при удалении из реестра
	Active bool

	Player     *PlayerData
	Monster    *MonsterData
	Projectile *combat.ProjectileState
	Peer       *PeerData
}

// Alive истина, пока сущность в мире и у неё есть здоровье
func (e *Entity) Alive() bool {
	if e.Peer != nil && e.Peer.Dead {
		return false
	}
	return e.Active && e.Health > 0
}

// EntityID реализует combat.Target
func (e *Entity) EntityID() uint64 { return e.ID }

// Position реализует combat.Target
func (e *Entity) Position() vec.Vec2 { return e.Body.Pos }

// HitRadius реализует combat.Target
func (e *Entity) HitRadius() float64 { return e.Body.Radius }

// TakeDamage уменьшает здоровье. Возвращает true, если этот урон убил сущность.
func (e *Entity) TakeDamage(amount float64) bool {
	if !e.Alive() || amount <= 0 {
		return false
	}
	e.Health -= amount
	return e.Health <= 0
}

// Push добавляет импульс скорости. Тени удалённых игроков не подвержены локальной физике.
func (e *Entity) Push(dv vec.Vec2) {
	if e.Kind == KindPeer {
		return
	}
	e.Body.ApplyImpulse(dv)
}

// Side сторона конфликта, к которой относится сущность
func (e *Entity) Side() combat.Owner {
	switch e.Kind {
	case KindMonster:
		return combat.OwnerMonster
	case KindProjectile:
		return e.Projectile.Owner
	default:
		return combat.OwnerPlayer
	}
}

// NetID идентификатор сущности на проводе
func (e *Entity) NetID() string {
	switch {
	case e.Player != nil:
		return e.Player.NetID
	case e.Peer != nil:
		return e.Peer.NetID
	default:
		return strconv.FormatUint(e.ID, 10)
	}
}

// NewProjectile создаёт сущность-снаряд в точке pos со скоростью vel
func NewProjectile(pos, vel vec.Vec2, state combat.ProjectileState) *Entity {
	body := physics.NewBody(pos.X, pos.Y, combat.ProjectileRadius, combat.ProjectileMass)
	body.Vel = vel
	body.MaxSpeed = -1 // снаряды не ограничены скоростью тел
	body.Friction = 0
	body.AccelRate = 0

	st := state
	return &Entity{
		Kind:       KindProjectile,
		Body:       body,
		Health:     1,
		MaxHealth:  1,
		Active:     true,
		Projectile: &st,
	}
}
