package entity

import "github.com/annel0/gunguys/internal/physics"

// PeerData последнее известное состояние удалённого игрока
type PeerData struct {
	NetID  string
	Level  int
	Weapon string
	Dead   bool

	// LastUpdate время последнего обновления по часам симуляции
	LastUpdate float64
}

// PeerState входные данные для обновления тени
type PeerState struct {
	X, Y      float64
	Health    float64
	MaxHealth float64
	Level     int
	Weapon    string
	Dead      bool
}

// NewPeer создаёт тень удалённого игрока
func NewPeer(netID string, st PeerState, now float64) *Entity {
	e := &Entity{
		Kind:   KindPeer,
		Body:   physics.NewBody(st.X, st.Y, PlayerRadius, PlayerMass),
		Active: true,
		Peer:   &PeerData{NetID: netID},
	}
	e.ApplyPeerState(st, now)
	return e
}

// ApplyPeerState перезаписывает тень полученным состоянием
func (e *Entity) ApplyPeerState(st PeerState, now float64) {
	e.Body.Pos.X, e.Body.Pos.Y = st.X, st.Y
	e.Health = st.Health
	e.MaxHealth = st.MaxHealth
	e.Peer.Level = st.Level
	e.Peer.Weapon = st.Weapon
	e.Peer.Dead = st.Dead
	e.Peer.LastUpdate = now
}
