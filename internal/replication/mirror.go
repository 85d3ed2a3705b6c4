package replication

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/annel0/gunguys/internal/combat"
	"github.com/annel0/gunguys/internal/entity"
	"github.com/annel0/gunguys/internal/protocol"
	"github.com/annel0/gunguys/internal/sim"
	"github.com/annel0/gunguys/internal/vec"
)

// Mirror копия мира хоста на клиенте. Записи сопоставляются по ID:
// отсутствующие создаются, существующие перезаписываются.
// Полный снимок удаляет всё, чего в нём нет. Свой игрок не перезаписывается.
type Mirror struct {
	mu          sync.RWMutex
	players     map[string]protocol.PlayerState
	monsters    map[string]protocol.MonsterState
	projectiles []protocol.ProjectileState

	seq      uint64
	hostTime float64
	updated  time.Time
}

// NewMirror создаёт пустое зеркало
func NewMirror() *Mirror {
	return &Mirror{
		players:  make(map[string]protocol.PlayerState),
		monsters: make(map[string]protocol.MonsterState),
	}
}

// Apply сводит снимок хоста в зеркало. localID игрок этого узла, его запись пропускается.
func (m *Mirror) Apply(gs *protocol.GameState, localID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gs.Full {
		for id := range m.players {
			if _, ok := gs.Data.Players[id]; !ok {
				delete(m.players, id)
			}
		}
		for id := range m.monsters {
			if _, ok := gs.Data.Monsters[id]; !ok {
				delete(m.monsters, id)
			}
		}
	}

	for id, p := range gs.Data.Players {
		if id == localID {
			continue
		}
		m.players[id] = p
	}
	for id, mon := range gs.Data.Monsters {
		m.monsters[id] = mon
	}
	m.projectiles = append(m.projectiles[:0], gs.Data.Projectiles...)

	m.seq = gs.Seq
	m.hostTime = gs.Timestamp
	m.updated = time.Now()
}

// ApplyPlayer учитывает player_update, пересланный хостом от другого клиента
func (m *Mirror) ApplyPlayer(u *protocol.PlayerUpdate, localID string) {
	if u.PlayerID == "" || u.PlayerID == localID {
		return
	}
	m.mu.Lock()
	m.players[u.PlayerID] = protocol.PlayerState{
		X:         u.X,
		Y:         u.Y,
		Health:    u.Health,
		MaxHealth: u.MaxHealth,
		Level:     u.Level,
		Weapon:    u.Weapon,
		Dead:      u.Dead,
	}
	m.mu.Unlock()
}

// HostileProjectiles снаряды монстров для проверки попаданий в своего игрока
func (m *Mirror) HostileProjectiles() []sim.HostileProjectile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []sim.HostileProjectile
	for _, p := range m.projectiles {
		if p.Owner != protocol.OwnerMonster {
			continue
		}
		out = append(out, sim.HostileProjectile{
			ID:     p.ID,
			Pos:    vec.Vec2{X: p.X, Y: p.Y},
			Vel:    vec.Vec2{X: p.VX, Y: p.VY},
			Damage: p.Damage,
		})
	}
	return out
}

// Snapshot копия содержимого зеркала
func (m *Mirror) Snapshot() protocol.StateData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := protocol.NewStateData()
	for id, p := range m.players {
		out.Players[id] = p
	}
	for id, mon := range m.monsters {
		out.Monsters[id] = mon
	}
	out.Projectiles = append(out.Projectiles, m.projectiles...)
	return out
}

// Views монстры и чужие снаряды в виде представлений для отрисовки
func (m *Mirror) Views() []sim.EntityView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]sim.EntityView, 0, len(m.monsters)+len(m.projectiles))
	for key, mon := range m.monsters {
		id, _ := strconv.ParseUint(key, 10, 64)
		out = append(out, sim.EntityView{
			ID:        id,
			Kind:      entity.KindMonster,
			X:         mon.X,
			Y:         mon.Y,
			Radius:    mon.Radius,
			Health:    mon.Health,
			MaxHealth: mon.MaxHealth,
			Alive:     mon.Health > 0,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	for _, p := range m.projectiles {
		id, _ := strconv.ParseUint(p.ID, 10, 64)
		out = append(out, sim.EntityView{
			ID:     id,
			Kind:   entity.KindProjectile,
			X:      p.X,
			Y:      p.Y,
			VX:     p.VX,
			VY:     p.VY,
			Radius: combat.ProjectileRadius,
			Owner:  combat.Owner(p.Owner),
			Alive:  true,
		})
	}
	return out
}

// Seq номер последнего применённого снимка
func (m *Mirror) Seq() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seq
}

// Updated время получения последнего снимка
func (m *Mirror) Updated() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}

// Clear забывает всё, например после разрыва соединения
func (m *Mirror) Clear() {
	m.mu.Lock()
	m.players = make(map[string]protocol.PlayerState)
	m.monsters = make(map[string]protocol.MonsterState)
	m.projectiles = nil
	m.seq = 0
	m.mu.Unlock()
}

// PeerWorld мир, в который переносятся чужие игроки. *sim.World подходит.
type PeerWorld interface {
	UpsertPeer(netID string, st entity.PeerState) *entity.Entity
	RemovePeer(netID string) bool
	Views() []sim.EntityView
}

// SyncPeers переносит чужих игроков из зеркала в мир как тени
// и удаляет тени, которых в зеркале больше нет.
func (m *Mirror) SyncPeers(w PeerWorld) {
	m.mu.RLock()
	players := make(map[string]protocol.PlayerState, len(m.players))
	for id, p := range m.players {
		players[id] = p
	}
	m.mu.RUnlock()

	for id, p := range players {
		w.UpsertPeer(id, peerState(p.X, p.Y, p.Health, p.MaxHealth, p.Level, p.Weapon, p.Dead))
	}
	for _, v := range w.Views() {
		if v.Kind != entity.KindPeer {
			continue
		}
		if _, ok := players[v.NetID]; !ok {
			w.RemovePeer(v.NetID)
		}
	}
}
