// Package replication превращает мир в снимки game_state, рассылает их
// с нужной частотой и сводит входящие сообщения в мир или зеркало клиента.
package replication

import (
	"strconv"

	"github.com/annel0/gunguys/internal/entity"
	"github.com/annel0/gunguys/internal/protocol"
	"github.com/annel0/gunguys/internal/sim"
)

// BuildState собирает содержимое снимка из представлений мира.
// Игроки и тени ключуются сетевым ID, монстры числовым ID реестра.
func BuildState(views []sim.EntityView) protocol.StateData {
	data := protocol.NewStateData()
	for _, v := range views {
		switch v.Kind {
		case entity.KindPlayer, entity.KindPeer:
			if v.NetID == "" {
				continue
			}
			data.Players[v.NetID] = playerState(v)
		case entity.KindMonster:
			if !v.Alive {
				continue
			}
			data.Monsters[EntityKey(v.ID)] = protocol.MonsterState{
				X:         v.X,
				Y:         v.Y,
				Health:    v.Health,
				MaxHealth: v.MaxHealth,
				Radius:    v.Radius,
			}
		case entity.KindProjectile:
			data.Projectiles = append(data.Projectiles, protocol.ProjectileState{
				ID:     EntityKey(v.ID),
				X:      v.X,
				Y:      v.Y,
				VX:     v.VX,
				VY:     v.VY,
				Owner:  string(v.Owner),
				Damage: v.Damage,
			})
		}
	}
	return data
}

// EntityKey ключ сущности в снимке
func EntityKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func playerState(v sim.EntityView) protocol.PlayerState {
	return protocol.PlayerState{
		X:         v.X,
		Y:         v.Y,
		Health:    v.Health,
		MaxHealth: v.MaxHealth,
		Level:     v.Level,
		Weapon:    v.Weapon,
		Dead:      !v.Alive,
	}
}

// PlayerUpdateFrom состояние своего игрока для рассылки
func PlayerUpdateFrom(v sim.EntityView, name string) *protocol.PlayerUpdate {
	return &protocol.PlayerUpdate{
		PlayerID:  v.NetID,
		Name:      name,
		X:         v.X,
		Y:         v.Y,
		Health:    v.Health,
		MaxHealth: v.MaxHealth,
		Level:     v.Level,
		Weapon:    v.Weapon,
		Dead:      !v.Alive,
	}
}

// ShootFrom уведомление о выстреле своего игрока
func ShootFrom(s sim.Shot) *protocol.Shoot {
	return &protocol.Shoot{
		PlayerID:  s.NetID,
		X:         s.Pos.X,
		Y:         s.Pos.Y,
		Direction: [2]float64{s.Dir.X, s.Dir.Y},
		Weapon:    s.Weapon,
	}
}

// peerState переводит состояние игрока из сети в состояние тени
func peerState(x, y, health, maxHealth float64, level int, weapon string, dead bool) entity.PeerState {
	return entity.PeerState{
		X:         x,
		Y:         y,
		Health:    health,
		MaxHealth: maxHealth,
		Level:     level,
		Weapon:    weapon,
		Dead:      dead,
	}
}
