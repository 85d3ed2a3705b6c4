package replication

import "github.com/annel0/gunguys/internal/protocol"

// ChangeTracker помнит последнее отправленное состояние игроков и монстров
// и отбирает для дельта-снимка только изменившиеся записи.
// Снаряды движутся каждый тик, поэтому попадают в дельту целиком.
type ChangeTracker struct {
	players  map[string]protocol.PlayerState
	monsters map[string]protocol.MonsterState
}

// NewChangeTracker создаёт пустой трекер
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{
		players:  make(map[string]protocol.PlayerState),
		monsters: make(map[string]protocol.MonsterState),
	}
}

// Delta возвращает изменения относительно прошлой отправки и запоминает current.
// Исчезнувшие записи в дельту не попадают: удаление передаёт только полный снимок.
func (t *ChangeTracker) Delta(current protocol.StateData) protocol.StateData {
	out := protocol.NewStateData()
	for id, p := range current.Players {
		if prev, ok := t.players[id]; !ok || prev != p {
			out.Players[id] = p
		}
	}
	for id, m := range current.Monsters {
		if prev, ok := t.monsters[id]; !ok || prev != m {
			out.Monsters[id] = m
		}
	}
	out.Projectiles = append(out.Projectiles, current.Projectiles...)
	t.remember(current)
	return out
}

// Reset делает current новой базой, например после полного снимка
func (t *ChangeTracker) Reset(current protocol.StateData) {
	t.players = make(map[string]protocol.PlayerState, len(current.Players))
	t.monsters = make(map[string]protocol.MonsterState, len(current.Monsters))
	t.remember(current)
}

func (t *ChangeTracker) remember(current protocol.StateData) {
	for id := range t.players {
		if _, ok := current.Players[id]; !ok {
			delete(t.players, id)
		}
	}
	for id := range t.monsters {
		if _, ok := current.Monsters[id]; !ok {
			delete(t.monsters, id)
		}
	}
	for id, p := range current.Players {
		t.players[id] = p
	}
	for id, m := range current.Monsters {
		t.monsters[id] = m
	}
}
