package sim

import (
	"github.com/annel0/gunguys/internal/combat"
	"github.com/annel0/gunguys/internal/entity"
	"github.com/annel0/gunguys/internal/vec"
)

// HostileProjectile снаряд монстра из снимка хоста
type HostileProjectile struct {
	ID     string
	Pos    vec.Vec2
	Vel    vec.Vec2
	Damage float64 // урон по расчёту хоста; 0: по своей сложности
}

// applyHostile проверяет попадания снарядов хоста в своего игрока.
// Клиент авторитетен для своего игрока, поэтому урон применяется здесь.
// Каждый снаряд поражает игрока не более одного раза.
func (w *World) applyHostile(hostile []HostileProjectile, ev *Events) {
	seen := make(map[string]bool, len(hostile))
	for _, h := range hostile {
		seen[h.ID] = true
	}
	for id := range w.hostileHit {
		if !seen[id] {
			delete(w.hostileHit, id)
		}
	}

	p, ok := w.registry.Get(w.localID)
	if !ok || !p.Alive() {
		return
	}

	fallback := w.monsterProjectileDamage()
	for _, h := range hostile {
		if h.ID == "" || w.hostileHit[h.ID] {
			continue
		}
		if p.Body.Pos.DistanceTo(h.Pos) >= p.Body.Radius+combat.ProjectileRadius {
			continue
		}
		w.hostileHit[h.ID] = true

		damage := h.Damage
		if damage <= 0 {
			damage = fallback
		}
		st := combat.NewMonsterProjectile(0, damage)
		out := combat.ResolveHit(&st, h.Pos, h.Vel, p, nil, w.now)
		w.applyKills(out.Hits, 0, ev)
		if !p.Alive() {
			return
		}
	}
}

// monsterProjectileDamage урон снаряда монстра для своей сложности,
// если хост не прислал урон в снимке
func (w *World) monsterProjectileDamage() float64 {
	return entity.MonsterBaseDamage * w.cfg.Difficulty.Tier().Damage
}
