package sim

import (
	"github.com/annel0/gunguys/internal/combat"
	"github.com/annel0/gunguys/internal/entity"
)

// EntityView снимок сущности только для чтения (отрисовка, HUD, репликация)
type EntityView struct {
	ID        uint64
	NetID     string
	Kind      entity.Kind
	X, Y      float64
	VX, VY    float64
	Radius    float64
	Health    float64
	MaxHealth float64
	Level     int
	Weapon    string
	Owner     combat.Owner
	Damage    float64 // урон снаряда
	Alive     bool
}

func viewOf(e *entity.Entity) EntityView {
	v := EntityView{
		ID:        e.ID,
		NetID:     e.NetID(),
		Kind:      e.Kind,
		X:         e.Body.Pos.X,
		Y:         e.Body.Pos.Y,
		VX:        e.Body.Vel.X,
		VY:        e.Body.Vel.Y,
		Radius:    e.Body.Radius,
		Health:    e.Health,
		MaxHealth: e.MaxHealth,
		Alive:     e.Alive(),
	}
	switch {
	case e.Player != nil:
		v.Level = e.Player.Level
		v.Weapon = e.Player.Weapon.Name
	case e.Peer != nil:
		v.Level = e.Peer.Level
		v.Weapon = e.Peer.Weapon
	case e.Projectile != nil:
		v.Owner = e.Projectile.Owner
		v.Weapon = e.Projectile.Weapon
		v.Damage = e.Projectile.Damage
	}
	return v
}

// Views возвращает снимки всех сущностей в порядке реестра
func (w *World) Views() []EntityView {
	w.mu.RLock()
	defer w.mu.RUnlock()

	all := w.registry.All()
	out := make([]EntityView, 0, len(all))
	for _, e := range all {
		out = append(out, viewOf(e))
	}
	return out
}

// LocalView снимок локального игрока
func (w *World) LocalView() (EntityView, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	p, ok := w.LocalPlayer()
	if !ok {
		return EntityView{}, false
	}
	return viewOf(p), true
}

// IsAlive проверяет, жива ли сущность
func (w *World) IsAlive(id uint64) bool {
	e, ok := w.registry.Get(id)
	return ok && e.Alive()
}

// CooldownFraction доля оставшейся перезарядки оружия локального игрока
func (w *World) CooldownFraction() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	p, ok := w.LocalPlayer()
	if !ok {
		return 0
	}
	return p.CooldownFraction(w.now)
}

// Stats сводка для API состояния
type Stats struct {
	Players     int     `json:"players"`
	Peers       int     `json:"peers"`
	Monsters    int     `json:"monsters"`
	Projectiles int     `json:"projectiles"`
	Zones       int     `json:"zones"`
	Time        float64 `json:"time"`
	Difficulty  string  `json:"difficulty"`
}

// Stats возвращает число сущностей по видам
func (w *World) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return Stats{
		Players:     w.registry.Count(entity.KindPlayer),
		Peers:       w.registry.Count(entity.KindPeer),
		Monsters:    w.registry.Count(entity.KindMonster),
		Projectiles: w.registry.Count(entity.KindProjectile),
		Zones:       len(w.zones),
		Time:        w.now,
		Difficulty:  string(w.cfg.Difficulty),
	}
}

// Progress прогресс локального игрока для сохранения
type Progress struct {
	NetID      string
	Name       string
	Level      int
	Experience int
	Weapon     string
}

// LocalProgress возвращает прогресс локального игрока
func (w *World) LocalProgress() (Progress, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	e, ok := w.LocalPlayer()
	if !ok {
		return Progress{}, false
	}
	p := e.Player
	return Progress{
		NetID:      p.NetID,
		Name:       p.Name,
		Level:      p.Level,
		Experience: p.Experience,
		Weapon:     p.Weapon.Name,
	}, true
}

// RestoreProgress применяет сохранённый прогресс к локальному игроку.
// Неизвестное оружие заменяется оружием по умолчанию.
func (w *World) RestoreProgress(pr Progress) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.LocalPlayer()
	if !ok {
		return false
	}
	weapon, ok := combat.WeaponByName(pr.Weapon)
	if !ok {
		weapon = combat.DefaultWeapon()
	}
	e.Restore(pr.Level, pr.Experience, weapon)
	return true
}
