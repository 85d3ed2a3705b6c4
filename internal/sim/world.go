// Package sim выполняет пошаговую симуляцию мира: ввод, движение, столкновения,
// снаряды, зоны, ИИ, появление монстров и удаление мёртвых.
package sim

import (
	"math/rand"
	"sync"

	"github.com/annel0/gunguys/internal/combat"
	"github.com/annel0/gunguys/internal/entity"
	"github.com/annel0/gunguys/internal/logging"
	"github.com/annel0/gunguys/internal/physics"
	"github.com/annel0/gunguys/internal/util"
	"github.com/annel0/gunguys/internal/vec"
)

// CollisionPolicy выбирает политику столкновений между сущностями
type CollisionPolicy uint8

const (
	CollisionBlocking CollisionPolicy = iota // Покомпонентное блокирование с обменом импульсом
	CollisionElastic                         // Упругие окружности
)

// ParseCollisionPolicy разбирает название политики
func ParseCollisionPolicy(s string) CollisionPolicy {
	if s == "elastic" {
		return CollisionElastic
	}
	return CollisionBlocking
}

// Config параметры мира
type Config struct {
	Difficulty entity.Difficulty
	Policy     CollisionPolicy

	// Arena границы мира. Нулевой прямоугольник означает мир без стен.
	Arena physics.Rect

	MonsterCap   int
	SpawnRingMin float64
	SpawnRingMax float64
	// SpawnDisabled отключает появление монстров
	SpawnDisabled bool

	Seed int64
}

// DefaultConfig значения по умолчанию
func DefaultConfig() Config {
	return Config{
		Difficulty:   entity.DifficultyBalanced,
		Policy:       CollisionBlocking,
		Arena:        physics.Rect{MinX: -2000, MinY: -2000, MaxX: 2000, MaxY: 2000},
		MonsterCap:   30,
		SpawnRingMin: 400,
		SpawnRingMax: 600,
		Seed:         1,
	}
}

// wallThickness толщина стен арены
const wallThickness = 1000.0

// World состояние симуляции. Изменяется только горутиной симуляции,
// остальные горутины читают через Views/Stats.
type World struct {
	cfg Config
	log *logging.Logger

	registry *entity.Registry
	zones    []*combat.Zone
	walls    []physics.Obstacle

	rng   *rand.Rand
	noise *util.NoiseField

	localID    uint64
	hostileHit map[string]bool // снаряды хоста, уже поразившие локального игрока
	nextZoneID uint64
	now        float64

	// события, возникшие вне шага (удары удалённых игроков)
	pending Events

	mu sync.RWMutex
}

// NewWorld создаёт пустой мир
func NewWorld(cfg Config, log *logging.Logger) *World {
	if cfg.MonsterCap <= 0 {
		cfg.MonsterCap = DefaultConfig().MonsterCap
	}
	if cfg.SpawnRingMax <= cfg.SpawnRingMin {
		cfg.SpawnRingMin, cfg.SpawnRingMax = DefaultConfig().SpawnRingMin, DefaultConfig().SpawnRingMax
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = entity.DifficultyBalanced
	}

	w := &World{
		cfg:        cfg,
		log:        log,
		registry:   entity.NewRegistry(),
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		noise:      util.NewNoiseField(cfg.Seed),
		hostileHit: make(map[string]bool),
		nextZoneID: 1,
	}
	w.walls = arenaWalls(cfg.Arena)
	return w
}

// arenaWalls строит четыре стены вокруг арены
func arenaWalls(a physics.Rect) []physics.Obstacle {
	if a == (physics.Rect{}) {
		return nil
	}
	t := wallThickness
	return []physics.Obstacle{
		physics.StaticObstacle(physics.Rect{MinX: a.MinX - t, MinY: a.MinY - t, MaxX: a.MaxX + t, MaxY: a.MinY}),
		physics.StaticObstacle(physics.Rect{MinX: a.MinX - t, MinY: a.MaxY, MaxX: a.MaxX + t, MaxY: a.MaxY + t}),
		physics.StaticObstacle(physics.Rect{MinX: a.MinX - t, MinY: a.MinY, MaxX: a.MinX, MaxY: a.MaxY}),
		physics.StaticObstacle(physics.Rect{MinX: a.MaxX, MinY: a.MinY, MaxX: a.MaxX + t, MaxY: a.MaxY}),
	}
}

// Config возвращает параметры мира
func (w *World) Config() Config { return w.cfg }

// Registry возвращает реестр сущностей
func (w *World) Registry() *entity.Registry { return w.registry }

// Now время последнего шага по часам симуляции
func (w *World) Now() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.now
}

// SpawnLocalPlayer создаёт локального игрока в центре арены
func (w *World) SpawnLocalPlayer(netID, name string) *entity.Entity {
	w.mu.Lock()
	defer w.mu.Unlock()

	c := w.cfg.Arena.Center()
	p := entity.NewPlayer(netID, name, c.X, c.Y)
	w.localID = w.registry.Add(p)
	w.log.Info("Игрок %s (%s) появился в (%.0f, %.0f)", name, netID, c.X, c.Y)
	return p
}

// RespawnLocal возвращает погибшего локального игрока в центр арены с полным здоровьем.
// Уровень и оружие сохраняются.
func (w *World) RespawnLocal() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.LocalPlayer()
	if !ok || !p.Player.Dead {
		return false
	}
	c := w.cfg.Arena.Center()
	p.Respawn(c.X, c.Y)
	w.log.Info("Игрок %s возродился", p.Player.NetID)
	return true
}

// LocalPlayer возвращает локального игрока
func (w *World) LocalPlayer() (*entity.Entity, bool) {
	if w.localID == 0 {
		return nil, false
	}
	return w.registry.Get(w.localID)
}

// Zones возвращает копию активных зон
func (w *World) Zones() []combat.Zone {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]combat.Zone, 0, len(w.zones))
	for _, z := range w.zones {
		out = append(out, *z)
	}
	return out
}

// addZone регистрирует новую зону
func (w *World) addZone(z *combat.Zone) {
	z.ID = w.nextZoneID
	w.nextZoneID++
	w.zones = append(w.zones, z)
}

// UpsertPeer создаёт или обновляет тень удалённого игрока
func (w *World) UpsertPeer(netID string, st entity.PeerState) *entity.Entity {
	w.mu.Lock()
	defer w.mu.Unlock()

	if e, ok := w.registry.FindByNetID(netID); ok {
		if e.Kind == entity.KindPeer {
			e.ApplyPeerState(st, w.now)
		}
		return e
	}
	e := entity.NewPeer(netID, st, w.now)
	w.registry.Add(e)
	return e
}

// RemovePeer удаляет тень удалённого игрока
func (w *World) RemovePeer(netID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.registry.FindByNetID(netID)
	if !ok || e.Kind != entity.KindPeer {
		return false
	}
	return w.registry.Remove(e.ID)
}

// SpawnRemoteShot создаёт на хосте снаряд или удар удалённого игрока,
// чтобы урон монстрам оставался авторитетным.
func (w *World) SpawnRemoteShot(netID string, pos, dir vec.Vec2) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.registry.FindByNetID(netID)
	if !ok || e.Kind != entity.KindPeer || !e.Alive() {
		return false
	}
	weapon, ok := combat.WeaponByName(e.Peer.Weapon)
	if !ok {
		weapon = combat.DefaultWeapon()
	}
	dir = dir.Normalized()
	if dir == (vec.Vec2{}) {
		return false
	}

	damage := float64(entity.BaseDamageAt(e.Peer.Level)) + weapon.Damage
	if weapon.IsMelee() {
		hits := combat.Melee(pos, dir, weapon.Range, damage, weapon.Knockback, w.targetsFor(combat.OwnerPlayer))
		w.applyKills(hits, e.ID, nil)
		return true
	}

	st := combat.NewProjectile(weapon, e.ID, e.Peer.Level, damage)
	w.registry.Add(entity.NewProjectile(pos, dir.Mul(weapon.ProjectileSpeed), st))
	return true
}

// targetsFor возвращает живые цели, которые могут поразить атаки стороны side.
// Тени удалённых игроков не получают урон на этой стороне: их здоровье авторитетно у владельца.
func (w *World) targetsFor(side combat.Owner) []combat.Target {
	var out []combat.Target
	for _, e := range w.registry.All() {
		if e.Kind == entity.KindProjectile || e.Kind == entity.KindPeer || !e.Alive() {
			continue
		}
		if side.Opposes(e.Side()) {
			out = append(out, e)
		}
	}
	return out
}
