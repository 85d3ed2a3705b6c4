package sim

import (
	"math"

	"github.com/annel0/gunguys/internal/combat"
	"github.com/annel0/gunguys/internal/entity"
	"github.com/annel0/gunguys/internal/physics"
	"github.com/annel0/gunguys/internal/vec"
)

// Kill убийство за тик
type Kill struct {
	VictimID   uint64
	Victim     entity.Kind
	KillerID   uint64 // 0, если убийство никому не засчитано
	// PeerNetID сетевой ID удалённого игрока, если убил его снаряд.
	// Опыт начисляет сам клиент по kill_credit.
	PeerNetID  string
	Experience int
}

// LevelUp повышение уровня за тик
type LevelUp struct {
	PlayerID uint64
	NetID    string
	Level    int
}

// Shot выстрел локального игрока, о котором сообщают пирам
type Shot struct {
	NetID  string
	Pos    vec.Vec2
	Dir    vec.Vec2
	Weapon string
}

// Events события одного шага
type Events struct {
	Kills      []Kill
	LevelUps   []LevelUp
	Shots      []Shot
	Spawned    []uint64
	PlayerDied bool
}

// Step выполняет один авторитетный шаг симуляции в фиксированном порядке.
// now монотонное время симуляции в секундах, dt длительность шага.
func (w *World) Step(now, dt float64, in Input) Events {
	w.mu.Lock()
	defer w.mu.Unlock()

	ev := w.pending
	w.pending = Events{}
	w.now = now
	if dt <= 0 {
		return ev
	}

	w.applyInput(in, &ev)
	w.integrate(dt)
	w.collide(dt)
	w.advanceProjectiles(dt, true, &ev)
	w.tickZones(dt, &ev)
	w.runAI(dt)
	w.spawnMonsters(dt, &ev)
	w.prune()
	return ev
}

// StepClient сокращённый шаг клиента: движение своего игрока, полёт его снарядов
// и попадания снарядов хоста в своего игрока. Монстры приходят со снимками хоста.
func (w *World) StepClient(now, dt float64, in Input, hostile []HostileProjectile) Events {
	w.mu.Lock()
	defer w.mu.Unlock()

	ev := w.pending
	w.pending = Events{}
	w.now = now
	if dt <= 0 {
		return ev
	}

	w.applyInput(in, &ev)
	w.integrate(dt)
	w.collide(dt)
	w.advanceProjectiles(dt, false, &ev)
	w.applyHostile(hostile, &ev)
	w.prune()
	return ev
}

// applyInput переводит ввод в ускорение, смену оружия и атаку
func (w *World) applyInput(in Input, ev *Events) {
	p, ok := w.registry.Get(w.localID)
	if !ok || !p.Alive() {
		return
	}

	if in.WeaponSelect != NoWeaponSelect {
		if weapon, ok := combat.WeaponByIndex(in.WeaponSelect); ok && weapon.Name != p.Player.Weapon.Name {
			p.Equip(weapon)
		}
	}

	dir := in.Direction()
	p.Body.ApplyAcceleration(dir.X*p.Body.AccelRate, dir.Y*p.Body.AccelRate)

	if in.Fire {
		w.fire(p, in.Aim, ev)
	}
}

// fire производит атаку оружием игрока, если перезарядка прошла
func (w *World) fire(p *entity.Entity, aim vec.Vec2, ev *Events) {
	weapon := p.Player.Weapon
	dir := aim.Sub(p.Body.Pos).Normalized()
	if dir == (vec.Vec2{}) {
		return
	}
	if !p.Player.Fire.TryFire(weapon.Name, p.Cooldown(), w.now) {
		return
	}

	ev.Shots = append(ev.Shots, Shot{NetID: p.Player.NetID, Pos: p.Body.Pos, Dir: dir, Weapon: weapon.Name})

	if weapon.IsMelee() {
		hits := combat.Melee(p.Body.Pos, dir, p.MeleeReach(), p.Player.Damage, weapon.Knockback, w.targetsFor(combat.OwnerPlayer))
		w.applyKills(hits, p.ID, ev)
		return
	}

	st := combat.NewProjectile(weapon, p.ID, p.Player.Level, p.Player.Damage)
	start := p.Body.Pos.Add(dir.Mul(p.Body.Radius + combat.ProjectileRadius))
	w.registry.Add(entity.NewProjectile(start, dir.Mul(weapon.ProjectileSpeed), st))
}

// movers сущности, движимые локальной физикой
func (w *World) movers() []*entity.Entity {
	var out []*entity.Entity
	for _, e := range w.registry.All() {
		if (e.Kind == entity.KindPlayer || e.Kind == entity.KindMonster) && e.Alive() {
			out = append(out, e)
		}
	}
	return out
}

// integrate обновляет скорости всех тел. При упругой политике позиция
// интегрируется сразу, при блокирующей её фиксирует collide.
func (w *World) integrate(dt float64) {
	for _, e := range w.movers() {
		if w.cfg.Policy == CollisionElastic {
			e.Body.Integrate(dt)
		} else {
			e.Body.StepVelocity(dt)
		}
	}
}

// collide разрешает столкновения сущностей выбранной политикой
func (w *World) collide(dt float64) {
	movers := w.movers()

	if w.cfg.Policy == CollisionElastic {
		for i := 0; i < len(movers); i++ {
			for j := i + 1; j < len(movers); j++ {
				physics.ResolveElastic(movers[i].Body, movers[j].Body)
			}
		}
		for _, e := range movers {
			w.confine(e.Body)
		}
		return
	}

	obstacles := make([]physics.Obstacle, 0, len(movers)+len(w.walls)+4)
	obstacles = append(obstacles, w.walls...)
	for _, e := range movers {
		obstacles = append(obstacles, physics.BodyObstacle(e.Body))
	}
	// Тени удалённых игроков твёрдые, но не получают импульса
	for _, e := range w.registry.ByKind(entity.KindPeer) {
		if e.Alive() {
			obstacles = append(obstacles, physics.StaticObstacle(e.Body.Bounds()))
		}
	}

	for _, e := range movers {
		physics.MoveBlocking(e.Body, dt, obstacles)
	}
}

// confine удерживает тело внутри арены отскоком от стен
func (w *World) confine(b *physics.Body) {
	a := w.cfg.Arena
	if a == (physics.Rect{}) {
		return
	}
	if b.Pos.X-b.Radius < a.MinX {
		b.Pos.X = a.MinX + b.Radius
		if b.Vel.X < 0 {
			b.Vel.X = physics.BounceAxis(b.Vel.X)
		}
	} else if b.Pos.X+b.Radius > a.MaxX {
		b.Pos.X = a.MaxX - b.Radius
		if b.Vel.X > 0 {
			b.Vel.X = physics.BounceAxis(b.Vel.X)
		}
	}
	if b.Pos.Y-b.Radius < a.MinY {
		b.Pos.Y = a.MinY + b.Radius
		if b.Vel.Y < 0 {
			b.Vel.Y = physics.BounceAxis(b.Vel.Y)
		}
	} else if b.Pos.Y+b.Radius > a.MaxY {
		b.Pos.Y = a.MaxY - b.Radius
		if b.Vel.Y > 0 {
			b.Vel.Y = physics.BounceAxis(b.Vel.Y)
		}
	}
}

// advanceProjectiles двигает снаряды и проверяет попадания.
// authoritative=false: снаряды только летят и истекают, урон считает хост.
func (w *World) advanceProjectiles(dt float64, authoritative bool, ev *Events) {
	for _, e := range w.registry.ByKind(entity.KindProjectile) {
		if !w.registry.Has(e.ID) {
			continue // снаряд уже удалён взрывом или попаданием в этом тике
		}
		st := e.Projectile
		dist := e.Body.Vel.Length() * dt
		e.Body.Pos = e.Body.Pos.Add(e.Body.Vel.Mul(dt))

		if !authoritative {
			if st.Advance(dt, dist) {
				w.registry.Remove(e.ID)
			}
			continue
		}

		removed := false
		targets := w.targetsFor(st.Owner)
		for _, t := range targets {
			if !t.Alive() || st.AlreadyHit(t.EntityID()) {
				continue
			}
			if e.Body.Pos.DistanceTo(t.Position()) >= e.Body.Radius+t.HitRadius() {
				continue
			}
			st.MarkHit(t.EntityID())
			out := combat.ResolveHit(st, e.Body.Pos, e.Body.Vel, t, targets, w.now)
			w.applyOutcome(st, out, ev)
			if out.Remove {
				w.registry.Remove(e.ID)
				removed = true
				break
			}
		}
		if removed {
			continue
		}

		if st.Advance(dt, dist) || !w.inArena(e.Body.Pos) {
			out := combat.ResolveExpiry(st, e.Body.Pos, targets, w.now)
			w.applyOutcome(st, out, ev)
			w.registry.Remove(e.ID)
		}
	}
}

// inArena проверяет, что точка внутри арены
func (w *World) inArena(p vec.Vec2) bool {
	a := w.cfg.Arena
	if a == (physics.Rect{}) {
		return true
	}
	return p.X >= a.MinX && p.X <= a.MaxX && p.Y >= a.MinY && p.Y <= a.MaxY
}

// applyOutcome применяет результат попадания: убийства, зону
func (w *World) applyOutcome(st *combat.ProjectileState, out combat.Outcome, ev *Events) {
	credit := uint64(0)
	if st.Owner == combat.OwnerPlayer {
		credit = st.OwnerID
	}
	w.applyKills(out.Hits, credit, ev)
	if out.Zone != nil {
		w.addZone(out.Zone)
	}
}

// applyKills удаляет убитых и начисляет опыт ответственному игроку.
// Удаление проверяет членство, поэтому двойное убийство за тик безопасно.
func (w *World) applyKills(hits []combat.Hit, creditID uint64, ev *Events) {
	if ev == nil {
		ev = &w.pending
	}
	for _, h := range hits {
		if !h.Killed {
			continue
		}
		victim, ok := w.registry.Get(h.Target.EntityID())
		if !ok {
			continue
		}

		if victim.Kind == entity.KindPlayer {
			victim.Player.Dead = true
			if victim.ID == w.localID {
				ev.PlayerDied = true
			}
			w.log.Info("Игрок %s погиб", victim.Player.NetID)
			continue
		}

		if !w.registry.Remove(victim.ID) {
			continue
		}
		kill := Kill{VictimID: victim.ID, Victim: victim.Kind}
		if killer, ok := w.registry.Get(creditID); ok {
			switch killer.Kind {
			case entity.KindPlayer:
				kill.KillerID = killer.ID
				kill.Experience = combat.KillExperience
				w.credit(killer, combat.KillExperience, ev)
			case entity.KindPeer:
				kill.KillerID = killer.ID
				kill.PeerNetID = killer.Peer.NetID
				kill.Experience = combat.KillExperience
			}
		}
		ev.Kills = append(ev.Kills, kill)
	}
}

// credit начисляет опыт игроку и отмечает повышения уровня
func (w *World) credit(p *entity.Entity, amount int, ev *Events) {
	if levels := p.GainExperience(amount); levels > 0 {
		ev.LevelUps = append(ev.LevelUps, LevelUp{PlayerID: p.ID, NetID: p.Player.NetID, Level: p.Player.Level})
		w.log.Info("Игрок %s достиг уровня %d", p.Player.NetID, p.Player.Level)
	}
}

// CreditLocal начисляет своему игроку опыт за убийство, засчитанное хостом.
// Убийство и повышения уровня попадут в события следующего шага.
func (w *World) CreditLocal(victimID uint64, amount int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.registry.Get(w.localID)
	if !ok || amount <= 0 {
		return false
	}
	w.pending.Kills = append(w.pending.Kills, Kill{VictimID: victimID, Victim: entity.KindMonster, KillerID: p.ID, Experience: amount})
	w.credit(p, amount, &w.pending)
	return true
}

// tickZones наносит урон зонами всем монстрам
func (w *World) tickZones(dt float64, ev *Events) {
	if len(w.zones) == 0 {
		return
	}
	targets := w.targetsFor(combat.OwnerPlayer)
	for _, z := range w.zones {
		if z.Expired(w.now) {
			continue
		}
		w.applyKills(z.Tick(dt, targets), z.CreditID, ev)
	}
}

// nearestTarget ближайший живой игрок или тень для ИИ
func (w *World) nearestTarget(from vec.Vec2) (vec.Vec2, bool) {
	best := math.Inf(1)
	var pos vec.Vec2
	found := false
	for _, e := range w.registry.All() {
		if (e.Kind != entity.KindPlayer && e.Kind != entity.KindPeer) || !e.Alive() {
			continue
		}
		if d := from.DistanceTo(e.Body.Pos); d < best {
			best, pos, found = d, e.Body.Pos, true
		}
	}
	return pos, found
}

// runAI обновляет монстров и создаёт их снаряды
func (w *World) runAI(dt float64) {
	for _, m := range w.registry.ByKind(entity.KindMonster) {
		if !m.Alive() {
			continue
		}
		target, ok := w.nearestTarget(m.Body.Pos)
		if !m.Think(dt, target, ok, w.rng) {
			continue
		}
		dir := m.Body.DirectionTo(target, 0.1)
		st := combat.NewMonsterProjectile(m.ID, m.Monster.Damage)
		start := m.Body.Pos.Add(dir.Mul(m.Body.Radius + combat.ProjectileRadius))
		w.registry.Add(entity.NewProjectile(start, dir.Mul(combat.MonsterProjectileSpeed), st))
	}
}

// spawnMonsters с вероятностью SpawnRate*dt создаёт монстра в кольце вокруг игрока
func (w *World) spawnMonsters(dt float64, ev *Events) {
	if w.cfg.SpawnDisabled || w.registry.Count(entity.KindMonster) >= w.cfg.MonsterCap {
		return
	}
	if w.rng.Float64() >= w.cfg.Difficulty.Tier().SpawnRate*dt {
		return
	}
	center, ok := w.anchor()
	if !ok {
		return
	}
	m := w.spawnMonsterNear(center)
	ev.Spawned = append(ev.Spawned, m.ID)
}

// anchor точка, вокруг которой появляются монстры
func (w *World) anchor() (vec.Vec2, bool) {
	if p, ok := w.registry.Get(w.localID); ok && p.Alive() {
		return p.Body.Pos, true
	}
	for _, e := range w.registry.ByKind(entity.KindPeer) {
		if e.Alive() {
			return e.Body.Pos, true
		}
	}
	return vec.Vec2{}, false
}

// spawnMonsterNear создаёт монстра на случайном расстоянии кольца.
// Угол берётся из поля шума, чтобы волны приходили с меняющихся сторон.
func (w *World) spawnMonsterNear(center vec.Vec2) *entity.Entity {
	angle := w.noise.Angle(w.now*0.1, float64(w.registry.Len())*0.37)
	r := w.cfg.SpawnRingMin + w.rng.Float64()*(w.cfg.SpawnRingMax-w.cfg.SpawnRingMin)
	pos := center.Add(vec.FromAngle(angle).Mul(r))

	if a := w.cfg.Arena; a != (physics.Rect{}) {
		pos.X = math.Max(a.MinX+30, math.Min(a.MaxX-30, pos.X))
		pos.Y = math.Max(a.MinY+30, math.Min(a.MaxY-30, pos.Y))
	}

	m := entity.NewMonster(pos.X, pos.Y, w.cfg.Difficulty, w.rng)
	w.registry.Add(m)
	return m
}

// SpawnMonster создаёт монстра в точке (используется тестами и отладкой)
func (w *World) SpawnMonster(x, y float64) *entity.Entity {
	w.mu.Lock()
	defer w.mu.Unlock()

	m := entity.NewMonster(x, y, w.cfg.Difficulty, w.rng)
	w.registry.Add(m)
	return m
}

// prune удаляет мёртвые сущности и истёкшие зоны
func (w *World) prune() {
	w.registry.Prune()

	kept := w.zones[:0]
	for _, z := range w.zones {
		if !z.Expired(w.now) {
			kept = append(kept, z)
		}
	}
	w.zones = kept
}
