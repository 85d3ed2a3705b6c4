// Package game связывает мир симуляции с сетевой сессией: один тик опрашивает
// сеть, применяет сообщения, делает шаг мира и публикует игровые события.
package game

import (
	"context"
	"strconv"
	"time"

	"github.com/annel0/gunguys/internal/entity"
	"github.com/annel0/gunguys/internal/eventbus"
	"github.com/annel0/gunguys/internal/logging"
	"github.com/annel0/gunguys/internal/network"
	"github.com/annel0/gunguys/internal/protocol"
	"github.com/annel0/gunguys/internal/replication"
	"github.com/annel0/gunguys/internal/sim"
	"github.com/annel0/gunguys/internal/storage"
)

// Значения по умолчанию
const (
	DefaultTickRate     = 60.0
	DefaultRespawnDelay = 3 * time.Second
)

// Session сетевая сессия глазами игрового цикла. *network.Session подходит.
type Session interface {
	State() network.State
	Poll() ([]network.Inbound, []network.PeerEvent)
	Send(m protocol.Message)
}

// Options параметры цикла
type Options struct {
	TickRate float64
	// RespawnDelay пауза перед возрождением; отрицательная отключает возрождение
	RespawnDelay time.Duration

	Input       InputSource
	Emitter     *eventbus.Emitter
	Tracker     *storage.ProgressTracker
	Broadcaster *replication.Broadcaster
	Log         *logging.Logger
}

// Runner игровой цикл одного узла. Все методы, кроме Run, вызываются
// из одной горутины.
type Runner struct {
	world   *sim.World
	session Session
	opts    Options
	log     *logging.Logger

	host   *replication.HostHandler
	client *replication.ClientHandler
	mirror *replication.Mirror

	now     float64
	state   network.State
	diedAt  float64
	dead    bool
	localID string
}

// NewRunner создаёт цикл. Локальный игрок должен быть уже создан в мире.
func NewRunner(world *sim.World, session Session, opts Options) *Runner {
	if opts.TickRate <= 0 {
		opts.TickRate = DefaultTickRate
	}
	if opts.RespawnDelay == 0 {
		opts.RespawnDelay = DefaultRespawnDelay
	}
	if opts.Input == nil {
		opts.Input = IdleSource{}
	}

	var localID string
	if p, ok := world.LocalPlayer(); ok {
		localID = p.Player.NetID
	}

	mirror := replication.NewMirror()
	r := &Runner{
		world:   world,
		session: session,
		opts:    opts,
		log:     opts.Log,
		host:    replication.NewHostHandler(world, opts.Emitter, opts.Log),
		client:  replication.NewClientHandler(mirror, world, localID, opts.Log),
		mirror:  mirror,
		state:   network.StateIdle,
		localID: localID,
	}
	if opts.Broadcaster != nil {
		r.host.OnJoin = func(string) { opts.Broadcaster.ForceFull() }
	}
	return r
}

// Mirror зеркало мира хоста для клиента
func (r *Runner) Mirror() *replication.Mirror { return r.mirror }

// Now время симуляции
func (r *Runner) Now() float64 { return r.now }

// Restore загружает сохранённый прогресс локального игрока
func (r *Runner) Restore(ctx context.Context) (bool, error) {
	if r.opts.Tracker == nil {
		return false, nil
	}
	local, ok := r.world.LocalProgress()
	if !ok {
		return false, nil
	}

	p, found, err := r.opts.Tracker.Load(ctx, local.Name)
	if err != nil || !found {
		return false, err
	}
	r.world.RestoreProgress(sim.Progress{
		NetID:      local.NetID,
		Name:       local.Name,
		Level:      p.Level,
		Experience: p.Experience,
		Weapon:     p.Weapon,
	})
	r.log.Info("Прогресс %s восстановлен: уровень %d, %s", p.Name, p.Level, p.Weapon)
	return true, nil
}

// SaveProgress сохраняет текущий прогресс локального игрока
func (r *Runner) SaveProgress(ctx context.Context) error {
	if r.opts.Tracker == nil {
		return nil
	}
	local, ok := r.world.LocalProgress()
	if !ok {
		return nil
	}
	return r.opts.Tracker.Save(ctx, storage.Progress{
		Name:       local.Name,
		Level:      local.Level,
		Experience: local.Experience,
		Weapon:     local.Weapon,
	})
}

// Run выполняет тики с фиксированной частотой до отмены ctx
func (r *Runner) Run(ctx context.Context) error {
	dt := 1 / r.opts.TickRate
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Tick(ctx, dt)
		}
	}
}

// Tick один шаг: сеть, симуляция, события
func (r *Runner) Tick(ctx context.Context, dt float64) sim.Events {
	r.now += dt
	r.observeState(ctx)

	inbound, events := r.session.Poll()
	in := r.input()

	var ev sim.Events
	switch r.state {
	case network.StateHosting:
		r.host.Handle(ctx, inbound, events)
		ev = r.world.Step(r.now, dt, in)
		for _, c := range replication.KillCredits(ev) {
			r.session.Send(c)
		}

	case network.StateConnected:
		if r.client.Handle(inbound, events) {
			// Session сама перейдёт в Disconnected, мир продолжает жить
			r.dropRemote()
		}
		for _, c := range r.client.TakeCredits() {
			victim, _ := strconv.ParseUint(c.VictimID, 10, 64)
			r.world.CreditLocal(victim, c.Experience)
		}
		ev = r.world.StepClient(r.now, dt, in, r.mirror.HostileProjectiles())
		for _, s := range ev.Shots {
			r.session.Send(replication.ShootFrom(s))
		}

	default:
		ev = r.world.Step(r.now, dt, in)
	}

	r.publish(ctx, ev)
	r.respawn()
	return ev
}

func (r *Runner) input() sim.Input {
	local, ok := r.world.LocalView()
	if !ok {
		return sim.IdleInput()
	}
	others := r.world.Views()
	if r.state == network.StateConnected {
		others = append(others, r.mirror.Views()...)
	}
	return r.opts.Input.Next(local, others)
}

// observeState отслеживает переходы сессии
func (r *Runner) observeState(ctx context.Context) {
	st := r.session.State()
	if st == r.state {
		return
	}
	prev := r.state
	r.state = st

	if prev == network.StateConnected {
		r.dropRemote()
	}
	r.emit(ctx, eventbus.TypeSessionState, eventbus.PriorityLow, eventbus.SessionState{
		From: prev.String(),
		To:   st.String(),
	})
}

// dropRemote забывает мир хоста после разрыва соединения
func (r *Runner) dropRemote() {
	r.mirror.Clear()
	r.mirror.SyncPeers(r.world)
}

func (r *Runner) publish(ctx context.Context, ev sim.Events) {
	for _, k := range ev.Kills {
		if k.Victim != entity.KindMonster {
			continue
		}
		r.emit(ctx, eventbus.TypeMonsterKilled, eventbus.PriorityLow, eventbus.MonsterKilled{
			MonsterID:  k.VictimID,
			KillerID:   r.netIDOf(k.KillerID),
			Experience: k.Experience,
		})
	}

	for _, lu := range ev.LevelUps {
		if lu.NetID != r.localID {
			continue
		}
		p, ok := r.world.LocalProgress()
		if !ok {
			continue
		}
		r.emit(ctx, eventbus.TypeLevelUp, eventbus.PriorityCritical, eventbus.LevelUp{
			PlayerID:   p.NetID,
			Name:       p.Name,
			Level:      p.Level,
			Experience: p.Experience,
			Weapon:     p.Weapon,
		})
	}

	if ev.PlayerDied {
		r.dead = true
		r.diedAt = r.now
		level := 0
		if p, ok := r.world.LocalProgress(); ok {
			level = p.Level
		}
		r.emit(ctx, eventbus.TypePlayerDied, eventbus.PriorityNormal, eventbus.PlayerDied{
			PlayerID: r.localID,
			Level:    level,
		})
	}
}

func (r *Runner) respawn() {
	if !r.dead || r.opts.RespawnDelay < 0 {
		return
	}
	if r.now-r.diedAt < r.opts.RespawnDelay.Seconds() {
		return
	}
	if r.world.RespawnLocal() {
		r.dead = false
	}
}

func (r *Runner) netIDOf(id uint64) string {
	if id == 0 {
		return ""
	}
	e, ok := r.world.Registry().Get(id)
	if !ok {
		return ""
	}
	return e.NetID()
}

func (r *Runner) emit(ctx context.Context, eventType string, prio int, payload any) {
	if err := r.opts.Emitter.Emit(ctx, eventType, prio, payload); err != nil {
		r.log.Warn("Ошибка публикации %s: %v", eventType, err)
	}
}
