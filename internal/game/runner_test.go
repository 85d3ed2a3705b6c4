package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/gunguys/internal/entity"
	"github.com/annel0/gunguys/internal/eventbus"
	"github.com/annel0/gunguys/internal/network"
	"github.com/annel0/gunguys/internal/protocol"
	"github.com/annel0/gunguys/internal/sim"
	"github.com/annel0/gunguys/internal/storage"
	"github.com/annel0/gunguys/internal/vec"
)

const tick = 1.0 / 60

type fakeSession struct {
	mu      sync.Mutex
	state   network.State
	inbound []network.Inbound
	events  []network.PeerEvent
	sent    []protocol.Message
}

func (f *fakeSession) State() network.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSession) setState(st network.State) {
	f.mu.Lock()
	f.state = st
	f.mu.Unlock()
}

func (f *fakeSession) push(in ...network.Inbound) {
	f.mu.Lock()
	f.inbound = append(f.inbound, in...)
	f.mu.Unlock()
}

func (f *fakeSession) Poll() ([]network.Inbound, []network.PeerEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ev := f.inbound, f.events
	f.inbound, f.events = nil, nil
	return in, ev
}

func (f *fakeSession) Send(m protocol.Message) {
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
}

type inputFunc func(local sim.EntityView, others []sim.EntityView) sim.Input

func (f inputFunc) Next(local sim.EntityView, others []sim.EntityView) sim.Input {
	return f(local, others)
}

func newWorld() (*sim.World, *entity.Entity) {
	cfg := sim.DefaultConfig()
	cfg.SpawnDisabled = true
	w := sim.NewWorld(cfg, nil)
	p := w.SpawnLocalPlayer("me", "Тест")
	return w, p
}

func subscribe(t *testing.T, bus eventbus.EventBus, types ...string) <-chan *eventbus.Envelope {
	t.Helper()
	ch := make(chan *eventbus.Envelope, 32)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: types}, func(_ context.Context, ev *eventbus.Envelope) {
		ch <- ev
	})
	require.NoError(t, err)
	return ch
}

func waitEvent(t *testing.T, ch <-chan *eventbus.Envelope) *eventbus.Envelope {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("нет события")
		return nil
	}
}

func TestRunner_SinglePlayerKillPublishesEvent(t *testing.T) {
	w, _ := newWorld()
	m := w.SpawnMonster(200, 0)
	m.Health = 1

	bus := eventbus.NewMemoryBus(32)
	defer bus.Close()
	kills := subscribe(t, bus, eventbus.TypeMonsterKilled)

	r := NewRunner(w, &fakeSession{}, Options{
		Input:   NewAutoAim(),
		Emitter: eventbus.NewEmitter(bus, "me", "test"),
	})

	ctx := context.Background()
	killed := false
	for i := 0; i < 180 && !killed; i++ {
		killed = len(r.Tick(ctx, tick).Kills) > 0
	}
	require.True(t, killed, "бот должен убить монстра")

	var payload eventbus.MonsterKilled
	require.NoError(t, waitEvent(t, kills).Decode(&payload))
	assert.Equal(t, m.ID, payload.MonsterID)
	assert.Equal(t, "me", payload.KillerID)
}

func TestRunner_LevelUpCarriesProgress(t *testing.T) {
	w, _ := newWorld()
	bus := eventbus.NewMemoryBus(8)
	defer bus.Close()
	levels := subscribe(t, bus, eventbus.TypeLevelUp)

	r := NewRunner(w, &fakeSession{}, Options{Emitter: eventbus.NewEmitter(bus, "me", "test")})
	r.publish(context.Background(), sim.Events{LevelUps: []sim.LevelUp{
		{NetID: "someone-else", Level: 4},
		{NetID: "me", Level: 1},
	}})

	var lu eventbus.LevelUp
	require.NoError(t, waitEvent(t, levels).Decode(&lu))
	assert.Equal(t, "me", lu.PlayerID)
	assert.Equal(t, "Тест", lu.Name)
	assert.Equal(t, "Pistol", lu.Weapon)

	select {
	case ev := <-levels:
		t.Fatalf("чужой уровень не публикуется: %s", ev.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunner_HostAppliesPeerUpdates(t *testing.T) {
	w, _ := newWorld()
	sess := &fakeSession{state: network.StateHosting}
	r := NewRunner(w, sess, Options{})

	sess.events = []network.PeerEvent{{PeerID: "c1", Addr: "127.0.0.1:4000", Joined: true}}
	sess.push(network.Inbound{PeerID: "c1", Msg: &protocol.PlayerUpdate{
		PlayerID: "p2", X: 50, Y: 50, Health: 100, MaxHealth: 100, Level: 2, Weapon: "Bow",
	}})
	r.Tick(context.Background(), tick)

	assert.Equal(t, 1, w.Stats().Peers)
	assert.Empty(t, sess.sent, "хост не шлёт выстрелы отдельными сообщениями")
}

func TestRunner_ClientMirrorsHostAndSendsShots(t *testing.T) {
	w, _ := newWorld()
	sess := &fakeSession{state: network.StateConnected}
	fire := inputFunc(func(local sim.EntityView, _ []sim.EntityView) sim.Input {
		in := sim.IdleInput()
		in.Fire = true
		in.Aim = vec.New(local.X+100, local.Y)
		return in
	})
	r := NewRunner(w, sess, Options{Input: fire})

	state := protocol.NewStateData()
	state.Monsters["7"] = protocol.MonsterState{X: 300, Y: 0, Health: 20, MaxHealth: 40}
	state.Players["p2"] = protocol.PlayerState{X: 10, Y: 10, Health: 100, MaxHealth: 100, Level: 1, Weapon: "Rifle"}
	sess.push(network.Inbound{PeerID: "host", Msg: &protocol.GameState{Data: state, Full: true, Seq: 1}})

	r.Tick(context.Background(), tick)

	assert.Equal(t, 1, w.Stats().Peers)
	assert.Zero(t, w.Stats().Monsters, "монстры клиента живут только в зеркале")
	assert.Len(t, r.Mirror().Snapshot().Monsters, 1)

	require.Len(t, sess.sent, 1)
	shot, ok := sess.sent[0].(*protocol.Shoot)
	require.True(t, ok)
	assert.Equal(t, "me", shot.PlayerID)
	assert.InDelta(t, 1.0, shot.Direction[0], 1e-9)
}

func TestRunner_HostCreditsClientKill(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.SpawnDisabled = true
	hostWorld := sim.NewWorld(cfg, nil)
	hostWorld.SpawnLocalPlayer("host", "Хост")
	m := hostWorld.SpawnMonster(150, 0)
	m.Health = 1

	hostSess := &fakeSession{state: network.StateHosting}
	host := NewRunner(hostWorld, hostSess, Options{})

	clientWorld, me := newWorld()
	clientSess := &fakeSession{state: network.StateConnected}
	client := NewRunner(clientWorld, clientSess, Options{})

	ctx := context.Background()
	hostSess.push(
		network.Inbound{PeerID: "c1", Msg: &protocol.PlayerUpdate{PlayerID: "me", Health: 100, MaxHealth: 100, Level: 1, Weapon: "Pistol"}},
		network.Inbound{PeerID: "c1", Msg: &protocol.Shoot{PlayerID: "me", Direction: [2]float64{1, 0}, Weapon: "Pistol"}},
	)

	var credit *protocol.KillCredit
	for i := 0; i < 120 && credit == nil; i++ {
		host.Tick(ctx, tick)
		hostSess.mu.Lock()
		for _, msg := range hostSess.sent {
			if c, ok := msg.(*protocol.KillCredit); ok {
				credit = c
			}
		}
		hostSess.mu.Unlock()
	}
	require.NotNil(t, credit, "хост должен засчитать убийство клиенту")
	assert.Equal(t, "me", credit.PlayerID)
	assert.Zero(t, hostWorld.Stats().Monsters)

	clientSess.push(network.Inbound{PeerID: "host", Msg: credit})
	ev := client.Tick(ctx, tick)

	assert.Equal(t, credit.Experience, me.Player.Experience)
	require.Len(t, ev.Kills, 1)
	assert.Equal(t, m.ID, ev.Kills[0].VictimID)
}

func TestRunner_DisconnectDropsRemoteWorld(t *testing.T) {
	w, _ := newWorld()
	sess := &fakeSession{state: network.StateConnected}
	bus := eventbus.NewMemoryBus(8)
	defer bus.Close()
	states := subscribe(t, bus, eventbus.TypeSessionState)
	r := NewRunner(w, sess, Options{Emitter: eventbus.NewEmitter(bus, "me", "test")})

	state := protocol.NewStateData()
	state.Players["p2"] = protocol.PlayerState{Health: 100, MaxHealth: 100, Level: 1}
	sess.push(network.Inbound{PeerID: "host", Msg: &protocol.GameState{Data: state, Full: true}})
	r.Tick(context.Background(), tick)
	require.Equal(t, 1, w.Stats().Peers)

	var st eventbus.SessionState
	require.NoError(t, waitEvent(t, states).Decode(&st))
	assert.Equal(t, "connected", st.To)

	sess.setState(network.StateDisconnected)
	r.Tick(context.Background(), tick)

	assert.Zero(t, w.Stats().Peers)
	assert.Empty(t, r.Mirror().Snapshot().Players)
	require.NoError(t, waitEvent(t, states).Decode(&st))
	assert.Equal(t, "connected", st.From)
	assert.Equal(t, "disconnected", st.To)
}

func TestRunner_RespawnsAfterDelay(t *testing.T) {
	w, p := newWorld()
	r := NewRunner(w, &fakeSession{}, Options{RespawnDelay: 500 * time.Millisecond})

	p.Health = 0
	p.Player.Dead = true
	r.publish(context.Background(), sim.Events{PlayerDied: true})

	for i := 0; i < 20; i++ {
		r.Tick(context.Background(), tick)
	}
	assert.True(t, p.Player.Dead, "рано для возрождения")

	for i := 0; i < 20; i++ {
		r.Tick(context.Background(), tick)
	}
	assert.False(t, p.Player.Dead)
	assert.Equal(t, p.MaxHealth, p.Health)
}

func TestRunner_RestoreAndSaveProgress(t *testing.T) {
	w, p := newWorld()
	repo := storage.NewMemoryProgressRepo()
	tracker := storage.NewProgressTracker(repo, nil)
	ctx := context.Background()

	r := NewRunner(w, &fakeSession{}, Options{Tracker: tracker})
	ok, err := r.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "новый игрок")

	require.NoError(t, repo.Save(ctx, storage.Progress{Name: "Тест", Level: 3, Experience: 5, Weapon: "Shotgun"}))
	ok, err = r.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, p.Player.Level)
	assert.Equal(t, "Shotgun", p.Player.Weapon.Name)

	p.Player.Experience = 42
	require.NoError(t, r.SaveProgress(ctx))
	saved, err := repo.Load(ctx, "тест")
	require.NoError(t, err)
	assert.Equal(t, 42, saved.Experience)
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	w, _ := newWorld()
	r := NewRunner(w, &fakeSession{}, Options{TickRate: 200})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Run(ctx))
	assert.Greater(t, r.Now(), 0.0)
}

func TestAutoAim(t *testing.T) {
	a := NewAutoAim()
	local := sim.EntityView{Kind: entity.KindPlayer, Alive: true}

	in := a.Next(local, nil)
	assert.False(t, in.Fire, "без целей бот не стреляет")

	far := []sim.EntityView{{Kind: entity.KindMonster, Alive: true, X: 500}}
	in = a.Next(local, far)
	assert.True(t, in.Fire)
	assert.True(t, in.Right, "подходит к дальнему монстру")

	near := []sim.EntityView{
		{Kind: entity.KindMonster, Alive: true, X: 0, Y: 100},
		{Kind: entity.KindMonster, Alive: true, X: 500},
	}
	in = a.Next(local, near)
	assert.Equal(t, vec.New(0, 100), in.Aim)
	assert.True(t, in.Up, "отходит от ближнего монстра")

	local.Alive = false
	assert.False(t, a.Next(local, far).Fire)
}
