package replication

import (
	"context"
	"errors"

	"github.com/annel0/gunguys/internal/entity"
	"github.com/annel0/gunguys/internal/eventbus"
	"github.com/annel0/gunguys/internal/logging"
	"github.com/annel0/gunguys/internal/network"
	"github.com/annel0/gunguys/internal/protocol"
	"github.com/annel0/gunguys/internal/sim"
	"github.com/annel0/gunguys/internal/vec"
)

// HostWorld операции мира, нужные хосту для сообщений клиентов. *sim.World подходит.
type HostWorld interface {
	UpsertPeer(netID string, st entity.PeerState) *entity.Entity
	RemovePeer(netID string) bool
	SpawnRemoteShot(netID string, pos, dir vec.Vec2) bool
}

// HostHandler применяет сообщения клиентов к миру хоста.
// Вызывается из горутины симуляции.
type HostHandler struct {
	world   HostWorld
	emitter *eventbus.Emitter
	log     *logging.Logger

	// owners соединение -> сетевой ID игрока, узнаётся из первого player_update
	owners map[string]string

	// OnJoin вызывается при подключении клиента, например для внеочередного полного снимка
	OnJoin func(peerID string)
}

// NewHostHandler создаёт обработчик хоста
func NewHostHandler(world HostWorld, emitter *eventbus.Emitter, log *logging.Logger) *HostHandler {
	return &HostHandler{
		world:   world,
		emitter: emitter,
		log:     log,
		owners:  make(map[string]string),
	}
}

// Handle применяет пачку входящих сообщений и событий соединений
func (h *HostHandler) Handle(ctx context.Context, inbound []network.Inbound, events []network.PeerEvent) {
	for _, ev := range events {
		if ev.Joined {
			h.joined(ctx, ev)
		}
	}
	for _, in := range inbound {
		switch msg := in.Msg.(type) {
		case *protocol.PlayerUpdate:
			h.playerUpdate(in.PeerID, msg)
		case *protocol.Shoot:
			h.shoot(in.PeerID, msg)
		default:
			h.log.Debug("Хост игнорирует %s от %s", in.Msg.MessageType(), in.PeerID)
		}
	}
	// Отключения после сообщений: последнее состояние уже применено
	for _, ev := range events {
		if !ev.Joined {
			h.left(ctx, ev)
		}
	}
}

// PlayerOf сетевой ID игрока соединения
func (h *HostHandler) PlayerOf(peerID string) (string, bool) {
	id, ok := h.owners[peerID]
	return id, ok
}

func (h *HostHandler) joined(ctx context.Context, ev network.PeerEvent) {
	h.log.Info("Клиент %s подключился с %s", ev.PeerID, ev.Addr)
	if h.OnJoin != nil {
		h.OnJoin(ev.PeerID)
	}
	h.emit(ctx, eventbus.TypePeerJoined, eventbus.PeerChanged{PeerID: ev.PeerID, Addr: ev.Addr})
}

func (h *HostHandler) left(ctx context.Context, ev network.PeerEvent) {
	playerID, known := h.owners[ev.PeerID]
	delete(h.owners, ev.PeerID)
	if known {
		h.world.RemovePeer(playerID)
	}

	reason := ""
	if ev.Err != nil && !errors.Is(ev.Err, network.ErrPeerClosed) {
		reason = ev.Err.Error()
	}
	h.log.Info("Клиент %s (%s) отключился %s", ev.PeerID, playerID, reason)
	h.emit(ctx, eventbus.TypePeerLeft, eventbus.PeerChanged{PeerID: ev.PeerID, PlayerID: playerID, Addr: ev.Addr, Reason: reason})
}

func (h *HostHandler) playerUpdate(peerID string, u *protocol.PlayerUpdate) {
	if u.PlayerID == "" {
		return
	}
	if owner, ok := h.owners[peerID]; ok && owner != u.PlayerID {
		h.log.Warn("Клиент %s прислал состояние чужого игрока %s", peerID, u.PlayerID)
		return
	}

	e := h.world.UpsertPeer(u.PlayerID, peerState(u.X, u.Y, u.Health, u.MaxHealth, u.Level, u.Weapon, u.Dead))
	if e.Kind != entity.KindPeer {
		h.log.Warn("Клиент %s использует ID локального игрока %s", peerID, u.PlayerID)
		return
	}
	h.owners[peerID] = u.PlayerID
}

func (h *HostHandler) shoot(peerID string, s *protocol.Shoot) {
	if owner, ok := h.owners[peerID]; !ok || owner != s.PlayerID {
		return
	}
	pos := vec.Vec2{X: s.X, Y: s.Y}
	dir := vec.Vec2{X: s.Direction[0], Y: s.Direction[1]}
	if !h.world.SpawnRemoteShot(s.PlayerID, pos, dir) {
		h.log.Debug("Выстрел %s отклонён", s.PlayerID)
	}
}

func (h *HostHandler) emit(ctx context.Context, eventType string, payload any) {
	if err := h.emitter.Emit(ctx, eventType, eventbus.PriorityNormal, payload); err != nil {
		h.log.Warn("Ошибка публикации %s: %v", eventType, err)
	}
}

// ClientHandler сводит сообщения хоста в зеркало и переносит чужих игроков в мир
type ClientHandler struct {
	mirror  *Mirror
	world   PeerWorld
	localID string
	log     *logging.Logger

	credits []protocol.KillCredit
}

// NewClientHandler создаёт обработчик клиента. localID сетевой ID своего игрока.
func NewClientHandler(mirror *Mirror, world PeerWorld, localID string, log *logging.Logger) *ClientHandler {
	return &ClientHandler{mirror: mirror, world: world, localID: localID, log: log}
}

// Handle применяет входящие сообщения. Возвращает true, если соединение с хостом потеряно.
func (h *ClientHandler) Handle(inbound []network.Inbound, events []network.PeerEvent) bool {
	changed := false
	for _, in := range inbound {
		switch msg := in.Msg.(type) {
		case *protocol.GameState:
			h.mirror.Apply(msg, h.localID)
			changed = true
		case *protocol.PlayerUpdate:
			h.mirror.ApplyPlayer(msg, h.localID)
			changed = true
		case *protocol.KillCredit:
			if msg.PlayerID == h.localID && msg.Experience > 0 {
				h.credits = append(h.credits, *msg)
			}
		case *protocol.Shoot:
			// Чужие выстрелы приходят снарядами в снимках
		default:
			h.log.Debug("Клиент игнорирует %s", in.Msg.MessageType())
		}
	}
	if changed && h.world != nil {
		h.mirror.SyncPeers(h.world)
	}

	lost := false
	for _, ev := range events {
		if !ev.Joined {
			h.log.Warn("Соединение с хостом закрыто: %v", ev.Err)
			lost = true
		}
	}
	return lost
}

// Mirror зеркало мира хоста
func (h *ClientHandler) Mirror() *Mirror { return h.mirror }

// TakeCredits забирает убийства, засчитанные хостом своему игроку
func (h *ClientHandler) TakeCredits() []protocol.KillCredit {
	out := h.credits
	h.credits = nil
	return out
}

// KillCredits сообщения kill_credit для убийств снарядами клиентов
func KillCredits(ev sim.Events) []*protocol.KillCredit {
	var out []*protocol.KillCredit
	for _, k := range ev.Kills {
		if k.PeerNetID == "" || k.Experience <= 0 {
			continue
		}
		out = append(out, &protocol.KillCredit{
			PlayerID:   k.PeerNetID,
			VictimID:   EntityKey(k.VictimID),
			Experience: k.Experience,
		})
	}
	return out
}

var (
	_ Source    = (*sim.World)(nil)
	_ HostWorld = (*sim.World)(nil)
	_ PeerWorld = (*sim.World)(nil)
	_ Sender    = (*network.Session)(nil)
)
