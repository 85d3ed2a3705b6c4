package network

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/gunguys/internal/logging"
	"github.com/annel0/gunguys/internal/protocol"
)

// PeerInfo сведения о подключённом клиенте
type PeerInfo struct {
	ID       string    `json:"id"`
	Addr     string    `json:"addr"`
	LastSeen time.Time `json:"last_seen"`
}

// Host принимает неограниченное число клиентов, у каждого свои горутины
type Host struct {
	transport Transport
	listener  net.Listener
	log       *logging.Logger
	metrics   *Metrics
	queue     int

	peers  map[string]*Peer
	nextID atomic.Uint64
	mu     sync.RWMutex

	box *mailbox

	// Relay пересылает player_update и shoot остальным клиентам
	Relay bool

	closed atomic.Bool
	done   chan struct{}
}

// NewHost создаёт хост; слушать начинает Listen
func NewHost(t Transport, log *logging.Logger, metrics *Metrics, sendQueue int) *Host {
	if t == nil {
		t = TCPTransport{}
	}
	return &Host{
		transport: t,
		log:       log,
		metrics:   metrics,
		queue:     sendQueue,
		peers:     make(map[string]*Peer),
		box:       newMailbox(DefaultInboxSize, metrics),
		Relay:     true,
		done:      make(chan struct{}),
	}
}

// Listen открывает слушающий сокет и запускает приём соединений
func (h *Host) Listen(addr string) error {
	l, err := h.transport.Listen(addr)
	if err != nil {
		return fmt.Errorf("ошибка открытия %s (%s): %w", addr, h.transport.Name(), err)
	}
	h.listener = l
	h.log.Info("Хост слушает %s (%s)", l.Addr(), h.transport.Name())
	go h.acceptLoop()
	return nil
}

// Addr адрес слушающего сокета
func (h *Host) Addr() net.Addr {
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

// acceptLoop принимает новые соединения до закрытия слушателя
func (h *Host) acceptLoop() {
	defer close(h.done)
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			if h.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			h.log.Warn("Ошибка принятия соединения: %v", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		id := fmt.Sprintf("c%d", h.nextID.Add(1))
		p := newPeer(id, conn, h.queue, h.log, h.metrics)

		h.mu.Lock()
		h.peers[id] = p
		h.mu.Unlock()

		h.metrics.peerDelta(1)
		h.log.Info("Клиент %s подключился с %s", id, p.Addr)
		h.box.pushEvent(PeerEvent{PeerID: id, Addr: p.Addr, Joined: true})
		p.start(h.handleMessage, h.handleClose)

		// Closed после Close: соединение принято в момент остановки
		if h.closed.Load() {
			p.Close()
		}
	}
}

func (h *Host) handleMessage(p *Peer, m protocol.Message) {
	h.box.push(Inbound{PeerID: p.ID, Msg: m})

	if !h.Relay {
		return
	}
	switch m.MessageType() {
	case protocol.TypePlayerUpdate, protocol.TypeShoot:
		frame, err := protocol.Encode(m)
		if err != nil {
			return
		}
		h.mu.RLock()
		for id, other := range h.peers {
			if id != p.ID {
				other.Send(frame)
			}
		}
		h.mu.RUnlock()
	}
}

func (h *Host) handleClose(p *Peer, err error) {
	h.mu.Lock()
	_, ok := h.peers[p.ID]
	delete(h.peers, p.ID)
	h.mu.Unlock()
	if !ok {
		return
	}

	h.metrics.peerDelta(-1)
	h.log.Info("Клиент %s отключился", p.ID)
	h.box.pushEvent(PeerEvent{PeerID: p.ID, Addr: p.Addr, Joined: false, Err: err})
}

// Broadcast кодирует сообщение один раз и ставит его в очередь всем клиентам.
// Возвращает число клиентов, принявших кадр в очередь.
func (h *Host) Broadcast(m protocol.Message) (int, error) {
	frame, err := protocol.Encode(m)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, p := range h.peers {
		if p.Send(frame) {
			sent++
			h.metrics.frameSent(m.MessageType(), len(frame))
		}
	}
	return sent, nil
}

// SendTo отправляет сообщение одному клиенту
func (h *Host) SendTo(peerID string, m protocol.Message) error {
	h.mu.RLock()
	p, ok := h.peers[peerID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("клиент %s не найден", peerID)
	}
	return p.SendMessage(m)
}

// Kick принудительно закрывает соединение клиента.
// Событие отключения придёт через Poll с ошибкой ErrKicked.
func (h *Host) Kick(peerID string) error {
	h.mu.RLock()
	p, ok := h.peers[peerID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("клиент %s не найден", peerID)
	}
	h.log.Info("Клиент %s отключён хостом", peerID)
	p.closeWith(ErrKicked)
	return nil
}

// Poll забирает входящие сообщения и события подключения без блокировки
func (h *Host) Poll() ([]Inbound, []PeerEvent) {
	return h.box.poll()
}

// PeerCount число подключённых клиентов
func (h *Host) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Peers сведения о клиентах, отсортированные по ID
func (h *Host) Peers() []PeerInfo {
	h.mu.RLock()
	out := make([]PeerInfo, 0, len(h.peers))
	for _, p := range h.peers {
		out = append(out, PeerInfo{ID: p.ID, Addr: p.Addr, LastSeen: p.LastSeen()})
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close закрывает слушатель и все соединения
func (h *Host) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if h.listener != nil {
		err = h.listener.Close()
		<-h.done
	}

	h.mu.RLock()
	peers := make([]*Peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.RUnlock()

	for _, p := range peers {
		p.Close()
	}
	h.log.Info("Хост остановлен")
	return err
}
