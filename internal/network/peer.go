package network

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/gunguys/internal/logging"
	"github.com/annel0/gunguys/internal/protocol"
)

// Параметры соединения
const (
	DefaultSendQueue = 256
	writeTimeout     = 5 * time.Second
	readBufferSize   = 32 * 1024
)

// ErrPeerClosed отправка в закрытое соединение
var ErrPeerClosed = errors.New("соединение закрыто")

// ErrKicked соединение закрыто хостом по команде администратора
var ErrKicked = errors.New("клиент отключён хостом")

// Inbound сообщение от удалённого узла для горутины симуляции
type Inbound struct {
	PeerID string
	Msg    protocol.Message
}

// Peer соединение с удалённым узлом: отдельные горутины чтения и записи,
// отправка только через очередь и никогда не блокирует вызывающего.
type Peer struct {
	ID   string
	Addr string

	conn    net.Conn
	sendCh  chan []byte
	closeCh chan struct{}

	closeOnce sync.Once
	closeErr  error
	lastSeen  atomic.Int64

	log     *logging.Logger
	metrics *Metrics

	onMessage func(*Peer, protocol.Message)
	onClose   func(*Peer, error)
}

// newPeer создаёт узел поверх установленного соединения
func newPeer(id string, conn net.Conn, queue int, log *logging.Logger, metrics *Metrics) *Peer {
	if queue <= 0 {
		queue = DefaultSendQueue
	}
	p := &Peer{
		ID:      id,
		Addr:    conn.RemoteAddr().String(),
		conn:    conn,
		sendCh:  make(chan []byte, queue),
		closeCh: make(chan struct{}),
		log:     log,
		metrics: metrics,
	}
	p.lastSeen.Store(time.Now().UnixNano())
	return p
}

// start запускает циклы чтения и записи
func (p *Peer) start(onMessage func(*Peer, protocol.Message), onClose func(*Peer, error)) {
	p.onMessage = onMessage
	p.onClose = onClose
	go p.readLoop()
	go p.writeLoop()
}

// Send ставит готовый кадр в очередь. Возвращает false, если соединение
// закрыто или очередь переполнена (кадр отброшен).
func (p *Peer) Send(frame []byte) bool {
	select {
	case <-p.closeCh:
		return false
	default:
	}

	select {
	case p.sendCh <- frame:
		return true
	default:
		p.metrics.dropped()
		return false
	}
}

// SendMessage кодирует и ставит сообщение в очередь
func (p *Peer) SendMessage(m protocol.Message) error {
	frame, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	if !p.Send(frame) {
		if p.Closed() {
			return ErrPeerClosed
		}
		return errors.New("очередь отправки переполнена")
	}
	p.metrics.frameSent(m.MessageType(), len(frame))
	return nil
}

// Close закрывает соединение; повторные вызовы ничего не делают
func (p *Peer) Close() {
	p.closeWith(nil)
}

func (p *Peer) closeWith(err error) {
	p.closeOnce.Do(func() {
		p.closeErr = err
		close(p.closeCh)
		p.conn.Close()
		if p.onClose != nil {
			p.onClose(p, err)
		}
	})
}

// Closed проверяет, закрыто ли соединение
func (p *Peer) Closed() bool {
	select {
	case <-p.closeCh:
		return true
	default:
		return false
	}
}

// Done закрывается вместе с соединением
func (p *Peer) Done() <-chan struct{} { return p.closeCh }

// Err причина закрытия (nil при штатном закрытии)
func (p *Peer) Err() error {
	if !p.Closed() {
		return nil
	}
	return p.closeErr
}

// LastSeen время последнего полученного байта
func (p *Peer) LastSeen() time.Time {
	return time.Unix(0, p.lastSeen.Load())
}

// readLoop собирает кадры из потока. Нераспознанное сообщение отбрасывается,
// цикл продолжает чтение.
func (p *Peer) readLoop() {
	var fb protocol.FrameBuffer
	buf := make([]byte, readBufferSize)

	for {
		n, err := p.conn.Read(buf)
		if n > 0 {
			p.lastSeen.Store(time.Now().UnixNano())
			p.metrics.bytesIn(n)

			frames, ferr := fb.Feed(buf[:n])
			for _, payload := range frames {
				msg, derr := protocol.Decode(payload)
				if derr != nil {
					p.metrics.decodeError()
					logging.LogProtocolError(p.log, p.Addr, derr, payload)
					continue
				}
				p.metrics.frameReceived(msg.MessageType())
				if msg.MessageType() != protocol.TypeGameState {
					logging.LogMessage(p.log, p.Addr, "IN", msg.MessageType(), payload)
				}
				if p.onMessage != nil {
					p.onMessage(p, msg)
				}
			}
			if ferr != nil {
				p.log.Warn("Поток от %s рассинхронизирован: %v", p.Addr, ferr)
				p.closeWith(ferr)
				return
			}
		}
		if err != nil {
			if p.Closed() {
				return
			}
			if errors.Is(err, io.EOF) {
				p.log.Info("Узел %s закрыл соединение", p.Addr)
			} else {
				p.log.Warn("Ошибка чтения от %s: %v", p.Addr, err)
			}
			p.closeWith(err)
			return
		}
	}
}

// writeLoop отправляет кадры из очереди
func (p *Peer) writeLoop() {
	for {
		select {
		case <-p.closeCh:
			return
		case frame := <-p.sendCh:
			p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := p.conn.Write(frame); err != nil {
				if !p.Closed() {
					p.log.Warn("Ошибка отправки %s: %v", p.Addr, err)
				}
				p.closeWith(err)
				return
			}
		}
	}
}
