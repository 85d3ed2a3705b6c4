package network

import (
	"sync"
)

// DefaultInboxSize ёмкость очереди входящих сообщений симуляции
const DefaultInboxSize = 1024

// PeerEvent подключение или отключение узла
type PeerEvent struct {
	PeerID string
	Addr   string
	Joined bool
	Err    error // причина отключения
}

// mailbox очередь между сетевыми горутинами и горутиной симуляции.
// Сообщения отбрасываются при переполнении, события подключения сохраняются всегда.
type mailbox struct {
	inbox   chan Inbound
	metrics *Metrics

	mu     sync.Mutex
	events []PeerEvent
}

func newMailbox(size int, metrics *Metrics) *mailbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &mailbox{inbox: make(chan Inbound, size), metrics: metrics}
}

func (mb *mailbox) push(in Inbound) {
	select {
	case mb.inbox <- in:
	default:
		mb.metrics.inboxDrop()
	}
}

func (mb *mailbox) pushEvent(ev PeerEvent) {
	mb.mu.Lock()
	mb.events = append(mb.events, ev)
	mb.mu.Unlock()
}

// poll забирает всё накопленное без блокировки
func (mb *mailbox) poll() ([]Inbound, []PeerEvent) {
	var msgs []Inbound
drain:
	for {
		select {
		case in := <-mb.inbox:
			msgs = append(msgs, in)
		default:
			break drain
		}
	}

	mb.mu.Lock()
	events := mb.events
	mb.events = nil
	mb.mu.Unlock()
	return msgs, events
}
