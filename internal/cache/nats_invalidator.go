package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"

	"github.com/annel0/gunguys/internal/logging"
)

// DefaultInvalidationSubject subject уведомлений об инвалидации
const DefaultInvalidationSubject = "gunguys.cache.invalidation"

// InvalidationMessage уведомление об изменённом ключе
type InvalidationMessage struct {
	Key       string    `json:"key"`
	NodeID    string    `json:"node_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NATSInvalidator рассылает инвалидацию через NATS.
// Собственные сообщения узла и повторы в пределах окна игнорируются.
type NATSInvalidator struct {
	nc      *nats.Conn
	subject string
	nodeID  string
	window  time.Duration
	log     *logging.Logger

	mu       sync.Mutex
	seen     map[string]time.Time
	subs     []*nats.Subscription
	now      func() time.Time
	handlers []InvalidationHandler
}

// NewNATSInvalidator подключается к NATS по url
func NewNATSInvalidator(url, subject string, log *logging.Logger) (*NATSInvalidator, error) {
	nc, err := nats.Connect(url, nats.Name("gunguys-cache"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return newNATSInvalidator(nc, subject, log), nil
}

func newNATSInvalidator(nc *nats.Conn, subject string, log *logging.Logger) *NATSInvalidator {
	if subject == "" {
		subject = DefaultInvalidationSubject
	}
	return &NATSInvalidator{
		nc:      nc,
		subject: subject,
		nodeID:  uuid.NewString(),
		window:  time.Second,
		log:     log,
		seen:    make(map[string]time.Time),
		now:     time.Now,
	}
}

// NodeID идентификатор узла в уведомлениях
func (n *NATSInvalidator) NodeID() string { return n.nodeID }

// Publish рассылает уведомление о ключе
func (n *NATSInvalidator) Publish(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(InvalidationMessage{Key: key, NodeID: n.nodeID, Timestamp: n.now().UTC()})
	if err != nil {
		return err
	}
	if err := n.nc.Publish(n.subject, data); err != nil {
		return fmt.Errorf("публикация инвалидации %s: %w", key, err)
	}
	return nil
}

// Subscribe подписывает обработчик на уведомления других узлов
func (n *NATSInvalidator) Subscribe(_ context.Context, handler InvalidationHandler) error {
	n.mu.Lock()
	n.handlers = append(n.handlers, handler)
	first := len(n.handlers) == 1
	n.mu.Unlock()
	if !first {
		return nil
	}

	sub, err := n.nc.Subscribe(n.subject, func(msg *nats.Msg) { n.handle(msg.Data) })
	if err != nil {
		return fmt.Errorf("подписка на %s: %w", n.subject, err)
	}
	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()
	return nil
}

// handle разбирает уведомление и вызывает обработчики
func (n *NATSInvalidator) handle(data []byte) {
	var msg InvalidationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		n.log.Warn("Некорректное уведомление инвалидации: %v", err)
		return
	}
	if msg.NodeID == n.nodeID || msg.Key == "" {
		return
	}

	now := n.now()
	n.mu.Lock()
	if last, ok := n.seen[msg.Key]; ok && now.Sub(last) < n.window {
		n.mu.Unlock()
		return
	}
	n.seen[msg.Key] = now
	for k, t := range n.seen {
		if now.Sub(t) > n.window {
			delete(n.seen, k)
		}
	}
	handlers := append([]InvalidationHandler(nil), n.handlers...)
	n.mu.Unlock()

	n.log.Debug("Инвалидация %s от узла %s", msg.Key, msg.NodeID)
	for _, h := range handlers {
		h(msg.Key)
	}
}

// Close отписывается и закрывает соединение
func (n *NATSInvalidator) Close() error {
	n.mu.Lock()
	subs := n.subs
	n.subs = nil
	n.mu.Unlock()
	for _, s := range subs {
		_ = s.Unsubscribe()
	}
	if n.nc != nil {
		n.nc.Close()
	}
	return nil
}
