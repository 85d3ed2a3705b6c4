package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/annel0/gunguys/internal/logging"
	"github.com/annel0/gunguys/internal/observability"
	"github.com/annel0/gunguys/internal/protocol"
)

// ErrConnectFailed все попытки подключения исчерпаны
var ErrConnectFailed = errors.New("не удалось подключиться к хосту")

// RetryPolicy ограничение попыток подключения. Attempts считает все попытки, включая первую.
type RetryPolicy struct {
	Attempts int
	Timeout  time.Duration
	Delay    time.Duration
}

// DefaultRetryPolicy 5 попыток по 5 секунд с паузой 2 секунды
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, Timeout: 5 * time.Second, Delay: 2 * time.Second}
}

// Client соединение с хостом
type Client struct {
	peer *Peer
	box  *mailbox
	log  *logging.Logger
}

// Dial подключается к хосту с ограниченным числом повторов.
// После исчерпания попыток возвращает ошибку, оборачивающую ErrConnectFailed.
func Dial(ctx context.Context, t Transport, addr string, policy RetryPolicy, log *logging.Logger, metrics *Metrics, sendQueue int) (*Client, error) {
	if t == nil {
		t = TCPTransport{}
	}
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}

	ctx, span := observability.Tracer().Start(ctx, "network.connect")
	defer span.End()
	span.SetAttributes(
		attribute.String("net.peer.addr", addr),
		attribute.String("net.transport", t.Name()),
	)

	var lastErr error
retry:
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		log.Info("Подключение к %s, попытка %d/%d", addr, attempt, policy.Attempts)
		conn, err := t.Dial(ctx, addr, policy.Timeout)
		if err == nil {
			metrics.connectAttempt("ok")
			metrics.peerDelta(1)
			span.SetAttributes(attribute.Int("net.connect.attempts", attempt))

			c := &Client{box: newMailbox(DefaultInboxSize, metrics), log: log}
			c.peer = newPeer("host", conn, sendQueue, log, metrics)
			c.peer.start(c.handleMessage, c.handleClose)
			log.Info("Подключено к %s", addr)
			return c, nil
		}

		lastErr = err
		metrics.connectAttempt("error")
		log.Warn("Попытка %d не удалась: %v", attempt, err)

		if attempt == policy.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			break retry
		case <-time.After(policy.Delay):
		}
	}

	err := fmt.Errorf("%w %s: %v", ErrConnectFailed, addr, lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, "connect failed")
	return nil, err
}

func (c *Client) handleMessage(p *Peer, m protocol.Message) {
	c.box.push(Inbound{PeerID: p.ID, Msg: m})
}

func (c *Client) handleClose(p *Peer, err error) {
	c.peer.metrics.peerDelta(-1)
	c.box.pushEvent(PeerEvent{PeerID: p.ID, Addr: p.Addr, Joined: false, Err: err})
}

// Send ставит сообщение в очередь отправки хосту
func (c *Client) Send(m protocol.Message) error {
	return c.peer.SendMessage(m)
}

// Poll забирает входящие сообщения и событие отключения без блокировки
func (c *Client) Poll() ([]Inbound, []PeerEvent) {
	return c.box.poll()
}

// Done закрывается при разрыве соединения
func (c *Client) Done() <-chan struct{} { return c.peer.Done() }

// Addr адрес хоста
func (c *Client) Addr() string { return c.peer.Addr }

// Close закрывает соединение
func (c *Client) Close() {
	c.peer.Close()
}
