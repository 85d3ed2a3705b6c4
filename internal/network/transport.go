package network

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/xtaci/kcp-go/v5"
)

// Transport потоковый транспорт сессии
type Transport interface {
	Name() string
	Listen(addr string) (net.Listener, error)
	Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error)
}

// ParseTransport выбирает транспорт по имени: "tcp" (по умолчанию) или "kcp"
func ParseTransport(name string) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "tcp":
		return TCPTransport{}, nil
	case "kcp":
		return KCPTransport{}, nil
	}
	return nil, fmt.Errorf("неизвестный транспорт: %q", name)
}

// TCPTransport обычный TCP
type TCPTransport struct{}

// Name реализует Transport
func (TCPTransport) Name() string { return "tcp" }

// Listen реализует Transport
func (TCPTransport) Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Dial реализует Transport
func (TCPTransport) Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	return conn, nil
}

// KCP параметры
const (
	kcpDataShards   = 10
	kcpParityShards = 3
)

// KCPTransport надёжный UDP поверх kcp-go. Потоковый режим сохраняет
// семантику TCP, поэтому кадрирование не меняется.
type KCPTransport struct{}

// Name реализует Transport
func (KCPTransport) Name() string { return "kcp" }

// Listen реализует Transport
func (KCPTransport) Listen(addr string) (net.Listener, error) {
	l, err := kcp.ListenWithOptions(addr, nil, kcpDataShards, kcpParityShards)
	if err != nil {
		return nil, err
	}
	return &kcpListener{Listener: l}, nil
}

// Dial реализует Transport. KCP не устанавливает соединение рукопожатием,
// поэтому timeout ограничивает только разрешение адреса.
func (KCPTransport) Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := kcp.DialWithOptions(addr, nil, kcpDataShards, kcpParityShards)
	if err != nil {
		return nil, err
	}
	tuneKCP(sess)
	return sess, nil
}

// kcpListener настраивает каждое принятое соединение
type kcpListener struct {
	*kcp.Listener
}

// Accept реализует net.Listener
func (l *kcpListener) Accept() (net.Conn, error) {
	sess, err := l.AcceptKCP()
	if err != nil {
		return nil, err
	}
	tuneKCP(sess)
	return sess, nil
}

// tuneKCP настройки для игрового трафика
func tuneKCP(s *kcp.UDPSession) {
	s.SetStreamMode(true)
	s.SetWriteDelay(false)
	s.SetNoDelay(1, 20, 2, 1)
	s.SetWindowSize(512, 512)
	s.SetMtu(1400)
}
