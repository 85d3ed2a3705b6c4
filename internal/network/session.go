package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/annel0/gunguys/internal/logging"
	"github.com/annel0/gunguys/internal/protocol"
)

// State состояние сетевой сессии
type State int32

const (
	StateIdle State = iota
	StateHosting
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHosting:
		return "hosting"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// ErrBusy сессия уже хостит или подключена
var ErrBusy = errors.New("сессия уже активна")

// Config параметры сессии
type Config struct {
	Name          string
	BindHost      string // адрес слушающего сокета, пусто: все интерфейсы
	GamePort      int
	DiscoveryPort int
	BroadcastAddr string // адрес рассылки объявлений без порта
	Transport     Transport
	Retry         RetryPolicy
	SendQueue     int
}

// DefaultConfig значения по умолчанию
func DefaultConfig() Config {
	return Config{
		Name:          DefaultGameName,
		GamePort:      DefaultGamePort,
		DiscoveryPort: DefaultDiscoveryPort,
		BroadcastAddr: "255.255.255.255",
		Transport:     TCPTransport{},
		Retry:         DefaultRetryPolicy(),
		SendQueue:     DefaultSendQueue,
	}
}

// Summary сводка для API состояния
type Summary struct {
	State     string           `json:"state"`
	Name      string           `json:"name"`
	Transport string           `json:"transport"`
	Addr      string           `json:"addr,omitempty"`
	Peers     []PeerInfo       `json:"peers"`
	Games     []DiscoveredGame `json:"games"`
}

// Session сетевая сессия: хост или клиент плюс обнаружение игр.
// Создаётся один раз и передаётся тем, кто с ней работает.
type Session struct {
	cfg     Config
	log     *logging.Logger
	metrics *Metrics

	mu            sync.RWMutex
	state         State
	host          *Host
	client        *Client
	browser       *Browser
	cancel        context.CancelFunc
	stopDiscovery context.CancelFunc
	wg            sync.WaitGroup
}

// NewSession создаёт сессию в состоянии Idle
func NewSession(cfg Config, log *logging.Logger, metrics *Metrics) *Session {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.BroadcastAddr == "" {
		cfg.BroadcastAddr = def.BroadcastAddr
	}
	if cfg.Transport == nil {
		cfg.Transport = def.Transport
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = def.Retry
	}
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = def.SendQueue
	}
	return &Session{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		browser: NewBrowser(log, metrics),
	}
}

// State текущее состояние
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	if prev != st {
		s.log.Info("Сессия: %s -> %s", prev, st)
	}
}

// IsHost проверяет, является ли узел хостом
func (s *Session) IsHost() bool {
	return s.State() == StateHosting
}

// Config параметры сессии
func (s *Session) Config() Config { return s.cfg }

func (s *Session) idle() bool {
	st := s.State()
	return st == StateIdle || st == StateDisconnected
}

// StartHost открывает порт игры и запускает рассылку объявлений.
// players возвращает текущее число игроков для объявления.
func (s *Session) StartHost(ctx context.Context, players func() int) error {
	if !s.idle() {
		return ErrBusy
	}
	s.teardown()

	host := NewHost(s.cfg.Transport, s.log, s.metrics, s.cfg.SendQueue)
	addr := net.JoinHostPort(s.cfg.BindHost, strconv.Itoa(s.cfg.GamePort))
	if err := host.Listen(addr); err != nil {
		s.setState(StateIdle)
		return err
	}

	port := s.cfg.GamePort
	if ta, ok := host.Addr().(*net.TCPAddr); ok {
		port = ta.Port
	} else if ua, ok := host.Addr().(*net.UDPAddr); ok {
		port = ua.Port
	}

	runCtx, cancel := context.WithCancel(ctx)
	target := net.JoinHostPort(s.cfg.BroadcastAddr, strconv.Itoa(s.cfg.DiscoveryPort))
	ip := LocalIP()
	announcer, err := NewAnnouncer(target, func() protocol.GameDiscovery {
		n := 1 + host.PeerCount()
		if players != nil {
			n = players()
		}
		return protocol.GameDiscovery{Name: s.cfg.Name, Host: ip, Port: port, Players: n}
	}, s.log)
	if err != nil {
		// Без объявлений хост всё равно доступен по адресу
		s.log.Warn("Рассылка объявлений недоступна: %v", err)
	} else {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			announcer.Run(runCtx)
		}()
	}

	s.mu.Lock()
	s.host = host
	s.cancel = cancel
	s.mu.Unlock()
	s.setState(StateHosting)
	return nil
}

// Join подключается к хосту: Connecting, затем Connected. При исчерпании
// попыток возвращает ошибку ErrConnectFailed и возвращается в Idle.
func (s *Session) Join(ctx context.Context, addr string) error {
	if !s.idle() {
		return ErrBusy
	}
	s.teardown()
	s.setState(StateConnecting)

	client, err := Dial(ctx, s.cfg.Transport, addr, s.cfg.Retry, s.log, s.metrics, s.cfg.SendQueue)
	if err != nil {
		s.setState(StateIdle)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.client = client
	s.cancel = cancel
	s.mu.Unlock()
	s.setState(StateConnected)

	// Разрыв соединения переводит сессию в Disconnected без переподключения
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-client.Done():
			s.mu.Lock()
			current := s.client == client
			s.mu.Unlock()
			if current {
				s.log.Warn("Соединение с хостом %s потеряно", addr)
				s.setState(StateDisconnected)
			}
		case <-runCtx.Done():
		}
	}()
	return nil
}

// Discover непрерывно слушает объявления до Stop или отмены ctx
func (s *Session) Discover(ctx context.Context) error {
	addr := net.JoinHostPort("", strconv.Itoa(s.cfg.DiscoveryPort))
	ctx, cancel := context.WithCancel(ctx)
	if _, err := s.browser.Listen(ctx, addr); err != nil {
		cancel()
		return err
	}

	s.mu.Lock()
	if s.stopDiscovery != nil {
		s.stopDiscovery()
	}
	s.stopDiscovery = cancel
	s.mu.Unlock()
	return nil
}

// Scan слушает объявления в течение окна
func (s *Session) Scan(ctx context.Context, window time.Duration) ([]DiscoveredGame, error) {
	addr := net.JoinHostPort("", strconv.Itoa(s.cfg.DiscoveryPort))
	return s.browser.Scan(ctx, addr, window)
}

// Games найденные игры
func (s *Session) Games() []DiscoveredGame {
	return s.browser.Games()
}

// Send рассылает сообщение без ожидания: хост всем клиентам, клиент хосту.
// Ошибки только логируются.
func (s *Session) Send(m protocol.Message) {
	s.mu.RLock()
	host, client := s.host, s.client
	s.mu.RUnlock()

	switch {
	case host != nil:
		if _, err := host.Broadcast(m); err != nil {
			s.log.Warn("Ошибка рассылки %s: %v", m.MessageType(), err)
		}
	case client != nil:
		if err := client.Send(m); err != nil && !errors.Is(err, ErrPeerClosed) {
			s.log.Warn("Ошибка отправки %s: %v", m.MessageType(), err)
		}
	}
}

// Poll забирает входящие сообщения и события без блокировки
func (s *Session) Poll() ([]Inbound, []PeerEvent) {
	s.mu.RLock()
	host, client := s.host, s.client
	s.mu.RUnlock()

	switch {
	case host != nil:
		return host.Poll()
	case client != nil:
		return client.Poll()
	}
	return nil, nil
}

// ErrNotHosting операция доступна только хосту
var ErrNotHosting = errors.New("сессия не в режиме хоста")

// Kick отключает клиента хоста
func (s *Session) Kick(peerID string) error {
	s.mu.RLock()
	host := s.host
	s.mu.RUnlock()
	if host == nil {
		return ErrNotHosting
	}
	return host.Kick(peerID)
}

// PeerCount число клиентов хоста
func (s *Session) PeerCount() int {
	s.mu.RLock()
	host := s.host
	s.mu.RUnlock()
	if host == nil {
		return 0
	}
	return host.PeerCount()
}

// Metrics метрики сессии
func (s *Session) Metrics() *Metrics { return s.metrics }

// Summary сводка состояния
func (s *Session) Summary() Summary {
	s.mu.RLock()
	host, client, st := s.host, s.client, s.state
	s.mu.RUnlock()

	sum := Summary{
		State:     st.String(),
		Name:      s.cfg.Name,
		Transport: s.cfg.Transport.Name(),
		Peers:     []PeerInfo{},
		Games:     s.browser.Games(),
	}
	if host != nil {
		if a := host.Addr(); a != nil {
			sum.Addr = a.String()
		}
		sum.Peers = host.Peers()
	}
	if client != nil {
		sum.Addr = client.Addr()
	}
	return sum
}

// Stop закрывает все сокеты, останавливает фоновые горутины и возвращает сессию в Idle
func (s *Session) Stop() {
	s.mu.Lock()
	stopDiscovery := s.stopDiscovery
	s.stopDiscovery = nil
	s.mu.Unlock()
	if stopDiscovery != nil {
		stopDiscovery()
	}

	s.teardown()
	s.setState(StateIdle)
}

// teardown закрывает хост или соединение с хостом, обнаружение игр не трогает
func (s *Session) teardown() {
	s.mu.Lock()
	host, client, cancel := s.host, s.client, s.cancel
	s.host, s.client, s.cancel = nil, nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if host != nil {
		host.Close()
	}
	if client != nil {
		client.Close()
	}
	s.wg.Wait()
}

// String описание для логов
func (s *Session) String() string {
	return fmt.Sprintf("session(%s, %s)", s.cfg.Name, s.State())
}
