package network

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/annel0/gunguys/internal/logging"
	"github.com/annel0/gunguys/internal/protocol"
)

// Параметры обнаружения игр
const (
	DefaultGamePort      = 12345
	DefaultDiscoveryPort = 12347
	DefaultGameName      = "GunGuys Game"

	AnnounceMinInterval = 2 * time.Second
	AnnounceMaxInterval = 5 * time.Second
	DiscoveryExpiry     = 10 * time.Second
	DiscoveryWindow     = 10 * time.Second

	maxDatagram = 4096
)

// DiscoveredGame найденная в сети игра
type DiscoveredGame struct {
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Players   int       `json:"players"`
	Timestamp float64   `json:"timestamp"`
	LastSeen  time.Time `json:"last_seen"`
}

// Address адрес для подключения
func (g DiscoveredGame) Address() string {
	return net.JoinHostPort(g.Host, strconv.Itoa(g.Port))
}

// Announcer периодически рассылает объявление хоста по UDP
type Announcer struct {
	conn   *net.UDPConn
	target *net.UDPAddr
	info   func() protocol.GameDiscovery
	log    *logging.Logger

	MinInterval time.Duration
	MaxInterval time.Duration

	rng *rand.Rand
}

// NewAnnouncer создаёт рассыльщик. target обычно broadcast-адрес подсети.
func NewAnnouncer(target string, info func() protocol.GameDiscovery, log *logging.Logger) (*Announcer, error) {
	addr, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return nil, fmt.Errorf("ошибка адреса рассылки %s: %w", target, err)
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия UDP сокета: %w", err)
	}
	return &Announcer{
		conn:        conn,
		target:      addr,
		info:        info,
		log:         log,
		MinInterval: AnnounceMinInterval,
		MaxInterval: AnnounceMaxInterval,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Announce отправляет одно объявление
func (a *Announcer) Announce() error {
	msg := a.info()
	if msg.Timestamp == 0 {
		msg.Timestamp = float64(time.Now().UnixNano()) / 1e9
	}
	data, err := protocol.Marshal(&msg)
	if err != nil {
		return err
	}
	_, err = a.conn.WriteToUDP(data, a.target)
	return err
}

// Run рассылает объявления с интервалом MinInterval..MaxInterval до отмены ctx
func (a *Announcer) Run(ctx context.Context) {
	defer a.conn.Close()
	for {
		if err := a.Announce(); err != nil {
			a.log.Warn("Ошибка рассылки объявления: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(a.nextInterval()):
		}
	}
}

func (a *Announcer) nextInterval() time.Duration {
	span := a.MaxInterval - a.MinInterval
	if span <= 0 {
		return a.MinInterval
	}
	return a.MinInterval + time.Duration(a.rng.Int63n(int64(span)))
}

// Browser собирает объявления и забывает не обновлённые дольше Expiry
type Browser struct {
	Expiry time.Duration

	games   map[string]DiscoveredGame
	mu      sync.Mutex
	now     func() time.Time
	log     *logging.Logger
	metrics *Metrics
}

// NewBrowser создаёт пустой список игр
func NewBrowser(log *logging.Logger, metrics *Metrics) *Browser {
	return &Browser{
		Expiry:  DiscoveryExpiry,
		games:   make(map[string]DiscoveredGame),
		now:     time.Now,
		log:     log,
		metrics: metrics,
	}
}

// Observe учитывает объявление. Пустой host заменяется адресом отправителя.
// Повторное объявление той же пары (host, port) обновляет запись.
func (b *Browser) Observe(d *protocol.GameDiscovery, from net.Addr) {
	host := d.Host
	if host == "" && from != nil {
		if ua, ok := from.(*net.UDPAddr); ok {
			host = ua.IP.String()
		}
	}
	if host == "" || d.Port <= 0 {
		return
	}

	g := DiscoveredGame{
		Name:      d.Name,
		Host:      host,
		Port:      d.Port,
		Players:   d.Players,
		Timestamp: d.Timestamp,
		LastSeen:  b.now(),
	}

	b.mu.Lock()
	_, known := b.games[g.Address()]
	b.games[g.Address()] = g
	n := len(b.games)
	b.mu.Unlock()

	b.metrics.setDiscovered(n)
	if !known {
		b.log.Info("Найдена игра %q на %s", g.Name, g.Address())
	}
}

// Refresh удаляет устаревшие записи
func (b *Browser) Refresh() {
	now := b.now()

	b.mu.Lock()
	for key, g := range b.games {
		if now.Sub(g.LastSeen) > b.Expiry {
			delete(b.games, key)
			b.log.Debug("Игра %s больше не объявляется", key)
		}
	}
	n := len(b.games)
	b.mu.Unlock()

	b.metrics.setDiscovered(n)
}

// Games актуальный список игр, отсортированный по адресу
func (b *Browser) Games() []DiscoveredGame {
	b.Refresh()

	b.mu.Lock()
	out := make([]DiscoveredGame, 0, len(b.games))
	for _, g := range b.games {
		out = append(out, g)
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Address() < out[j].Address() })
	return out
}

// Listen открывает UDP сокет на addr и слушает объявления до отмены ctx.
// Порт открывается с SO_REUSEADDR: несколько браузеров на одной машине
// слушают один порт одновременно.
// Сокет закрывается при отмене, что прерывает ожидающее чтение.
func (b *Browser) Listen(ctx context.Context, addr string) (net.Addr, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	pc, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия порта обнаружения %s: %w", addr, err)
	}
	conn := pc.(*net.UDPConn)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go b.readLoop(conn)
	return conn.LocalAddr(), nil
}

func (b *Browser) readLoop(conn *net.UDPConn) {
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			b.log.Warn("Ошибка чтения объявления: %v", err)
			continue
		}

		msg, err := protocol.Decode(buf[:n])
		if err != nil {
			b.metrics.decodeError()
			logging.LogProtocolError(b.log, from.String(), err, buf[:n])
			continue
		}
		d, ok := msg.(*protocol.GameDiscovery)
		if !ok {
			continue
		}
		b.Observe(d, from)
	}
}

// Scan слушает объявления в течение окна и возвращает найденные игры
func (b *Browser) Scan(ctx context.Context, addr string, window time.Duration) ([]DiscoveredGame, error) {
	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	if _, err := b.Listen(ctx, addr); err != nil {
		return nil, err
	}
	<-ctx.Done()
	return b.Games(), nil
}

// LocalIP первый не-loopback IPv4 адрес машины
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && !ipn.IP.IsLoopback() {
			if ip4 := ipn.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return "127.0.0.1"
}
