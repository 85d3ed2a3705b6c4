package network

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/gunguys/internal/protocol"
)

const waitFor = 3 * time.Second
const tickEvery = 10 * time.Millisecond

func testMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func startHost(t *testing.T) *Host {
	t.Helper()
	h := NewHost(TCPTransport{}, nil, testMetrics(), 0)
	require.NoError(t, h.Listen("127.0.0.1:0"))
	t.Cleanup(func() { h.Close() })
	return h
}

func dialHost(t *testing.T, h *Host) *Client {
	t.Helper()
	c, err := Dial(context.Background(), TCPTransport{}, h.Addr().String(), RetryPolicy{Attempts: 1, Timeout: time.Second}, nil, testMetrics(), 0)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// collect накапливает результаты Poll до выполнения условия
type collector struct {
	msgs   []Inbound
	events []PeerEvent
}

func (c *collector) poll(f func() ([]Inbound, []PeerEvent)) {
	m, e := f()
	c.msgs = append(c.msgs, m...)
	c.events = append(c.events, e...)
}

func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	conn.Close()
	return port
}

func TestBrowser_ExpiresStaleGames(t *testing.T) {
	b := NewBrowser(nil, testMetrics())
	now := time.Unix(1000, 0)
	b.now = func() time.Time { return now }

	b.Observe(&protocol.GameDiscovery{Name: "A", Host: "10.0.0.2", Port: 12345, Players: 1}, nil)
	now = now.Add(4 * time.Second)
	b.Observe(&protocol.GameDiscovery{Name: "B", Host: "10.0.0.3", Port: 12345, Players: 1}, nil)

	now = now.Add(5 * time.Second)
	assert.Len(t, b.Games(), 2, "9 секунд без объявления ещё не истекли")

	now = now.Add(2 * time.Second)
	games := b.Games()
	require.Len(t, games, 1, "игра без объявления более 10 секунд исчезает")
	assert.Equal(t, "B", games[0].Name)
}

func TestBrowser_DeduplicatesByHostPort(t *testing.T) {
	b := NewBrowser(nil, nil)
	b.Observe(&protocol.GameDiscovery{Name: "A", Host: "10.0.0.2", Port: 12345, Players: 1}, nil)
	b.Observe(&protocol.GameDiscovery{Name: "A", Host: "10.0.0.2", Port: 12345, Players: 3}, nil)
	b.Observe(&protocol.GameDiscovery{Name: "A2", Host: "10.0.0.2", Port: 12346, Players: 1}, nil)

	games := b.Games()
	require.Len(t, games, 2)
	assert.Equal(t, 3, games[0].Players, "повторное объявление обновляет запись")
	assert.Equal(t, "10.0.0.2:12345", games[0].Address())
}

func TestBrowser_UsesSenderAddressWhenHostEmpty(t *testing.T) {
	b := NewBrowser(nil, nil)
	from := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 7), Port: 5555}

	b.Observe(&protocol.GameDiscovery{Name: "A", Port: 12345}, from)
	b.Observe(&protocol.GameDiscovery{Name: "bad", Host: "10.0.0.1"}, from)

	games := b.Games()
	require.Len(t, games, 1)
	assert.Equal(t, "192.168.1.7", games[0].Host)
}

func TestAnnouncer_IntervalWithinBounds(t *testing.T) {
	a, err := NewAnnouncer("127.0.0.1:9", func() protocol.GameDiscovery { return protocol.GameDiscovery{} }, nil)
	require.NoError(t, err)
	defer a.conn.Close()

	for i := 0; i < 100; i++ {
		d := a.nextInterval()
		assert.GreaterOrEqual(t, d, AnnounceMinInterval)
		assert.Less(t, d, AnnounceMaxInterval)
	}
}

func TestAnnounceAndListen_Loopback(t *testing.T) {
	port := freeUDPPort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBrowser(nil, nil)
	_, err := b.Listen(ctx, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)

	a, err := NewAnnouncer(net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), func() protocol.GameDiscovery {
		return protocol.GameDiscovery{Name: DefaultGameName, Host: "127.0.0.1", Port: DefaultGamePort, Players: 2}
	}, nil)
	require.NoError(t, err)
	defer a.conn.Close()

	require.Eventually(t, func() bool {
		a.Announce()
		return len(b.Games()) == 1
	}, waitFor, 50*time.Millisecond)

	g := b.Games()[0]
	assert.Equal(t, DefaultGameName, g.Name)
	assert.Equal(t, 2, g.Players)
}

func TestBrowser_SecondScanSharesDiscoveryPort(t *testing.T) {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(freeUDPPort(t)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := NewBrowser(nil, nil)
	_, err := first.Listen(ctx, addr)
	require.NoError(t, err)

	games, err := NewBrowser(nil, nil).Scan(ctx, addr, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestHostClient_ExchangeMessages(t *testing.T) {
	h := startHost(t)
	c := dialHost(t, h)

	var hc collector
	require.Eventually(t, func() bool {
		hc.poll(h.Poll)
		return len(hc.events) == 1
	}, waitFor, tickEvery)
	assert.True(t, hc.events[0].Joined)
	assert.Equal(t, 1, h.PeerCount())

	require.NoError(t, c.Send(&protocol.PlayerUpdate{PlayerID: "c1", X: 5, Y: 6, Health: 80, MaxHealth: 100, Level: 2, Weapon: "Bow"}))
	require.Eventually(t, func() bool {
		hc.poll(h.Poll)
		return len(hc.msgs) == 1
	}, waitFor, tickEvery)
	pu, ok := hc.msgs[0].Msg.(*protocol.PlayerUpdate)
	require.True(t, ok)
	assert.Equal(t, "Bow", pu.Weapon)
	assert.Equal(t, hc.events[0].PeerID, hc.msgs[0].PeerID)

	state := &protocol.GameState{Data: protocol.NewStateData(), Full: true}
	state.Data.Monsters["3"] = protocol.MonsterState{X: 1, Y: 2, Health: 10, MaxHealth: 20}
	n, err := h.Broadcast(state)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var cc collector
	require.Eventually(t, func() bool {
		cc.poll(c.Poll)
		return len(cc.msgs) == 1
	}, waitFor, tickEvery)
	gs, ok := cc.msgs[0].Msg.(*protocol.GameState)
	require.True(t, ok)
	assert.True(t, gs.Full)
	assert.Equal(t, 10.0, gs.Data.Monsters["3"].Health)
}

func TestHost_RelaysPlayerMessagesToOtherClients(t *testing.T) {
	h := startHost(t)
	c1 := dialHost(t, h)
	c2 := dialHost(t, h)
	require.Eventually(t, func() bool { return h.PeerCount() == 2 }, waitFor, tickEvery)

	require.NoError(t, c1.Send(&protocol.Shoot{PlayerID: "c1", Direction: [2]float64{1, 0}}))

	var cc collector
	require.Eventually(t, func() bool {
		cc.poll(c2.Poll)
		return len(cc.msgs) == 1
	}, waitFor, tickEvery)
	assert.Equal(t, protocol.TypeShoot, cc.msgs[0].Msg.MessageType())

	time.Sleep(50 * time.Millisecond)
	msgs, _ := c1.Poll()
	assert.Empty(t, msgs, "отправитель не получает своё сообщение обратно")
}

func TestHost_KickClosesClient(t *testing.T) {
	h := startHost(t)
	c := dialHost(t, h)

	var hc collector
	require.Eventually(t, func() bool {
		hc.poll(h.Poll)
		return len(hc.events) == 1
	}, waitFor, tickEvery)
	id := hc.events[0].PeerID

	require.NoError(t, h.Kick(id))
	assert.Error(t, h.Kick(id), "повторный kick неизвестного клиента")

	require.Eventually(t, func() bool {
		hc.poll(h.Poll)
		return len(hc.events) == 2
	}, waitFor, tickEvery)
	assert.False(t, hc.events[1].Joined)
	assert.ErrorIs(t, hc.events[1].Err, ErrKicked)

	select {
	case <-c.Done():
	case <-time.After(waitFor):
		t.Fatal("клиент не заметил отключения")
	}
}

func TestSession_KickRequiresHost(t *testing.T) {
	s := NewSession(DefaultConfig(), nil, nil)
	assert.ErrorIs(t, s.Kick("c1"), ErrNotHosting)
}

func TestPeer_MalformedMessageDoesNotStopReading(t *testing.T) {
	h := startHost(t)
	conn, err := net.Dial("tcp", h.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	bad := []byte(`{"type":"player_update","x":`)
	_, err = conn.Write(append(protocol.WriteUint32(uint32(len(bad))), bad...))
	require.NoError(t, err)
	good, err := protocol.Encode(&protocol.PlayerUpdate{PlayerID: "raw"})
	require.NoError(t, err)
	_, err = conn.Write(good)
	require.NoError(t, err)

	var hc collector
	require.Eventually(t, func() bool {
		hc.poll(h.Poll)
		return len(hc.msgs) == 1
	}, waitFor, tickEvery)
	assert.Equal(t, "raw", hc.msgs[0].Msg.(*protocol.PlayerUpdate).PlayerID)
	assert.Equal(t, 1, h.PeerCount(), "соединение остаётся открытым")
}

func TestPeer_OversizedFrameClosesConnection(t *testing.T) {
	h := startHost(t)
	conn, err := net.Dial("tcp", h.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(protocol.WriteUint32(protocol.MaxFrameSize + 1))
	require.NoError(t, err)

	var hc collector
	require.Eventually(t, func() bool {
		hc.poll(h.Poll)
		return len(hc.events) == 2
	}, waitFor, tickEvery)
	assert.False(t, hc.events[1].Joined)
	assert.True(t, errors.Is(hc.events[1].Err, protocol.ErrFrameTooLarge))
}

func TestDial_RetriesThenFails(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	start := time.Now()
	_, err = Dial(context.Background(), TCPTransport{}, addr, RetryPolicy{Attempts: 3, Timeout: 200 * time.Millisecond, Delay: 20 * time.Millisecond}, nil, nil, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectFailed))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond, "две паузы между тремя попытками")
}

// refusingTransport отказывает в каждом подключении и считает вызовы
type refusingTransport struct{ dials int }

func (r *refusingTransport) Name() string { return "refusing" }

func (r *refusingTransport) Listen(string) (net.Listener, error) {
	return nil, errors.New("not supported")
}

func (r *refusingTransport) Dial(context.Context, string, time.Duration) (net.Conn, error) {
	r.dials++
	return nil, errors.New("connection refused")
}

func TestDial_AttemptsCountsEveryTry(t *testing.T) {
	tr := &refusingTransport{}
	policy := DefaultRetryPolicy()
	policy.Delay = time.Millisecond

	_, err := Dial(context.Background(), tr, "host:1", policy, nil, nil, 0)
	require.ErrorIs(t, err, ErrConnectFailed)
	assert.Equal(t, 5, tr.dials)
}

func TestDial_CancelledContextStopsRetrying(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = Dial(ctx, TCPTransport{}, addr, RetryPolicy{Attempts: 5, Timeout: time.Second, Delay: 2 * time.Second}, nil, nil, 0)
	assert.True(t, errors.Is(err, ErrConnectFailed))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSession_HostJoinDisconnect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BindHost = "127.0.0.1"
	cfg.GamePort = 0
	cfg.BroadcastAddr = "127.0.0.1"
	cfg.DiscoveryPort = freeUDPPort(t)
	cfg.Retry = RetryPolicy{Attempts: 1, Timeout: time.Second, Delay: 10 * time.Millisecond}

	host := NewSession(cfg, nil, testMetrics())
	require.NoError(t, host.StartHost(context.Background(), func() int { return 1 }))
	defer host.Stop()
	assert.Equal(t, StateHosting, host.State())
	assert.ErrorIs(t, host.StartHost(context.Background(), nil), ErrBusy)

	client := NewSession(cfg, nil, testMetrics())
	defer client.Stop()
	require.NoError(t, client.Join(context.Background(), host.Summary().Addr))
	assert.Equal(t, StateConnected, client.State())
	require.Eventually(t, func() bool { return host.PeerCount() == 1 }, waitFor, tickEvery)

	client.Send(&protocol.PlayerUpdate{PlayerID: "c1", Level: 1})
	var hc collector
	require.Eventually(t, func() bool {
		hc.poll(host.Poll)
		return len(hc.msgs) == 1
	}, waitFor, tickEvery)

	// Остановка хоста обрывает соединение, клиент только сообщает об этом
	host.Stop()
	assert.Equal(t, StateIdle, host.State())
	require.Eventually(t, func() bool { return client.State() == StateDisconnected }, waitFor, tickEvery)

	var cc collector
	cc.poll(client.Poll)
	require.NotEmpty(t, cc.events)
	assert.False(t, cc.events[len(cc.events)-1].Joined)
}

func TestSession_JoinFailureReturnsToIdle(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	cfg := DefaultConfig()
	cfg.Retry = RetryPolicy{Attempts: 2, Timeout: 100 * time.Millisecond, Delay: 10 * time.Millisecond}
	s := NewSession(cfg, nil, nil)

	err = s.Join(context.Background(), addr)
	assert.ErrorIs(t, err, ErrConnectFailed)
	assert.Equal(t, StateIdle, s.State())
}

func TestParseTransport(t *testing.T) {
	tr, err := ParseTransport("")
	require.NoError(t, err)
	assert.Equal(t, "tcp", tr.Name())

	tr, err = ParseTransport("KCP")
	require.NoError(t, err)
	assert.Equal(t, "kcp", tr.Name())

	_, err = ParseTransport("quic")
	assert.Error(t, err)
}

func TestKCPTransport_Loopback(t *testing.T) {
	h := NewHost(KCPTransport{}, nil, nil, 0)
	require.NoError(t, h.Listen("127.0.0.1:0"))
	defer h.Close()

	c, err := Dial(context.Background(), KCPTransport{}, h.Addr().String(), RetryPolicy{Attempts: 1, Timeout: time.Second}, nil, nil, 0)
	require.NoError(t, err)
	defer c.Close()

	// KCP узнаёт о клиенте по первому пакету
	require.NoError(t, c.Send(&protocol.PlayerUpdate{PlayerID: "k1"}))
	var hc collector
	require.Eventually(t, func() bool {
		hc.poll(h.Poll)
		return len(hc.msgs) == 1
	}, waitFor, tickEvery)
	assert.Equal(t, "k1", hc.msgs[0].Msg.(*protocol.PlayerUpdate).PlayerID)
}
