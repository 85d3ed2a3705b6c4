package network

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics Prometheus-метрики сетевой сессии. Нулевой указатель допустим: методы ничего не делают.
type Metrics struct {
	framesSent     *prometheus.CounterVec
	framesReceived *prometheus.CounterVec
	bytesSent      prometheus.Counter
	bytesReceived  prometheus.Counter
	decodeErrors   prometheus.Counter
	sendDropped    prometheus.Counter
	inboxDropped   prometheus.Counter
	peers          prometheus.Gauge
	connects       *prometheus.CounterVec
	discovered     prometheus.Gauge
	snapshots      *prometheus.CounterVec
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil: без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gunguys",
			Subsystem: "net",
			Name:      "frames_sent_total",
			Help:      "Отправленные кадры по типам сообщений.",
		}, []string{"type"}),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gunguys",
			Subsystem: "net",
			Name:      "frames_received_total",
			Help:      "Полученные кадры по типам сообщений.",
		}, []string{"type"}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gunguys",
			Subsystem: "net",
			Name:      "bytes_sent_total",
			Help:      "Отправлено байт.",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gunguys",
			Subsystem: "net",
			Name:      "bytes_received_total",
			Help:      "Получено байт.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gunguys",
			Subsystem: "net",
			Name:      "decode_errors_total",
			Help:      "Отброшенные нераспознанные сообщения.",
		}),
		sendDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gunguys",
			Subsystem: "net",
			Name:      "send_dropped_total",
			Help:      "Кадры, отброшенные из-за переполнения очереди отправки.",
		}),
		inboxDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gunguys",
			Subsystem: "net",
			Name:      "inbox_dropped_total",
			Help:      "Входящие сообщения, отброшенные из-за переполнения очереди симуляции.",
		}),
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gunguys",
			Subsystem: "net",
			Name:      "peers",
			Help:      "Текущее число подключённых узлов.",
		}),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gunguys",
			Subsystem: "net",
			Name:      "connect_attempts_total",
			Help:      "Попытки подключения к хосту по результату.",
		}, []string{"result"}),
		discovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gunguys",
			Subsystem: "net",
			Name:      "discovered_games",
			Help:      "Игры, найденные в локальной сети.",
		}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gunguys",
			Subsystem: "replication",
			Name:      "snapshots_total",
			Help:      "Разосланные снимки мира (full/delta).",
		}, []string{"kind"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.framesSent, m.framesReceived, m.bytesSent, m.bytesReceived,
			m.decodeErrors, m.sendDropped, m.inboxDropped, m.peers,
			m.connects, m.discovered, m.snapshots,
		)
	}
	return m
}

func (m *Metrics) frameSent(msgType string, size int) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(msgType).Inc()
	m.bytesSent.Add(float64(size))
}

func (m *Metrics) frameReceived(msgType string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(msgType).Inc()
}

func (m *Metrics) bytesIn(n int) {
	if m == nil {
		return
	}
	m.bytesReceived.Add(float64(n))
}

func (m *Metrics) decodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) dropped() {
	if m == nil {
		return
	}
	m.sendDropped.Inc()
}

func (m *Metrics) inboxDrop() {
	if m == nil {
		return
	}
	m.inboxDropped.Inc()
}

func (m *Metrics) peerDelta(d float64) {
	if m == nil {
		return
	}
	m.peers.Add(d)
}

func (m *Metrics) connectAttempt(result string) {
	if m == nil {
		return
	}
	m.connects.WithLabelValues(result).Inc()
}

func (m *Metrics) setDiscovered(n int) {
	if m == nil {
		return
	}
	m.discovered.Set(float64(n))
}

// SnapshotSent учитывает разосланный снимок
func (m *Metrics) SnapshotSent(full bool) {
	if m == nil {
		return
	}
	kind := "delta"
	if full {
		kind = "full"
	}
	m.snapshots.WithLabelValues(kind).Inc()
}
