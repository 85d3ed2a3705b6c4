package replication

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/annel0/gunguys/internal/logging"
	"github.com/annel0/gunguys/internal/network"
	"github.com/annel0/gunguys/internal/observability"
	"github.com/annel0/gunguys/internal/protocol"
	"github.com/annel0/gunguys/internal/protocol/replay"
	"github.com/annel0/gunguys/internal/sim"
)

// Source мир, из которого строятся снимки. *sim.World подходит.
type Source interface {
	Views() []sim.EntityView
	LocalView() (sim.EntityView, bool)
}

// Sender отправка без ожидания. *network.Session подходит.
type Sender interface {
	Send(m protocol.Message)
	IsHost() bool
}

// RecordWriter приёмник полных снимков. *replay.Recorder подходит.
type RecordWriter interface {
	Write(rec replay.Record) error
}

// Options параметры рассылки
type Options struct {
	Rate       float64       // снимков в секунду
	FullEvery  time.Duration // максимальный интервал между полными снимками
	PlayerName string        // имя своего игрока в player_update
	Recorder   RecordWriter
	Metrics    *network.Metrics
	Log        *logging.Logger
}

// Broadcaster с заданной частотой рассылает состояние: хост весь мир,
// клиент только своего игрока.
type Broadcaster struct {
	src  Source
	out  Sender
	opts Options

	mu      sync.Mutex
	cadence *Cadence
	tracker *ChangeTracker
	seq     uint64
}

// NewBroadcaster создаёт рассыльщика
func NewBroadcaster(src Source, out Sender, opts Options) *Broadcaster {
	return &Broadcaster{
		src:     src,
		out:     out,
		opts:    opts,
		cadence: NewCadence(opts.Rate, opts.FullEvery),
		tracker: NewChangeTracker(),
	}
}

// ForceFull требует полный снимок при следующей отправке (новый клиент)
func (b *Broadcaster) ForceFull() {
	b.mu.Lock()
	b.cadence.ForceFull()
	b.mu.Unlock()
}

// Run рассылает снимки до отмены ctx
func (b *Broadcaster) Run(ctx context.Context) {
	b.mu.Lock()
	interval := b.cadence.Interval
	b.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			b.Tick(ctx, now)
		}
	}
}

// Tick отправляет сообщение, если подошло время. Возвращает отправленное или nil.
func (b *Broadcaster) Tick(ctx context.Context, now time.Time) protocol.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	send, full := b.cadence.Due(now)
	if !send {
		return nil
	}

	if !b.out.IsHost() {
		v, ok := b.src.LocalView()
		if !ok {
			return nil
		}
		msg := PlayerUpdateFrom(v, b.opts.PlayerName)
		b.out.Send(msg)
		return msg
	}

	state := BuildState(b.src.Views())
	b.seq++
	gs := &protocol.GameState{
		Data:      state,
		Timestamp: unixSeconds(now),
		Full:      full,
		Seq:       b.seq,
	}

	if full {
		b.tracker.Reset(state)
		b.sendFull(ctx, gs)
	} else {
		gs.Data = b.tracker.Delta(state)
		b.out.Send(gs)
	}
	b.opts.Metrics.SnapshotSent(full)
	return gs
}

func (b *Broadcaster) sendFull(ctx context.Context, gs *protocol.GameState) {
	_, span := observability.Tracer().Start(ctx, "replication.snapshot")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("snapshot.seq", int64(gs.Seq)),
		attribute.Int("snapshot.players", len(gs.Data.Players)),
		attribute.Int("snapshot.monsters", len(gs.Data.Monsters)),
		attribute.Int("snapshot.projectiles", len(gs.Data.Projectiles)),
	)

	b.out.Send(gs)

	if b.opts.Recorder == nil {
		return
	}
	rec := replay.Record{Seq: gs.Seq, Timestamp: gs.Timestamp, State: gs.Data}
	if err := b.opts.Recorder.Write(rec); err != nil {
		b.opts.Log.Warn("Ошибка записи снимка %d в реплей: %v", gs.Seq, err)
		span.RecordError(err)
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
