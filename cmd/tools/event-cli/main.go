// event-cli читает игровые события из JetStream: поток событий или сводку по типам.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/gunguys/internal/eventbus"
)

const timeFormat = "15:04:05.000"

func main() {
	var (
		natsURL  = flag.String("nats", "nats://127.0.0.1:4222", "адрес NATS")
		stream   = flag.String("stream", eventbus.DefaultStream, "имя стрима событий")
		command  = flag.String("cmd", "tail", "команда: tail, stats")
		types    = flag.String("types", "", "типы событий через запятую")
		sources  = flag.String("sources", "", "узлы-источники через запятую")
		duration = flag.Duration("duration", 0, "время чтения, 0: до Ctrl+C")
		limit    = flag.Int("limit", 0, "максимум событий, 0: без ограничения")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("Ошибка подключения к шине: %v", err)
	}
	defer bus.Close()

	filter := eventbus.Filter{Types: parseList(*types), Sources: parseList(*sources)}

	switch *command {
	case "tail":
		err = tail(ctx, bus, filter, *limit, os.Stdout)
	case "stats":
		var st *typeStats
		st, err = collect(ctx, bus, filter, *limit)
		if err == nil {
			st.print(os.Stdout)
		}
	default:
		fmt.Fprintf(os.Stderr, "Неизвестная команда %q, доступны: tail, stats\n", *command)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Ошибка %s: %v", *command, err)
	}
}

// tail печатает события по мере поступления до отмены ctx или limit событий
func tail(ctx context.Context, bus eventbus.EventBus, f eventbus.Filter, limit int, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		count int
	)
	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		if limit > 0 && count >= limit {
			return
		}
		fmt.Fprintln(w, formatEvent(ev))
		count++
		if limit > 0 && count >= limit {
			cancel()
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	return nil
}

// collect считает события по типам до отмены ctx или limit событий
func collect(ctx context.Context, bus eventbus.EventBus, f eventbus.Filter, limit int) (*typeStats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := newTypeStats()
	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, ev *eventbus.Envelope) {
		if n := st.add(ev); limit > 0 && n >= limit {
			cancel()
		}
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	return st, nil
}

func formatEvent(ev *eventbus.Envelope) string {
	return fmt.Sprintf("%s [%s] %-14s p=%d %s",
		ev.Timestamp.Local().Format(timeFormat), ev.Source, ev.EventType, ev.Priority, string(ev.Payload))
}

// typeStats счётчики событий по типам
type typeStats struct {
	mu     sync.Mutex
	total  int
	byType map[string]int
	first  time.Time
	last   time.Time
}

func newTypeStats() *typeStats {
	return &typeStats{byType: make(map[string]int)}
}

// add учитывает событие и возвращает общее число
func (s *typeStats) add(ev *eventbus.Envelope) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.byType[ev.EventType]++
	if s.first.IsZero() || ev.Timestamp.Before(s.first) {
		s.first = ev.Timestamp
	}
	if ev.Timestamp.After(s.last) {
		s.last = ev.Timestamp
	}
	return s.total
}

func (s *typeStats) print(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.byType))
	for name := range s.byType {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.byType[names[i]] != s.byType[names[j]] {
			return s.byType[names[i]] > s.byType[names[j]]
		}
		return names[i] < names[j]
	})

	fmt.Fprintf(w, "Всего событий: %d\n", s.total)
	if s.total > 0 {
		fmt.Fprintf(w, "Период: %s .. %s\n", s.first.Local().Format(timeFormat), s.last.Local().Format(timeFormat))
	}
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %d\n", name, s.byType[name])
	}
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
