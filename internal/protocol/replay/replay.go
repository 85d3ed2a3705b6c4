// Package replay записывает полные снимки сессии в сжатый поток и читает их обратно
package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/annel0/gunguys/internal/protocol"
)

// Header первая запись файла повтора
type Header struct {
	ID        string            `json:"id"`
	StartTime time.Time         `json:"start_time"`
	Metadata  map[string]string `json:"metadata"`
}

// Record один записанный снимок
type Record struct {
	Seq       uint64             `json:"seq"`
	Timestamp float64            `json:"timestamp"`
	State     protocol.StateData `json:"state"`
}

// Recorder пишет снимки: msgpack-записи внутри zstd-потока
type Recorder struct {
	mu     sync.Mutex
	closer io.Closer
	zw     *zstd.Encoder
	enc    *msgpack.Encoder
	header Header
	count  uint64
	closed bool
}

// NewRecorder создаёт рекордер поверх w и сразу пишет заголовок
func NewRecorder(w io.Writer, metadata map[string]string) (*Recorder, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd-потока: %w", err)
	}
	enc := msgpack.NewEncoder(zw)
	enc.SetCustomStructTag("json")

	r := &Recorder{
		zw:  zw,
		enc: enc,
		header: Header{
			ID:        uuid.NewString(),
			StartTime: time.Now().UTC(),
			Metadata:  metadata,
		},
	}
	if err := enc.Encode(&r.header); err != nil {
		zw.Close()
		return nil, fmt.Errorf("ошибка записи заголовка: %w", err)
	}
	return r, nil
}

// CreateFile создаёт файл повтора в каталоге dir
func CreateFile(dir string, metadata map[string]string) (*Recorder, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("ошибка создания каталога повторов: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("session_%s.replay", time.Now().Format("20060102_150405")))
	f, err := os.Create(name)
	if err != nil {
		return nil, "", fmt.Errorf("ошибка создания файла повтора: %w", err)
	}
	r, err := NewRecorder(f, metadata)
	if err != nil {
		f.Close()
		return nil, "", err
	}
	r.closer = f
	return r, name, nil
}

// ID идентификатор записи
func (r *Recorder) ID() string { return r.header.ID }

// Count число записанных снимков
func (r *Recorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Write добавляет снимок
func (r *Recorder) Write(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("рекордер закрыт")
	}
	if err := r.enc.Encode(&rec); err != nil {
		return fmt.Errorf("ошибка записи снимка %d: %w", rec.Seq, err)
	}
	r.count++
	return nil
}

// Close завершает zstd-поток и закрывает файл, если рекордер его открыл
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	err := r.zw.Close()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader читает файл повтора последовательно
type Reader struct {
	zr     *zstd.Decoder
	dec    *msgpack.Decoder
	closer io.Closer
	Header Header
}

// NewReader открывает поток повтора и читает заголовок
func NewReader(src io.Reader) (*Reader, error) {
	zr, err := zstd.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия zstd-потока: %w", err)
	}
	dec := msgpack.NewDecoder(bufio.NewReader(zr))
	dec.SetCustomStructTag("json")

	r := &Reader{zr: zr, dec: dec}
	if err := dec.Decode(&r.Header); err != nil {
		zr.Close()
		return nil, fmt.Errorf("ошибка чтения заголовка: %w", err)
	}
	return r, nil
}

// OpenFile открывает файл повтора
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Next возвращает следующий снимок или io.EOF
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("ошибка чтения снимка: %w", err)
	}
	return rec, nil
}

// Close освобождает декодер
func (r *Reader) Close() error {
	r.zr.Close()
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
