package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// HeaderSize размер префикса длины
const HeaderSize = 4

// MaxFrameSize максимальный размер полезной нагрузки кадра
const MaxFrameSize = 1 << 20

var (
	// ErrFrameTooLarge объявленная длина кадра превышает MaxFrameSize
	ErrFrameTooLarge = errors.New("кадр слишком большой")
	// ErrUnknownType неизвестное значение поля type
	ErrUnknownType = errors.New("неизвестный тип сообщения")
)

// Marshal сериализует сообщение в JSON без префикса длины (для UDP)
func Marshal(m Message) ([]byte, error) {
	setType(m)
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации %s: %w", m.MessageType(), err)
	}
	return data, nil
}

// Encode сериализует сообщение в кадр: длина big-endian + JSON
func Encode(m Message) ([]byte, error) {
	payload, err := Marshal(m)
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d байт", ErrFrameTooLarge, len(payload))
	}
	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[HeaderSize:], payload)
	return frame, nil
}

// Decode разбирает полезную нагрузку кадра по полю type
func Decode(payload []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("ошибка разбора сообщения: %w", err)
	}
	m, ok := newMessage(env.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err := json.Unmarshal(payload, m); err != nil {
		return nil, fmt.Errorf("ошибка разбора %s: %w", env.Type, err)
	}
	return m, nil
}

// WriteUint32 записывает uint32 в big-endian формате
func WriteUint32(val uint32) []byte {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(b, val)
	return b
}

// ReadUint32 читает uint32 из big-endian формата
func ReadUint32(data []byte) uint32 {
	return binary.BigEndian.Uint32(data)
}

// FrameBuffer накапливает байты потока и выдаёт полные кадры.
// Границы кадров не совпадают с границами чтений из сокета.
type FrameBuffer struct {
	buf []byte
}

// Feed добавляет прочитанные байты и возвращает полезные нагрузки всех
// завершённых кадров. ErrFrameTooLarge означает, что поток рассинхронизирован
// и соединение нужно закрыть.
func (fb *FrameBuffer) Feed(p []byte) ([][]byte, error) {
	fb.buf = append(fb.buf, p...)

	var frames [][]byte
	for len(fb.buf) >= HeaderSize {
		size := ReadUint32(fb.buf)
		if size > MaxFrameSize {
			fb.buf = nil
			return frames, fmt.Errorf("%w: %d байт", ErrFrameTooLarge, size)
		}
		total := HeaderSize + int(size)
		if len(fb.buf) < total {
			break
		}
		payload := make([]byte, size)
		copy(payload, fb.buf[HeaderSize:total])
		frames = append(frames, payload)
		fb.buf = fb.buf[total:]
	}

	// Отпускаем прочитанный массив
	if len(fb.buf) == 0 {
		fb.buf = nil
	}
	return frames, nil
}

// Buffered число байт незавершённого кадра
func (fb *FrameBuffer) Buffered() int {
	return len(fb.buf)
}

// Reset очищает буфер
func (fb *FrameBuffer) Reset() {
	fb.buf = nil
}
