package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы игровых событий
const (
	TypeMonsterKilled = "monster_killed"
	TypeLevelUp       = "level_up"
	TypePlayerDied    = "player_died"
	TypePeerJoined    = "peer_joined"
	TypePeerLeft      = "peer_left"
	TypeSessionState  = "session_state"
)

// Приоритеты
const (
	PriorityLow      = 1
	PriorityNormal   = 5
	PriorityCritical = 9
)

// MonsterKilled монстр убит игроком
type MonsterKilled struct {
	MonsterID  uint64 `json:"monster_id"`
	KillerID   string `json:"killer_id"`
	Experience int    `json:"experience"`
}

// LevelUp игрок получил уровень
type LevelUp struct {
	PlayerID   string `json:"player_id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Experience int    `json:"experience"`
	Weapon     string `json:"weapon"`
}

// PlayerDied локальный игрок погиб
type PlayerDied struct {
	PlayerID string `json:"player_id"`
	Level    int    `json:"level"`
}

// PeerChanged клиент подключился или отключился
type PeerChanged struct {
	PeerID   string `json:"peer_id"`
	PlayerID string `json:"player_id,omitempty"`
	Addr     string `json:"addr"`
	Reason   string `json:"reason,omitempty"`
}

// SessionState смена состояния сетевой сессии
type SessionState struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NewEnvelope упаковывает payload в JSON конверт с новым UUID
func NewEnvelope(eventType, source string, priority int, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("сериализация %s: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  priority,
		Payload:   data,
	}, nil
}

// Decode распаковывает payload конверта в v
func (ev *Envelope) Decode(v any) error {
	if err := json.Unmarshal(ev.Payload, v); err != nil {
		return fmt.Errorf("payload %s %s: %w", ev.EventType, ev.ID, err)
	}
	return nil
}

// Emitter публикует игровые события от имени узла.
// Nil-значение ничего не делает, поэтому игровой цикл может работать без шины.
type Emitter struct {
	bus     EventBus
	source  string
	session string
}

// NewEmitter создаёт публикатора. session попадает в CorrelationID.
func NewEmitter(bus EventBus, source, session string) *Emitter {
	if bus == nil {
		return nil
	}
	return &Emitter{bus: bus, source: source, session: session}
}

// Emit публикует событие. Ошибка сериализации или публикации возвращается вызывающему.
func (e *Emitter) Emit(ctx context.Context, eventType string, priority int, payload any) error {
	if e == nil {
		return nil
	}
	ev, err := NewEnvelope(eventType, e.source, priority, payload)
	if err != nil {
		return err
	}
	ev.CorrelationID = e.session
	return e.bus.Publish(ctx, ev)
}
