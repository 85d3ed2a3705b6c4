// Package protocol описывает сетевые сообщения игры и их кадрирование:
// 4 байта длины в big-endian, затем JSON в UTF-8 с полем type.
package protocol

// Константы типов сообщений
const (
	TypePlayerUpdate  = "player_update"  // Состояние своего игрока (любой узел -> хост)
	TypeShoot         = "shoot"          // Выстрел, косметическое уведомление
	TypeGameState     = "game_state"     // Снимок мира (хост -> клиенты)
	TypeGameDiscovery = "game_discovery" // Объявление игры по UDP
	TypeKillCredit    = "kill_credit"    // Опыт за убийство снарядом клиента (хост -> клиенты)
)

// Владельцы снарядов в снимке
const (
	OwnerPlayer  = "player"
	OwnerMonster = "monster"
)

// Message сообщение протокола
type Message interface {
	MessageType() string
}

// envelope используется для чтения дискриминатора
type envelope struct {
	Type string `json:"type"`
}

// PlayerUpdate состояние игрока, которое владелец рассылает сам
type PlayerUpdate struct {
	Type      string  `json:"type"`
	PlayerID  string  `json:"player_id"`  // Сетевой ID игрока
	Name      string  `json:"name,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"max_health"`
	Level     int     `json:"level"`
	Weapon    string  `json:"weapon"`
	Dead      bool    `json:"dead"`
}

// MessageType реализует Message
func (m *PlayerUpdate) MessageType() string { return TypePlayerUpdate }

// Shoot уведомление о выстреле
type Shoot struct {
	Type      string     `json:"type"`
	PlayerID  string     `json:"player_id"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Direction [2]float64 `json:"direction"` // Нормализованное направление [dx, dy]
	Weapon    string     `json:"weapon,omitempty"`
}

// MessageType реализует Message
func (m *Shoot) MessageType() string { return TypeShoot }

// PlayerState игрок в снимке
type PlayerState struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"max_health"`
	Level     int     `json:"level"`
	Weapon    string  `json:"weapon"`
	Dead      bool    `json:"dead,omitempty"`
}

// MonsterState монстр в снимке
type MonsterState struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"max_health"`
	Radius    float64 `json:"radius,omitempty"`
}

// ProjectileState снаряд в снимке
type ProjectileState struct {
	ID    string  `json:"id,omitempty"` // Стабильный ID, клиент по нему не засчитывает попадание дважды
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
	Owner  string  `json:"owner"` // OwnerPlayer или OwnerMonster
	Damage float64 `json:"damage,omitempty"`
}

// StateData содержимое снимка
type StateData struct {
	Players     map[string]PlayerState  `json:"players"`
	Monsters    map[string]MonsterState `json:"monsters"`
	Projectiles []ProjectileState       `json:"projectiles"`
}

// NewStateData создаёт пустое содержимое снимка
func NewStateData() StateData {
	return StateData{
		Players:     make(map[string]PlayerState),
		Monsters:    make(map[string]MonsterState),
		Projectiles: []ProjectileState{},
	}
}

// GameState снимок мира. Full=true означает полный снимок: всё, чего в нём нет, удалено.
type GameState struct {
	Type      string    `json:"type"`
	Data      StateData `json:"data"`
	Timestamp float64   `json:"timestamp"` // Секунды Unix
	Full      bool      `json:"full"`
	Seq       uint64    `json:"seq,omitempty"`
}

// MessageType реализует Message
func (m *GameState) MessageType() string { return TypeGameState }

// KillCredit хост засчитал убийство игроку клиента. Рассылается всем,
// опыт начисляет только владелец PlayerID.
type KillCredit struct {
	Type       string `json:"type"`
	PlayerID   string `json:"player_id"`
	VictimID   string `json:"victim_id"`
	Experience int    `json:"experience"`
}

// MessageType реализует Message
func (m *KillCredit) MessageType() string { return TypeKillCredit }

// GameDiscovery объявление хоста в локальной сети
type GameDiscovery struct {
	Type      string  `json:"type"`
	Name      string  `json:"name"`
	Host      string  `json:"host"`
	Port      int     `json:"port"`
	Timestamp float64 `json:"timestamp"`
	Players   int     `json:"players"`
}

// MessageType реализует Message
func (m *GameDiscovery) MessageType() string { return TypeGameDiscovery }

// newMessage возвращает пустое сообщение по типу
func newMessage(msgType string) (Message, bool) {
	switch msgType {
	case TypePlayerUpdate:
		return &PlayerUpdate{}, true
	case TypeShoot:
		return &Shoot{}, true
	case TypeGameState:
		return &GameState{}, true
	case TypeGameDiscovery:
		return &GameDiscovery{}, true
	case TypeKillCredit:
		return &KillCredit{}, true
	}
	return nil, false
}

// setType проставляет дискриминатор перед кодированием
func setType(m Message) {
	switch v := m.(type) {
	case *PlayerUpdate:
		v.Type = TypePlayerUpdate
	case *Shoot:
		v.Type = TypeShoot
	case *GameState:
		v.Type = TypeGameState
	case *GameDiscovery:
		v.Type = TypeGameDiscovery
	case *KillCredit:
		v.Type = TypeKillCredit
	}
}
