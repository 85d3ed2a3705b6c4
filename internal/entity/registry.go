package entity

import (
	"sync"

	"github.com/annel0/gunguys/internal/vec"
)

// Registry управляет всеми сущностями мира. Порядок обхода совпадает
// с порядком добавления, поэтому шаг симуляции воспроизводим.
type Registry struct {
	entities     map[uint64]*Entity // Хранилище всех сущностей
	order        []uint64           // Порядок добавления
	nextEntityID uint64             // Счетчик для генерации ID
	mu           sync.RWMutex       // Мьютекс для чтения из сетевых горутин
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		entities:     make(map[uint64]*Entity),
		nextEntityID: 1,
	}
}

// Add добавляет сущность, назначая ID, если он не задан. Возвращает ID.
func (r *Registry) Add(e *Entity) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == 0 {
		e.ID = r.nextEntityID
		r.nextEntityID++
	} else if e.ID >= r.nextEntityID {
		r.nextEntityID = e.ID + 1
	}

	if _, exists := r.entities[e.ID]; !exists {
		r.order = append(r.order, e.ID)
	}
	e.Active = true
	r.entities[e.ID] = e
	return e.ID
}

// Remove удаляет сущность. Повторное удаление безопасно и возвращает false.
func (r *Registry) Remove(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entities[id]
	if !exists {
		return false
	}
	e.Active = false
	delete(r.entities, id)

	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get возвращает сущность по ID
func (r *Registry) Get(id uint64) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entities[id]
	return e, exists
}

// Has проверяет членство сущности
func (r *Registry) Has(id uint64) bool {
	_, ok := r.Get(id)
	return ok
}

// All возвращает все сущности в порядке добавления
func (r *Registry) All() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entities[id])
	}
	return out
}

// ByKind возвращает сущности заданного вида
func (r *Registry) ByKind(kind Kind) []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entity
	for _, id := range r.order {
		if e := r.entities[id]; e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ProjectilesOf возвращает живые снаряды владельца
func (r *Registry) ProjectilesOf(ownerID uint64) []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entity
	for _, id := range r.order {
		e := r.entities[id]
		if e.Kind == KindProjectile && e.Projectile.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out
}

// FindByNetID ищет игрока или тень по сетевому идентификатору
func (r *Registry) FindByNetID(netID string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		e := r.entities[id]
		if (e.Player != nil && e.Player.NetID == netID) || (e.Peer != nil && e.Peer.NetID == netID) {
			return e, true
		}
	}
	return nil, false
}

// InRange возвращает активные сущности в радиусе
func (r *Registry) InRange(center vec.Vec2, radius float64) []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Entity
	for _, id := range r.order {
		e := r.entities[id]
		if e.Active && center.DistanceTo(e.Body.Pos) <= radius {
			result = append(result, e)
		}
	}
	return result
}

// Count возвращает число сущностей вида kind
func (r *Registry) Count(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.entities {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Len возвращает общее число сущностей
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Prune удаляет мёртвых монстров и снаряды. Игроки и тени остаются в реестре.
func (r *Registry) Prune() []*Entity {
	var removed []*Entity
	for _, e := range r.All() {
		if e.Kind != KindMonster && e.Kind != KindProjectile {
			continue
		}
		if e.Health <= 0 && r.Remove(e.ID) {
			removed = append(removed, e)
		}
	}
	return removed
}

// GetStats возвращает статистику по сущностям
func (r *Registry) GetStats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]interface{})
	stats["total_entities"] = len(r.entities)

	typeStats := make(map[string]int)
	for _, e := range r.entities {
		typeStats[e.Kind.String()]++
	}
	stats["entity_types"] = typeStats
	return stats
}
