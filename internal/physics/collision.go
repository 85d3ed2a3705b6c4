package physics

import (
	"math"

	"github.com/annel0/gunguys/internal/vec"
)

// Коэффициенты политики блокирующих столкновений
const (
	Restitution      = 1.0  // Упругий удар
	WallDamping      = 0.9  // Гашение скорости при отскоке
	MinBounceSpeed   = 0.5  // Минимальный модуль скорости после отскока
	EntityEnergyKeep = 0.95 // Доля скорости, сохраняемая при обмене импульсом
)

// Rect представляет осевой прямоугольник
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// RectAround возвращает квадрат со стороной 2r вокруг центра
func RectAround(center vec.Vec2, r float64) Rect {
	return Rect{MinX: center.X - r, MinY: center.Y - r, MaxX: center.X + r, MaxY: center.Y + r}
}

// Intersects проверяет пересечение прямоугольников (касание не считается)
func (r Rect) Intersects(o Rect) bool {
	return r.MaxX > o.MinX && r.MinX < o.MaxX && r.MaxY > o.MinY && r.MinY < o.MaxY
}

// IsPointInside проверяет, находится ли точка внутри прямоугольника
func (r Rect) IsPointInside(p vec.Vec2) bool {
	return p.X >= r.MinX && p.X < r.MaxX && p.Y >= r.MinY && p.Y < r.MaxY
}

// Translate сдвигает прямоугольник
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{MinX: r.MinX + dx, MinY: r.MinY + dy, MaxX: r.MaxX + dx, MaxY: r.MaxY + dy}
}

// Center возвращает центр прямоугольника
func (r Rect) Center() vec.Vec2 {
	return vec.Vec2{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

// CirclesOverlap проверяет пересечение двух окружностей
func CirclesOverlap(a, b *Body) bool {
	return a.Pos.DistanceTo(b.Pos) < a.Radius+b.Radius
}

// ResolveElastic разводит пересекающиеся тела и применяет упругий импульс.
// Возвращает true, если тела пересекались.
func ResolveElastic(a, b *Body) bool {
	delta := b.Pos.Sub(a.Pos)
	distance := delta.Length()
	radSum := a.Radius + b.Radius
	if distance >= radSum {
		return false
	}

	// Совпадающие центры: выбираем произвольную нормаль
	normal := vec.Vec2{X: 1, Y: 0}
	if distance > vec.Epsilon {
		normal = delta.Mul(1 / distance)
	}

	// Позиционная коррекция не зависит от масс
	overlap := radSum - distance
	separation := normal.Mul(overlap * 0.5)
	a.Pos = a.Pos.Sub(separation)
	b.Pos = b.Pos.Add(separation)

	dvn := b.Vel.Sub(a.Vel).Dot(normal)
	if dvn > 0 {
		return true
	}

	if a.Mass <= 0 || b.Mass <= 0 {
		return true
	}

	impulse := -(1 + Restitution) * dvn / (1/a.Mass + 1/b.Mass)
	a.Vel = a.Vel.Sub(normal.Mul(impulse / a.Mass))
	b.Vel = b.Vel.Add(normal.Mul(impulse / b.Mass))
	return true
}

// BounceAxis инвертирует компоненту скорости с гашением и минимальным модулем
func BounceAxis(v float64) float64 {
	nv := -v * WallDamping
	if math.Abs(nv) < MinBounceSpeed {
		return math.Copysign(MinBounceSpeed, nv)
	}
	return nv
}

// MomentumExchange одномерный упругий обмен скоростями с потерей 5% энергии
func MomentumExchange(u1, m1, u2, m2 float64) (v1, v2 float64) {
	total := m1 + m2
	if total <= 0 {
		return u1, u2
	}
	v1 = ((m1-m2)/total*u1 + 2*m2/total*u2) * EntityEnergyKeep
	v2 = ((m2-m1)/total*u2 + 2*m1/total*u1) * EntityEnergyKeep
	return v1, v2
}

// Obstacle твёрдое препятствие для блокирующей политики.
// Body == nil означает статичный рельеф (стену).
type Obstacle struct {
	Rect Rect
	Body *Body
}

// StaticObstacle создаёт препятствие-стену
func StaticObstacle(r Rect) Obstacle {
	return Obstacle{Rect: r}
}

// BodyObstacle создаёт препятствие из тела
func BodyObstacle(b *Body) Obstacle {
	return Obstacle{Rect: b.Bounds(), Body: b}
}

// MoveBlocking перемещает тело на Vel*dt, проверяя оси X и Y по отдельности.
// Столкнувшаяся ось не сдвигается. Возвращает тела, с которыми был обмен импульсом.
func MoveBlocking(b *Body, dt float64, obstacles []Obstacle) []*Body {
	var hits []*Body

	for axis := 0; axis < 2; axis++ {
		var dx, dy float64
		if axis == 0 {
			dx = b.Vel.X * dt
		} else {
			dy = b.Vel.Y * dt
		}
		if dx == 0 && dy == 0 {
			continue
		}

		current := b.Bounds()
		candidate := current.Translate(dx, dy)

		blocked := false
		for _, o := range obstacles {
			if o.Body == b {
				continue
			}
			rect := o.Rect
			if o.Body != nil {
				rect = o.Body.Bounds()
			}
			if !candidate.Intersects(rect) {
				continue
			}
			// Уже пересекающимся телам разрешаем расходиться
			if current.Intersects(rect) && !approaching(current, rect, axis, dx+dy) {
				continue
			}

			blocked = true
			// С телом сначала обмен импульсом, затем отскок как от стены
			if o.Body != nil {
				if axis == 0 {
					b.Vel.X, o.Body.Vel.X = MomentumExchange(b.Vel.X, b.Mass, o.Body.Vel.X, o.Body.Mass)
				} else {
					b.Vel.Y, o.Body.Vel.Y = MomentumExchange(b.Vel.Y, b.Mass, o.Body.Vel.Y, o.Body.Mass)
				}
				hits = append(hits, o.Body)
			}
			if axis == 0 {
				b.Vel.X = BounceAxis(b.Vel.X)
			} else {
				b.Vel.Y = BounceAxis(b.Vel.Y)
			}
			break
		}

		if !blocked {
			b.Pos.X += dx
			b.Pos.Y += dy
		}
	}

	return hits
}

// approaching проверяет, уменьшает ли сдвиг расстояние между центрами по оси
func approaching(current, other Rect, axis int, delta float64) bool {
	c := current.Center()
	o := other.Center()
	if axis == 0 {
		return (o.X-c.X)*delta > 0
	}
	return (o.Y-c.Y)*delta > 0
}
