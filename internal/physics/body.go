// Package physics содержит кинематику тел и разрешение столкновений.
package physics

import (
	"math"

	"github.com/annel0/gunguys/internal/vec"
)

// Значения по умолчанию для нового тела (пикселей, пикселей/с, пикселей/с²)
const (
	DefaultMaxSpeed     = 200.0
	DefaultAcceleration = 100.0
	DefaultFriction     = 50.0
)

// Body представляет кинематическое состояние подвижного объекта
type Body struct {
	Pos vec.Vec2 // Позиция
	Vel vec.Vec2 // Скорость
	Acc vec.Vec2 // Накопленное ускорение на текущий тик

	Mass     float64
	Radius   float64
	MaxSpeed float64
	// AccelRate величина ускорения, которую тело прикладывает само (ввод, ИИ)
	AccelRate float64
	// Friction постоянное по модулю замедление против скорости
	Friction float64
}

// NewBody создаёт тело с параметрами движения по умолчанию
func NewBody(x, y, radius, mass float64) *Body {
	return &Body{
		Pos:       vec.Vec2{X: x, Y: y},
		Mass:      mass,
		Radius:    radius,
		MaxSpeed:  DefaultMaxSpeed,
		AccelRate: DefaultAcceleration,
		Friction:  DefaultFriction,
	}
}

// ApplyAcceleration добавляет ускорение в аккумулятор текущего тика
func (b *Body) ApplyAcceleration(ax, ay float64) {
	b.Acc.X += ax
	b.Acc.Y += ay
}

// ApplyImpulse мгновенно меняет скорость (отбрасывание)
func (b *Body) ApplyImpulse(dv vec.Vec2) {
	if !dv.IsFinite() {
		return
	}
	b.Vel = b.Vel.Add(dv)
}

// Speed возвращает модуль скорости
func (b *Body) Speed() float64 {
	return b.Vel.Length()
}

// StepVelocity выполняет шаги интегрирования, не затрагивающие позицию:
// трение, накопленное ускорение, ограничение скорости. Аккумулятор обнуляется.
func (b *Body) StepVelocity(dt float64) {
	if dt <= 0 {
		return
	}

	// Трение не меняет направление: при перескоке через ноль скорость обнуляется
	speed := b.Vel.Length()
	if speed > 0 {
		drop := b.Friction * dt
		if drop >= speed {
			b.Vel = vec.Vec2{}
		} else {
			b.Vel = b.Vel.Mul((speed - drop) / speed)
		}
	}

	b.Vel = b.Vel.Add(b.Acc.Mul(dt))

	speed = b.Vel.Length()
	if b.MaxSpeed >= 0 && speed > b.MaxSpeed {
		b.Vel = b.Vel.Mul(b.MaxSpeed / speed)
	}

	if !b.Vel.IsFinite() {
		b.Vel = vec.Vec2{}
	}

	b.Acc = vec.Vec2{}
}

// Integrate продвигает тело на dt секунд
func (b *Body) Integrate(dt float64) {
	if dt <= 0 {
		return
	}
	b.StepVelocity(dt)
	b.Pos = b.Pos.Add(b.Vel.Mul(dt))
}

// Bounds возвращает ограничивающий прямоугольник тела
func (b *Body) Bounds() Rect {
	return RectAround(b.Pos, b.Radius)
}

// DirectionTo возвращает единичный вектор к точке. Расстояние снизу
// ограничено minDist, поэтому результат всегда конечен.
func (b *Body) DirectionTo(target vec.Vec2, minDist float64) vec.Vec2 {
	return target.Sub(b.Pos).NormalizedFloor(math.Max(minDist, vec.Epsilon))
}
