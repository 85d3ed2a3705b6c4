package vec

import "math"

// Epsilon минимальная длина вектора, на которую допускается деление
const Epsilon = 1e-6

// Vec2 представляет 2D координаты с плавающей точкой
type Vec2 struct {
	X, Y float64
}

// New создаёт вектор
func New(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2) Mul(scalar float64) Vec2 {
	return Vec2{X: v.X * scalar, Y: v.Y * scalar}
}

// Dot скалярное произведение
func (v Vec2) Dot(other Vec2) float64 {
	return v.X*other.X + v.Y*other.Y
}

// Length возвращает длину вектора
func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Normalized возвращает нормализованный вектор.
// Для векторов короче Epsilon возвращается нулевой вектор.
func (v Vec2) Normalized() Vec2 {
	length := v.Length()
	if length < Epsilon {
		return Vec2{}
	}
	return Vec2{X: v.X / length, Y: v.Y / length}
}

// NormalizedFloor нормализует, деля на max(floor, длина).
// Используется там, где направление нужно даже для почти совпадающих точек.
func (v Vec2) NormalizedFloor(floor float64) Vec2 {
	length := math.Max(floor, v.Length())
	return Vec2{X: v.X / length, Y: v.Y / length}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	return math.Hypot(v.X-other.X, v.Y-other.Y)
}

// Angle возвращает угол вектора в радианах (-π, π]
func (v Vec2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// IsFinite проверяет, что обе компоненты конечны
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// FromAngle возвращает единичный вектор для угла
func FromAngle(angle float64) Vec2 {
	return Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
}
