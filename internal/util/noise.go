// Package util содержит вспомогательные функции: шум Перлина и работу с углами.
package util

import (
	"math"
	"sync"

	"github.com/aquilax/go-perlin"
)

// Параметры генератора
const (
	noiseAlpha   = 2.0 // Сглаживание шума
	noiseBeta    = 2.0 // Частота шума
	noiseOctaves = 3   // Количество октав
)

// NoiseField двумерное поле шума Перлина со значениями от 0 до 1
type NoiseField struct {
	mu    sync.Mutex
	seed  int64
	noise *perlin.Perlin
}

// NewNoiseField создаёт поле с указанным сидом
func NewNoiseField(seed int64) *NoiseField {
	return &NoiseField{
		seed:  seed,
		noise: perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed),
	}
}

// Seed возвращает сид поля
func (f *NoiseField) Seed() int64 {
	return f.seed
}

// At возвращает значение шума для указанных координат (от 0 до 1)
func (f *NoiseField) At(x, y float64) float64 {
	f.mu.Lock()
	n := f.noise.Noise2D(x, y)
	f.mu.Unlock()

	// Noise2D даёт примерно [-1, 1]
	v := (n + 1.0) / 2.0
	return Clamp(v, 0, 1)
}

// Angle отображает шум в угол [0, 2π)
func (f *NoiseField) Angle(x, y float64) float64 {
	return WrapAngle(f.At(x, y) * 4 * math.Pi)
}

// Clamp ограничивает значение отрезком [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WrapAngle приводит угол к [0, 2π)
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// AngleDiff возвращает модуль разности углов с учётом перехода через ±π
func AngleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d < -math.Pi {
		d += 2 * math.Pi
	}
	return math.Abs(d)
}
