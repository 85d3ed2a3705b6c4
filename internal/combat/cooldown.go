package combat

import "math"

// MinCooldown минимальный интервал между атаками, секунд
const MinCooldown = 0.1

// levelCooldownReduction доля сокращения перезарядки за уровень выше первого
const levelCooldownReduction = 0.05

// Cooldown возвращает интервал между атаками для оружия и уровня игрока
func Cooldown(fireRate float64, level int) float64 {
	if fireRate <= 0 {
		return math.Inf(1)
	}
	if level < 1 {
		level = 1
	}
	cd := (1 / fireRate) * (1 - levelCooldownReduction*float64(level-1))
	return math.Max(MinCooldown, cd)
}

// FireTimer хранит время последнего выстрела для каждого оружия.
// Попытка выстрела во время перезарядки игнорируется.
type FireTimer struct {
	last map[string]float64
}

// NewFireTimer создаёт пустой таймер
func NewFireTimer() *FireTimer {
	return &FireTimer{last: make(map[string]float64)}
}

// Ready проверяет, прошла ли перезарядка
func (t *FireTimer) Ready(weapon string, cooldown, now float64) bool {
	last, ok := t.last[weapon]
	if !ok {
		return true
	}
	return now-last >= cooldown
}

// TryFire отмечает выстрел, если оружие готово. Возвращает false, если попытка проигнорирована.
func (t *FireTimer) TryFire(weapon string, cooldown, now float64) bool {
	if !t.Ready(weapon, cooldown, now) {
		return false
	}
	t.last[weapon] = now
	return true
}

// Fraction доля оставшейся перезарядки: 1 сразу после выстрела, 0 когда готово
func (t *FireTimer) Fraction(weapon string, cooldown, now float64) float64 {
	last, ok := t.last[weapon]
	if !ok || cooldown <= 0 {
		return 0
	}
	remaining := cooldown - (now - last)
	if remaining <= 0 {
		return 0
	}
	if math.IsInf(cooldown, 1) {
		return 1
	}
	return math.Min(1, remaining/cooldown)
}
