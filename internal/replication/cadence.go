package replication

import "time"

// Частота рассылки
const (
	DefaultRate      = 30.0
	DefaultFullEvery = time.Second
)

// Cadence решает, пора ли отправлять снимок и должен ли он быть полным.
// Первый снимок всегда полный.
type Cadence struct {
	Interval  time.Duration
	FullEvery time.Duration

	lastSend time.Time
	lastFull time.Time
}

// NewCadence создаёт расписание на rate снимков в секунду
func NewCadence(rate float64, fullEvery time.Duration) *Cadence {
	if rate <= 0 {
		rate = DefaultRate
	}
	if fullEvery <= 0 {
		fullEvery = DefaultFullEvery
	}
	return &Cadence{
		Interval:  time.Duration(float64(time.Second) / rate),
		FullEvery: fullEvery,
	}
}

// Due отмечает отправку, если она положена к моменту now
func (c *Cadence) Due(now time.Time) (send, full bool) {
	if !c.lastSend.IsZero() && now.Sub(c.lastSend) < c.Interval {
		return false, false
	}
	c.lastSend = now
	if c.lastFull.IsZero() || now.Sub(c.lastFull) >= c.FullEvery {
		c.lastFull = now
		return true, true
	}
	return true, false
}

// ForceFull требует полный снимок при следующей отправке
func (c *Cadence) ForceFull() {
	c.lastFull = time.Time{}
}
