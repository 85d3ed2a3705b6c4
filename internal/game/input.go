package game

import (
	"math"

	"github.com/annel0/gunguys/internal/entity"
	"github.com/annel0/gunguys/internal/sim"
	"github.com/annel0/gunguys/internal/vec"
)

// InputSource выдаёт ввод игрока на каждый тик.
// local вид своего игрока, others все остальные видимые сущности.
type InputSource interface {
	Next(local sim.EntityView, others []sim.EntityView) sim.Input
}

// IdleSource ввод без действий
type IdleSource struct{}

func (IdleSource) Next(sim.EntityView, []sim.EntityView) sim.Input { return sim.IdleInput() }

// AutoAim простой бот для безголового узла: держит дистанцию до ближайшего
// монстра и стреляет в него.
type AutoAim struct {
	// Near ближе этой дистанции бот отходит, дальше Far подходит
	Near, Far float64
	// Sight дальше этого монстры игнорируются
	Sight float64
}

// NewAutoAim бот с дистанциями по умолчанию
func NewAutoAim() *AutoAim {
	return &AutoAim{Near: 150, Far: 350, Sight: 800}
}

func (a *AutoAim) Next(local sim.EntityView, others []sim.EntityView) sim.Input {
	in := sim.IdleInput()
	if !local.Alive {
		return in
	}

	me := vec.New(local.X, local.Y)
	target, dist, ok := nearestMonster(me, others)
	if !ok || dist > a.Sight {
		return in
	}

	in.Aim = target
	in.Fire = true

	dir := target.Sub(me)
	switch {
	case dist > a.Far:
		steer(&in, dir)
	case dist < a.Near:
		steer(&in, dir.Mul(-1))
	}
	return in
}

func nearestMonster(from vec.Vec2, views []sim.EntityView) (vec.Vec2, float64, bool) {
	best := math.Inf(1)
	var at vec.Vec2
	for _, v := range views {
		if v.Kind != entity.KindMonster || !v.Alive {
			continue
		}
		p := vec.New(v.X, v.Y)
		if d := from.DistanceTo(p); d < best {
			best, at = d, p
		}
	}
	return at, best, !math.IsInf(best, 1)
}

// steer переводит направление в нажатые клавиши с мёртвой зоной
func steer(in *sim.Input, d vec.Vec2) {
	const dead = 0.3
	n := d.Normalized()
	in.Left = n.X < -dead
	in.Right = n.X > dead
	in.Up = n.Y < -dead
	in.Down = n.Y > dead
}
