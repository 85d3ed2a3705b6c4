package sim

import "github.com/annel0/gunguys/internal/vec"

// NoWeaponSelect означает, что игрок не менял оружие в этом тике
const NoWeaponSelect = -1

// Input состояние ввода за один тик
type Input struct {
	Up, Down, Left, Right bool

	// Aim точка прицеливания в мировых координатах
	Aim vec.Vec2
	// Fire фронт нажатия атаки
	Fire bool
	// WeaponSelect индекс оружия в каталоге или NoWeaponSelect
	WeaponSelect int
}

// IdleInput ввод без действий
func IdleInput() Input {
	return Input{WeaponSelect: NoWeaponSelect}
}

// Direction вектор движения по нажатым направлениям (без нормализации, как в клавиатурном вводе)
func (in Input) Direction() vec.Vec2 {
	var d vec.Vec2
	if in.Left {
		d.X--
	}
	if in.Right {
		d.X++
	}
	if in.Up {
		d.Y--
	}
	if in.Down {
		d.Y++
	}
	return d
}
