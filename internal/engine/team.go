package engine

type Team int

const (
	TeamNone Team = 0 // only used as "no winner" on a timed-out draw
	TeamOne  Team = 1
	TeamTwo  Team = 2
)

func (t Team) Opponent() Team {
	switch t {
	case TeamOne:
		return TeamTwo
	case TeamTwo:
		return TeamOne
	default:
		return TeamNone
	}
}

func (t Team) Valid() bool { return t == TeamOne || t == TeamTwo }
