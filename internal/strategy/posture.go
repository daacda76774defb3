package strategy

import (
	"slices"

	"github.com/turretline/algo/internal/gamestate"
	"github.com/turretline/algo/internal/model"
)

// Region filters the posture count. Empty Xs or Ys leave that axis
// unrestricted; empty Kinds means any structure.
type Region struct {
	Xs    []int
	Ys    []int
	Kinds []model.UnitKind
}

func (r Region) matches(c model.Coordinate, u model.Unit) bool {
	if len(r.Xs) > 0 && !slices.Contains(r.Xs, c.X) {
		return false
	}
	if len(r.Ys) > 0 && !slices.Contains(r.Ys, c.Y) {
		return false
	}
	if len(r.Kinds) > 0 {
		return slices.Contains(r.Kinds, u.Kind)
	}
	return u.Kind.Structural()
}

func span(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

var (
	leftFlank  = Region{Xs: span(0, 3), Ys: span(14, 17)}
	rightFlank = Region{Xs: span(24, 27), Ys: span(14, 17)}
)

// CountEnemyStructures counts opponent units in r on cells that hold a
// structure. It only reads the board.
func CountEnemyStructures(b Occupancy, r Region) int {
	n := 0
	for _, c := range gamestate.Cells() {
		if !b.ContainsStationaryUnit(c) {
			continue
		}
		for _, u := range b.Occupants(c) {
			if u.Owner == gamestate.Opponent && r.matches(c, u) {
				n++
			}
		}
	}
	return n
}

// IsLeftHeavy reports whether the opponent's left front corner holds
// strictly more structures than the right one.
func IsLeftHeavy(b Occupancy) bool {
	return CountEnemyStructures(b, leftFlank) > CountEnemyStructures(b, rightFlank)
}
