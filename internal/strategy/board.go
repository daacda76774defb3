// Package strategy decides what to place each turn: the fixed opening
// defence, the even-turn rush, the odd-turn breach lookup and the enemy
// posture count.
package strategy

import "github.com/turretline/algo/internal/model"

// Board is the slice of game state the policy reads and mutates. Spawns and
// upgrades take effect immediately; illegal or unaffordable placements are
// skipped without error.
type Board interface {
	TurnNumber() int
	Occupants(c model.Coordinate) []model.Unit
	ContainsStationaryUnit(c model.Coordinate) bool
	Resource(p model.Pool) float64
	AttemptSpawn(kind model.UnitKind, coords []model.Coordinate, num int) int
	AttemptUpgrade(coords []model.Coordinate) int
}

// Occupancy is the read-only part of Board used by the posture heuristic.
type Occupancy interface {
	Occupants(c model.Coordinate) []model.Unit
	ContainsStationaryUnit(c model.Coordinate) bool
}

func isOdd(turn int) bool {
	return turn%2 != 0
}
