// Package gamestate holds one turn's view of the arena and implements the
// engine's placement rules: legality, affordability, cost deduction, and
// the build/deploy queues that are submitted at the end of the turn.
package gamestate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/turretline/algo/internal/model"
)

// Player indices as used inside a State.
const (
	Self     = 0
	Opponent = 1
)

// PlayerStats are the per-player numbers reported at the start of a turn.
type PlayerStats struct {
	Health float64
	SP     float64
	MP     float64
	Time   float64
}

// Command is one entry of the build or deploy queue, encoded as
// [shorthand, x, y].
type Command struct {
	Shorthand string
	X         int
	Y         int
}

// MarshalJSON encodes the command in the engine's array form.
func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Shorthand, c.X, c.Y})
}

// UnmarshalJSON decodes [shorthand, x, y].
func (c *Command) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("command: need 3 fields, got %d", len(raw))
	}
	s, ok := raw[0].(string)
	if !ok {
		return fmt.Errorf("command: shorthand is %T", raw[0])
	}
	x, xok := raw[1].(float64)
	y, yok := raw[2].(float64)
	if !xok || !yok {
		return fmt.Errorf("command: non-numeric coordinate")
	}
	c.Shorthand, c.X, c.Y = s, int(x), int(y)
	return nil
}

// State is the arena and both players' resources for a single turn.
// Spawns and upgrades mutate it immediately so later requests in the same
// turn see the effect of earlier ones.
type State struct {
	catalog *model.Catalog
	logger  *slog.Logger

	turn  int
	frame int

	grid  [ArenaSize][ArenaSize][]model.Unit
	stats [2]PlayerStats

	build    []Command
	deploy   []Command
	requests []model.PlacementRequest
}

// New creates an empty arena for the given turn.
func New(catalog *model.Catalog, turn int, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		catalog: catalog,
		logger:  logger,
		turn:    turn,
	}
}

// TurnNumber returns the engine's turn counter.
func (s *State) TurnNumber() int {
	return s.turn
}

// Frame returns the action frame number the state was parsed from.
func (s *State) Frame() int {
	return s.frame
}

// SetFrame records the action frame number.
func (s *State) SetFrame(frame int) {
	s.frame = frame
}

// Catalog returns the unit catalog the state was built with.
func (s *State) Catalog() *model.Catalog {
	return s.catalog
}

// SetStats sets a player's health, pools and remaining time.
func (s *State) SetStats(player int, stats PlayerStats) {
	s.stats[player] = stats
}

// Stats returns a player's stats, reflecting any spending this turn.
func (s *State) Stats(player int) PlayerStats {
	return s.stats[player]
}

// Resource returns this agent's current amount in a pool.
func (s *State) Resource(p model.Pool) float64 {
	if p == model.MobilePool {
		return s.stats[Self].MP
	}
	return s.stats[Self].SP
}

// AddUnit places a unit on the map without any legality or cost checks.
// It is used when loading the engine's view of the board.
func (s *State) AddUnit(c model.Coordinate, u model.Unit) error {
	if !InArena(c) {
		return fmt.Errorf("unit %s at %s is outside the arena", u.Kind, c)
	}
	s.grid[c.X][c.Y] = append(s.grid[c.X][c.Y], u)
	return nil
}

// MarkUpgraded flags the first unit at c as upgraded.
func (s *State) MarkUpgraded(c model.Coordinate) error {
	if !InArena(c) || len(s.grid[c.X][c.Y]) == 0 {
		return fmt.Errorf("no unit to upgrade at %s", c)
	}
	s.grid[c.X][c.Y][0].Upgraded = true
	return nil
}

// MarkRemoving flags the first unit at c as pending removal.
func (s *State) MarkRemoving(c model.Coordinate) error {
	if !InArena(c) || len(s.grid[c.X][c.Y]) == 0 {
		return fmt.Errorf("no unit to remove at %s", c)
	}
	s.grid[c.X][c.Y][0].Removing = true
	return nil
}

// Occupants returns a copy of the units at c. Out-of-arena cells are empty.
func (s *State) Occupants(c model.Coordinate) []model.Unit {
	if !InArena(c) {
		return nil
	}
	units := s.grid[c.X][c.Y]
	if len(units) == 0 {
		return nil
	}
	out := make([]model.Unit, len(units))
	copy(out, units)
	return out
}

// StationaryUnit returns the structure at c, if any.
func (s *State) StationaryUnit(c model.Coordinate) (model.Unit, bool) {
	if i := s.stationaryIndex(c); i >= 0 {
		return s.grid[c.X][c.Y][i], true
	}
	return model.Unit{}, false
}

// ContainsStationaryUnit reports whether a structure occupies c.
func (s *State) ContainsStationaryUnit(c model.Coordinate) bool {
	return s.stationaryIndex(c) >= 0
}

func (s *State) stationaryIndex(c model.Coordinate) int {
	if !InArena(c) {
		return -1
	}
	idx := -1
	for i, u := range s.grid[c.X][c.Y] {
		if u.Stationary() {
			idx = i
		}
	}
	return idx
}

// NumberAffordable returns how many units of kind this agent can pay for.
// A kind priced at zero in both pools is treated as unaffordable.
func (s *State) NumberAffordable(kind model.UnitKind) int {
	cost := s.catalog.Info(kind).Cost
	n, priced := model.Unbounded, false
	for _, p := range []model.Pool{model.StructurePool, model.MobilePool} {
		price := cost.Of(p)
		if price <= 0 {
			continue
		}
		priced = true
		n = min(n, int(math.Floor(s.Resource(p)/price)))
	}
	if !priced {
		s.logger.Warn("unit kind has no cost in either pool", "kind", kind)
		return 0
	}
	return n
}

func (s *State) spawnRefusal(kind model.UnitKind, c model.Coordinate, num int) string {
	stationary := kind.Structural()
	switch {
	case !InArena(c):
		return "out of bounds"
	case c.Y >= HalfArena:
		return "enemy territory"
	case s.ContainsStationaryUnit(c):
		return "blocked by structure"
	case stationary && len(s.grid[c.X][c.Y]) > 0:
		return "cell occupied"
	case !stationary && !OnFriendlyEdge(c):
		return "mobile units must spawn on an edge"
	case stationary && num != 1:
		return "one structure per cell"
	case s.NumberAffordable(kind) < num:
		return "not enough resources"
	}
	return ""
}

// AttemptSpawn places up to num units of kind at each coordinate in order,
// moving to the next coordinate at the first refusal. Illegal or
// unaffordable placements are skipped silently. It returns the number of
// units spawned.
func (s *State) AttemptSpawn(kind model.UnitKind, coords []model.Coordinate, num int) int {
	req := model.PlacementRequest{
		Action:      model.ActionSpawn,
		Kind:        kind,
		Coordinates: append([]model.Coordinate(nil), coords...),
		Max:         num,
	}
	defer func() { s.requests = append(s.requests, req) }()

	if num < 1 {
		s.logger.Debug("spawn requested with non-positive count", "kind", kind, "max", num)
		return 0
	}

	info := s.catalog.Info(kind)
	for _, c := range coords {
		for i := 0; i < num; i++ {
			if reason := s.spawnRefusal(kind, c, 1); reason != "" {
				s.logger.Debug("spawn skipped", "kind", kind, "at", c.String(), "reason", reason)
				break
			}
			s.stats[Self].SP -= info.Cost.SP
			s.stats[Self].MP -= info.Cost.MP
			s.grid[c.X][c.Y] = append(s.grid[c.X][c.Y], model.Unit{Kind: kind, Owner: Self})

			cmd := Command{Shorthand: info.Shorthand, X: c.X, Y: c.Y}
			if kind.Structural() {
				s.build = append(s.build, cmd)
			} else {
				s.deploy = append(s.deploy, cmd)
			}
			req.Placed++
		}
	}
	return req.Placed
}

// AttemptUpgrade upgrades the structure at each coordinate in order when it
// is ours, not yet upgraded, upgradable and affordable. Failures are
// skipped. It returns the number of upgrades made.
func (s *State) AttemptUpgrade(coords []model.Coordinate) int {
	req := model.PlacementRequest{
		Action:      model.ActionUpgrade,
		Coordinates: append([]model.Coordinate(nil), coords...),
	}
	defer func() { s.requests = append(s.requests, req) }()

	for _, c := range coords {
		if c.Y >= HalfArena {
			continue
		}
		idx := s.stationaryIndex(c)
		if idx < 0 {
			continue
		}
		unit := &s.grid[c.X][c.Y][idx]
		info := s.catalog.Info(unit.Kind)
		if unit.Upgraded || !info.Upgradable {
			continue
		}
		cost := info.UpgradeCost
		if s.stats[Self].SP < cost.SP || s.stats[Self].MP < cost.MP {
			s.logger.Debug("upgrade skipped", "kind", unit.Kind, "at", c.String(), "reason", "not enough resources")
			continue
		}
		s.stats[Self].SP -= cost.SP
		s.stats[Self].MP -= cost.MP
		unit.Upgraded = true
		s.build = append(s.build, Command{Shorthand: s.catalog.UpgradeShorthand, X: c.X, Y: c.Y})
		req.Placed++
	}
	return req.Placed
}

// BuildQueue returns the structure and upgrade commands issued this turn.
func (s *State) BuildQueue() []Command {
	return append([]Command{}, s.build...)
}

// DeployQueue returns the mobile unit commands issued this turn.
func (s *State) DeployQueue() []Command {
	return append([]Command{}, s.deploy...)
}

// Requests returns every spawn and upgrade call made this turn, in order.
func (s *State) Requests() []model.PlacementRequest {
	return append([]model.PlacementRequest(nil), s.requests...)
}

// Snapshot returns the occupied cells and their units.
func (s *State) Snapshot() map[model.Coordinate][]model.Unit {
	out := make(map[model.Coordinate][]model.Unit)
	for _, c := range Cells() {
		if units := s.Occupants(c); len(units) > 0 {
			out[c] = units
		}
	}
	return out
}
