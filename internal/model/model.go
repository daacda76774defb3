// Package model defines the game vocabulary shared by the decision core
// and the infrastructure around it.
package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// Unbounded is the spawn cap used when a placement should consume the whole pool.
const Unbounded = math.MaxInt32

// Coordinate identifies a cell of the diamond arena.
type Coordinate struct {
	X int
	Y int
}

// C is shorthand for building a Coordinate.
func C(x, y int) Coordinate {
	return Coordinate{X: x, Y: y}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("[%d, %d]", c.X, c.Y)
}

// MarshalJSON encodes the coordinate the way the engine does: [x, y].
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.X, c.Y})
}

// UnmarshalJSON accepts [x, y] with integer or float components.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("coordinate: %w", err)
	}
	if len(raw) < 2 {
		return fmt.Errorf("coordinate: need 2 components, got %d", len(raw))
	}
	c.X = int(raw[0])
	c.Y = int(raw[1])
	return nil
}

// Pool identifies one of the two per-player resource pools.
type Pool int

const (
	// StructurePool funds structures and upgrades (SP, cost1).
	StructurePool Pool = iota
	// MobilePool funds mobile units (MP, cost2).
	MobilePool
)

func (p Pool) String() string {
	if p == MobilePool {
		return "MP"
	}
	return "SP"
}

// UnitKind is a placeable unit type. The numeric value matches the unit's
// index in the engine's unitInformation table.
type UnitKind int

const (
	Wall UnitKind = iota
	Support
	Turret
	Scout
	Demolisher
	Interceptor

	numKinds = int(Interceptor) + 1
)

// AllKinds lists every placeable kind in table order.
var AllKinds = []UnitKind{Wall, Support, Turret, Scout, Demolisher, Interceptor}

// StructuralKinds lists the kinds that persist on the board.
var StructuralKinds = []UnitKind{Wall, Support, Turret}

var kindNames = map[UnitKind]string{
	Wall:        "wall",
	Support:     "support",
	Turret:      "turret",
	Scout:       "scout",
	Demolisher:  "demolisher",
	Interceptor: "interceptor",
}

// MarshalText encodes the kind by name.
func (k UnitKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *UnitKind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k UnitKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Structural reports whether units of this kind persist across turns.
func (k UnitKind) Structural() bool {
	return k == Wall || k == Support || k == Turret
}

// ParseKind resolves a lowercase kind name such as "scout".
func ParseKind(name string) (UnitKind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown unit kind %q", name)
}

// Unit is a single occupant of a cell.
type Unit struct {
	Kind     UnitKind
	Owner    int // 0 is this agent, 1 the opponent
	Health   float64
	ID       string
	Upgraded bool
	Removing bool
}

// Stationary reports whether the unit is a structure.
func (u Unit) Stationary() bool {
	return u.Kind.Structural()
}

// Action distinguishes spawn requests from upgrade requests.
type Action string

const (
	ActionSpawn   Action = "spawn"
	ActionUpgrade Action = "upgrade"
)

// PlacementRequest records one spawn or upgrade call issued by the policy.
// Kind and Max are only meaningful for spawns.
type PlacementRequest struct {
	Action      Action       `json:"action"`
	Kind        UnitKind     `json:"kind"`
	Coordinates []Coordinate `json:"coordinates"`
	Max         int          `json:"max,omitempty"`
	Placed      int          `json:"placed"`
}
