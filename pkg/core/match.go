// Package core holds the storage-agnostic records written for each match.
// The types are plain data so every backend can persist them its own way.
package core

import (
	"time"

	"github.com/google/uuid"
)

// Point is an arena cell as [x, y].
type Point [2]int

// Match identifies one game from config to end-of-game.
type Match struct {
	ID            uuid.UUID
	Seed          int64
	LayoutVersion string
	// Shorthands maps kind names to the engine's unit shorthands.
	Shorthands map[string]string
	StartTime  time.Time
}

// Placement is one spawn or upgrade call the policy issued.
type Placement struct {
	Action      string  `json:"action"`
	Kind        string  `json:"kind,omitempty"`
	Coordinates []Point `json:"coordinates"`
	Max         int     `json:"max,omitempty"`
	Placed      int     `json:"placed"`
}

// Command is a submitted queue entry.
type Command struct {
	Shorthand string `json:"shorthand"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

// TurnDecision is everything the algo decided on one turn.
type TurnDecision struct {
	MatchID    uuid.UUID
	Turn       int
	Branch     string
	SPBefore   float64
	MPBefore   float64
	SPAfter    float64
	MPAfter    float64
	Placements []Placement
	Build      []Command
	Deploy     []Command
	Rushed     int
	Reacted    int
	LastBreach *Point
	// Failed is set when the turn could not be decided and an empty turn
	// was submitted.
	Failed bool
	Time   time.Time
}

// Breach is a breach event flagged for this agent's side.
type Breach struct {
	MatchID uuid.UUID
	Turn    int
	Frame   int
	At      Point
	UnitID  string
	Damage  float64
	Owner   int
	Time    time.Time
}

// MatchResult closes a match.
type MatchResult struct {
	MatchID  uuid.UUID
	Turns    int
	Breaches int
	// Winner is the engine's player index, 0 when not reported.
	Winner  int
	EndTime time.Time
}

// UploadMetadata describes an exported match file.
type UploadMetadata struct {
	MatchID       string
	LayoutVersion string
	Turns         int
	Winner        int
	StartTime     time.Time
}
