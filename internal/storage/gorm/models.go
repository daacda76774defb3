package gormstorage

import (
	"time"

	"gorm.io/datatypes"
)

// Models lists every table the backend migrates.
var Models = []any{
	&MatchRow{},
	&TurnRow{},
	&BreachRow{},
}

// MatchRow is one game.
type MatchRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	Seed          int64
	LayoutVersion string `gorm:"size:64"`
	Shorthands    datatypes.JSON
	StartTime     time.Time `gorm:"index"`
	EndTime       *time.Time
	Turns         int
	Breaches      int
	Winner        int
}

func (*MatchRow) TableName() string {
	return "matches"
}

// TurnRow is one submitted turn.
type TurnRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	MatchID    string `gorm:"size:36;index:idx_turn_match,priority:1"`
	Turn       int    `gorm:"index:idx_turn_match,priority:2"`
	Branch     string `gorm:"size:8"`
	SPBefore   float64
	MPBefore   float64
	SPAfter    float64
	MPAfter    float64
	Placements datatypes.JSON
	Build      datatypes.JSON
	Deploy     datatypes.JSON
	Rushed     int
	Reacted    int
	BreachX    *int
	BreachY    *int
	Failed     bool
	Time       time.Time
}

func (*TurnRow) TableName() string {
	return "turns"
}

// BreachRow is one breach of the opponent's edge.
type BreachRow struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	MatchID string `gorm:"size:36;index"`
	Turn    int
	Frame   int
	X       int
	Y       int
	UnitID  string `gorm:"size:32"`
	Damage  float64
	Owner   int
	Time    time.Time
}

func (*BreachRow) TableName() string {
	return "breaches"
}
