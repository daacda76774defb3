package gormstorage

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/turretline/algo/pkg/core"
)

func toJSON(v any) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func matchRow(m *core.Match) (MatchRow, error) {
	shorthands, err := toJSON(m.Shorthands)
	if err != nil {
		return MatchRow{}, fmt.Errorf("shorthands: %w", err)
	}
	return MatchRow{
		ID:            m.ID.String(),
		Seed:          m.Seed,
		LayoutVersion: m.LayoutVersion,
		Shorthands:    shorthands,
		StartTime:     m.StartTime,
	}, nil
}

func turnRow(t *core.TurnDecision) (TurnRow, error) {
	row := TurnRow{
		MatchID:  t.MatchID.String(),
		Turn:     t.Turn,
		Branch:   t.Branch,
		SPBefore: t.SPBefore,
		MPBefore: t.MPBefore,
		SPAfter:  t.SPAfter,
		MPAfter:  t.MPAfter,
		Rushed:   t.Rushed,
		Reacted:  t.Reacted,
		Failed:   t.Failed,
		Time:     t.Time,
	}

	var err error
	if row.Placements, err = toJSON(nonNil(t.Placements)); err != nil {
		return TurnRow{}, fmt.Errorf("placements: %w", err)
	}
	if row.Build, err = toJSON(nonNil(t.Build)); err != nil {
		return TurnRow{}, fmt.Errorf("build: %w", err)
	}
	if row.Deploy, err = toJSON(nonNil(t.Deploy)); err != nil {
		return TurnRow{}, fmt.Errorf("deploy: %w", err)
	}

	if t.LastBreach != nil {
		x, y := t.LastBreach[0], t.LastBreach[1]
		row.BreachX = &x
		row.BreachY = &y
	}
	return row, nil
}

func breachRow(b *core.Breach) BreachRow {
	return BreachRow{
		MatchID: b.MatchID.String(),
		Turn:    b.Turn,
		Frame:   b.Frame,
		X:       b.At[0],
		Y:       b.At[1],
		UnitID:  b.UnitID,
		Damage:  b.Damage,
		Owner:   b.Owner,
		Time:    b.Time,
	}
}

// nonNil keeps empty lists as [] instead of null in the JSON columns.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
