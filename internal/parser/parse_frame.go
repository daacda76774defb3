package parser

import (
	"encoding/json"
	"fmt"

	"github.com/turretline/algo/internal/model"
)

// Breach owner flags as reported in events.breach[i][4].
const (
	BreachOwnerSelf     = 1
	BreachOwnerOpponent = 2
)

// BreachEvent is one entry of an action frame's breach list:
// [location, damage, unitType, unitID, owner].
type BreachEvent struct {
	At     model.Coordinate
	Damage float64
	UnitID string
	Owner  int
}

// Self reports whether the breach is flagged for this agent's side.
func (b BreachEvent) Self() bool {
	return b.Owner == BreachOwnerSelf
}

// ActionFrame is the part of an action frame the algo reacts to.
type ActionFrame struct {
	Turn     int
	Frame    int
	Breaches []BreachEvent
}

type rawEvents struct {
	Breach []json.RawMessage `json:"breach"`
}

type endStats struct {
	Winner int `json:"winner"`
}

// GameEnd is the final message of a match.
type GameEnd struct {
	Turn   int
	Frame  int
	Winner int
}

// ParseActionFrame extracts the breach events from an action frame. A
// missing or empty breach list yields no events; malformed entries are
// skipped.
func (p *Parser) ParseActionFrame(line []byte) (ActionFrame, error) {
	var result ActionFrame

	var raw turnState
	if err := json.Unmarshal(line, &raw); err != nil {
		return result, fmt.Errorf("error unmarshalling action frame: %w", err)
	}

	turn, frame, err := turnAndFrame(raw.TurnInfo)
	if err != nil {
		return result, fmt.Errorf("error parsing turnInfo: %w", err)
	}
	result.Turn, result.Frame = turn, frame

	if raw.Events == nil {
		return result, nil
	}

	for i, entry := range raw.Events.Breach {
		b, err := parseBreach(entry)
		if err != nil {
			p.logger.Debug("Skipping malformed breach", "index", i, "error", err)
			continue
		}
		result.Breaches = append(result.Breaches, b)
	}
	return result, nil
}

func parseBreach(data json.RawMessage) (BreachEvent, error) {
	var b BreachEvent

	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return b, fmt.Errorf("breach is not an array: %w", err)
	}
	if len(fields) < 5 {
		return b, fmt.Errorf("breach has %d fields, need 5", len(fields))
	}

	// [0] location
	if err := json.Unmarshal(fields[0], &b.At); err != nil {
		return b, fmt.Errorf("error parsing breach location: %w", err)
	}

	// [1] damage, informational only
	_ = json.Unmarshal(fields[1], &b.Damage)

	// [3] unit id
	var id any
	if err := json.Unmarshal(fields[3], &id); err == nil && id != nil {
		b.UnitID = fmt.Sprint(id)
	}

	// [4] owner
	var owner any
	if err := json.Unmarshal(fields[4], &owner); err != nil {
		return b, fmt.Errorf("error parsing breach owner: %w", err)
	}
	o, ok := intFrom(owner)
	if !ok {
		return b, fmt.Errorf("breach owner %v is not an integer", owner)
	}
	b.Owner = o
	return b, nil
}

// ParseGameEnd reads the final turn counters and the winner, if reported.
func (p *Parser) ParseGameEnd(line []byte) (GameEnd, error) {
	var raw turnState
	if err := json.Unmarshal(line, &raw); err != nil {
		return GameEnd{}, fmt.Errorf("error unmarshalling end state: %w", err)
	}
	turn, frame, err := turnAndFrame(raw.TurnInfo)
	if err != nil {
		return GameEnd{}, fmt.Errorf("error parsing turnInfo: %w", err)
	}
	end := GameEnd{Turn: turn, Frame: frame}
	if raw.EndStats != nil {
		end.Winner = raw.EndStats.Winner
	}
	return end, nil
}
