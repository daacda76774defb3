package parser

import (
	"encoding/json"
	"fmt"

	"github.com/turretline/algo/internal/gamestate"
	"github.com/turretline/algo/internal/model"
)

type turnState struct {
	TurnInfo []float64  `json:"turnInfo"`
	P1Stats  []float64  `json:"p1Stats"`
	P2Stats  []float64  `json:"p2Stats"`
	P1Units  [][][]any  `json:"p1Units"`
	P2Units  [][][]any  `json:"p2Units"`
	EndStats *endStats  `json:"endStats,omitempty"`
	Events   *rawEvents `json:"events,omitempty"`
}

func stats(v []float64) (gamestate.PlayerStats, error) {
	if len(v) < 3 {
		return gamestate.PlayerStats{}, fmt.Errorf("stats have %d fields, need at least 3", len(v))
	}
	s := gamestate.PlayerStats{Health: v[0], SP: v[1], MP: v[2]}
	if len(v) > 3 {
		s.Time = v[3]
	}
	return s, nil
}

// ParseTurnState builds the board for a turn-start message.
func (p *Parser) ParseTurnState(line []byte, catalog *model.Catalog) (*gamestate.State, error) {
	var raw turnState
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshalling turn state: %w", err)
	}

	turn, frame, err := turnAndFrame(raw.TurnInfo)
	if err != nil {
		return nil, fmt.Errorf("error parsing turnInfo: %w", err)
	}

	state := gamestate.New(catalog, turn, p.logger)
	state.SetFrame(frame)

	for player, v := range [][]float64{raw.P1Stats, raw.P2Stats} {
		s, err := stats(v)
		if err != nil {
			return nil, fmt.Errorf("error parsing player %d stats: %w", player+1, err)
		}
		state.SetStats(player, s)
	}

	p.loadUnits(state, gamestate.Self, raw.P1Units)
	p.loadUnits(state, gamestate.Opponent, raw.P2Units)

	return state, nil
}

// loadUnits places one player's unit groups. Groups 0-5 are unit kinds in
// table order; group 6 marks pending removals and group 7 upgrades of the
// unit already on that cell.
func (p *Parser) loadUnits(state *gamestate.State, owner int, groups [][][]any) {
	for group, entries := range groups {
		for _, entry := range entries {
			if len(entry) < 2 {
				p.logger.Debug("Skipping short unit entry", "group", group, "entry", entry)
				continue
			}
			x, xok := intFrom(entry[0])
			y, yok := intFrom(entry[1])
			if !xok || !yok {
				p.logger.Debug("Skipping unit entry with bad coordinate", "group", group, "entry", entry)
				continue
			}
			at := model.C(x, y)

			var err error
			switch {
			case group < len(model.AllKinds):
				u := model.Unit{Kind: model.UnitKind(group), Owner: owner}
				if len(entry) > 2 {
					u.Health, _ = entry[2].(float64)
				}
				if len(entry) > 3 {
					u.ID = fmt.Sprint(entry[3])
				}
				err = state.AddUnit(at, u)
			case group == removeIndex:
				err = state.MarkRemoving(at)
			case group == upgradeIndex:
				err = state.MarkUpgraded(at)
			}
			if err != nil {
				p.logger.Debug("Skipping unit entry", "group", group, "error", err)
			}
		}
	}
}
