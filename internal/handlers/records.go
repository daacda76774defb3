package handlers

import (
	"github.com/turretline/algo/internal/gamestate"
	"github.com/turretline/algo/internal/model"
	"github.com/turretline/algo/pkg/core"
)

func point(c model.Coordinate) core.Point {
	return core.Point{c.X, c.Y}
}

func commands(cmds []gamestate.Command) []core.Command {
	out := make([]core.Command, len(cmds))
	for i, c := range cmds {
		out[i] = core.Command{Shorthand: c.Shorthand, X: c.X, Y: c.Y}
	}
	return out
}

func placements(reqs []model.PlacementRequest) []core.Placement {
	out := make([]core.Placement, len(reqs))
	for i, r := range reqs {
		p := core.Placement{
			Action:      string(r.Action),
			Coordinates: make([]core.Point, len(r.Coordinates)),
			Placed:      r.Placed,
		}
		if r.Action == model.ActionSpawn {
			p.Kind = r.Kind.String()
			p.Max = r.Max
		}
		for j, c := range r.Coordinates {
			p.Coordinates[j] = point(c)
		}
		out[i] = p
	}
	return out
}
