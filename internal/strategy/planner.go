package strategy

import (
	"github.com/turretline/algo/internal/layout"
	"github.com/turretline/algo/internal/model"
)

// Planner issues the opening defence from a layout table. Every step is an
// attempt, so calling it on a board that already holds the defence spends
// nothing.
type Planner struct {
	support       []model.Coordinate
	tier1         []model.Coordinate
	tier1Upgrades []model.Coordinate
	tier2         []model.Coordinate
}

func NewPlanner(l *layout.Layout) *Planner {
	return &Planner{
		support:       l.Support,
		tier1:         l.Tier1,
		tier1Upgrades: l.Tier1Upgrades,
		tier2:         l.Tier2,
	}
}

// Build runs the placement sequence against b. Order matters: earlier
// requests get first claim on the structure pool.
func (p *Planner) Build(b Board) {
	if isOdd(b.TurnNumber()) {
		p.supportRound(b)
	}

	b.AttemptSpawn(model.Turret, p.tier1, 1)

	b.AttemptUpgrade(p.tier1Upgrades)
	b.AttemptSpawn(model.Turret, p.tier1Upgrades, 1)

	p.supportRound(b)

	b.AttemptSpawn(model.Turret, p.tier2, 1)
}

func (p *Planner) supportRound(b Board) {
	b.AttemptUpgrade(p.support)
	b.AttemptSpawn(model.Support, p.support, 1)
	b.AttemptUpgrade(p.support)
}
