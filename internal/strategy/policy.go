package strategy

import (
	"log/slog"

	"github.com/turretline/algo/internal/breach"
	"github.com/turretline/algo/internal/layout"
	"github.com/turretline/algo/internal/model"
)

// Branch names the parity path a turn took.
type Branch string

const (
	BranchEven Branch = "even"
	BranchOdd  Branch = "odd"
)

// Decision summarizes what the policy did on one turn.
type Decision struct {
	Turn       int
	Branch     Branch
	Rushed     int
	LastBreach model.Coordinate
	Reacted    int
}

// Policy is the per-turn decision procedure.
type Policy struct {
	planner  *Planner
	rush     layout.Rush
	breaches *breach.Log
	reactive *ReactiveRule
	logger   *slog.Logger
}

// NewPolicy builds a policy. reactive may be nil, which is the shipped
// behaviour.
func NewPolicy(l *layout.Layout, breaches *breach.Log, reactive *ReactiveRule, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		planner:  NewPlanner(l),
		rush:     l.Rush,
		breaches: breaches,
		reactive: reactive,
		logger:   logger,
	}
}

// OnTurn runs the opening defence and then the parity branch. It only acts
// through b and reads the breach log.
func (p *Policy) OnTurn(b Board) Decision {
	turn := b.TurnNumber()
	d := Decision{Turn: turn}

	p.planner.Build(b)

	if !isOdd(turn) {
		d.Branch = BranchEven
		if len(b.Occupants(p.rush.Probe)) > 0 {
			d.Rushed = b.AttemptSpawn(p.rush.Unit, []model.Coordinate{p.rush.Spawn}, p.rush.Count)
		}
		return d
	}

	d.Branch = BranchOdd
	d.LastBreach = p.breaches.MostRecent()
	if p.reactive != nil {
		d.Reacted = p.react(b, d.LastBreach)
	}
	return d
}

func (p *Policy) react(b Board, at model.Coordinate) int {
	env := ReactiveEnv{
		Turn:        b.TurnNumber(),
		LeftHeavy:   IsLeftHeavy(b),
		LastBreachX: at.X,
		LastBreachY: at.Y,
		Breaches:    p.breaches.Recorded(),
		SP:          b.Resource(model.StructurePool),
		MP:          b.Resource(model.MobilePool),
	}
	ok, err := p.reactive.Eval(env)
	if err != nil {
		p.logger.Warn("reactive condition error", "condition", p.reactive.Source(), "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	p.logger.Debug("reactive rule fired", "unit", p.reactive.Unit, "at", at.String())
	return b.AttemptSpawn(p.reactive.Unit, []model.Coordinate{at}, 1)
}
