package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turretline/algo/internal/breach"
	"github.com/turretline/algo/internal/gamestate"
	"github.com/turretline/algo/internal/layout"
	"github.com/turretline/algo/internal/model"
)

func testCatalog(t *testing.T) *model.Catalog {
	t.Helper()
	c, err := model.NewCatalog([]model.UnitInfo{
		{Shorthand: "FF", Cost: model.Cost{SP: 1}, UpgradeCost: model.Cost{SP: 1}, Upgradable: true},
		{Shorthand: "EF", Cost: model.Cost{SP: 4}, UpgradeCost: model.Cost{SP: 4}, Upgradable: true},
		{Shorthand: "DF", Cost: model.Cost{SP: 2}, UpgradeCost: model.Cost{SP: 4}, Upgradable: true},
		{Shorthand: "PI", Cost: model.Cost{MP: 1}},
		{Shorthand: "EI", Cost: model.Cost{MP: 3}},
		{Shorthand: "SI", Cost: model.Cost{MP: 1}},
	}, "RM", "UP")
	require.NoError(t, err)
	return c
}

func testLayout(t *testing.T) *layout.Layout {
	t.Helper()
	l, err := layout.Default()
	require.NoError(t, err)
	return l
}

func board(t *testing.T, turn int, sp, mp float64) *gamestate.State {
	t.Helper()
	s := gamestate.New(testCatalog(t), turn, nil)
	s.SetStats(gamestate.Self, gamestate.PlayerStats{Health: 30, SP: sp, MP: mp})
	return s
}

func mobileRequests(reqs []model.PlacementRequest) []model.PlacementRequest {
	var out []model.PlacementRequest
	for _, r := range reqs {
		if r.Action == model.ActionSpawn && !r.Kind.Structural() {
			out = append(out, r)
		}
	}
	return out
}

func TestPolicy_EvenTurnProbeOccupied(t *testing.T) {
	b := board(t, 4, 0, 7)
	require.NoError(t, b.AddUnit(model.C(20, 8), model.Unit{Kind: model.Support}))

	p := NewPolicy(testLayout(t), breach.NewLog(), nil, nil)
	d := p.OnTurn(b)

	assert.Equal(t, BranchEven, d.Branch)
	assert.Equal(t, 7, d.Rushed)

	mobile := mobileRequests(b.Requests())
	require.Len(t, mobile, 1)
	assert.Equal(t, model.Scout, mobile[0].Kind)
	assert.Equal(t, []model.Coordinate{model.C(21, 7)}, mobile[0].Coordinates)
	assert.Equal(t, model.Unbounded, mobile[0].Max)
	assert.Len(t, b.DeployQueue(), 7)
}

func TestPolicy_EvenTurnProbeEmpty(t *testing.T) {
	b := board(t, 4, 0, 7)

	d := NewPolicy(testLayout(t), breach.NewLog(), nil, nil).OnTurn(b)

	assert.Equal(t, BranchEven, d.Branch)
	assert.Zero(t, d.Rushed)
	assert.Empty(t, mobileRequests(b.Requests()))
	assert.Empty(t, b.DeployQueue())
}

func TestPolicy_OddTurnReadsBreach(t *testing.T) {
	log := breach.NewLog()
	log.Record(model.C(9, 2))
	b := board(t, 3, 0, 7)

	d := NewPolicy(testLayout(t), log, nil, nil).OnTurn(b)

	assert.Equal(t, BranchOdd, d.Branch)
	assert.Equal(t, model.C(9, 2), d.LastBreach)
	assert.Empty(t, mobileRequests(b.Requests()))
}

func TestPolicy_Deterministic(t *testing.T) {
	for _, turn := range []int{1, 2, 7, 10} {
		run := func() ([]model.PlacementRequest, []gamestate.Command) {
			b := board(t, turn, 30, 12)
			require.NoError(t, b.AddUnit(model.C(20, 8), model.Unit{Kind: model.Support}))
			NewPolicy(testLayout(t), breach.NewLog(), nil, nil).OnTurn(b)
			return b.Requests(), b.BuildQueue()
		}
		reqA, buildA := run()
		reqB, buildB := run()
		assert.Equal(t, reqA, reqB, "turn %d", turn)
		assert.Equal(t, buildA, buildB, "turn %d", turn)
	}
}

func TestPlanner_StepOrder(t *testing.T) {
	l := testLayout(t)

	odd := board(t, 1, 0, 0)
	NewPlanner(l).Build(odd)
	oddReqs := odd.Requests()
	require.Len(t, oddReqs, 10)
	assert.Equal(t, model.ActionUpgrade, oddReqs[0].Action)
	assert.Equal(t, l.Support, oddReqs[0].Coordinates)
	assert.Equal(t, model.Support, oddReqs[1].Kind)
	assert.Equal(t, model.ActionUpgrade, oddReqs[2].Action)
	assert.Equal(t, l.Tier1, oddReqs[3].Coordinates)
	assert.Equal(t, l.Tier2, oddReqs[9].Coordinates)

	even := board(t, 2, 0, 0)
	NewPlanner(l).Build(even)
	evenReqs := even.Requests()
	require.Len(t, evenReqs, 7)
	assert.Equal(t, model.Turret, evenReqs[0].Kind)
	assert.Equal(t, l.Tier1, evenReqs[0].Coordinates)
	assert.Equal(t, l.Tier1Upgrades, evenReqs[1].Coordinates)
	assert.Equal(t, model.ActionUpgrade, evenReqs[1].Action)
}

func TestPlanner_BudgetOrdering(t *testing.T) {
	b := board(t, 2, 4, 0)
	NewPlanner(testLayout(t)).Build(b)

	assert.Equal(t, []gamestate.Command{{Shorthand: "DF", X: 0, Y: 13}, {Shorthand: "DF", X: 1, Y: 13}}, b.BuildQueue())
	assert.Zero(t, b.Resource(model.StructurePool))
}

func TestPlanner_Idempotent(t *testing.T) {
	b := board(t, 1, 1000, 0)
	p := NewPlanner(testLayout(t))

	p.Build(b)
	before := b.Snapshot()
	spent := b.Resource(model.StructurePool)
	queued := len(b.BuildQueue())

	p.Build(b)

	assert.Equal(t, before, b.Snapshot())
	assert.Equal(t, spent, b.Resource(model.StructurePool))
	assert.Len(t, b.BuildQueue(), queued)

	reqs := b.Requests()
	for _, r := range reqs[len(reqs)/2:] {
		assert.Zero(t, r.Placed, "%s %v", r.Action, r.Coordinates)
	}
}

func TestPlanner_FundedUpgrades(t *testing.T) {
	b := board(t, 1, 1000, 0)
	NewPlanner(testLayout(t)).Build(b)

	for _, c := range testLayout(t).Support {
		u, ok := b.StationaryUnit(c)
		require.True(t, ok, c.String())
		assert.Equal(t, model.Support, u.Kind)
		assert.True(t, u.Upgraded)
	}
	u, ok := b.StationaryUnit(model.C(13, 12))
	require.True(t, ok)
	assert.Equal(t, model.Turret, u.Kind)
}

func enemy(t *testing.T, b *gamestate.State, kind model.UnitKind, coords ...model.Coordinate) {
	t.Helper()
	for _, c := range coords {
		require.NoError(t, b.AddUnit(c, model.Unit{Kind: kind, Owner: gamestate.Opponent}))
	}
}

func mirror(coords ...model.Coordinate) []model.Coordinate {
	out := make([]model.Coordinate, len(coords))
	for i, c := range coords {
		out[i] = model.C(gamestate.ArenaSize-1-c.X, c.Y)
	}
	return out
}

func TestIsLeftHeavy(t *testing.T) {
	left := []model.Coordinate{model.C(1, 15), model.C(2, 16), model.C(0, 14)}
	right := []model.Coordinate{model.C(25, 15)}

	b := board(t, 1, 0, 0)
	enemy(t, b, model.Turret, left...)
	enemy(t, b, model.Wall, right...)
	assert.True(t, IsLeftHeavy(b))
	assert.Equal(t, 3, CountEnemyStructures(b, leftFlank))

	mirrored := board(t, 1, 0, 0)
	enemy(t, mirrored, model.Turret, mirror(left...)...)
	enemy(t, mirrored, model.Wall, mirror(right...)...)
	assert.False(t, IsLeftHeavy(mirrored))
	assert.Equal(t, 3, CountEnemyStructures(mirrored, rightFlank))
}

func TestIsLeftHeavy_Tie(t *testing.T) {
	b := board(t, 1, 0, 0)
	assert.False(t, IsLeftHeavy(b))

	enemy(t, b, model.Wall, model.C(3, 17), model.C(24, 17))
	assert.False(t, IsLeftHeavy(b))
}

func TestCountEnemyStructures_Filters(t *testing.T) {
	b := board(t, 1, 0, 0)
	enemy(t, b, model.Turret, model.C(1, 15), model.C(13, 20))
	enemy(t, b, model.Wall, model.C(2, 15))
	// ours, and a mobile unit on an empty cell: neither counts
	require.NoError(t, b.AddUnit(model.C(3, 14), model.Unit{Kind: model.Wall}))
	enemy(t, b, model.Scout, model.C(2, 16))

	assert.Equal(t, 3, CountEnemyStructures(b, Region{}))
	assert.Equal(t, 2, CountEnemyStructures(b, Region{Kinds: []model.UnitKind{model.Turret}}))
	assert.Equal(t, 2, CountEnemyStructures(b, Region{Ys: []int{15}}))
	assert.Equal(t, 1, CountEnemyStructures(b, Region{Xs: []int{13}}))
}

func TestCompileReactive(t *testing.T) {
	_, err := CompileReactive("Turn +", model.Interceptor)
	assert.Error(t, err)

	_, err = CompileReactive("Turn", model.Interceptor)
	assert.Error(t, err, "non-boolean condition")

	r, err := CompileReactive("", model.Interceptor)
	require.NoError(t, err)
	assert.Equal(t, "true", r.Source())
}

func TestReactiveRule_Eval(t *testing.T) {
	r, err := CompileReactive("Breaches >= 2 && LastBreachY < 7 && !LeftHeavy", model.Interceptor)
	require.NoError(t, err)

	ok, err := r.Eval(ReactiveEnv{Breaches: 2, LastBreachY: 5})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Eval(ReactiveEnv{Breaches: 1, LastBreachY: 5})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPolicy_Reactive(t *testing.T) {
	rule, err := CompileReactive("MP >= 3", model.Interceptor)
	require.NoError(t, err)

	b := board(t, 3, 0, 5)
	d := NewPolicy(testLayout(t), breach.NewLog(), rule, nil).OnTurn(b)

	assert.Equal(t, breach.Sentinel, d.LastBreach)
	assert.Equal(t, 1, d.Reacted)
	assert.Len(t, b.Occupants(breach.Sentinel), 1)

	// condition false
	b = board(t, 3, 0, 2)
	d = NewPolicy(testLayout(t), breach.NewLog(), rule, nil).OnTurn(b)
	assert.Zero(t, d.Reacted)
	assert.Empty(t, b.DeployQueue())

	// even turns never react
	b = board(t, 4, 0, 5)
	d = NewPolicy(testLayout(t), breach.NewLog(), rule, nil).OnTurn(b)
	assert.Zero(t, d.Reacted)
}
