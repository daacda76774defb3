package gamestate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func newState(t *testing.T, sp, mp float64) *State {
	t.Helper()
	s := New(testCatalog(t), 1, nil)
	s.SetStats(Self, PlayerStats{Health: 30, SP: sp, MP: mp})
	return s
}

func TestInArena(t *testing.T) {
	tests := []struct {
		c    model.Coordinate
		want bool
	}{
		{model.C(13, 0), true},
		{model.C(14, 0), true},
		{model.C(12, 0), false},
		{model.C(15, 0), false},
		{model.C(0, 13), true},
		{model.C(27, 13), true},
		{model.C(0, 14), true},
		{model.C(27, 14), true},
		{model.C(13, 27), true},
		{model.C(12, 27), false},
		{model.C(21, 7), true},
		{model.C(-1, 13), false},
		{model.C(5, 28), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InArena(tt.c), tt.c.String())
	}
}

func TestCells(t *testing.T) {
	all := Cells()
	assert.Len(t, all, 420)
	for _, c := range all {
		assert.True(t, InArena(c))
	}
	assert.Equal(t, model.C(13, 0), all[0])
}

func TestEdges(t *testing.T) {
	assert.Contains(t, EdgeCells(BottomRight), model.C(21, 7))
	assert.Contains(t, EdgeCells(BottomLeft), model.C(0, 13))
	assert.Contains(t, EdgeCells(TopLeft), model.C(0, 14))
	assert.Contains(t, EdgeCells(TopRight), model.C(27, 14))

	for _, e := range []Edge{BottomLeft, BottomRight} {
		for _, c := range EdgeCells(e) {
			assert.True(t, OnFriendlyEdge(c), c.String())
		}
	}
	assert.False(t, OnFriendlyEdge(model.C(20, 8)))
	assert.False(t, OnFriendlyEdge(model.C(0, 14)))
}

func TestAttemptSpawn_BudgetOrdering(t *testing.T) {
	s := newState(t, 5, 0)

	placed := s.AttemptSpawn(model.Turret, []model.Coordinate{model.C(3, 12), model.C(24, 12), model.C(12, 5)}, 1)

	assert.Equal(t, 2, placed)
	assert.True(t, s.ContainsStationaryUnit(model.C(3, 12)))
	assert.True(t, s.ContainsStationaryUnit(model.C(24, 12)))
	assert.False(t, s.ContainsStationaryUnit(model.C(12, 5)))
	assert.Equal(t, 1.0, s.Resource(model.StructurePool))

	assert.Equal(t, []Command{{"DF", 3, 12}, {"DF", 24, 12}}, s.BuildQueue())
	assert.Empty(t, s.DeployQueue())
}

func TestAttemptSpawn_MobileUnbounded(t *testing.T) {
	s := newState(t, 0, 5.5)

	placed := s.AttemptSpawn(model.Scout, []model.Coordinate{model.C(21, 7)}, model.Unbounded)

	assert.Equal(t, 5, placed)
	assert.Len(t, s.Occupants(model.C(21, 7)), 5)
	assert.Len(t, s.DeployQueue(), 5)
	assert.InDelta(t, 0.5, s.Resource(model.MobilePool), 1e-9)
}

func TestAttemptSpawn_Illegal(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, s *State)
		kind  model.UnitKind
		at    model.Coordinate
	}{
		{
			name: "enemy half",
			kind: model.Wall,
			at:   model.C(13, 14),
		},
		{
			name: "outside diamond",
			kind: model.Wall,
			at:   model.C(0, 0),
		},
		{
			name: "occupied",
			setup: func(t *testing.T, s *State) {
				require.NoError(t, s.AddUnit(model.C(13, 9), model.Unit{Kind: model.Wall}))
			},
			kind: model.Turret,
			at:   model.C(13, 9),
		},
		{
			name: "mobile off edge",
			kind: model.Scout,
			at:   model.C(13, 9),
		},
		{
			name: "mobile onto structure",
			setup: func(t *testing.T, s *State) {
				require.NoError(t, s.AddUnit(model.C(21, 7), model.Unit{Kind: model.Wall}))
			},
			kind: model.Scout,
			at:   model.C(21, 7),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState(t, 10, 10)
			if tt.setup != nil {
				tt.setup(t, s)
			}
			assert.Equal(t, 0, s.AttemptSpawn(tt.kind, []model.Coordinate{tt.at}, 1))
			assert.Empty(t, s.BuildQueue())
			assert.Empty(t, s.DeployQueue())
			assert.Equal(t, 10.0, s.Resource(model.StructurePool))
			assert.Equal(t, 10.0, s.Resource(model.MobilePool))
		})
	}
}

func TestAttemptSpawn_NonPositiveCount(t *testing.T) {
	s := newState(t, 10, 10)
	assert.Equal(t, 0, s.AttemptSpawn(model.Scout, []model.Coordinate{model.C(21, 7)}, 0))
	require.Len(t, s.Requests(), 1)
	assert.Equal(t, 0, s.Requests()[0].Placed)
}

func TestAttemptUpgrade(t *testing.T) {
	s := newState(t, 10, 0)
	require.Equal(t, 1, s.AttemptSpawn(model.Turret, []model.Coordinate{model.C(13, 9)}, 1))

	assert.Equal(t, 1, s.AttemptUpgrade([]model.Coordinate{model.C(13, 9), model.C(15, 9)}))
	assert.Equal(t, 4.0, s.Resource(model.StructurePool))

	u, ok := s.StationaryUnit(model.C(13, 9))
	require.True(t, ok)
	assert.True(t, u.Upgraded)

	// already upgraded
	assert.Equal(t, 0, s.AttemptUpgrade([]model.Coordinate{model.C(13, 9)}))
	assert.Equal(t, []Command{{"DF", 13, 9}, {"UP", 13, 9}}, s.BuildQueue())
}

func TestAttemptUpgrade_Unaffordable(t *testing.T) {
	s := newState(t, 5, 0)
	require.Equal(t, 1, s.AttemptSpawn(model.Turret, []model.Coordinate{model.C(13, 9)}, 1))
	require.Equal(t, 1, s.AttemptSpawn(model.Wall, []model.Coordinate{model.C(15, 9)}, 1))

	// 2 SP left: the turret upgrade is skipped, the wall upgrade goes through.
	assert.Equal(t, 1, s.AttemptUpgrade([]model.Coordinate{model.C(13, 9), model.C(15, 9)}))
	assert.Equal(t, 1.0, s.Resource(model.StructurePool))
}

func TestNumberAffordable(t *testing.T) {
	s := newState(t, 7, 3)
	assert.Equal(t, 3, s.NumberAffordable(model.Turret))
	assert.Equal(t, 1, s.NumberAffordable(model.Support))
	assert.Equal(t, 3, s.NumberAffordable(model.Scout))
	assert.Equal(t, 1, s.NumberAffordable(model.Demolisher))
}

func TestNumberAffordable_FreeKindSpawnsNothing(t *testing.T) {
	units := []model.UnitInfo{
		{Shorthand: "FF", Cost: model.Cost{SP: 1}, UpgradeCost: model.Cost{SP: 1}, Upgradable: true},
		{Shorthand: "EF", Cost: model.Cost{SP: 4}, UpgradeCost: model.Cost{SP: 4}, Upgradable: true},
		{Shorthand: "DF", Cost: model.Cost{SP: 2}, UpgradeCost: model.Cost{SP: 4}, Upgradable: true},
		{Shorthand: "PI"},
		{Shorthand: "EI", Cost: model.Cost{MP: 3}},
		{Shorthand: "SI", Cost: model.Cost{MP: 1}},
	}
	c, err := model.NewCatalog(units, "RM", "UP")
	require.NoError(t, err)
	s := New(c, 2, nil)
	s.SetStats(Self, PlayerStats{Health: 30, SP: 10, MP: 10})

	assert.Equal(t, 0, s.NumberAffordable(model.Scout))

	done := make(chan int, 1)
	go func() {
		done <- s.AttemptSpawn(model.Scout, []model.Coordinate{model.C(21, 7)}, model.Unbounded)
	}()
	select {
	case placed := <-done:
		assert.Equal(t, 0, placed)
		assert.Empty(t, s.DeployQueue())
		assert.Equal(t, 10.0, s.Resource(model.MobilePool))
	case <-time.After(5 * time.Second):
		t.Fatal("AttemptSpawn did not return for a kind with no cost")
	}
}

func TestRequestsRecorded(t *testing.T) {
	s := newState(t, 3, 0)
	s.AttemptSpawn(model.Turret, []model.Coordinate{model.C(3, 12), model.C(24, 12)}, 1)
	s.AttemptUpgrade([]model.Coordinate{model.C(3, 12)})

	reqs := s.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, model.ActionSpawn, reqs[0].Action)
	assert.Equal(t, 1, reqs[0].Placed)
	assert.Equal(t, model.ActionUpgrade, reqs[1].Action)
	assert.Equal(t, 0, reqs[1].Placed)
}

func TestCommand_JSON(t *testing.T) {
	data, err := json.Marshal([]Command{{"DF", 3, 12}})
	require.NoError(t, err)
	assert.JSONEq(t, `[["DF", 3, 12]]`, string(data))

	var cmds []Command
	require.NoError(t, json.Unmarshal([]byte(`[["PI", 21, 7]]`), &cmds))
	assert.Equal(t, []Command{{"PI", 21, 7}}, cmds)
}

func TestMarkers(t *testing.T) {
	s := newState(t, 0, 0)
	require.NoError(t, s.AddUnit(model.C(13, 20), model.Unit{Kind: model.Turret, Owner: Opponent}))
	require.NoError(t, s.MarkUpgraded(model.C(13, 20)))
	require.NoError(t, s.MarkRemoving(model.C(13, 20)))
	assert.Error(t, s.MarkUpgraded(model.C(14, 20)))
	assert.Error(t, s.AddUnit(model.C(0, 0), model.Unit{}))

	u, ok := s.StationaryUnit(model.C(13, 20))
	require.True(t, ok)
	assert.True(t, u.Upgraded)
	assert.True(t, u.Removing)
	assert.Len(t, s.Snapshot(), 1)
}
