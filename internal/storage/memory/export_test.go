package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turretline/algo/internal/config"
	"github.com/turretline/algo/pkg/core"
)

func recordSample(t *testing.T, b *Backend) {
	t.Helper()
	require.NoError(t, b.StartMatch(testMatch()))

	require.NoError(t, b.RecordTurn(&core.TurnDecision{
		Turn:     0,
		Branch:   "even",
		SPBefore: 40, MPBefore: 5, SPAfter: 0, MPAfter: 5,
		Placements: []core.Placement{
			{Action: "spawn", Kind: "turret", Coordinates: []core.Point{{0, 13}, {1, 13}}, Max: 1, Placed: 2},
		},
		Build: []core.Command{{Shorthand: "DF", X: 0, Y: 13}, {Shorthand: "DF", X: 1, Y: 13}},
	}))
	require.NoError(t, b.RecordTurn(&core.TurnDecision{
		Turn:       1,
		Branch:     "odd",
		LastBreach: &core.Point{8, 5},
	}))
	require.NoError(t, b.RecordBreach(&core.Breach{Turn: 1, Frame: 40, At: core.Point{9, 2}, UnitID: "61", Owner: 1}))
}

func TestBuildExport(t *testing.T) {
	b := New(config.MemoryConfig{})
	recordSample(t, b)
	b.result = &core.MatchResult{Winner: 1, EndTime: time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)}

	export := b.buildExport()

	assert.Equal(t, "0b7c5f3e-9a51-4e0c-8d7a-2f3b1c4d5e6f", export.MatchID)
	assert.Equal(t, int64(42), export.Seed)
	assert.Equal(t, 1, export.Winner)
	require.Len(t, export.Turns, 2)
	assert.Equal(t, [4]float64{40, 5, 0, 5}, export.Turns[0].Pools)
	assert.Len(t, export.Turns[0].Build, 2)
	assert.Equal(t, &core.Point{8, 5}, export.Turns[1].LastBreach)
	require.Len(t, export.Breaches, 1)
	assert.Equal(t, []any{1, 40, core.Point{9, 2}, "61"}, export.Breaches[0])
}

func TestEndMatch_WritesJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	recordSample(t, b)

	require.NoError(t, b.EndMatch(&core.MatchResult{Turns: 2, Winner: 2}))

	path := b.GetExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "match_20260301_120000_0b7c5f3e.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var export MatchExport
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, "starter-2", export.LayoutVersion)
	assert.Equal(t, 2, export.Winner)
	assert.Len(t, export.Turns, 2)
	assert.Contains(t, string(data), `"build":[{"shorthand":"DF","x":0,"y":13}`)

	meta := b.GetExportMetadata()
	assert.Equal(t, 2, meta.Turns)
	assert.Equal(t, 2, meta.Winner)
	assert.Equal(t, "starter-2", meta.LayoutVersion)
}

func TestEndMatch_WritesGzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: filepath.Join(dir, "nested"), CompressOutput: true})
	recordSample(t, b)

	require.NoError(t, b.EndMatch(&core.MatchResult{}))

	path := b.GetExportedFilePath()
	assert.True(t, strings.HasSuffix(path, ".json.gz"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var export MatchExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Equal(t, "0b7c5f3e-9a51-4e0c-8d7a-2f3b1c4d5e6f", export.MatchID)
	assert.Len(t, export.Breaches, 1)
}
