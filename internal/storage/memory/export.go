package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/turretline/algo/pkg/core"
)

// MatchExport is the root JSON structure
type MatchExport struct {
	MatchID       string            `json:"matchId"`
	Seed          int64             `json:"seed"`
	LayoutVersion string            `json:"layoutVersion"`
	Shorthands    map[string]string `json:"shorthands"`
	StartTime     time.Time         `json:"startTime"`
	EndTime       time.Time         `json:"endTime"`
	Winner        int               `json:"winner"`
	Turns         []TurnJSON        `json:"turns"`
	// Breaches are [turn, frame, [x, y], unitId]
	Breaches [][]any `json:"breaches"`
}

// TurnJSON is one turn of the export.
type TurnJSON struct {
	Turn       int              `json:"turn"`
	Branch     string           `json:"branch"`
	Pools      [4]float64       `json:"pools"` // SP before, MP before, SP after, MP after
	Placements []core.Placement `json:"placements"`
	Build      []core.Command   `json:"build"`
	Deploy     []core.Command   `json:"deploy"`
	LastBreach *core.Point      `json:"lastBreach,omitempty"`
	Failed     bool             `json:"failed,omitempty"`
}

// exportJSON writes the match data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	timestamp := b.match.StartTime.UTC().Format("20060102_150405")
	filename := fmt.Sprintf("match_%s_%s.json", timestamp, b.match.ID.String()[:8])
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)
	if err := writeExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastExportMetadata = core.UploadMetadata{
		MatchID:       export.MatchID,
		LayoutVersion: export.LayoutVersion,
		Turns:         len(export.Turns),
		Winner:        export.Winner,
		StartTime:     export.StartTime,
	}
	return nil
}

func (b *Backend) buildExport() MatchExport {
	export := MatchExport{
		MatchID:       b.match.ID.String(),
		Seed:          b.match.Seed,
		LayoutVersion: b.match.LayoutVersion,
		Shorthands:    b.match.Shorthands,
		StartTime:     b.match.StartTime,
		Turns:         make([]TurnJSON, 0, len(b.turns)),
		Breaches:      make([][]any, 0, len(b.breaches)),
	}
	if b.result != nil {
		export.EndTime = b.result.EndTime
		export.Winner = b.result.Winner
	}

	for _, t := range b.turns {
		export.Turns = append(export.Turns, TurnJSON{
			Turn:       t.Turn,
			Branch:     t.Branch,
			Pools:      [4]float64{t.SPBefore, t.MPBefore, t.SPAfter, t.MPAfter},
			Placements: t.Placements,
			Build:      t.Build,
			Deploy:     t.Deploy,
			LastBreach: t.LastBreach,
			Failed:     t.Failed,
		})
	}

	for _, e := range b.breaches {
		export.Breaches = append(export.Breaches, []any{e.Turn, e.Frame, e.At, e.UnitID})
	}

	return export
}

func writeExport(path string, data MatchExport, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if compress {
		gz := gzip.NewWriter(f)
		defer func() {
			if cerr := gz.Close(); err == nil && cerr != nil {
				err = cerr
			}
		}()
		w = gz
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}
