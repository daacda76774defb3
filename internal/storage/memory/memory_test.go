package memory

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/turretline/algo/internal/config"
	"github.com/turretline/algo/internal/storage"
	"github.com/turretline/algo/pkg/core"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// Verify Backend implements storage.Uploadable interface
var _ storage.Uploadable = (*Backend)(nil)

func testMatch() *core.Match {
	return &core.Match{
		ID:            uuid.MustParse("0b7c5f3e-9a51-4e0c-8d7a-2f3b1c4d5e6f"),
		Seed:          42,
		LayoutVersion: "starter-2",
		Shorthands:    map[string]string{"turret": "DF", "scout": "PI"},
		StartTime:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNew(t *testing.T) {
	cfg := config.MemoryConfig{
		OutputDir:      "/tmp/test",
		CompressOutput: true,
	}
	b := New(cfg)

	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.cfg.OutputDir != "/tmp/test" {
		t.Errorf("expected OutputDir=/tmp/test, got %s", b.cfg.OutputDir)
	}
	if !b.cfg.CompressOutput {
		t.Error("expected CompressOutput=true")
	}
}

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{})

	if err := b.Init(); err != nil {
		t.Errorf("Init failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestRecordBeforeStart(t *testing.T) {
	b := New(config.MemoryConfig{})

	if err := b.RecordTurn(&core.TurnDecision{Turn: 0}); err == nil {
		t.Error("expected error recording a turn with no match")
	}
	if err := b.RecordBreach(&core.Breach{}); err == nil {
		t.Error("expected error recording a breach with no match")
	}
	if err := b.EndMatch(&core.MatchResult{}); err == nil {
		t.Error("expected error ending a match that never started")
	}
}

func TestStartMatchResets(t *testing.T) {
	b := New(config.MemoryConfig{})

	if err := b.StartMatch(testMatch()); err != nil {
		t.Fatalf("StartMatch failed: %v", err)
	}
	_ = b.RecordTurn(&core.TurnDecision{Turn: 0})
	_ = b.RecordBreach(&core.Breach{Turn: 0, At: core.Point{9, 2}})

	if len(b.Turns()) != 1 || len(b.Breaches()) != 1 {
		t.Fatalf("expected 1 turn and 1 breach, got %d and %d", len(b.Turns()), len(b.Breaches()))
	}

	if err := b.StartMatch(testMatch()); err != nil {
		t.Fatalf("StartMatch failed: %v", err)
	}
	if len(b.Turns()) != 0 || len(b.Breaches()) != 0 {
		t.Error("expected collections to be reset")
	}
}

func TestRecordOrder(t *testing.T) {
	b := New(config.MemoryConfig{})
	_ = b.StartMatch(testMatch())

	for turn := 0; turn < 5; turn++ {
		if err := b.RecordTurn(&core.TurnDecision{Turn: turn}); err != nil {
			t.Fatalf("RecordTurn failed: %v", err)
		}
	}

	turns := b.Turns()
	for i, td := range turns {
		if td.Turn != i {
			t.Errorf("position %d holds turn %d", i, td.Turn)
		}
	}
}
