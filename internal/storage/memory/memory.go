// Package memory keeps a match in memory and writes it out as one JSON
// document when the match ends.
package memory

import (
	"errors"
	"sync"

	"github.com/turretline/algo/internal/config"
	"github.com/turretline/algo/pkg/core"
)

var errNoMatch = errors.New("no match started")

// Backend stores match data in memory and exports to JSON
type Backend struct {
	cfg config.MemoryConfig

	match    *core.Match
	turns    []core.TurnDecision
	breaches []core.Breach
	result   *core.MatchResult

	lastExportPath     string
	lastExportMetadata core.UploadMetadata

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartMatch begins recording a new match, discarding any previous one.
func (b *Backend) StartMatch(m *core.Match) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.match = m
	b.turns = nil
	b.breaches = nil
	b.result = nil
	b.lastExportPath = ""

	return nil
}

// EndMatch finalizes and exports the match data
func (b *Backend) EndMatch(r *core.MatchResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.match == nil {
		return errNoMatch
	}
	b.result = r
	return b.exportJSON()
}

// RecordTurn appends a turn decision.
func (b *Backend) RecordTurn(t *core.TurnDecision) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.match == nil {
		return errNoMatch
	}
	b.turns = append(b.turns, *t)
	return nil
}

// RecordBreach appends a breach.
func (b *Backend) RecordBreach(e *core.Breach) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.match == nil {
		return errNoMatch
	}
	b.breaches = append(b.breaches, *e)
	return nil
}

// Turns returns a copy of the recorded turns.
func (b *Backend) Turns() []core.TurnDecision {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.TurnDecision(nil), b.turns...)
}

// Breaches returns a copy of the recorded breaches.
func (b *Backend) Breaches() []core.Breach {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Breach(nil), b.breaches...)
}

// GetExportedFilePath returns the path of the last export.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMetadata
}
