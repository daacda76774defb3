// Package breach keeps the match-long history of coordinates where this
// agent's side was breached.
package breach

import (
	"sync"

	"github.com/turretline/algo/internal/model"
)

// Sentinel is the entry every log starts with, so MostRecent is defined
// before the first real breach.
var Sentinel = model.C(8, 5)

// Log is an append-only ordered list of breach coordinates.
type Log struct {
	mu      sync.RWMutex
	entries []model.Coordinate
}

// NewLog creates a log holding only the sentinel.
func NewLog() *Log {
	return &Log{
		entries: []model.Coordinate{Sentinel},
	}
}

// Record appends a breach. Repeated coordinates are distinct events.
func (l *Log) Record(c model.Coordinate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, c)
}

// MostRecent returns the last recorded breach, or the sentinel.
func (l *Log) MostRecent() model.Coordinate {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[len(l.entries)-1]
}

// Len returns the number of entries including the sentinel.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Recorded returns the number of real breaches, excluding the sentinel.
func (l *Log) Recorded() int {
	return l.Len() - 1
}

// All returns a copy of every entry, sentinel first.
func (l *Log) All() []model.Coordinate {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Coordinate, len(l.entries))
	copy(out, l.entries)
	return out
}
