// Package storage defines where match records go. Implementations live in
// the subpackages; the process picks one from config at startup.
package storage

import "github.com/turretline/algo/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// Calls arrive from the single callback goroutine in match order.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Match management
	StartMatch(m *core.Match) error
	EndMatch(r *core.MatchResult) error

	// Recording
	RecordTurn(t *core.TurnDecision) error
	RecordBreach(b *core.Breach) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the replay server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
