// Package gormstorage records matches into a relational database through
// gorm. Turns and breaches are queued and written in batches by a background
// writer; match rows are written synchronously.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/turretline/algo/internal/queue"
	"github.com/turretline/algo/pkg/core"
)

// batchSize caps how many rows one transaction writes.
const batchSize = 500

// maxQueued bounds each queue while the database is unreachable; the
// oldest rows go first.
const maxQueued = 20000

var errNoDB = errors.New("gorm backend has no database")

// Dependencies holds everything the GORM storage backend needs.
type Dependencies struct {
	DB     *gorm.DB
	Logger zerolog.Logger
	// FlushInterval of 0 disables the background writer; queued rows are
	// then written on EndMatch and Close.
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	turns    *queue.Queue[TurnRow]
	breaches *queue.Queue[BreachRow]

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	closed   bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps:     deps,
		turns:    queue.NewBounded[TurnRow](maxQueued),
		breaches: queue.NewBounded[BreachRow](maxQueued),
	}
}

// Init migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errNoDB
	}
	if err := b.deps.DB.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.deps.Logger.Info().Str("dialect", b.deps.DB.Name()).Msg("Database setup complete")

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	if b.deps.FlushInterval > 0 {
		go b.writeLoop()
	} else {
		close(b.done)
	}
	return nil
}

// Close stops the writer, flushes what is left and releases the connection.
func (b *Backend) Close() error {
	if b.stopChan == nil || b.closed {
		return nil
	}
	b.closed = true
	close(b.stopChan)
	<-b.done

	flushErr := b.Flush()
	if dropped := b.Dropped(); dropped > 0 {
		b.deps.Logger.Warn().Int("dropped", dropped).Msg("Rows dropped while the database was unreachable")
	}

	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return errors.Join(flushErr, err)
	}
	return errors.Join(flushErr, sqlDB.Close())
}

// StartMatch inserts the match row.
func (b *Backend) StartMatch(m *core.Match) error {
	if b.deps.DB == nil {
		return errNoDB
	}
	row, err := matchRow(m)
	if err != nil {
		return err
	}
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

// EndMatch flushes pending rows and closes out the match row.
func (b *Backend) EndMatch(r *core.MatchResult) error {
	if b.deps.DB == nil {
		return errNoDB
	}
	if err := b.Flush(); err != nil {
		return err
	}

	end := r.EndTime
	err := b.deps.DB.Model(&MatchRow{}).
		Where("id = ?", r.MatchID.String()).
		Updates(map[string]any{
			"end_time": &end,
			"turns":    r.Turns,
			"breaches": r.Breaches,
			"winner":   r.Winner,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	return nil
}

// RecordTurn converts and queues a turn decision.
func (b *Backend) RecordTurn(t *core.TurnDecision) error {
	row, err := turnRow(t)
	if err != nil {
		return err
	}
	b.turns.Push(row)
	return nil
}

// RecordBreach converts and queues a breach.
func (b *Backend) RecordBreach(e *core.Breach) error {
	b.breaches.Push(breachRow(e))
	return nil
}

// Flush writes every queued row now.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	return errors.Join(
		writeQueue(b.deps.DB, b.turns, "turns"),
		writeQueue(b.deps.DB, b.breaches, "breaches"),
	)
}

// Pending returns the number of queued, unwritten rows.
func (b *Backend) Pending() int {
	return b.turns.Len() + b.breaches.Len()
}

// Dropped returns how many queued rows were discarded because a queue was full.
func (b *Backend) Dropped() int {
	return b.turns.Dropped() + b.breaches.Dropped()
}

// writeQueue drains a queue into the database in batches. A failed batch is
// put back at the front so the next cycle retries it in order.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string) error {
	for !q.Empty() {
		items := q.Drain(batchSize)
		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&items).Error
		})
		if err != nil {
			q.Requeue(items...)
			return fmt.Errorf("error creating %s: %w", name, err)
		}
	}
	return nil
}

// writeLoop periodically drains the queues into the DB.
func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			pending := b.Pending()
			if pending == 0 {
				continue
			}
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error().Err(err).Msg("DB writer cycle failed")
				continue
			}
			b.deps.Logger.Debug().
				Int("rows", pending).
				Dur("duration", time.Since(start)).
				Msg("DB writer cycle")
		}
	}
}
