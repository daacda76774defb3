package logging

import (
	"log/slog"
	"sync"
)

// MatchContext tracks the match and turn being played so every log record
// can carry them.
type MatchContext struct {
	mu      sync.RWMutex
	matchID string
	turn    int
}

// NewMatchContext returns a context with no match loaded.
func NewMatchContext() *MatchContext {
	return &MatchContext{turn: -1}
}

// SetMatch starts a new match.
func (c *MatchContext) SetMatch(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matchID = id
	c.turn = -1
}

// SetTurn records the turn being decided.
func (c *MatchContext) SetTurn(turn int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turn = turn
}

// Attrs returns the match and turn attributes, none before game start.
func (c *MatchContext) Attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.matchID == "" {
		return nil
	}
	attrs := []slog.Attr{slog.String("match", c.matchID)}
	if c.turn >= 0 {
		attrs = append(attrs, slog.Int("turn", c.turn))
	}
	return attrs
}
