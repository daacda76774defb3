// Package websocket streams a match live to a spectator server. It
// implements storage.Backend but not storage.Uploadable.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/turretline/algo/pkg/core"
	"github.com/turretline/algo/pkg/streaming"
)

const defaultAckTimeout = 5 * time.Second

// Config holds WebSocket backend configuration.
type Config struct {
	URL        string
	Secret     string
	AckTimeout time.Duration
}

// Backend streams match data over WebSocket.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "feed")),
		cfg:  cfg,
	}
}

// Init connects to the feed server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the feed server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped returns how many messages were discarded because the send
// buffer was full.
func (b *Backend) Dropped() int64 {
	return b.conn.dropped.Load()
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartMatch announces the match and waits for the server ack.
func (b *Backend) StartMatch(m *core.Match) error {
	data, err := marshalEnvelope(streaming.TypeStartMatch, streaming.StartMatchPayload{
		MatchID:       m.ID.String(),
		Seed:          m.Seed,
		LayoutVersion: m.LayoutVersion,
		Shorthands:    m.Shorthands,
		StartTime:     m.StartTime.UnixMilli(),
	})
	if err != nil {
		return err
	}

	b.conn.setStartMessage(data)
	return b.conn.sendAndWait(data, streaming.TypeStartMatch, b.cfg.AckTimeout)
}

// EndMatch sends end_match and waits for the server ack.
func (b *Backend) EndMatch(r *core.MatchResult) error {
	data, err := marshalEnvelope(streaming.TypeEndMatch, streaming.EndMatchPayload{
		Turns:    r.Turns,
		Breaches: r.Breaches,
		Winner:   r.Winner,
		EndTime:  r.EndTime.UnixMilli(),
	})
	if err != nil {
		return err
	}

	err = b.conn.sendAndWait(data, streaming.TypeEndMatch, b.cfg.AckTimeout)
	b.conn.setStartMessage(nil)
	return err
}

func (b *Backend) RecordTurn(t *core.TurnDecision) error {
	return b.sendEnvelope(streaming.TypeTurn, streaming.TurnPayload{
		Turn:       t.Turn,
		Branch:     t.Branch,
		SP:         t.SPBefore,
		MP:         t.MPBefore,
		Placements: t.Placements,
		Build:      t.Build,
		Deploy:     t.Deploy,
		LastBreach: t.LastBreach,
		Failed:     t.Failed,
	})
}

func (b *Backend) RecordBreach(e *core.Breach) error {
	return b.sendEnvelope(streaming.TypeBreach, streaming.BreachPayload{
		Turn:   e.Turn,
		Frame:  e.Frame,
		At:     e.At,
		UnitID: e.UnitID,
		Damage: e.Damage,
	})
}
