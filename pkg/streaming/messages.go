// Package streaming defines the live match feed protocol: JSON envelopes sent
// over a WebSocket, with acks for the match boundaries.
package streaming

import (
	"encoding/json"

	"github.com/turretline/algo/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartMatch = "start_match"
	TypeEndMatch   = "end_match"
	TypeTurn       = "turn"
	TypeBreach     = "breach"
	TypeAck        = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartMatchPayload opens a match on the server.
type StartMatchPayload struct {
	MatchID       string            `json:"matchId"`
	Seed          int64             `json:"seed"`
	LayoutVersion string            `json:"layoutVersion"`
	Shorthands    map[string]string `json:"shorthands"`
	StartTime     int64             `json:"startTime"` // unix millis
}

// TurnPayload is one submitted turn.
type TurnPayload struct {
	Turn       int              `json:"turn"`
	Branch     string           `json:"branch"`
	SP         float64          `json:"sp"`
	MP         float64          `json:"mp"`
	Placements []core.Placement `json:"placements"`
	Build      []core.Command   `json:"build"`
	Deploy     []core.Command   `json:"deploy"`
	LastBreach *core.Point      `json:"lastBreach,omitempty"`
	Failed     bool             `json:"failed,omitempty"`
}

// BreachPayload is a breach scored by this agent.
type BreachPayload struct {
	Turn   int        `json:"turn"`
	Frame  int        `json:"frame"`
	At     core.Point `json:"at"`
	UnitID string     `json:"unitId"`
	Damage float64    `json:"damage"`
}

// EndMatchPayload closes a match.
type EndMatchPayload struct {
	Turns    int   `json:"turns"`
	Breaches int   `json:"breaches"`
	Winner   int   `json:"winner"`
	EndTime  int64 `json:"endTime"` // unix millis
}
