// Package parser decodes the engine's JSON lines into game types. It has no
// dependencies beyond a logger and never touches storage or the policy.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// MessageType classifies one line from the engine.
type MessageType int

const (
	MessageConfig MessageType = iota
	MessageTurn
	MessageFrame
	MessageEnd
)

func (m MessageType) String() string {
	switch m {
	case MessageConfig:
		return "config"
	case MessageTurn:
		return "turn"
	case MessageFrame:
		return "frame"
	case MessageEnd:
		return "end"
	}
	return fmt.Sprintf("message(%d)", int(m))
}

// State types reported in turnInfo[0].
const (
	stateTurn  = 0
	stateFrame = 1
	stateEnd   = 2
)

var ErrUnknownMessage = errors.New("unrecognised engine message")

// Parser converts raw engine lines to game types.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

type probe struct {
	UnitInformation json.RawMessage `json:"unitInformation"`
	TurnInfo        []float64       `json:"turnInfo"`
}

// Classify reports what kind of message line holds. A line carrying
// unitInformation is the game config; otherwise turnInfo[0] decides.
func (p *Parser) Classify(line []byte) (MessageType, error) {
	var pr probe
	if err := json.Unmarshal(line, &pr); err != nil {
		return 0, fmt.Errorf("decode engine message: %w", err)
	}
	if len(pr.UnitInformation) > 0 {
		return MessageConfig, nil
	}
	if len(pr.TurnInfo) == 0 {
		return 0, fmt.Errorf("%w: no turnInfo", ErrUnknownMessage)
	}
	switch int(pr.TurnInfo[0]) {
	case stateTurn:
		return MessageTurn, nil
	case stateFrame:
		return MessageFrame, nil
	case stateEnd:
		return MessageEnd, nil
	}
	return 0, fmt.Errorf("%w: state type %v", ErrUnknownMessage, pr.TurnInfo[0])
}

// TurnOf returns the turn number of a state message without decoding the
// rest of it.
func (p *Parser) TurnOf(line []byte) (int, error) {
	var pr probe
	if err := json.Unmarshal(line, &pr); err != nil {
		return 0, fmt.Errorf("decode engine message: %w", err)
	}
	turn, _, err := turnAndFrame(pr.TurnInfo)
	return turn, err
}

// turnInfo is [stateType, turnNumber, frameNumber, ...].
func turnAndFrame(info []float64) (int, int, error) {
	if len(info) < 2 {
		return 0, 0, fmt.Errorf("turnInfo has %d fields, need at least 2", len(info))
	}
	turn := int(info[1])
	frame := 0
	if len(info) > 2 {
		frame = int(info[2])
	}
	return turn, frame, nil
}

// intFrom accepts whole JSON numbers only.
func intFrom(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
