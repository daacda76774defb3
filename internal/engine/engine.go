// Package engine speaks the game engine's line protocol: one JSON document
// per line on stdin, two JSON lines on stdout per submitted turn.
package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/turretline/algo/internal/dispatcher"
	"github.com/turretline/algo/internal/gamestate"
	"github.com/turretline/algo/internal/parser"
)

// Dispatcher commands, one per engine message type.
const (
	CommandGameStart = ":GAME:START:"
	CommandTurn      = ":TURN:"
	CommandFrame     = ":ACTION:FRAME:"
	CommandGameEnd   = ":GAME:END:"
)

// Engine states can be large late in a match.
const maxLineSize = 16 << 20

var commands = map[parser.MessageType]string{
	parser.MessageConfig: CommandGameStart,
	parser.MessageTurn:   CommandTurn,
	parser.MessageFrame:  CommandFrame,
	parser.MessageEnd:    CommandGameEnd,
}

// Classifier tells engine messages apart.
type Classifier interface {
	Classify(line []byte) (parser.MessageType, error)
}

// Dispatcher routes a classified message to its handler.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Conn is the algo's end of the engine pipe.
type Conn struct {
	in     io.Reader
	logger *slog.Logger

	mu  sync.Mutex
	out *bufio.Writer
}

func NewConn(in io.Reader, out io.Writer, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		in:     in,
		out:    bufio.NewWriter(out),
		logger: logger,
	}
}

// Submit ends the turn: the build queue line, then the deploy queue line.
func (c *Conn) Submit(build, deploy []gamestate.Command) error {
	if build == nil {
		build = []gamestate.Command{}
	}
	if deploy == nil {
		deploy = []gamestate.Command{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, queue := range [][]gamestate.Command{build, deploy} {
		b, err := json.Marshal(queue)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		if _, err := c.out.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("write turn: %w", err)
		}
	}
	if err := c.out.Flush(); err != nil {
		return fmt.Errorf("flush turn: %w", err)
	}
	return nil
}

// ReadLoop reads engine lines until the end-of-game message has been
// handled, the input closes, or ctx is cancelled. Handler errors are logged
// and never stop the loop. When the input is an io.Closer it is closed on
// cancellation so a blocked read returns at once.
func (c *Conn) ReadLoop(ctx context.Context, cl Classifier, d Dispatcher) error {
	if closer, ok := c.in.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = closer.Close() })
		defer stop()
	}

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		kind, err := cl.Classify(line)
		if err != nil {
			c.logger.Warn("unreadable engine message", "error", err, "bytes", len(line))
			continue
		}

		payload := make([]byte, len(line))
		copy(payload, line)

		if _, err := d.Dispatch(dispatcher.Event{
			Command:   commands[kind],
			Payload:   payload,
			Timestamp: time.Now(),
		}); err != nil {
			c.logger.Error("engine message handler failed", "message", kind.String(), "error", err)
		}

		if kind == parser.MessageEnd {
			c.logger.Info("game over, leaving read loop")
			return nil
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read engine input: %w", err)
	}
	c.logger.Info("engine input closed")
	return nil
}
