// Package handlers implements the engine callbacks: game start, turn start,
// action frame and game end. All of them run on the read loop goroutine.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/turretline/algo/internal/breach"
	"github.com/turretline/algo/internal/dispatcher"
	"github.com/turretline/algo/internal/engine"
	"github.com/turretline/algo/internal/gamestate"
	"github.com/turretline/algo/internal/layout"
	"github.com/turretline/algo/internal/logging"
	"github.com/turretline/algo/internal/model"
	"github.com/turretline/algo/internal/parser"
	"github.com/turretline/algo/internal/storage"
	"github.com/turretline/algo/internal/strategy"
	"github.com/turretline/algo/pkg/core"
)

const uploadTimeout = 2 * time.Minute

// ErrNoGameConfig is returned for turn messages that arrive before the
// game config.
var ErrNoGameConfig = errors.New("no game config received")

// Submitter ends a turn.
type Submitter interface {
	Submit(build, deploy []gamestate.Command) error
}

// Recorder receives per-turn and per-breach records besides storage, e.g.
// the InfluxDB writer.
type Recorder interface {
	RecordTurn(t *core.TurnDecision) error
	RecordBreach(b *core.Breach) error
}

// Uploader sends a finished match export to the replay server.
type Uploader interface {
	Upload(ctx context.Context, filePath string, meta core.UploadMetadata) error
}

// Dependencies holds all dependencies needed by handlers. Backend,
// Recorder, Uploader, Reactive, Match and Fatal are optional.
type Dependencies struct {
	Logger    *slog.Logger
	Parser    *parser.Parser
	Layout    *layout.Layout
	Submitter Submitter
	Backend   storage.Backend
	Recorder  Recorder
	Uploader  Uploader
	Reactive  *strategy.ReactiveRule
	Match     *logging.MatchContext
	Seed      int64
	// Fatal is told about errors the algo cannot play through.
	Fatal func(error)
	Now   func() time.Time
}

// Algo owns the per-match state the callbacks share.
type Algo struct {
	deps Dependencies
	log  *slog.Logger

	catalog  *model.Catalog
	policy   *strategy.Policy
	breaches *breach.Log
	match    *core.Match
	turns    int
}

// New creates the callback set.
func New(deps Dependencies) *Algo {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Algo{
		deps:     deps,
		log:      deps.Logger,
		breaches: breach.NewLog(),
	}
}

// Register wires the callbacks into d.
func (a *Algo) Register(d *dispatcher.Dispatcher) {
	d.Register(engine.CommandGameStart, a.HandleGameStart, dispatcher.Logged(), dispatcher.Recovered())
	d.Register(engine.CommandTurn, a.HandleTurn, dispatcher.Logged(), dispatcher.Recovered())
	d.Register(engine.CommandFrame, a.HandleActionFrame, dispatcher.Recovered())
	d.Register(engine.CommandGameEnd, a.HandleGameEnd, dispatcher.Logged(), dispatcher.Recovered())
}

// Breaches returns the breach log of the current match.
func (a *Algo) Breaches() *breach.Log {
	return a.breaches
}

// Match returns the match being played, nil before game start.
func (a *Algo) Match() *core.Match {
	return a.match
}

// HandleGameStart resolves the unit catalog and opens the match record.
func (a *Algo) HandleGameStart(e dispatcher.Event) (any, error) {
	catalog, err := a.deps.Parser.ParseConfig(e.Payload)
	if err != nil {
		err = fmt.Errorf("game config: %w", err)
		if a.deps.Fatal != nil {
			a.deps.Fatal(err)
		}
		return nil, err
	}

	a.catalog = catalog
	a.breaches = breach.NewLog()
	a.policy = strategy.NewPolicy(a.deps.Layout, a.breaches, a.deps.Reactive, a.log)
	a.turns = 0
	a.match = &core.Match{
		ID:            uuid.New(),
		Seed:          a.deps.Seed,
		LayoutVersion: a.deps.Layout.Version,
		Shorthands:    catalog.Shorthands(),
		StartTime:     a.deps.Now(),
	}

	if a.deps.Match != nil {
		a.deps.Match.SetMatch(a.match.ID.String())
	}

	a.log.Info("Game config loaded",
		"match", a.match.ID.String(),
		"layout", a.match.LayoutVersion,
		"seed", a.match.Seed,
		"shorthands", a.match.Shorthands,
	)

	if a.deps.Backend != nil {
		if err := a.deps.Backend.StartMatch(a.match); err != nil {
			a.log.Error("Failed to start match record", "error", err)
		}
	}
	return a.match, nil
}

// HandleTurn decides and submits one turn. A turn is submitted even when
// deciding fails, empty if need be.
func (a *Algo) HandleTurn(e dispatcher.Event) (result any, err error) {
	submitted := false
	defer func() {
		if submitted {
			return
		}
		if subErr := a.deps.Submitter.Submit(nil, nil); subErr != nil {
			a.log.Error("Failed to submit empty turn", "error", subErr)
		}
		a.recordFailedTurn(e)
	}()

	if a.catalog == nil {
		return nil, ErrNoGameConfig
	}

	state, err := a.deps.Parser.ParseTurnState(e.Payload, a.catalog)
	if err != nil {
		return nil, err
	}
	if a.deps.Match != nil {
		a.deps.Match.SetTurn(state.TurnNumber())
	}

	spBefore := state.Resource(model.StructurePool)
	mpBefore := state.Resource(model.MobilePool)

	decision := a.policy.OnTurn(state)

	build, deploy := state.BuildQueue(), state.DeployQueue()
	submitted = true
	if err := a.deps.Submitter.Submit(build, deploy); err != nil {
		return nil, fmt.Errorf("submit turn %d: %w", decision.Turn, err)
	}
	a.turns++

	a.log.Info("Turn submitted",
		"branch", string(decision.Branch),
		"build", len(build),
		"deploy", len(deploy),
		"sp", state.Resource(model.StructurePool),
		"mp", state.Resource(model.MobilePool),
	)

	td := &core.TurnDecision{
		MatchID:    a.match.ID,
		Turn:       decision.Turn,
		Branch:     string(decision.Branch),
		SPBefore:   spBefore,
		MPBefore:   mpBefore,
		SPAfter:    state.Resource(model.StructurePool),
		MPAfter:    state.Resource(model.MobilePool),
		Placements: placements(state.Requests()),
		Build:      commands(build),
		Deploy:     commands(deploy),
		Rushed:     decision.Rushed,
		Reacted:    decision.Reacted,
		Time:       a.deps.Now(),
	}
	if decision.Branch == strategy.BranchOdd {
		p := point(decision.LastBreach)
		td.LastBreach = &p
	}
	a.recordTurn(td)

	return decision, nil
}

// HandleActionFrame feeds this side's breaches into the breach log.
func (a *Algo) HandleActionFrame(e dispatcher.Event) (any, error) {
	frame, err := a.deps.Parser.ParseActionFrame(e.Payload)
	if err != nil {
		return nil, err
	}

	recorded := 0
	for _, b := range frame.Breaches {
		if !b.Self() {
			continue
		}
		a.breaches.Record(b.At)
		recorded++

		a.log.Debug("Breach recorded", "at", b.At.String(), "frame", frame.Frame, "unit", b.UnitID)
		if a.match == nil {
			continue
		}
		a.recordBreach(&core.Breach{
			MatchID: a.match.ID,
			Turn:    frame.Turn,
			Frame:   frame.Frame,
			At:      point(b.At),
			UnitID:  b.UnitID,
			Damage:  b.Damage,
			Owner:   b.Owner,
			Time:    a.deps.Now(),
		})
	}
	return recorded, nil
}

// HandleGameEnd closes the match record and uploads its export.
func (a *Algo) HandleGameEnd(e dispatcher.Event) (any, error) {
	end, err := a.deps.Parser.ParseGameEnd(e.Payload)
	if err != nil {
		a.log.Warn("Unreadable end of game message", "error", err)
	}
	if a.match == nil {
		return nil, nil
	}

	result := &core.MatchResult{
		MatchID:  a.match.ID,
		Turns:    a.turns,
		Breaches: a.breaches.Recorded(),
		Winner:   end.Winner,
		EndTime:  a.deps.Now(),
	}
	a.log.Info("Game over",
		"turns", result.Turns,
		"breaches", result.Breaches,
		"winner", result.Winner,
	)

	if a.deps.Backend == nil {
		return result, nil
	}
	if err := a.deps.Backend.EndMatch(result); err != nil {
		return result, fmt.Errorf("end match record: %w", err)
	}

	uploadable, ok := a.deps.Backend.(storage.Uploadable)
	if !ok || a.deps.Uploader == nil || uploadable.GetExportedFilePath() == "" {
		return result, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	path := uploadable.GetExportedFilePath()
	if err := a.deps.Uploader.Upload(ctx, path, uploadable.GetExportMetadata()); err != nil {
		return result, fmt.Errorf("upload %s: %w", path, err)
	}
	a.log.Info("Match uploaded", "path", path)
	return result, nil
}

func (a *Algo) recordTurn(td *core.TurnDecision) {
	if a.deps.Backend != nil {
		if err := a.deps.Backend.RecordTurn(td); err != nil {
			a.log.Warn("Failed to record turn", "error", err)
		}
	}
	if a.deps.Recorder != nil {
		if err := a.deps.Recorder.RecordTurn(td); err != nil {
			a.log.Warn("Failed to write turn metrics", "error", err)
		}
	}
}

func (a *Algo) recordBreach(b *core.Breach) {
	if a.deps.Backend != nil {
		if err := a.deps.Backend.RecordBreach(b); err != nil {
			a.log.Warn("Failed to record breach", "error", err)
		}
	}
	if a.deps.Recorder != nil {
		if err := a.deps.Recorder.RecordBreach(b); err != nil {
			a.log.Warn("Failed to write breach metrics", "error", err)
		}
	}
}

func (a *Algo) recordFailedTurn(e dispatcher.Event) {
	if a.match == nil {
		return
	}
	turn := -1
	if n, err := a.deps.Parser.TurnOf(e.Payload); err == nil {
		turn = n
	}
	a.recordTurn(&core.TurnDecision{
		MatchID: a.match.ID,
		Turn:    turn,
		Build:   []core.Command{},
		Deploy:  []core.Command{},
		Failed:  true,
		Time:    a.deps.Now(),
	})
}
