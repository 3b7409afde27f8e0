// Package delegate asks an external UCI engine for moves.
package delegate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chessmind/internal/rules"
)

// ErrNoBestMove is returned when the engine answers without a usable move.
var ErrNoBestMove = errors.New("delegate: engine returned no best move")

// Engine is a running external engine process. Requests are serialized; a
// request abandoned through its context still holds the engine until the
// external search ends.
type Engine struct {
	mu   sync.Mutex
	path string
	eng  *uci.Engine
}

// New starts the engine at path and prepares it for a new game.
func New(path string) (*Engine, error) {
	eng, err := uci.New(path)
	if err != nil {
		return nil, fmt.Errorf("delegate: start %s: %w", path, err)
	}
	if err := eng.Run(uci.CmdUCI, uci.CmdIsReady, uci.CmdUCINewGame); err != nil {
		eng.Close()
		return nil, fmt.Errorf("delegate: handshake with %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("delegate-ready")
	return &Engine{path: path, eng: eng}, nil
}

// BestMove sends pos with a thinking budget and returns the engine's choice
// as a legal move in pos. Cancelling ctx returns ctx.Err() without waiting
// for the reply.
func (e *Engine) BestMove(ctx context.Context, pos rules.Position, budget time.Duration) (rules.Move, error) {
	opt, err := chess.FEN(pos.FEN())
	if err != nil {
		return rules.NoMove, fmt.Errorf("delegate: %w", err)
	}
	cp := chess.NewGame(opt).Position()

	type reply struct {
		token string
		err   error
	}
	done := make(chan reply, 1)
	go func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		err := e.eng.Run(uci.CmdPosition{Position: cp}, uci.CmdGo{MoveTime: budget})
		if err != nil {
			done <- reply{err: err}
			return
		}
		var token string
		if m := e.eng.SearchResults().BestMove; m != nil {
			token = m.String()
		}
		done <- reply{token: token}
	}()

	select {
	case <-ctx.Done():
		return rules.NoMove, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return rules.NoMove, fmt.Errorf("delegate %s: %w", e.path, r.err)
		}
		return parseBestMove(pos, r.token)
	}
}

// parseBestMove maps a coordinate token (origin, destination and an optional
// promotion letter) to the matching legal move.
func parseBestMove(pos rules.Position, token string) (rules.Move, error) {
	if token == "" || token == "0000" || token == "(none)" {
		return rules.NoMove, ErrNoBestMove
	}
	m, err := rules.ParseMove(pos, token)
	if err != nil {
		return rules.NoMove, fmt.Errorf("%w: %v", ErrNoBestMove, err)
	}
	return m, nil
}

// Close shuts the engine process down.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eng.Close()
}
