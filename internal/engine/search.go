package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hailam/chessmind/internal/rules"
	"github.com/rs/zerolog/log"
)

// Stop conditions are polled every checkInterval nodes.
const checkInterval = 1024

// Budget bounds one search invocation. The zero value never stops.
type Budget struct {
	Nodes    uint64       // Total node limit, quiescence included
	Deadline time.Time    // Wall-clock limit
	Stop     *atomic.Bool // External stop request
}

// Result is the outcome of one search invocation.
type Result struct {
	Move     rules.Move // rules.NoMove when the root has no legal moves
	Score    int        // From the maximizing side's point of view
	Depth    int
	Stats    SearchStats
	Aborted  bool // Budget ran out; Move is the best fully searched root move
	Searched int  // Root moves searched to completion
	FromBook bool // Move came from the opening book; no search was run
}

// Found reports whether a move was selected.
func (r Result) Found() bool {
	return !r.Move.IsNull()
}

// Session owns the mutable search state: transposition table, killer table,
// evaluator and statistics. Tables persist across searches until Reset.
// A Session is not safe for concurrent use.
type Session struct {
	cfg     Config
	tt      *TranspositionTable
	killers *KillerTable
	orderer *MoveOrderer
	eval    Evaluator

	// Per-invocation state
	stats   SearchStats
	ctx     context.Context
	budget  Budget
	aborted bool
	maxSide rules.Color
}

// NewSession creates a session with the default evaluator.
func NewSession(cfg Config) *Session {
	cfg = cfg.withDefaults()
	killers := NewKillerTable()
	return &Session{
		cfg:     cfg,
		tt:      NewTranspositionTable(cfg.TTSizeMB),
		killers: killers,
		orderer: NewMoveOrderer(killers),
		eval:    NewEvaluator(cfg, nil),
		ctx:     context.Background(),
	}
}

// SetEvaluator replaces the evaluator used at the leaves.
func (s *Session) SetEvaluator(e Evaluator) {
	s.eval = e
}

// Evaluator returns the evaluator used at the leaves.
func (s *Session) Evaluator() Evaluator {
	return s.eval
}

// TT returns the session's transposition table.
func (s *Session) TT() *TranspositionTable {
	return s.tt
}

// Killers returns the session's killer table.
func (s *Session) Killers() *KillerTable {
	return s.killers
}

// Stats returns the statistics of the last search invocation.
func (s *Session) Stats() SearchStats {
	return s.stats
}

// Reset clears the transposition and killer tables.
func (s *Session) Reset() {
	s.tt.Clear()
	s.killers.Clear()
	s.stats = SearchStats{}
}

// SelectMove searches pos to depth with no budget and returns the best move
// for the side to move, scored with maximizing as the maximizing color.
func (s *Session) SelectMove(pos rules.Position, depth int, maximizing rules.Color) (Result, error) {
	return s.Search(context.Background(), pos, depth, maximizing, Budget{})
}

// Search is SelectMove bounded by ctx and b. When the budget runs out the root
// move in progress is discarded and the best fully searched one is returned.
func (s *Session) Search(ctx context.Context, pos rules.Position, depth int, maximizing rules.Color, b Budget) (Result, error) {
	if depth < 1 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	start := time.Now()
	s.stats = SearchStats{}
	s.ctx, s.budget, s.aborted, s.maxSide = ctx, b, false, maximizing

	res, err := s.searchRoot(pos, depth)
	s.stats.Duration = time.Since(start)
	res.Stats = s.stats
	if err != nil {
		return res, err
	}

	log.Debug().
		Int("depth", depth).
		Str("move", res.Move.String()).
		Int("score", res.Score).
		Uint64("nodes", s.stats.Nodes).
		Uint64("qnodes", s.stats.QNodes).
		Uint64("tt-hits", s.stats.TTHits).
		Bool("aborted", res.Aborted).
		Dur("took", s.stats.Duration).
		Msg("search-complete")
	return res, nil
}

func (s *Session) searchRoot(pos rules.Position, depth int) (Result, error) {
	res := Result{Depth: depth}
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return res, nil
	}

	hash := Hash(pos.Key())
	ttMove := rules.NoMove
	if e, ok := s.tt.Probe(hash); ok {
		ttMove = e.BestMove
	}
	s.orderer.Order(moves, 0, ttMove)

	rootMax := pos.SideToMove() == s.maxSide
	alpha, beta := -Infinity, Infinity
	for _, m := range moves {
		if s.exhausted() {
			s.aborted = true
			break
		}
		v, err := s.child(pos, m, depth-1, 1, alpha, beta, !rootMax)
		if err != nil {
			return res, err
		}
		if s.aborted {
			break
		}
		res.Searched++
		if res.Move.IsNull() || (rootMax && v > res.Score) || (!rootMax && v < res.Score) {
			res.Move, res.Score = m, v
		}
		if rootMax {
			alpha = max(alpha, v)
		} else {
			beta = min(beta, v)
		}
	}

	if s.aborted {
		res.Aborted = true
		if res.Move.IsNull() {
			res.Move = moves[0]
		}
		return res, nil
	}
	s.store(hash, depth, res.Score, -Infinity, Infinity, res.Move)
	return res, nil
}

// child applies m, searches the resulting position and restores pos.
func (s *Session) child(pos rules.Position, m rules.Move, depth, ply, alpha, beta int, maximizing bool) (int, error) {
	if err := pos.Apply(m); err != nil {
		return 0, fmt.Errorf("apply %s: %w", m, err)
	}
	v, err := s.minimax(pos, depth, ply, alpha, beta, maximizing)
	if uerr := pos.Undo(); uerr != nil && err == nil {
		err = fmt.Errorf("undo %s: %w", m, uerr)
	}
	return v, err
}

// minimax scores pos from the maximizing side's point of view. maximizing
// tells whether the side to move at this node is that side.
func (s *Session) minimax(pos rules.Position, depth, ply, alpha, beta int, maximizing bool) (int, error) {
	s.stats.Nodes++
	if s.tick() {
		return 0, nil
	}

	hash := Hash(pos.Key())
	ttMove := rules.NoMove
	if e, ok := s.tt.Probe(hash); ok {
		if v, hit := e.usable(depth, alpha, beta, s.maxSide); hit {
			s.stats.TTHits++
			return v, nil
		}
		ttMove = e.BestMove
	}

	var moves []rules.Move
	if depth > 0 && !pos.Status().Terminal() {
		moves = pos.LegalMoves()
	}
	if len(moves) == 0 {
		v, err := s.leaf(pos, alpha, beta)
		if err != nil || s.aborted {
			return 0, err
		}
		s.store(hash, max(depth, 0), v, alpha, beta, rules.NoMove)
		return v, nil
	}

	s.orderer.Order(moves, ply, ttMove)

	alpha0, beta0 := alpha, beta
	best := Infinity
	if maximizing {
		best = -Infinity
	}
	bestMove := rules.NoMove
	for _, m := range moves {
		v, err := s.child(pos, m, depth-1, ply+1, alpha, beta, !maximizing)
		if err != nil || s.aborted {
			return 0, err
		}
		if maximizing {
			if v > best {
				best, bestMove = v, m
			}
			alpha = max(alpha, best)
		} else {
			if v < best {
				best, bestMove = v, m
			}
			beta = min(beta, best)
		}
		if beta <= alpha {
			if !m.IsCapture() {
				s.killers.Add(ply, m)
			}
			break
		}
	}

	s.store(hash, depth, best, alpha0, beta0, bestMove)
	return best, nil
}

// leaf resolves a horizon or terminal node with quiescence search,
// translating the window into the side to move's frame and back.
func (s *Session) leaf(pos rules.Position, alpha, beta int) (int, error) {
	if pos.SideToMove() == s.maxSide {
		return s.quiesce(pos, alpha, beta, 0)
	}
	v, err := s.quiesce(pos, -beta, -alpha, 0)
	return -v, err
}

func (s *Session) store(hash uint64, depth, score, alpha, beta int, m rules.Move) {
	w, flag := toWhite(score, boundFlag(score, alpha, beta), s.maxSide)
	s.tt.Store(hash, depth, w, flag, m)
}

// tick polls the stop conditions every checkInterval nodes.
func (s *Session) tick() bool {
	if !s.aborted && s.stats.Total()%checkInterval == 0 {
		s.aborted = s.exhausted()
	}
	return s.aborted
}

func (s *Session) exhausted() bool {
	b := s.budget
	switch {
	case s.aborted:
		return true
	case b.Stop != nil && b.Stop.Load():
		return true
	case b.Nodes > 0 && s.stats.Total() >= b.Nodes:
		return true
	case !b.Deadline.IsZero() && time.Now().After(b.Deadline):
		return true
	}
	return s.ctx.Err() != nil
}
