package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hailam/chessmind/internal/rules"
	"github.com/rs/zerolog/log"
)

// SearchInfo contains information about a completed search depth.
type SearchInfo struct {
	Depth    int
	Score    int // From the side to move's point of view
	Move     rules.Move
	Nodes    uint64
	QNodes   uint64
	TTHits   uint64
	Time     time.Duration
	NPS      uint64
	HashFull int // Permille of hash table used
}

// Book is an opening book consulted before searching.
type Book interface {
	Probe(pos rules.Position) (rules.Move, bool)
}

// Outcome is delivered by Go when the asynchronous search finishes.
type Outcome struct {
	Result Result
	Err    error
}

// Engine is the chess AI engine. It wraps one Session and serializes
// searches on it.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	session  *Session
	stopFlag atomic.Bool

	// Options may change while a search runs; optMu guards them.
	optMu      sync.RWMutex
	book       Book
	difficulty Difficulty

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates a new chess engine.
func NewEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:        cfg,
		session:    NewSession(cfg),
		difficulty: Medium,
	}
}

// Session exposes the underlying search session.
func (e *Engine) Session() *Session {
	return e.session
}

// SetDifficulty sets the engine difficulty.
func (e *Engine) SetDifficulty(d Difficulty) {
	e.optMu.Lock()
	defer e.optMu.Unlock()
	e.difficulty = d
}

// Difficulty returns the current difficulty.
func (e *Engine) Difficulty() Difficulty {
	e.optMu.RLock()
	defer e.optMu.RUnlock()
	return e.difficulty
}

// SetBook attaches an opening book; nil disables it. The change applies from
// the next search.
func (e *Engine) SetBook(b Book) {
	e.optMu.Lock()
	defer e.optMu.Unlock()
	e.book = b
}

// Search finds the best move for the side to move using the difficulty limits.
func (e *Engine) Search(ctx context.Context, pos rules.Position) (Result, error) {
	return e.SearchWithLimits(ctx, pos, DifficultySettings[e.Difficulty()])
}

// SelectMove consults the book, then runs one fixed-depth search with
// maximizing as the maximizing color.
func (e *Engine) SelectMove(ctx context.Context, pos rules.Position, depth int, maximizing rules.Color) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopFlag.Store(false)

	if res, ok := e.probeBook(pos); ok {
		return res, nil
	}
	e.beginEpisode()
	res, err := e.session.Search(ctx, pos, depth, maximizing, Budget{Stop: &e.stopFlag})
	if err != nil {
		return res, err
	}
	e.report(pos, maximizing, res)
	return res, nil
}

// SearchWithLimits finds the best move for the side to move. Depth-only
// limits run a single fixed-depth search; node or time limits run iterative
// deepening and return the deepest result available when the budget ends.
func (e *Engine) SearchWithLimits(ctx context.Context, pos rules.Position, limits SearchLimits) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopFlag.Store(false)
	return e.searchLocked(ctx, pos, limits)
}

// searchLocked runs SearchWithLimits with e.mu held and the stop flag untouched.
func (e *Engine) searchLocked(ctx context.Context, pos rules.Position, limits SearchLimits) (Result, error) {
	if res, ok := e.probeBook(pos); ok {
		return res, nil
	}

	maxDepth := limits.Depth
	if maxDepth <= 0 {
		maxDepth = DifficultySettings[e.Difficulty()].Depth
	}
	maxDepth = clamp(maxDepth, 1, MaxPly-1)
	side := pos.SideToMove()

	e.beginEpisode()
	if !limits.bounded() {
		res, err := e.session.Search(ctx, pos, maxDepth, side, Budget{Stop: &e.stopFlag})
		if err != nil {
			return res, err
		}
		e.report(pos, side, res)
		return res, nil
	}

	startTime := time.Now()
	var deadline time.Time
	if limits.MoveTime > 0 {
		deadline = startTime.Add(limits.MoveTime)
	}

	var best Result
	var total SearchStats
	for depth := 1; depth <= maxDepth; depth++ {
		budget := Budget{Deadline: deadline, Stop: &e.stopFlag}
		if limits.Nodes > 0 {
			if total.Total() >= limits.Nodes {
				break
			}
			budget.Nodes = limits.Nodes - total.Total()
		}

		res, err := e.session.Search(ctx, pos, depth, side, budget)
		total.Add(res.Stats)
		if err != nil {
			return best, err
		}
		// A partial iteration still improves on the previous one when at
		// least one root move was searched, since the previous best goes first.
		if !res.Aborted || res.Searched > 0 || !best.Found() {
			best = res
		}
		if res.Aborted {
			break
		}
		e.report(pos, side, res)

		if abs(res.Score) >= CheckmateScore {
			break
		}
		// If we've used more than half the time, don't start another iteration
		if !deadline.IsZero() {
			elapsed := time.Since(startTime)
			if limits.MoveTime-elapsed < elapsed {
				break
			}
		}
	}
	best.Stats = total
	best.Stats.Duration = time.Since(startTime)
	return best, nil
}

// Go runs SearchWithLimits on its own goroutine so the caller is not blocked.
// A Stop issued after Go returns always reaches this search.
func (e *Engine) Go(ctx context.Context, pos rules.Position, limits SearchLimits) <-chan Outcome {
	e.stopFlag.Store(false)
	done := make(chan Outcome, 1)
	go func() {
		e.mu.Lock()
		res, err := e.searchLocked(ctx, pos, limits)
		e.mu.Unlock()
		done <- Outcome{Result: res, Err: err}
	}()
	return done
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.stopFlag.Store(true)
}

// Clear clears the transposition table and killer moves.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Reset()
}

// Evaluate returns the static evaluation of a position from White's perspective.
func (e *Engine) Evaluate(pos rules.Position) int {
	return e.session.Evaluator().Evaluate(pos)
}

func (e *Engine) probeBook(pos rules.Position) (Result, bool) {
	e.optMu.RLock()
	b := e.book
	e.optMu.RUnlock()
	if b == nil {
		return Result{}, false
	}
	m, ok := b.Probe(pos)
	if !ok {
		return Result{}, false
	}
	log.Info().Str("move", m.String()).Str("key", rules.NormalizedKey(pos.Key())).Msg("book-hit")
	return Result{Move: m, FromBook: true}, true
}

// beginEpisode resets per-episode state; tables survive only with KeepTables.
// The stop flag is cleared by the entry points: under e.mu, or before Go
// returns so an immediate Stop is not lost.
func (e *Engine) beginEpisode() {
	if !e.cfg.KeepTables {
		e.session.Reset()
	}
}

func (e *Engine) report(pos rules.Position, maximizing rules.Color, res Result) {
	if e.OnInfo == nil {
		return
	}
	score := res.Score
	if pos.SideToMove() != maximizing {
		score = -score
	}
	e.OnInfo(SearchInfo{
		Depth:    res.Depth,
		Score:    score,
		Move:     res.Move,
		Nodes:    res.Stats.Nodes,
		QNodes:   res.Stats.QNodes,
		TTHits:   res.Stats.TTHits,
		Time:     res.Stats.Duration,
		NPS:      res.Stats.NPS(),
		HashFull: e.session.TT().HashFull(),
	})
}

// Perft counts leaf nodes of the legal move tree (for debugging move generation).
func Perft(pos rules.Position, depth int) (uint64, error) {
	if depth == 0 {
		return 1, nil
	}

	moves := pos.LegalMoves()
	if depth == 1 {
		return uint64(len(moves)), nil
	}

	var nodes uint64
	for _, m := range moves {
		if err := pos.Apply(m); err != nil {
			return nodes, fmt.Errorf("perft apply %s: %w", m, err)
		}
		n, err := Perft(pos, depth-1)
		if uerr := pos.Undo(); uerr != nil && err == nil {
			err = uerr
		}
		if err != nil {
			return nodes, err
		}
		nodes += n
	}
	return nodes, nil
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score >= CheckmateScore {
		return "Checkmate"
	}
	if score <= -CheckmateScore {
		return "Checkmated"
	}

	// Convert centipawns to pawns
	sign := ""
	if score < 0 {
		sign = "-"
	}
	score = abs(score)
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}

// FormatMove renders a move with its score, e.g. "e2e4 (0.35)".
func FormatMove(m rules.Move, score int) string {
	return m.String() + " (" + ScoreToString(score) + ")"
}
