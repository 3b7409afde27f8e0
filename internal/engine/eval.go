// Package engine implements the chess AI search engine.
package engine

import (
	"github.com/hailam/chessmind/internal/rules"
	"lukechampine.com/frand"
)

// Evaluation constants
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

// Piece values indexed by rules.PieceType; the king carries no material.
var pieceValues = [7]int{
	rules.Pawn:   PawnValue,
	rules.Knight: KnightValue,
	rules.Bishop: BishopValue,
	rules.Rook:   RookValue,
	rules.Queen:  QueenValue,
}

const (
	bishopPairBonus    = 30
	kingShelterBonus   = 10 // Per own piece next to the king
	doubledPawnPenalty = 15 // Per extra pawn on a file
)

// Piece-Square Tables (PST) for positional evaluation.
// Laid out as seen from White with rank 8 first; mirrored for Black.

// Pawn PST - encourages central control and advancement
var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

// Knight PST - encourages central positioning
var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

// Bishop PST - encourages central diagonals
var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

// Rook PST - encourages 7th rank
var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

// Queen PST - slight central preference
var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

// King PST - encourages castling
var kingPST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var psts = [7][64]int{
	rules.Pawn:   pawnPST,
	rules.Knight: knightPST,
	rules.Bishop: bishopPST,
	rules.Rook:   rookPST,
	rules.Queen:  queenPST,
	rules.King:   kingPST,
}

// pstIndex maps a board square to its table slot for the given color.
func pstIndex(sq rules.Square, c rules.Color) int {
	if c == rules.White {
		return (7-sq.Rank())*8 + sq.File()
	}
	return sq.Rank()*8 + sq.File()
}

// Evaluator scores a position from White's point of view.
type Evaluator interface {
	Evaluate(pos rules.Position) int
}

// Rand is the jitter source. *frand.RNG and *math/rand.Rand both satisfy it.
type Rand interface {
	Intn(n int) int
}

// StaticEvaluator is the default Evaluator: material, piece-square tables,
// bishop pair, mobility, king shelter, doubled pawns and a small jitter.
type StaticEvaluator struct {
	jitter         int
	mobilityWeight int
	rng            Rand
	cache          *EvalCache
}

// NewEvaluator creates an evaluator; a nil rng uses a fresh frand generator.
func NewEvaluator(cfg Config, rng Rand) *StaticEvaluator {
	cfg = cfg.withDefaults()
	if rng == nil {
		rng = frand.New()
	}
	return &StaticEvaluator{
		jitter:         cfg.JitterAmplitude,
		mobilityWeight: cfg.MobilityWeight,
		rng:            rng,
		cache:          NewEvalCache(cfg.EvalCacheMB),
	}
}

// Cache exposes the evaluation cache.
func (e *StaticEvaluator) Cache() *EvalCache {
	return e.cache
}

// Evaluate returns the static evaluation of the position from White's perspective.
// It never mutates pos.
func (e *StaticEvaluator) Evaluate(pos rules.Position) int {
	switch pos.Status() {
	case rules.Checkmate:
		if pos.SideToMove() == rules.White {
			return -CheckmateScore
		}
		return CheckmateScore
	case rules.Stalemate, rules.Draw:
		return 0
	}

	h := Hash(pos.Key())
	score, ok := e.cache.Probe(h)
	if !ok {
		score = e.Static(pos) + e.mobility(pos)
		e.cache.Store(h, score)
	}

	if e.jitter > 0 {
		score += e.rng.Intn(2*e.jitter+1) - e.jitter
	}
	return score
}

// mobility scores the legal-move difference from White's perspective.
func (e *StaticEvaluator) mobility(pos rules.Position) int {
	stm := pos.SideToMove()
	m := (pos.MoveCount(stm) - pos.MoveCount(stm.Other())) * e.mobilityWeight
	if stm == rules.Black {
		m = -m
	}
	return m
}

// Static returns the board-only terms: material, PSTs, bishop pair,
// king shelter and doubled pawns.
func (e *StaticEvaluator) Static(pos rules.Position) int {
	var (
		score       int
		bishops     [2]int
		pawnsOnFile [2][8]int
		kings       = [2]rules.Square{-1, -1}
	)

	for sq := rules.Square(0); sq < 64; sq++ {
		p := pos.PieceAt(sq)
		if p.Empty() {
			continue
		}
		sign := 1
		if p.Color == rules.Black {
			sign = -1
		}

		score += sign * (pieceValues[p.Type] + psts[p.Type][pstIndex(sq, p.Color)])

		switch p.Type {
		case rules.Bishop:
			bishops[p.Color]++
		case rules.Pawn:
			pawnsOnFile[p.Color][sq.File()]++
		case rules.King:
			kings[p.Color] = sq
		}
	}

	for c := rules.White; c <= rules.Black; c++ {
		sign := 1
		if c == rules.Black {
			sign = -1
		}
		if bishops[c] >= 2 {
			score += sign * bishopPairBonus
		}
		for _, n := range pawnsOnFile[c] {
			if n > 1 {
				score -= sign * (n - 1) * doubledPawnPenalty
			}
		}
		if kings[c] >= 0 {
			score += sign * kingShelter(pos, kings[c], c) * kingShelterBonus
		}
	}
	return score
}

// kingShelter counts own non-king pieces on the squares adjacent to the king.
func kingShelter(pos rules.Position, king rules.Square, c rules.Color) int {
	n := 0
	for df := -1; df <= 1; df++ {
		for dr := -1; dr <= 1; dr++ {
			f, r := king.File()+df, king.Rank()+dr
			if (df == 0 && dr == 0) || f < 0 || f > 7 || r < 0 || r > 7 {
				continue
			}
			if p := pos.PieceAt(rules.NewSquare(f, r)); !p.Empty() && p.Color == c && p.Type != rules.King {
				n++
			}
		}
	}
	return n
}
