package engine

import (
	"sort"

	"github.com/hailam/chessmind/internal/rules"
)

// Move ordering priorities
const (
	TTMoveScore     = 10000000 // TT move gets highest priority
	GoodCaptureBase = 1000000  // Base score for captures
	KillerScore1    = 900000   // First killer move
	KillerScore2    = 800000   // Second killer move

	// Quiet-move nudges, all well below the killers.
	promotionBonus   = 5000
	checkBonus       = 1000
	centralPushBonus = 100
)

// MVV-LVA weights indexed by rules.PieceType.
var mvvLvaWeight = [7]int{
	rules.Pawn:   1,
	rules.Knight: 3,
	rules.Bishop: 3,
	rules.Rook:   5,
	rules.Queen:  9,
	rules.King:   0,
}

// mvvLva scores a capture as victim*10 - attacker.
func mvvLva(m rules.Move) int {
	return mvvLvaWeight[m.Captured]*10 - mvvLvaWeight[m.Piece]
}

// MoveOrderer handles move ordering for the search.
type MoveOrderer struct {
	killers *KillerTable
}

// NewMoveOrderer creates a move orderer reading the given killer table.
func NewMoveOrderer(killers *KillerTable) *MoveOrderer {
	return &MoveOrderer{killers: killers}
}

// ScoreMoves assigns scores to moves for ordering.
func (mo *MoveOrderer) ScoreMoves(moves []rules.Move, ply int, ttMove rules.Move) []int {
	k1, k2 := mo.killers.Get(ply)
	scores := make([]int, len(moves))
	for i, m := range moves {
		scores[i] = scoreMove(m, ttMove, k1, k2)
	}
	return scores
}

// scoreMove returns the ordering score for a single move.
func scoreMove(m, ttMove, k1, k2 rules.Move) int {
	switch {
	case !ttMove.IsNull() && m.Same(ttMove):
		return TTMoveScore
	case m.IsCapture():
		return GoodCaptureBase + mvvLva(m)
	case !k1.IsNull() && m.Same(k1):
		return KillerScore1
	case !k2.IsNull() && m.Same(k2):
		return KillerScore2
	}

	score := 0
	if m.Promotion != rules.NoPieceType {
		score += promotionBonus + pieceValues[m.Promotion]
	}
	if m.Check {
		score += checkBonus
	}
	if m.Piece == rules.Pawn && isCenter(m.To) {
		score += centralPushBonus
	}
	return score
}

func isCenter(sq rules.Square) bool {
	f, r := sq.File(), sq.Rank()
	return (f == 3 || f == 4) && (r == 3 || r == 4)
}

// Order sorts moves in place, highest priority first; equal scores keep
// generation order. A TT move or killer absent from moves is ignored.
func (mo *MoveOrderer) Order(moves []rules.Move, ply int, ttMove rules.Move) []rules.Move {
	return sortByScore(moves, mo.ScoreMoves(moves, ply, ttMove))
}

// OrderCaptures sorts captures by MVV-LVA only.
func OrderCaptures(moves []rules.Move) []rules.Move {
	scores := make([]int, len(moves))
	for i, m := range moves {
		scores[i] = mvvLva(m)
	}
	return sortByScore(moves, scores)
}

func sortByScore(moves []rules.Move, scores []int) []rules.Move {
	type scored struct {
		move  rules.Move
		score int
	}
	list := make([]scored, len(moves))
	for i := range moves {
		list[i] = scored{moves[i], scores[i]}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].score > list[j].score
	})
	for i := range list {
		moves[i] = list[i].move
	}
	return moves
}
