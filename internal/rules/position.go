package rules

import (
	"errors"
	"strings"
)

var (
	// ErrIllegalMove is returned when a move is not legal in the current position.
	ErrIllegalMove = errors.New("illegal move")
	// ErrNoHistory is returned by Undo when no move has been applied.
	ErrNoHistory = errors.New("no move to undo")
)

// Position is the rules-engine capability consumed by the search.
// Apply and Undo mutate the position in place; a search must leave it
// exactly as it found it.
type Position interface {
	SideToMove() Color
	LegalMoves() []Move
	Captures() []Move
	Apply(m Move) error
	Undo() error
	Status() Status
	// Key is canonical over placement, side to move, castling and en passant.
	Key() string
	FEN() string
	PieceAt(sq Square) Piece
	// MoveCount is the legal-move count for c; for the side not to move it is
	// taken from the same placement with the turn flipped.
	MoveCount(c Color) int
}

// NormalizedKey reduces a canonical key (or a FEN) to piece placement and
// side to move, ignoring castling, en passant and move counters.
func NormalizedKey(key string) string {
	fields := strings.Fields(key)
	if len(fields) < 2 {
		return key
	}
	return fields[0] + " " + fields[1]
}

// Winner returns the side that delivered mate, or NoColor when pos is not checkmate.
func Winner(pos Position) Color {
	if pos.Status() != Checkmate {
		return NoColor
	}
	return pos.SideToMove().Other()
}
