package rules

import (
	"fmt"
	"strings"
)

// Move describes a move generated for one position. Piece and Captured are
// filled in by the generator; Captured is NoPieceType for quiet moves.
type Move struct {
	From      Square
	To        Square
	Promotion PieceType
	Piece     PieceType
	Captured  PieceType
	Check     bool
}

// NoMove is the zero move.
var NoMove Move

// IsNull reports whether m is the zero move.
func (m Move) IsNull() bool {
	return m.From == 0 && m.To == 0
}

// IsCapture reports whether the move removes an enemy piece (en passant included).
func (m Move) IsCapture() bool {
	return m.Captured != NoPieceType
}

// IsQuiet reports whether the move is neither a capture nor a promotion.
func (m Move) IsQuiet() bool {
	return !m.IsCapture() && m.Promotion == NoPieceType
}

// Same compares origin, destination and promotion only.
func (m Move) Same(o Move) bool {
	return m.From == o.From && m.To == o.To && m.Promotion == o.Promotion
}

// String returns the move in coordinate notation (e.g. "e2e4", "e7e8q").
func (m Move) String() string {
	if m.IsNull() {
		return "0000"
	}
	s := m.From.String() + m.To.String()
	if m.Promotion != NoPieceType {
		s += string(m.Promotion.Char())
	}
	return s
}

// ParseMove resolves a coordinate-notation token against the legal moves of pos.
func ParseMove(pos Position, token string) (Move, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	if len(token) < 4 || len(token) > 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrIllegalMove, token)
	}
	for _, m := range pos.LegalMoves() {
		if m.String() == token {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %q", ErrIllegalMove, token)
}
