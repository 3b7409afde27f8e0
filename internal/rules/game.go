package rules

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/notnil/chess"
	"github.com/samber/lo"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Game implements Position on top of notnil/chess. Positions returned by
// notnil/chess are immutable, so Undo just pops the stack.
type Game struct {
	stack []*chess.Position
	keys  []string
	moves []Move
	legal []Move // legal moves of the top position, nil when stale
}

// NewGame returns a game at the standard initial position.
func NewGame() *Game {
	return fromPosition(chess.NewGame().Position())
}

// FromFEN returns a game starting at the given FEN.
func FromFEN(fen string) (*Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return fromPosition(chess.NewGame(opt).Position()), nil
}

func fromPosition(p *chess.Position) *Game {
	g := &Game{}
	g.push(p)
	return g
}

func (g *Game) push(p *chess.Position) {
	g.stack = append(g.stack, p)
	g.keys = append(g.keys, canonicalKey(p.String()))
	g.legal = nil
}

func (g *Game) top() *chess.Position {
	return g.stack[len(g.stack)-1]
}

// Clone returns an independent copy sharing the immutable position history.
func (g *Game) Clone() *Game {
	return &Game{
		stack: slices.Clone(g.stack),
		keys:  slices.Clone(g.keys),
		moves: slices.Clone(g.moves),
	}
}

// History returns the moves applied since the game was created.
func (g *Game) History() []Move {
	return slices.Clone(g.moves)
}

// SideToMove returns the color whose turn it is.
func (g *Game) SideToMove() Color {
	return fromColor(g.top().Turn())
}

// LegalMoves returns every legal move in generation order.
func (g *Game) LegalMoves() []Move {
	if g.legal == nil {
		p := g.top()
		g.legal = lo.Map(p.ValidMoves(), func(m *chess.Move, _ int) Move {
			return convertMove(p, m)
		})
	}
	return slices.Clone(g.legal)
}

// Captures returns the legal captures, en passant included.
func (g *Game) Captures() []Move {
	return lo.Filter(g.LegalMoves(), func(m Move, _ int) bool {
		return m.IsCapture()
	})
}

// Apply plays m, which must match a legal move by origin, destination and promotion.
func (g *Game) Apply(m Move) error {
	p := g.top()
	for _, cm := range p.ValidMoves() {
		if int(cm.S1()) == int(m.From) && int(cm.S2()) == int(m.To) && fromPieceType(cm.Promo()) == m.Promotion {
			g.push(p.Update(cm))
			g.moves = append(g.moves, convertMove(p, cm))
			return nil
		}
	}
	return fmt.Errorf("%w: %s in %s", ErrIllegalMove, m, p.String())
}

// Undo takes back the last applied move.
func (g *Game) Undo() error {
	if len(g.moves) == 0 {
		return ErrNoHistory
	}
	g.stack = g.stack[:len(g.stack)-1]
	g.keys = g.keys[:len(g.keys)-1]
	g.moves = g.moves[:len(g.moves)-1]
	g.legal = nil
	return nil
}

// Status reports checkmate, stalemate, or a draw by insufficient material,
// the fifty-move rule or threefold repetition.
func (g *Game) Status() Status {
	p := g.top()
	switch p.Status() {
	case chess.Checkmate:
		return Checkmate
	case chess.Stalemate:
		return Stalemate
	}
	if g.insufficientMaterial() || g.halfmoveClock() >= 100 || g.repetitions() >= 3 {
		return Draw
	}
	return Ongoing
}

// Key returns placement, side to move, castling rights and en passant square.
func (g *Game) Key() string {
	return g.keys[len(g.keys)-1]
}

// FEN returns the full FEN of the current position.
func (g *Game) FEN() string {
	return g.top().String()
}

// PieceAt returns the piece on sq.
func (g *Game) PieceAt(sq Square) Piece {
	return fromPiece(g.top().Board().Piece(chess.Square(sq)))
}

// MoveCount returns the number of legal moves available to c.
func (g *Game) MoveCount(c Color) int {
	if c == g.SideToMove() {
		if g.legal != nil {
			return len(g.legal)
		}
		return len(g.top().ValidMoves())
	}
	fields := strings.Fields(g.FEN())
	if len(fields) < 4 {
		return 0
	}
	fields[1] = map[string]string{"w": "b", "b": "w"}[fields[1]]
	fields[3] = "-"
	opt, err := chess.FEN(strings.Join(fields, " "))
	if err != nil {
		return 0
	}
	return len(chess.NewGame(opt).Position().ValidMoves())
}

func (g *Game) halfmoveClock() int {
	fields := strings.Fields(g.FEN())
	if len(fields) < 5 {
		return 0
	}
	n, _ := strconv.Atoi(fields[4])
	return n
}

func (g *Game) repetitions() int {
	key := g.Key()
	return lo.Count(g.keys, key)
}

// insufficientMaterial covers bare kings and a single minor piece.
func (g *Game) insufficientMaterial() bool {
	minors := 0
	for sq := Square(0); sq < 64; sq++ {
		switch g.PieceAt(sq).Type {
		case Pawn, Rook, Queen:
			return false
		case Knight, Bishop:
			minors++
		}
	}
	return minors <= 1
}

func canonicalKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

func convertMove(p *chess.Position, cm *chess.Move) Move {
	board := p.Board()
	m := Move{
		From:      Square(cm.S1()),
		To:        Square(cm.S2()),
		Promotion: fromPieceType(cm.Promo()),
		Piece:     fromPieceType(board.Piece(cm.S1()).Type()),
		Check:     cm.HasTag(chess.Check),
	}
	switch {
	case cm.HasTag(chess.EnPassant):
		m.Captured = Pawn
	case cm.HasTag(chess.Capture):
		m.Captured = fromPieceType(board.Piece(cm.S2()).Type())
	}
	return m
}

func fromColor(c chess.Color) Color {
	switch c {
	case chess.White:
		return White
	case chess.Black:
		return Black
	}
	return NoColor
}

func fromPieceType(pt chess.PieceType) PieceType {
	switch pt {
	case chess.Pawn:
		return Pawn
	case chess.Knight:
		return Knight
	case chess.Bishop:
		return Bishop
	case chess.Rook:
		return Rook
	case chess.Queen:
		return Queen
	case chess.King:
		return King
	}
	return NoPieceType
}

func fromPiece(p chess.Piece) Piece {
	if p == chess.NoPiece {
		return NoPiece
	}
	return Piece{Type: fromPieceType(p.Type()), Color: fromColor(p.Color())}
}
