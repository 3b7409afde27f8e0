package book

import (
	"github.com/notnil/chess"
	"github.com/notnil/chess/opening"
)

// ECO names openings from the Encyclopaedia of Chess Openings.
type ECO struct {
	book *opening.BookECO
}

// NewECO loads the ECO classification.
func NewECO() *ECO {
	return &ECO{book: opening.NewBookECO()}
}

// Name returns the ECO code and title of the most specific opening matching
// the moves played from the start position. Both are empty when no opening
// matches or a move cannot be decoded.
func (e *ECO) Name(moves []string) (code, title string) {
	g := chess.NewGame()
	for _, tok := range moves {
		m, err := chess.UCINotation{}.Decode(g.Position(), tok)
		if err != nil {
			return "", ""
		}
		if err := g.Move(m); err != nil {
			return "", ""
		}
	}
	o := e.book.Find(g.Moves())
	if o == nil {
		return "", ""
	}
	return o.Code(), o.Title()
}
