package book

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/hailam/chessmind/internal/rules"
)

// errNoMatch is returned when no catalogued candidate is legal in a position.
var errNoMatch = errors.New("book: no legal candidate")

// Rand is the source used to pick among candidates.
type Rand interface {
	Intn(n int) int
}

// Book maps normalized position keys to candidate moves in coordinate notation.
// A Book is not safe for concurrent use.
type Book struct {
	entries map[string][]string
	rng     Rand
}

// New creates an empty book. A nil rng selects a cryptographically seeded source.
func New(rng Rand) *Book {
	if rng == nil {
		rng = frand.New()
	}
	return &Book{
		entries: make(map[string][]string),
		rng:     rng,
	}
}

// catalogue lists lines from the start position and the replies known for
// the position each line reaches, one "line : replies" per row.
const catalogue = `
: e2e4 d2d4 c2c4 g1f3
e2e4 : e7e5 c7c5 e7e6 c7c6
d2d4 : d7d5 g8f6
c2c4 : e7e5 g8f6 c7c5
g1f3 : d7d5 g8f6
e2e4 e7e5 : g1f3 f1c4 b1c3
e2e4 c7c5 : g1f3 b1c3
e2e4 e7e6 : d2d4
e2e4 c7c6 : d2d4
d2d4 d7d5 : c2c4 g1f3
d2d4 g8f6 : c2c4 g1f3
e2e4 e7e5 g1f3 : b8c6 g8f6
e2e4 e7e5 g1f3 b8c6 : f1b5 f1c4 d2d4
`

// Default returns a book holding the start position and common early replies.
func Default(rng Rand) *Book {
	b, err := Load(strings.NewReader(catalogue), rng)
	if err != nil {
		panic(err)
	}
	return b
}

// Load reads a catalogue from r. Each non-empty row is a line of moves played
// from the start position, a colon, and the candidate replies in the position
// the line reaches. Rows starting with '#' are ignored. Every move is checked
// for legality while loading.
func Load(r io.Reader, rng Rand) (*Book, error) {
	b := New(rng)
	sc := bufio.NewScanner(r)
	row := 0
	for sc.Scan() {
		row++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		line, replies, ok := strings.Cut(text, ":")
		if !ok {
			return nil, fmt.Errorf("book row %d: missing ':'", row)
		}
		pos := rules.NewGame()
		for _, tok := range strings.Fields(line) {
			m, err := rules.ParseMove(pos, tok)
			if err != nil {
				return nil, fmt.Errorf("book row %d: %w", row, err)
			}
			if err := pos.Apply(m); err != nil {
				return nil, fmt.Errorf("book row %d: %w", row, err)
			}
		}
		moves := strings.Fields(replies)
		for _, tok := range moves {
			if _, err := rules.ParseMove(pos, tok); err != nil {
				return nil, fmt.Errorf("book row %d: %w", row, err)
			}
		}
		b.Add(pos.Key(), moves...)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

// Add records candidate moves for a position key or FEN. Duplicates are dropped.
func (b *Book) Add(key string, moves ...string) {
	k := rules.NormalizedKey(key)
	b.entries[k] = lo.Uniq(append(b.entries[k], moves...))
}

// Candidates returns the catalogued moves for a position key or FEN.
func (b *Book) Candidates(key string) []string {
	return append([]string(nil), b.entries[rules.NormalizedKey(key)]...)
}

// Probe picks one of the legal catalogued moves for pos uniformly at random.
func (b *Book) Probe(pos rules.Position) (rules.Move, bool) {
	m, err := b.pick(pos)
	if err != nil {
		return rules.NoMove, false
	}
	return m, true
}

func (b *Book) pick(pos rules.Position) (rules.Move, error) {
	cands := b.entries[rules.NormalizedKey(pos.Key())]
	legal := lo.FilterMap(cands, func(tok string, _ int) (rules.Move, bool) {
		m, err := rules.ParseMove(pos, tok)
		return m, err == nil
	})
	if len(legal) == 0 {
		return rules.NoMove, errNoMatch
	}
	return legal[b.rng.Intn(len(legal))], nil
}

// Size returns the number of positions in the book.
func (b *Book) Size() int {
	return len(b.entries)
}
