package engine

import (
	"fmt"
	"math/rand"

	"github.com/hailam/chessmind/internal/rules"
)

// node is a synthetic game-tree node; value is White-relative and used as the
// static evaluation when the search stops at the node.
type node struct {
	value    int
	children []*node
}

// treePos walks a synthetic tree through the rules.Position interface.
type treePos struct {
	root *node
	path []*node
	side rules.Color // side to move at the root
}

func newTreePos(root *node, side rules.Color) *treePos {
	return &treePos{root: root, path: []*node{root}, side: side}
}

func (p *treePos) cur() *node { return p.path[len(p.path)-1] }

func (p *treePos) SideToMove() rules.Color {
	if len(p.path)%2 == 1 {
		return p.side
	}
	return p.side.Other()
}

func treeMove(i int) rules.Move {
	return rules.Move{From: rules.Square(i), To: rules.Square(63 - i), Piece: rules.Knight}
}

func (p *treePos) LegalMoves() []rules.Move {
	moves := make([]rules.Move, len(p.cur().children))
	for i := range moves {
		moves[i] = treeMove(i)
	}
	return moves
}

func (p *treePos) Captures() []rules.Move { return nil }

func (p *treePos) Apply(m rules.Move) error {
	i := int(m.From)
	if i >= len(p.cur().children) {
		return rules.ErrIllegalMove
	}
	p.path = append(p.path, p.cur().children[i])
	return nil
}

func (p *treePos) Undo() error {
	if len(p.path) == 1 {
		return rules.ErrNoHistory
	}
	p.path = p.path[:len(p.path)-1]
	return nil
}

func (p *treePos) Status() rules.Status { return rules.Ongoing }
func (p *treePos) Key() string { return fmt.Sprintf("%p %v", p.cur(), p.SideToMove()) }
func (p *treePos) FEN() string { return p.Key() }
func (p *treePos) PieceAt(rules.Square) rules.Piece { return rules.NoPiece }
func (p *treePos) MoveCount(rules.Color) int { return len(p.cur().children) }

// treeEval reads node values straight from the tree.
type treeEval struct{}

func (treeEval) Evaluate(pos rules.Position) int {
	return pos.(*treePos).cur().value
}

// randomTree builds a tree of the given height with distinct node values.
func randomTree(rng *rand.Rand, height int) *node {
	next := rng.Perm(100000)
	i := 0
	var build func(h int) *node
	build = func(h int) *node {
		n := &node{value: next[i] - 50000}
		i++
		if h == 0 {
			return n
		}
		for k := 0; k < 2+rng.Intn(3); k++ {
			n.children = append(n.children, build(h-1))
		}
		return n
	}
	return build(height)
}

// referenceMinimax is plain minimax without pruning, scored for maxSide.
func referenceMinimax(n *node, depth int, maximizing bool, maxSide rules.Color) int {
	if depth == 0 || len(n.children) == 0 {
		if maxSide == rules.White {
			return n.value
		}
		return -n.value
	}
	best := Infinity
	if maximizing {
		best = -Infinity
	}
	for _, c := range n.children {
		v := referenceMinimax(c, depth-1, !maximizing, maxSide)
		if maximizing {
			best = max(best, v)
		} else {
			best = min(best, v)
		}
	}
	return best
}
