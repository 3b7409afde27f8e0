package engine

import (
	"testing"

	"github.com/hailam/chessmind/internal/rules"
)

func mv(from, to string, piece, captured rules.PieceType) rules.Move {
	f, _ := rules.ParseSquare(from)
	t, _ := rules.ParseSquare(to)
	return rules.Move{From: f, To: t, Piece: piece, Captured: captured}
}

func TestOrderPriorities(t *testing.T) {
	quiet1 := mv("g1", "f3", rules.Knight, rules.NoPieceType)
	quiet2 := mv("b1", "c3", rules.Knight, rules.NoPieceType)
	killer1 := mv("h2", "h3", rules.Pawn, rules.NoPieceType)
	killer2 := mv("a2", "a3", rules.Pawn, rules.NoPieceType)
	pxq := mv("e4", "d5", rules.Pawn, rules.Queen)
	qxp := mv("d1", "d7", rules.Queen, rules.Pawn)
	ttMove := mv("f1", "c4", rules.Bishop, rules.NoPieceType)

	killers := NewKillerTable()
	killers.Add(2, killer2)
	killers.Add(2, killer1)
	mo := NewMoveOrderer(killers)

	moves := []rules.Move{quiet1, killer2, qxp, quiet2, ttMove, killer1, pxq}
	got := mo.Order(moves, 2, ttMove)
	want := []rules.Move{ttMove, pxq, qxp, killer1, killer2, quiet1, quiet2}
	for i := range want {
		if !got[i].Same(want[i]) {
			t.Fatalf("position %d: got %s, want %s (order %v)", i, got[i], want[i], got)
		}
	}
}

func TestOrderIgnoresAbsentCandidates(t *testing.T) {
	a := mv("g1", "f3", rules.Knight, rules.NoPieceType)
	b := mv("b1", "c3", rules.Knight, rules.NoPieceType)
	killers := NewKillerTable()
	killers.Add(0, mv("h2", "h4", rules.Pawn, rules.NoPieceType))
	mo := NewMoveOrderer(killers)

	got := mo.Order([]rules.Move{a, b}, 0, mv("e2", "e4", rules.Pawn, rules.NoPieceType))
	if !got[0].Same(a) || !got[1].Same(b) {
		t.Errorf("absent TT/killer moves changed the order: %v", got)
	}
}

func TestQuietNudgesStayBelowKillers(t *testing.T) {
	promo := rules.Move{From: 52, To: 60, Piece: rules.Pawn, Promotion: rules.Queen, Check: true}
	k1 := mv("a2", "a3", rules.Pawn, rules.NoPieceType)
	if s := scoreMove(promo, rules.NoMove, k1, rules.NoMove); s >= KillerScore2 {
		t.Errorf("promotion nudge %d reaches killer range", s)
	}
	push := mv("e2", "e4", rules.Pawn, rules.NoPieceType)
	side := mv("a2", "a4", rules.Pawn, rules.NoPieceType)
	if scoreMove(push, rules.NoMove, rules.NoMove, rules.NoMove) <= scoreMove(side, rules.NoMove, rules.NoMove, rules.NoMove) {
		t.Error("central pawn push not preferred")
	}
}

func TestOrderCapturesMVVLVA(t *testing.T) {
	nxr := mv("c3", "d5", rules.Knight, rules.Rook)
	pxn := mv("e4", "d5", rules.Pawn, rules.Knight)
	qxq := mv("d1", "d8", rules.Queen, rules.Queen)
	kxp := mv("e1", "e2", rules.King, rules.Pawn)
	rxp := mv("a1", "a7", rules.Rook, rules.Pawn)

	got := OrderCaptures([]rules.Move{rxp, pxn, kxp, nxr, qxq})
	want := []rules.Move{qxq, nxr, pxn, kxp, rxp}
	for i := range want {
		if !got[i].Same(want[i]) {
			t.Fatalf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestOrderingStableOnTies(t *testing.T) {
	moves := []rules.Move{
		mv("a2", "a3", rules.Pawn, rules.NoPieceType),
		mv("b2", "b3", rules.Pawn, rules.NoPieceType),
		mv("g2", "g3", rules.Pawn, rules.NoPieceType),
	}
	got := NewMoveOrderer(NewKillerTable()).Order(append([]rules.Move(nil), moves...), 0, rules.NoMove)
	for i := range moves {
		if !got[i].Same(moves[i]) {
			t.Fatalf("tie order changed: %v", got)
		}
	}
}
