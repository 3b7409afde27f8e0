package engine

import (
	"testing"

	"github.com/hailam/chessmind/internal/rules"
)

// depthProbe records how far below its starting point a search went.
type depthProbe struct {
	*rules.Game
	depth, maxDepth int
}

func (p *depthProbe) Apply(m rules.Move) error {
	if err := p.Game.Apply(m); err != nil {
		return err
	}
	p.depth++
	p.maxDepth = max(p.maxDepth, p.depth)
	return nil
}

func (p *depthProbe) Undo() error {
	if err := p.Game.Undo(); err != nil {
		return err
	}
	p.depth--
	return nil
}

func TestQuiescenceTerminates(t *testing.T) {
	// Every piece hangs: a long capture chain is available in the center.
	const fen = "r1bqkb1r/pppp1ppp/2n2n2/4p3/2BPP3/5N2/PPP2PPP/RNBQK2R b KQkq d3 0 4"
	for _, cap := range []int{1, 2, 3} {
		cfg := quietConfig()
		cfg.MaxQuiescencePlies = cap
		s := NewSession(cfg)
		s.maxSide = rules.Black

		pos := &depthProbe{Game: mustFEN(t, fen)}
		v, err := s.quiesce(pos, -Infinity, Infinity, 0)
		if err != nil {
			t.Fatal(err)
		}
		if pos.maxDepth > cap {
			t.Errorf("cap %d: quiescence reached %d plies", cap, pos.maxDepth)
		}
		if pos.depth != 0 || pos.FEN() != fen {
			t.Errorf("cap %d: position not restored", cap)
		}
		if v <= -Infinity || v >= Infinity {
			t.Errorf("cap %d: unbounded score %d", cap, v)
		}
		t.Logf("cap %d: score %d, qnodes %d", cap, v, s.stats.QNodes)
	}
}

func TestQuiescenceStandPat(t *testing.T) {
	pos := mustFEN(t, "4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1")
	s := NewSession(quietConfig())
	stand := s.Evaluator().Evaluate(pos)

	// Fail-hard: a stand-pat above beta returns beta.
	if v, _ := s.quiesce(pos, -Infinity, stand-1, 0); v != stand-1 {
		t.Errorf("beta cutoff returned %d, want %d", v, stand-1)
	}
	// Winning the queen must beat standing pat.
	if v, _ := s.quiesce(pos, -Infinity, Infinity, 0); v <= stand {
		t.Errorf("quiescence %d did not find Rxd5 over stand-pat %d", v, stand)
	}
}

func TestQuiescenceResolvesHorizon(t *testing.T) {
	// White's queen can take a pawn defended by a pawn. A one-ply static
	// search likes Qxd5; quiescence sees the recapture.
	const fen = "4k3/8/2p5/3p4/8/8/8/3QK3 w - - 0 1"
	pos := mustFEN(t, fen)
	s := NewSession(quietConfig())
	res, err := s.SelectMove(pos, 1, rules.White)
	if err != nil {
		t.Fatal(err)
	}
	if res.Move.String() == "d1d5" {
		t.Errorf("depth-1 search fell for the defended pawn")
	}
}
