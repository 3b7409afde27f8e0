package engine

import (
	"fmt"

	"github.com/hailam/chessmind/internal/rules"
)

// quiesce searches captures only, negamax style, from the side to move's
// point of view. It stands pat on the static evaluation and stops after
// MaxQuiescencePlies capture plies.
func (s *Session) quiesce(pos rules.Position, alpha, beta, qply int) (int, error) {
	s.stats.QNodes++
	if s.tick() {
		return 0, nil
	}

	standPat := s.eval.Evaluate(pos)
	if pos.SideToMove() == rules.Black {
		standPat = -standPat
	}

	if standPat >= beta {
		return beta, nil
	}
	if standPat > alpha {
		alpha = standPat
	}
	if qply >= s.cfg.MaxQuiescencePlies || pos.Status().Terminal() {
		return standPat, nil
	}

	for _, m := range OrderCaptures(pos.Captures()) {
		if err := pos.Apply(m); err != nil {
			return 0, fmt.Errorf("apply %s: %w", m, err)
		}
		v, err := s.quiesce(pos, -beta, -alpha, qply+1)
		if uerr := pos.Undo(); uerr != nil && err == nil {
			err = fmt.Errorf("undo %s: %w", m, uerr)
		}
		if err != nil || s.aborted {
			return 0, err
		}
		score := -v
		if score >= beta {
			return beta, nil
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha, nil
}
