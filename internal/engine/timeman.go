package engine

import (
	"time"

	"github.com/hailam/chessmind/internal/rules"
)

// Clock carries tournament time controls as sent by a GUI.
type Clock struct {
	Time      [2]time.Duration // Remaining time, indexed by rules.Color
	Inc       [2]time.Duration // Increment per move
	MovesToGo int              // Moves until next time control (0 = sudden death)
}

// Allocate returns the thinking time for one move by us at game ply ply,
// or 0 when the clock carries no time for us.
func (c Clock) Allocate(us rules.Color, ply int) time.Duration {
	if us > rules.Black || c.Time[us] <= 0 {
		return 0
	}
	timeLeft := c.Time[us]
	inc := c.Inc[us]

	// Sudden death: expect fewer remaining moves as the game goes on
	mtg := c.MovesToGo
	if mtg == 0 {
		mtg = clamp(50-ply/4, 10, 50)
	}

	budget := timeLeft/time.Duration(mtg) + inc*9/10
	if ply < 8 {
		budget = budget * 85 / 100
	}

	// Never use more than 80% of what is left
	return clamp(budget, 10*time.Millisecond, max(timeLeft*8/10, 10*time.Millisecond))
}
