package engine

import (
	"errors"
	"time"
)

// Search constants
const (
	Infinity       = 1 << 20 // Bound on any score an Evaluator may return
	CheckmateScore = 10000   // Score of a mated side, sign by mated color
	MaxPly         = 128
)

// ErrInvalidDepth is returned for a search depth below 1.
var ErrInvalidDepth = errors.New("search depth must be at least 1")

// Config holds engine tunables. Zero fields fall back to DefaultConfig.
type Config struct {
	MaxQuiescencePlies int  // Capture plies searched past the horizon
	JitterAmplitude    int  // Evaluation jitter is uniform in [-J, J]; 0 disables it
	MobilityWeight     int  // Centipawns per legal-move difference
	TTSizeMB           int  // Transposition table budget
	EvalCacheMB        int  // Evaluation cache budget
	KeepTables         bool // Reuse TT and killers across episodes instead of resetting
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		MaxQuiescencePlies: 3,
		JitterAmplitude:    3,
		MobilityWeight:     5,
		TTSizeMB:           64,
		EvalCacheMB:        8,
	}
}

// withDefaults fills unset fields. JitterAmplitude is left alone since 0 is meaningful.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxQuiescencePlies <= 0 {
		c.MaxQuiescencePlies = d.MaxQuiescencePlies
	}
	if c.MobilityWeight <= 0 {
		c.MobilityWeight = d.MobilityWeight
	}
	if c.TTSizeMB <= 0 {
		c.TTSizeMB = d.TTSizeMB
	}
	if c.EvalCacheMB <= 0 {
		c.EvalCacheMB = d.EvalCacheMB
	}
	if c.JitterAmplitude < 0 {
		c.JitterAmplitude = 0
	}
	return c
}

// SearchLimits specifies constraints on the search.
type SearchLimits struct {
	Depth    int           // Maximum depth (0 = use the difficulty default)
	Nodes    uint64        // Maximum nodes (0 = no limit)
	MoveTime time.Duration // Time for this move (0 = no limit)
	Infinite bool          // Search until stopped
}

// bounded reports whether the limits need iterative deepening.
func (l SearchLimits) bounded() bool {
	return l.Nodes > 0 || l.MoveTime > 0 || l.Infinite
}

// Difficulty represents the AI difficulty level.
type Difficulty int

const (
	Easy   Difficulty = iota // 2 ply
	Medium                   // 3 ply
	Hard                     // 4 ply
)

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	}
	return "unknown"
}

// ParseDifficulty maps a name to a Difficulty.
func ParseDifficulty(s string) (Difficulty, bool) {
	for d := Easy; d <= Hard; d++ {
		if d.String() == s {
			return d, true
		}
	}
	return Medium, false
}

// DifficultySettings maps difficulty to search limits.
var DifficultySettings = map[Difficulty]SearchLimits{
	Easy:   {Depth: 2, MoveTime: 2 * time.Second},
	Medium: {Depth: 3, MoveTime: 5 * time.Second},
	Hard:   {Depth: 4, MoveTime: 15 * time.Second},
}
