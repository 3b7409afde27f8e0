package engine

import (
	"github.com/cespare/xxhash/v2"
	"github.com/hailam/chessmind/internal/rules"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// TTEntry is a cached search result. Score is stored from White's point of view
// so an entry stays valid whichever color maximizes in a later episode.
type TTEntry struct {
	BestMove rules.Move
	Score    int
	Depth    int
	Flag     TTFlag
}

// Approximate footprint of one entry including map overhead.
const ttEntryBytes = 96

// TranspositionTable maps position keys to search results. Entries are never
// evicted; once the table is full, only keys already present are updated.
// It is owned by a single Session and not safe for concurrent use.
type TranspositionTable struct {
	entries    map[uint64]TTEntry
	maxEntries int

	hits   uint64
	probes uint64
}

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	maxEntries := sizeMB * 1024 * 1024 / ttEntryBytes
	if maxEntries < 1024 {
		maxEntries = 1024
	}
	return &TranspositionTable{
		entries:    make(map[uint64]TTEntry, min(maxEntries, 1<<16)),
		maxEntries: maxEntries,
	}
}

// Hash reduces a canonical position key to the table index.
func Hash(key string) uint64 {
	return xxhash.Sum64String(key)
}

// Probe looks up a position in the transposition table.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes++
	entry, ok := tt.entries[hash]
	if ok {
		tt.hits++
	}
	return entry, ok
}

// Store saves a result. An existing entry for the same key is replaced only
// by a result of equal or greater depth.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, flag TTFlag, bestMove rules.Move) {
	old, ok := tt.entries[hash]
	if ok && depth < old.Depth {
		return
	}
	if !ok && len(tt.entries) >= tt.maxEntries {
		return
	}
	if bestMove.IsNull() && ok && old.Depth == depth {
		bestMove = old.BestMove
	}
	tt.entries[hash] = TTEntry{BestMove: bestMove, Score: score, Depth: depth, Flag: flag}
}

// Clear clears the transposition table.
func (tt *TranspositionTable) Clear() {
	clear(tt.entries)
	tt.hits = 0
	tt.probes = 0
}

// HashFull returns the permille (parts per thousand) of the table that is used.
func (tt *TranspositionTable) HashFull() int {
	return clamp(len(tt.entries)*1000/tt.maxEntries, 0, 1000)
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	if tt.probes == 0 {
		return 0
	}
	return float64(tt.hits) / float64(tt.probes) * 100
}

// Len returns the number of stored entries.
func (tt *TranspositionTable) Len() int {
	return len(tt.entries)
}

// boundFlag classifies a score against the window the node was searched with.
func boundFlag(score, alpha, beta int) TTFlag {
	switch {
	case score <= alpha:
		return TTUpperBound
	case score >= beta:
		return TTLowerBound
	}
	return TTExact
}

// toWhite converts a score and its bound from the maximizing side's frame
// into White's frame; it is its own inverse.
func toWhite(score int, flag TTFlag, maximizing rules.Color) (int, TTFlag) {
	if maximizing == rules.White {
		return score, flag
	}
	switch flag {
	case TTLowerBound:
		flag = TTUpperBound
	case TTUpperBound:
		flag = TTLowerBound
	}
	return -score, flag
}

// usable reports whether a cached entry decides the node at the given depth
// and window, returning the score to use.
func (e TTEntry) usable(depth, alpha, beta int, maximizing rules.Color) (int, bool) {
	if e.Depth < depth {
		return 0, false
	}
	score, flag := toWhite(e.Score, e.Flag, maximizing)
	switch flag {
	case TTExact:
		return score, true
	case TTLowerBound:
		return score, score >= beta
	case TTUpperBound:
		return score, score <= alpha
	}
	return 0, false
}
