package engine

import "github.com/hailam/chessmind/internal/rules"

// KillerTable stores, per ply from the root, the two quiet moves that most
// recently caused a cutoff.
type KillerTable struct {
	slots [MaxPly][2]rules.Move
}

// NewKillerTable creates an empty killer table.
func NewKillerTable() *KillerTable {
	return &KillerTable{}
}

// Add records a cutoff move at ply. The previous first killer moves to the
// second slot unless the new move duplicates it.
func (k *KillerTable) Add(ply int, m rules.Move) {
	if ply < 0 || ply >= MaxPly {
		return
	}
	if k.slots[ply][0].Same(m) {
		return
	}
	k.slots[ply][1] = k.slots[ply][0]
	k.slots[ply][0] = m
}

// Get returns the killers recorded at ply; unused slots are rules.NoMove.
func (k *KillerTable) Get(ply int) (first, second rules.Move) {
	if ply < 0 || ply >= MaxPly {
		return rules.NoMove, rules.NoMove
	}
	return k.slots[ply][0], k.slots[ply][1]
}

// Clear resets the killer table for a new search.
func (k *KillerTable) Clear() {
	k.slots = [MaxPly][2]rules.Move{}
}
