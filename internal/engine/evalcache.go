package engine

// evalEntry stores a cached positional score.
type evalEntry struct {
	Key   uint64
	Score int32
	Valid bool
}

// EvalCache is a direct-mapped, always-replace cache of the deterministic
// part of the evaluation (everything but terminal scores and jitter).
type EvalCache struct {
	entries []evalEntry
	mask    uint64
	hits    uint64
	probes  uint64
}

// NewEvalCache creates a cache with the given size in MB.
func NewEvalCache(sizeMB int) *EvalCache {
	// 16 bytes per entry, rounded down to a power of 2
	numEntries := max(sizeMB*1024*1024/16, 1)
	size := 1
	for size*2 <= numEntries {
		size *= 2
	}

	return &EvalCache{
		entries: make([]evalEntry, size),
		mask:    uint64(size - 1),
	}
}

// Probe looks up a score by position hash.
func (c *EvalCache) Probe(key uint64) (int, bool) {
	c.probes++
	e := &c.entries[key&c.mask]
	if e.Valid && e.Key == key {
		c.hits++
		return int(e.Score), true
	}
	return 0, false
}

// Store saves a score, replacing whatever shared its slot.
func (c *EvalCache) Store(key uint64, score int) {
	c.entries[key&c.mask] = evalEntry{Key: key, Score: int32(score), Valid: true}
}

// HitRate returns the fraction of probes that hit.
func (c *EvalCache) HitRate() float64 {
	if c.probes == 0 {
		return 0
	}
	return float64(c.hits) / float64(c.probes)
}

// Clear empties the cache.
func (c *EvalCache) Clear() {
	clear(c.entries)
	c.hits, c.probes = 0, 0
}
