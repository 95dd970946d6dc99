// Package weights stores relationship weights for the compacted graph.
//
// Pairs is the last-write-wins register per node pair that backs WeightOf.
// Slots is relationship-indexed: one weight per adjacency entry, laid out
// parallel to the adjacency rows so traversal never hashes.
package weights

type pairKey struct {
	s, t int64
}

// Pairs maps node pairs to weights. In symmetric mode (s, t) and (t, s)
// address the same register.
//
// Registers are sharded by their owning node: s for directed pairs, max(s, t)
// for symmetric ones. Set may be called concurrently as long as each shard is
// written by a single goroutine; Get and Lookup are safe once writes are done.
type Pairs struct {
	shards        []map[pairKey]float64
	shardSize     int64
	symmetric     bool
	defaultWeight float64
}

// NewPairs creates a register set for nodeCount nodes split into shards of
// shardSize consecutive owner ids.
func NewPairs(nodeCount, shardSize int64, symmetric bool, defaultWeight float64) *Pairs {
	if shardSize <= 0 {
		shardSize = 1
	}
	n := (nodeCount + shardSize - 1) / shardSize
	if n == 0 {
		n = 1
	}
	shards := make([]map[pairKey]float64, n)
	for i := range shards {
		shards[i] = make(map[pairKey]float64)
	}
	return &Pairs{
		shards:        shards,
		shardSize:     shardSize,
		symmetric:     symmetric,
		defaultWeight: defaultWeight,
	}
}

func (p *Pairs) locate(s, t int64) (pairKey, map[pairKey]float64) {
	owner := s
	if p.symmetric {
		if s > t {
			s, t = t, s
		}
		owner = t
	}
	return pairKey{s, t}, p.shards[owner/p.shardSize]
}

// Owner returns the node whose shard holds the register of (s, t).
func (p *Pairs) Owner(s, t int64) int64 {
	if p.symmetric && t > s {
		return t
	}
	return s
}

// Set overwrites the register of (s, t).
func (p *Pairs) Set(s, t int64, w float64) {
	k, shard := p.locate(s, t)
	shard[k] = w
}

// Lookup returns the register of (s, t) and whether it was ever written.
func (p *Pairs) Lookup(s, t int64) (float64, bool) {
	k, shard := p.locate(s, t)
	w, ok := shard[k]
	return w, ok
}

// Get returns the register of (s, t), or the default weight.
func (p *Pairs) Get(s, t int64) float64 {
	if w, ok := p.Lookup(s, t); ok {
		return w
	}
	return p.defaultWeight
}

// Len returns the number of written registers.
func (p *Pairs) Len() int {
	n := 0
	for _, s := range p.shards {
		n += len(s)
	}
	return n
}

// Symmetric reports whether (s, t) and (t, s) share a register.
func (p *Pairs) Symmetric() bool { return p.symmetric }

// DefaultWeight returns the weight reported for unwritten pairs.
func (p *Pairs) DefaultWeight() float64 { return p.defaultWeight }
