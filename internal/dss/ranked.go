package dss

// Ranked is the sequential disjoint-set struct: union by rank with full path
// compression. It is not safe for concurrent use.
type Ranked struct {
	parent []int64
	rank   []uint8
	sets   int64
}

// NewRanked creates n singleton sets.
func NewRanked(n int64) *Ranked {
	parent := make([]int64, n)
	for i := range parent {
		parent[i] = int64(i)
	}
	return &Ranked{parent: parent, rank: make([]uint8, n), sets: n}
}

func (r *Ranked) NodeCount() int64 { return int64(len(r.parent)) }
func (r *Ranked) SetCount() int64  { return r.sets }

// Find implements Struct.
func (r *Ranked) Find(x int64) int64 {
	checkRange(x, r.NodeCount())
	root := x
	for r.parent[root] != root {
		root = r.parent[root]
	}
	for r.parent[x] != root {
		next := r.parent[x]
		r.parent[x] = root
		x = next
	}
	return root
}

// Union implements Struct.
func (r *Ranked) Union(a, b int64) bool {
	ra, rb := r.Find(a), r.Find(b)
	if ra == rb {
		return false
	}
	switch {
	case r.rank[ra] < r.rank[rb]:
		r.parent[ra] = rb
	case r.rank[ra] > r.rank[rb]:
		r.parent[rb] = ra
	default:
		r.parent[rb] = ra
		r.rank[ra]++
	}
	r.sets--
	return true
}

// Connected implements Struct.
func (r *Ranked) Connected(a, b int64) bool {
	return r.Find(a) == r.Find(b)
}

var _ Struct = (*Ranked)(nil)
