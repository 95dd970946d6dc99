package dss

import "sync/atomic"

// Concurrent is a lock-free disjoint-set struct. Parent slots are updated
// with compare-and-swap only.
//
// Roots are linked by a fixed pseudo-random priority: the root with the lower
// priority always becomes the child. Priorities therefore strictly increase
// along every parent chain, which keeps the forest acyclic under concurrent
// links and bounds the expected depth like union by rank does. Find halves
// the path it walks.
type Concurrent struct {
	parent []atomic.Int64
	sets   atomic.Int64
}

// NewConcurrent creates n singleton sets.
func NewConcurrent(n int64) *Concurrent {
	c := &Concurrent{parent: make([]atomic.Int64, n)}
	for i := range c.parent {
		c.parent[i].Store(int64(i))
	}
	c.sets.Store(n)
	return c
}

func (c *Concurrent) NodeCount() int64 { return int64(len(c.parent)) }
func (c *Concurrent) SetCount() int64  { return c.sets.Load() }

// mix64 is the splitmix64 finalizer.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// below reports whether a ranks below b in the linking order.
func below(a, b int64) bool {
	pa, pb := mix64(uint64(a)), mix64(uint64(b))
	if pa != pb {
		return pa < pb
	}
	return a < b
}

// Find implements Struct.
func (c *Concurrent) Find(x int64) int64 {
	checkRange(x, c.NodeCount())
	for {
		p := c.parent[x].Load()
		if p == x {
			return x
		}
		gp := c.parent[p].Load()
		if p != gp {
			c.parent[x].CompareAndSwap(p, gp)
		}
		x = gp
	}
}

// Union implements Struct.
func (c *Concurrent) Union(a, b int64) bool {
	for {
		ra, rb := c.Find(a), c.Find(b)
		if ra == rb {
			return false
		}
		if below(rb, ra) {
			ra, rb = rb, ra
		}
		// ra has the lower priority; it must still be a root to be linked.
		if c.parent[ra].CompareAndSwap(ra, rb) {
			c.sets.Add(-1)
			return true
		}
	}
}

// Connected implements Struct. The answer is exact for unions that completed
// before the call.
func (c *Concurrent) Connected(a, b int64) bool {
	for {
		ra, rb := c.Find(a), c.Find(b)
		if ra == rb {
			return true
		}
		if c.parent[ra].Load() == ra {
			return false
		}
	}
}

var _ Struct = (*Concurrent)(nil)
