package dss

import (
	"cmp"
	"iter"
	"slices"

	"github.com/efebarandurmaz/forge/internal/graph"
)

// Record is one node of a result stream.
type Record struct {
	NodeID int64 `json:"nodeId"`
	SetID  int64 `json:"setId"`
}

// SetSize is the member count of one set.
type SetSize struct {
	SetID int64 `json:"setId"`
	Size  int64 `json:"size"`
}

// Result is the read-only view of a finished disjoint-set computation.
type Result struct {
	s Struct
}

// NewResult wraps s. It panics when s is nil.
func NewResult(s Struct) *Result {
	if s == nil {
		panic("dss: nil struct")
	}
	return &Result{s: s}
}

// SetCount returns the number of disjoint sets.
func (r *Result) SetCount() int64 { return r.s.SetCount() }

// NodeCount returns the number of nodes.
func (r *Result) NodeCount() int64 { return r.s.NodeCount() }

// SetOf returns the set id of an internal node.
func (r *Result) SetOf(node int64) int64 { return r.s.Find(node) }

// ResultStream yields one record per internal id in ascending order, with the
// node id translated by ids. The sequence is lazy and can be iterated again.
func (r *Result) ResultStream(ids graph.IDMapping) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		n := r.s.NodeCount()
		for i := int64(0); i < n; i++ {
			if !yield(Record{NodeID: ids.ToExternal(i), SetID: r.s.Find(i)}) {
				return
			}
		}
	}
}

// ForEach calls fn with every node of nodes and its set id until fn returns
// false.
func (r *Result) ForEach(nodes graph.NodeIterator, fn func(node, set int64) bool) {
	nodes.ForEachNode(func(node int64) bool {
		return fn(node, r.s.Find(node))
	})
}

// SetSizes returns the member count per set id.
func (r *Result) SetSizes() map[int64]int64 {
	sizes := make(map[int64]int64, r.s.SetCount())
	n := r.s.NodeCount()
	for i := int64(0); i < n; i++ {
		sizes[r.s.Find(i)]++
	}
	return sizes
}

// Largest returns up to k sets, largest first. Sets of equal size are ordered
// by set id. A k <= 0 returns every set.
func (r *Result) Largest(k int) []SetSize {
	sizes := r.SetSizes()
	out := make([]SetSize, 0, len(sizes))
	for id, size := range sizes {
		out = append(out, SetSize{SetID: id, Size: size})
	}
	slices.SortFunc(out, func(a, b SetSize) int {
		if c := cmp.Compare(b.Size, a.Size); c != 0 {
			return c
		}
		return cmp.Compare(a.SetID, b.SetID)
	})
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}
