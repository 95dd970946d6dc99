// Package idmap assigns dense internal ids to external node ids.
//
// The forward direction is a hash table built once at load time; the reverse
// direction is a plain array so algorithm code only ever indexes by internal id.
package idmap

import (
	"context"
	"fmt"
	"iter"

	"github.com/efebarandurmaz/forge/internal/graph"
)

// IDMap is an immutable bijection between external ids and [0, NodeCount).
type IDMap struct {
	toInternal map[int64]int64
	toExternal []int64
}

// Builder assigns internal ids in encounter order.
type Builder struct {
	capacity   int64
	toInternal map[int64]int64
	toExternal []int64
}

// NewBuilder creates a builder that refuses more than capacity nodes.
// A capacity <= 0 means unbounded.
func NewBuilder(capacity int64) *Builder {
	return &Builder{
		capacity:   capacity,
		toInternal: make(map[int64]int64),
	}
}

// Add registers an external id and returns its internal id. Registering an id
// twice returns the id assigned first.
func (b *Builder) Add(external int64) (int64, error) {
	if id, ok := b.toInternal[external]; ok {
		return id, nil
	}
	next := int64(len(b.toExternal))
	if b.capacity > 0 && next >= b.capacity {
		return 0, &graph.CapacityExceededError{What: "node", Count: next + 1, Limit: b.capacity}
	}
	b.toInternal[external] = next
	b.toExternal = append(b.toExternal, external)
	return next, nil
}

// Build freezes the builder. The builder must not be used afterwards.
func (b *Builder) Build() *IDMap {
	m := &IDMap{toInternal: b.toInternal, toExternal: b.toExternal}
	b.toInternal, b.toExternal = nil, nil
	return m
}

// FromSource builds an IDMap in a single pass over the source's nodes.
func FromSource(ctx context.Context, src graph.Source, capacity int64) (*IDMap, error) {
	b := NewBuilder(capacity)
	err := src.ForEachNode(ctx, func(id int64) error {
		_, err := b.Add(id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("collecting nodes: %w", err)
	}
	return b.Build(), nil
}

// ToInternal returns the internal id of external.
func (m *IDMap) ToInternal(external int64) (int64, error) {
	id, ok := m.toInternal[external]
	if !ok {
		return 0, &graph.NotFoundError{ID: external}
	}
	return id, nil
}

// ToExternal returns the external id of internal. It panics when internal is
// out of range.
func (m *IDMap) ToExternal(internal int64) int64 {
	return m.toExternal[internal]
}

// Contains reports whether external was registered.
func (m *IDMap) Contains(external int64) bool {
	_, ok := m.toInternal[external]
	return ok
}

// NodeCount returns the number of registered nodes.
func (m *IDMap) NodeCount() int64 {
	return int64(len(m.toExternal))
}

// ForEachNode visits internal ids in assignment order until fn returns false.
func (m *IDMap) ForEachNode(fn func(node int64) bool) {
	for i := range m.toExternal {
		if !fn(int64(i)) {
			return
		}
	}
}

// Nodes returns the internal ids in assignment order.
func (m *IDMap) Nodes() iter.Seq[int64] {
	return func(yield func(int64) bool) {
		m.ForEachNode(yield)
	}
}

// ExternalRange copies the external ids of internal ids [lo, hi) into dst and
// returns it.
func (m *IDMap) ExternalRange(dst []int64, lo, hi int64) []int64 {
	return append(dst[:0], m.toExternal[lo:hi]...)
}

var (
	_ graph.IDMapping    = (*IDMap)(nil)
	_ graph.NodeIterator = (*IDMap)(nil)
)
