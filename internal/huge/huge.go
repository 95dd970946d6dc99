// Package huge implements the paged compressed-sparse-row graph for node
// counts beyond the heavy variant's 32-bit range. Adjacency of all nodes is
// packed into paged target and weight arrays addressed through an offset table.
package huge

import (
	"math"

	"github.com/efebarandurmaz/forge/internal/adjacency"
	"github.com/efebarandurmaz/forge/internal/graph"
	"github.com/efebarandurmaz/forge/internal/idmap"
	"github.com/efebarandurmaz/forge/internal/weights"
)

// Capacity is the largest node count the huge variant addresses.
const Capacity = math.MaxInt64 - 1

type csr struct {
	offsets []int64
	targets *pages[int64]
	weights *pages[float64]
}

// pack copies the rows into CSR pages and releases them as it goes.
func pack(lists *adjacency.Lists, slots *weights.Slots) *csr {
	if lists == nil {
		return nil
	}
	n := lists.NodeCount()
	offsets := make([]int64, n+1)
	for i := int64(0); i < n; i++ {
		offsets[i+1] = offsets[i] + int64(lists.Len(i))
	}
	c := &csr{
		offsets: offsets,
		targets: newPages[int64](offsets[n]),
		weights: newPages[float64](offsets[n]),
	}
	for i := int64(0); i < n; i++ {
		c.targets.copyInto(offsets[i], lists.Row(i))
		c.weights.copyInto(offsets[i], slots.Row(i))
		lists.Release(i)
		slots.Release(i)
	}
	return c
}

func (c *csr) visit(node int64, visit graph.RelationshipVisitor) bool {
	if c == nil {
		return true
	}
	for i, end := c.offsets[node], c.offsets[node+1]; i < end; i++ {
		if !visit(node, c.targets.get(i), c.weights.get(i)) {
			return false
		}
	}
	return true
}

func (c *csr) degree(node int64) int {
	if c == nil {
		return 0
	}
	return int(c.offsets[node+1] - c.offsets[node])
}

func (c *csr) total() int64 {
	if c == nil {
		return 0
	}
	return c.offsets[len(c.offsets)-1]
}

// Graph is immutable after New.
type Graph struct {
	ids   *idmap.IDMap
	dir   graph.Direction
	out   *csr
	in    *csr
	pairs *weights.Pairs
}

// New packs the loaded sides into CSR form. Nil lists mark a side that was not
// loaded. The row builders are emptied.
func New(ids *idmap.IDMap, dir graph.Direction, out *adjacency.Lists, outW *weights.Slots, in *adjacency.Lists, inW *weights.Slots, pairs *weights.Pairs) *Graph {
	return &Graph{
		ids:   ids,
		dir:   dir,
		out:   pack(out, outW),
		in:    pack(in, inW),
		pairs: pairs,
	}
}

func (g *Graph) ToInternal(external int64) (int64, error) { return g.ids.ToInternal(external) }
func (g *Graph) ToExternal(internal int64) int64          { return g.ids.ToExternal(internal) }
func (g *Graph) NodeCount() int64                         { return g.ids.NodeCount() }
func (g *Graph) ForEachNode(fn func(node int64) bool)     { g.ids.ForEachNode(fn) }
func (g *Graph) LoadedDirection() graph.Direction         { return g.dir }
func (g *Graph) RelationshipCount() int64                 { return g.out.total() + g.in.total() }
func (g *Graph) WeightOf(source, target int64) float64    { return g.pairs.Get(source, target) }

// ForEachRelationship implements graph.Graph.
func (g *Graph) ForEachRelationship(node int64, dir graph.Direction, visit graph.RelationshipVisitor) {
	if dir.HasIncoming() && !g.in.visit(node, visit) {
		return
	}
	if dir.HasOutgoing() {
		g.out.visit(node, visit)
	}
}

// Degree implements graph.Graph.
func (g *Graph) Degree(node int64, dir graph.Direction) int {
	d := 0
	if dir.HasOutgoing() {
		d += g.out.degree(node)
	}
	if dir.HasIncoming() {
		d += g.in.degree(node)
	}
	return d
}

var _ graph.Graph = (*Graph)(nil)
