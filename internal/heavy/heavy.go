// Package heavy implements the array-backed compacted graph: every node keeps
// its own adjacency and weight rows. It suits graphs whose node count fits a
// 32-bit id space.
package heavy

import (
	"math"

	"github.com/efebarandurmaz/forge/internal/adjacency"
	"github.com/efebarandurmaz/forge/internal/graph"
	"github.com/efebarandurmaz/forge/internal/idmap"
	"github.com/efebarandurmaz/forge/internal/weights"
)

// Capacity is the largest node count the heavy variant addresses.
const Capacity = math.MaxInt32

// Side is one direction's adjacency: target rows and their weight slots.
type Side struct {
	Targets *adjacency.Lists
	Weights *weights.Slots
}

func (s Side) loaded() bool { return s.Targets != nil }

// Graph is immutable after New.
type Graph struct {
	ids      *idmap.IDMap
	dir      graph.Direction
	out      Side
	in       Side
	pairs    *weights.Pairs
	relCount int64
}

// New assembles a graph. Sides that were not loaded are passed as zero values.
// The graph takes ownership of the rows.
func New(ids *idmap.IDMap, dir graph.Direction, out, in Side, pairs *weights.Pairs) *Graph {
	g := &Graph{ids: ids, dir: dir, out: out, in: in, pairs: pairs}
	if out.loaded() {
		g.relCount += out.Targets.Total()
	}
	if in.loaded() {
		g.relCount += in.Targets.Total()
	}
	return g
}

func (g *Graph) ToInternal(external int64) (int64, error) { return g.ids.ToInternal(external) }
func (g *Graph) ToExternal(internal int64) int64          { return g.ids.ToExternal(internal) }
func (g *Graph) NodeCount() int64                         { return g.ids.NodeCount() }
func (g *Graph) ForEachNode(fn func(node int64) bool)     { g.ids.ForEachNode(fn) }
func (g *Graph) RelationshipCount() int64                 { return g.relCount }
func (g *Graph) LoadedDirection() graph.Direction         { return g.dir }

// WeightOf implements graph.Graph.
func (g *Graph) WeightOf(source, target int64) float64 {
	return g.pairs.Get(source, target)
}

// ForEachRelationship implements graph.Graph.
func (g *Graph) ForEachRelationship(node int64, dir graph.Direction, visit graph.RelationshipVisitor) {
	if dir.HasIncoming() && !visitSide(g.in, node, visit) {
		return
	}
	if dir.HasOutgoing() {
		visitSide(g.out, node, visit)
	}
}

func visitSide(s Side, node int64, visit graph.RelationshipVisitor) bool {
	if !s.loaded() {
		return true
	}
	ws := s.Weights.Row(node)
	for i, t := range s.Targets.Row(node) {
		if !visit(node, t, ws[i]) {
			return false
		}
	}
	return true
}

// Degree implements graph.Graph.
func (g *Graph) Degree(node int64, dir graph.Direction) int {
	d := 0
	if dir.HasOutgoing() && g.out.loaded() {
		d += g.out.Targets.Len(node)
	}
	if dir.HasIncoming() && g.in.loaded() {
		d += g.in.Targets.Len(node)
	}
	return d
}

var _ graph.Graph = (*Graph)(nil)
