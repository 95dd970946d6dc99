// Package memory implements graph.Source over an in-process node and
// relationship store. It backs tests, edge-list files and small embedded uses.
package memory

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/forge/internal/graph"
)

type node struct {
	id     int64
	labels map[string]struct{}
}

type relationship struct {
	source, target int64
	relType        string
	props          graph.PropertyMap
}

// Source is an in-memory graph.Source. It is not safe for concurrent mutation;
// reads are safe once loading has finished.
type Source struct {
	nodes    []node
	index    map[int64]int
	rels     []relationship
	outgoing map[int64][]int
	incoming map[int64][]int

	label   string
	relType string
}

// New creates an empty source.
func New() *Source {
	return &Source{
		index:    make(map[int64]int),
		outgoing: make(map[int64][]int),
		incoming: make(map[int64][]int),
	}
}

// AddNode registers a node. Adding an existing id merges the labels.
func (s *Source) AddNode(id int64, labels ...string) {
	i, ok := s.index[id]
	if !ok {
		i = len(s.nodes)
		s.index[id] = i
		s.nodes = append(s.nodes, node{id: id, labels: make(map[string]struct{})})
	}
	for _, l := range labels {
		s.nodes[i].labels[l] = struct{}{}
	}
}

// AddRelationship appends a relationship. Unknown endpoints are added as
// unlabeled nodes.
func (s *Source) AddRelationship(source, target int64, relType string, props graph.PropertyMap) {
	s.AddNode(source)
	s.AddNode(target)
	idx := len(s.rels)
	s.rels = append(s.rels, relationship{source: source, target: target, relType: relType, props: props})
	s.outgoing[source] = append(s.outgoing[source], idx)
	s.incoming[target] = append(s.incoming[target], idx)
}

// NodeCount returns the number of stored nodes, ignoring filters.
func (s *Source) NodeCount() int { return len(s.nodes) }

// RelationshipCount returns the number of stored relationships, ignoring filters.
func (s *Source) RelationshipCount() int { return len(s.rels) }

// WithFilter returns a view restricted to nodes carrying label and
// relationships of relType. Empty values disable the respective filter.
func (s *Source) WithFilter(label, relType string) *Source {
	view := *s
	view.label = label
	view.relType = relType
	return &view
}

func (s *Source) nodeMatches(id int64) bool {
	if s.label == "" {
		return true
	}
	i, ok := s.index[id]
	if !ok {
		return false
	}
	_, ok = s.nodes[i].labels[s.label]
	return ok
}

func (s *Source) relMatches(r relationship) bool {
	if s.relType != "" && r.relType != s.relType {
		return false
	}
	return s.nodeMatches(r.source) && s.nodeMatches(r.target)
}

// ForEachNode implements graph.Source.
func (s *Source) ForEachNode(ctx context.Context, fn func(id int64) error) error {
	for _, n := range s.nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.nodeMatches(n.id) {
			continue
		}
		if err := fn(n.id); err != nil {
			return err
		}
	}
	return nil
}

// ForEachRelationship implements graph.Source.
func (s *Source) ForEachRelationship(ctx context.Context, nodes []int64, dir graph.Direction, fn func(graph.Relationship) error) error {
	if dir != graph.Outgoing && dir != graph.Incoming && dir != graph.Both {
		return fmt.Errorf("invalid direction %v", dir)
	}
	for _, id := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if dir.HasOutgoing() {
			if err := s.emit(s.outgoing[id], fn); err != nil {
				return err
			}
		}
		if dir.HasIncoming() {
			if err := s.emit(s.incoming[id], fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Source) emit(indexes []int, fn func(graph.Relationship) error) error {
	for _, i := range indexes {
		r := s.rels[i]
		if !s.relMatches(r) {
			continue
		}
		rel := graph.Relationship{Source: r.source, Target: r.target, Type: r.relType}
		if r.props != nil {
			rel.Properties = r.props
		}
		if err := fn(rel); err != nil {
			return err
		}
	}
	return nil
}

var _ graph.Source = (*Source)(nil)
