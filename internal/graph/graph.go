// Package graph defines the read-only compacted graph contract shared by the
// loader, the graph variants and the algorithms built on top of them.
package graph

import (
	"fmt"
	"strings"
)

// Direction selects which relationships are materialized on load and which
// adjacency rows are visited on traversal.
type Direction uint8

const (
	Outgoing Direction = iota + 1
	Incoming
	Both
)

// ParseDirection parses OUTGOING, INCOMING or BOTH (case-insensitive; OUT and
// IN are accepted as well).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OUTGOING", "OUT":
		return Outgoing, nil
	case "INCOMING", "IN":
		return Incoming, nil
	case "BOTH":
		return Both, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "OUTGOING"
	case Incoming:
		return "INCOMING"
	case Both:
		return "BOTH"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	v, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// HasOutgoing reports whether d includes the outgoing side.
func (d Direction) HasOutgoing() bool { return d == Outgoing || d == Both }

// HasIncoming reports whether d includes the incoming side.
func (d Direction) HasIncoming() bool { return d == Incoming || d == Both }

// RelationshipVisitor receives one adjacency entry. Returning false stops the
// traversal.
type RelationshipVisitor func(source, target int64, weight float64) bool

// IDMapping translates between external and dense internal node ids.
type IDMapping interface {
	ToInternal(external int64) (int64, error)
	ToExternal(internal int64) int64
	NodeCount() int64
}

// NodeIterator visits internal node ids in ascending order until fn returns false.
type NodeIterator interface {
	ForEachNode(fn func(node int64) bool)
}

// Graph is the immutable compacted graph. All methods are safe for concurrent use.
type Graph interface {
	IDMapping
	NodeIterator

	// ForEachRelationship visits the adjacency entries of node selected by dir
	// in insertion order. Both visits the incoming row, then the outgoing row.
	ForEachRelationship(node int64, dir Direction, visit RelationshipVisitor)
	// WeightOf returns the weight last written for the ordered pair, or the
	// default weight.
	WeightOf(source, target int64) float64
	Degree(node int64, dir Direction) int
	RelationshipCount() int64
	LoadedDirection() Direction
}
