package graph

import (
	"context"
)

// Relationship is a raw relationship record as produced by the external store.
// Source and Target always carry the store orientation, regardless of the
// direction the record was requested in.
type Relationship struct {
	Source     int64
	Target     int64
	Type       string
	Properties Properties
}

// Source provides the external property graph the core is loaded from.
type Source interface {
	// ForEachNode visits every node id exactly once, in store order.
	ForEachNode(ctx context.Context, fn func(id int64) error) error
	// ForEachRelationship visits the relationships of the given nodes. Nodes
	// are visited in request order; per node the relationships of the
	// requested direction are emitted in store order. Both emits the outgoing
	// relationships of a node before its incoming ones.
	ForEachRelationship(ctx context.Context, nodes []int64, dir Direction, fn func(Relationship) error) error
}
