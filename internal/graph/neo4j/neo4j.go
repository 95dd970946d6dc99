// Package neo4j implements graph.Source on top of a Neo4j database.
package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/efebarandurmaz/forge/internal/graph"
)

// Options restrict what is read from the database.
type Options struct {
	Database         string
	Label            string // empty reads all nodes
	RelationshipType string // empty reads all relationship types
	WeightProperty   string // empty reads no property
}

// Source reads nodes and relationships through the Bolt driver.
type Source struct {
	driver neo4j.DriverWithContext
	opts   Options
}

// NewSource connects to uri and verifies connectivity.
func NewSource(ctx context.Context, uri, username, password string, opts Options) (*Source, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Source{driver: driver, opts: opts}, nil
}

// NewSourceWithDriver wraps an existing driver. Close closes the driver.
func NewSourceWithDriver(driver neo4j.DriverWithContext, opts Options) *Source {
	return &Source{driver: driver, opts: opts}
}

// Driver returns the underlying driver, e.g. for health checks.
func (s *Source) Driver() neo4j.DriverWithContext {
	return s.driver
}

func (s *Source) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.opts.Database,
	})
}

// ForEachNode streams node ids in id order through an auto-commit query, so
// the full id list is never held by the driver.
func (s *Source) ForEachNode(ctx context.Context, fn func(id int64) error) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	records, err := session.Run(ctx, nodeQuery(s.opts.Label), nil)
	if err != nil {
		return fmt.Errorf("query nodes: %w", err)
	}
	for records.Next(ctx) {
		v, ok := records.Record().Get("id")
		id, isInt := v.(int64)
		if !ok || !isInt {
			return fmt.Errorf("query nodes: unexpected id %v (%T)", v, v)
		}
		if err := fn(id); err != nil {
			return err
		}
	}
	if err := records.Err(); err != nil {
		return fmt.Errorf("query nodes: %w", err)
	}
	return nil
}

// ForEachRelationship reads the relationships of one batch of nodes inside a
// read transaction. Records are buffered until the transaction succeeds, so a
// retried transaction never emits twice.
func (s *Source) ForEachRelationship(ctx context.Context, nodes []int64, dir graph.Direction, fn func(graph.Relationship) error) error {
	if len(nodes) == 0 {
		return nil
	}
	var sides []graph.Direction
	switch dir {
	case graph.Outgoing, graph.Incoming:
		sides = []graph.Direction{dir}
	case graph.Both:
		sides = []graph.Direction{graph.Outgoing, graph.Incoming}
	default:
		return fmt.Errorf("invalid direction %v", dir)
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	batches := make([][]graph.Relationship, len(sides))
	for i, side := range sides {
		query := relationshipQuery(side, s.opts.Label, s.opts.RelationshipType)
		params := map[string]any{"ids": nodes, "weight": s.opts.WeightProperty}
		result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			records, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}
			var rels []graph.Relationship
			for records.Next(ctx) {
				rel, err := relationshipFromRecord(records.Record(), s.opts.WeightProperty)
				if err != nil {
					return nil, err
				}
				rels = append(rels, rel)
			}
			return rels, records.Err()
		})
		if err != nil {
			return fmt.Errorf("query %s relationships: %w", strings.ToLower(side.String()), err)
		}
		batches[i], _ = result.([]graph.Relationship)
	}

	if dir != graph.Both {
		return emit(batches[0], fn)
	}
	return interleave(nodes, batches[0], batches[1], fn)
}

// Close closes the driver.
func (s *Source) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func emit(rels []graph.Relationship, fn func(graph.Relationship) error) error {
	for _, r := range rels {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// interleave restores per-node order for a Both request: every node's
// outgoing relationships followed by its incoming ones. Both inputs are
// ordered by batch position.
func interleave(nodes []int64, out, in []graph.Relationship, fn func(graph.Relationship) error) error {
	var o, i int
	for _, n := range nodes {
		for ; o < len(out) && out[o].Source == n; o++ {
			if err := fn(out[o]); err != nil {
				return err
			}
		}
		for ; i < len(in) && in[i].Target == n; i++ {
			if err := fn(in[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// quote escapes a label or relationship type for use in a pattern.
func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func labelPattern(label string) string {
	if label == "" {
		return ""
	}
	return ":" + quote(label)
}

func nodeQuery(label string) string {
	return fmt.Sprintf("MATCH (n%s) RETURN id(n) AS id ORDER BY id", labelPattern(label))
}

// relationshipQuery returns the relationships of the nodes in $ids, ordered by
// position in $ids and then by relationship id. Source and target always
// report stored orientation.
func relationshipQuery(side graph.Direction, label, relType string) string {
	rel := "r"
	if relType != "" {
		rel += ":" + quote(relType)
	}
	pattern := fmt.Sprintf("(n)-[%s]->(m%s)", rel, labelPattern(label))
	endpoints := "id(n) AS source, id(m) AS target"
	if side == graph.Incoming {
		pattern = fmt.Sprintf("(n)<-[%s]-(m%s)", rel, labelPattern(label))
		endpoints = "id(m) AS source, id(n) AS target"
	}
	return "UNWIND range(0, size($ids) - 1) AS i " +
		"WITH i, $ids[i] AS nid " +
		"MATCH " + pattern + " WHERE id(n) = nid " +
		"RETURN " + endpoints + ", type(r) AS type, " +
		"CASE WHEN $weight = '' THEN null ELSE r[$weight] END AS weight " +
		"ORDER BY i, id(r)"
}

func relationshipFromRecord(rec *neo4j.Record, weightProperty string) (graph.Relationship, error) {
	source, err := intValue(rec, "source")
	if err != nil {
		return graph.Relationship{}, err
	}
	target, err := intValue(rec, "target")
	if err != nil {
		return graph.Relationship{}, err
	}
	rel := graph.Relationship{Source: source, Target: target}
	if t, ok := rec.Get("type"); ok {
		rel.Type, _ = t.(string)
	}
	if w, ok := rec.Get("weight"); ok && w != nil && weightProperty != "" {
		rel.Properties = graph.PropertyMap{weightProperty: w}
	}
	return rel, nil
}

func intValue(rec *neo4j.Record, key string) (int64, error) {
	v, ok := rec.Get(key)
	if !ok {
		return 0, fmt.Errorf("record has no %q column", key)
	}
	id, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("column %q: expected an integer id, got %T", key, v)
	}
	return id, nil
}

var _ graph.Source = (*Source)(nil)
