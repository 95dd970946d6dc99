package memory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/efebarandurmaz/forge/internal/graph"
)

// WeightProperty is the property key edge-list weights are stored under.
const WeightProperty = "weight"

// ReadCSV loads an edge list. Each record is "source,target[,weight]"; a
// record with a single field declares an isolated node. Blank lines and lines
// starting with '#' are ignored. Node ids are registered in encounter order.
func ReadCSV(r io.Reader) (*Source, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	s := New()
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading edge list: %w", err)
		}
		line, _ := cr.FieldPos(0)

		switch len(rec) {
		case 1:
			id, err := parseID(rec[0], line)
			if err != nil {
				return nil, err
			}
			s.AddNode(id)
		case 2, 3:
			src, err := parseID(rec[0], line)
			if err != nil {
				return nil, err
			}
			tgt, err := parseID(rec[1], line)
			if err != nil {
				return nil, err
			}
			var props graph.PropertyMap
			if len(rec) == 3 && strings.TrimSpace(rec[2]) != "" {
				raw := strings.TrimSpace(rec[2])
				if w, err := strconv.ParseFloat(raw, 64); err == nil {
					props = graph.PropertyMap{WeightProperty: w}
				} else {
					// kept as text so the loader reports it as an invalid property
					props = graph.PropertyMap{WeightProperty: raw}
				}
			}
			s.AddRelationship(src, tgt, "", props)
		default:
			return nil, fmt.Errorf("line %d: expected 1 to 3 fields, got %d", line, len(rec))
		}
	}
	return s, nil
}

func parseID(field string, line int) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid node id %q: %w", line, field, err)
	}
	return id, nil
}
