package loader

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/efebarandurmaz/forge/internal/graph"
	"github.com/efebarandurmaz/forge/internal/heavy"
	"github.com/efebarandurmaz/forge/internal/huge"
)

// DefaultBatchSize is the number of nodes per import partition.
const DefaultBatchSize = 10_000

// Variant selects the compacted graph layout.
type Variant string

const (
	VariantAuto  Variant = "auto"
	VariantHeavy Variant = "heavy"
	VariantHuge  Variant = "huge"
)

// ParseVariant parses auto, heavy or huge. The empty string means auto.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case "", VariantAuto:
		return VariantAuto, nil
	case VariantHeavy, VariantHuge:
		return v, nil
	}
	return "", fmt.Errorf("unknown graph variant %q", s)
}

// Capacity returns the node capacity of the variant. Auto reports the largest.
func (v Variant) Capacity() int64 {
	if v == VariantHeavy {
		return heavy.Capacity
	}
	return huge.Capacity
}

// Config controls an import.
type Config struct {
	Direction graph.Direction
	// WeightProperty names the relationship property read as weight. Empty
	// loads an unweighted graph.
	WeightProperty string
	DefaultWeight  float64
	// Concurrency bounds the number of partitions processed at once.
	Concurrency int
	BatchSize   int64
	Variant     Variant
	// MaxNodes caps the node count below the variant capacity. Zero means no cap.
	MaxNodes int64
	// RunID tags logs, spans and Stats. Empty generates a random id.
	RunID string
}

// DefaultConfig returns an unweighted outgoing import.
func DefaultConfig() Config {
	return Config{
		Direction:   graph.Outgoing,
		Concurrency: runtime.GOMAXPROCS(0),
		BatchSize:   DefaultBatchSize,
		Variant:     VariantAuto,
	}
}

func (c Config) normalize() (Config, error) {
	switch c.Direction {
	case graph.Outgoing, graph.Incoming, graph.Both:
	default:
		return c, fmt.Errorf("invalid direction %s", c.Direction)
	}
	v, err := ParseVariant(string(c.Variant))
	if err != nil {
		return c, err
	}
	c.Variant = v
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.GOMAXPROCS(0)
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxNodes < 0 {
		return c, fmt.Errorf("max nodes must not be negative, got %d", c.MaxNodes)
	}
	return c, nil
}

// capacity is the node limit handed to the id map.
func (c Config) capacity() int64 {
	limit := c.Variant.Capacity()
	if c.MaxNodes > 0 && c.MaxNodes < limit {
		limit = c.MaxNodes
	}
	return limit
}
