// Package metrics builds the end-of-run report printed by the CLI.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/efebarandurmaz/forge/internal/dss"
	"github.com/efebarandurmaz/forge/internal/graph"
	"github.com/efebarandurmaz/forge/internal/loader"
)

// RunMetrics collects statistics for one import and optional union-find run.
type RunMetrics struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at,omitempty"`
	Duration   time.Duration     `json:"duration_ms,omitempty"`
	Source     string            `json:"source"`
	Import     ImportMetrics     `json:"import"`
	UnionFind  *UnionFindMetrics `json:"unionfind,omitempty"`
	Errors     []string          `json:"errors,omitempty"`
}

type ImportMetrics struct {
	RunID         string         `json:"run_id"`
	Direction     string         `json:"direction"`
	Variant       string         `json:"variant"`
	Nodes         int64          `json:"nodes"`
	Relationships int64          `json:"relationships"`
	Skipped       int64          `json:"skipped"`
	Batches       int            `json:"batches"`
	Phases        []PhaseMetrics `json:"phases"`
}

type PhaseMetrics struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ms"`
}

type UnionFindMetrics struct {
	Strategy string        `json:"strategy"`
	Duration time.Duration `json:"duration_ms"`
	SetCount int64         `json:"set_count"`
	Largest  []SetMetrics  `json:"largest,omitempty"`
}

// SetMetrics is one set with a representative external node id.
type SetMetrics struct {
	Representative int64 `json:"representative"`
	Size           int64 `json:"size"`
}

// New starts tracking a run.
func New(source string) *RunMetrics {
	return &RunMetrics{StartedAt: time.Now(), Source: source}
}

// CollectImport records the loader statistics.
func (m *RunMetrics) CollectImport(s loader.Stats) {
	m.Import = ImportMetrics{
		RunID:         s.RunID,
		Direction:     s.Direction.String(),
		Variant:       string(s.Variant),
		Nodes:         s.Nodes,
		Relationships: s.Relationships,
		Skipped:       s.Skipped,
		Batches:       s.Batches,
		Phases: []PhaseMetrics{
			{Name: "nodes", Duration: s.NodesDuration},
			{Name: "scan", Duration: s.ScanDuration},
			{Name: "resolve", Duration: s.ResolveDuration},
			{Name: "build", Duration: s.BuildDuration},
		},
	}
}

// CollectUnionFind records a union-find result and its top sets projected to
// external ids.
func (m *RunMetrics) CollectUnionFind(strategy string, d time.Duration, res *dss.Result, ids graph.IDMapping, top int) {
	uf := &UnionFindMetrics{
		Strategy: strategy,
		Duration: d,
		SetCount: res.SetCount(),
	}
	for _, s := range res.Largest(top) {
		uf.Largest = append(uf.Largest, SetMetrics{Representative: ids.ToExternal(s.SetID), Size: s.Size})
	}
	m.UnionFind = uf
}

// Finish marks the run as complete.
func (m *RunMetrics) Finish(errs []string) {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
	m.Errors = errs
}

// PrintSummary writes a human-readable summary.
func (m *RunMetrics) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║           FORGE RUN REPORT           ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Duration:    %-24s║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "║ Source:      %-24s║\n", truncate(m.Source, 24))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ IMPORT (%s, %s)\n", m.Import.Direction, m.Import.Variant)
	fmt.Fprintf(w, "║   Run:           %s\n", m.Import.RunID)
	fmt.Fprintf(w, "║   Nodes:         %d\n", m.Import.Nodes)
	fmt.Fprintf(w, "║   Relationships: %d\n", m.Import.Relationships)
	fmt.Fprintf(w, "║   Skipped:       %d\n", m.Import.Skipped)
	fmt.Fprintf(w, "║   Batches:       %d\n", m.Import.Batches)
	for _, p := range m.Import.Phases {
		fmt.Fprintf(w, "║   %-14s %8s\n", p.Name, p.Duration.Round(time.Millisecond))
	}
	if uf := m.UnionFind; uf != nil {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ UNION-FIND (%s)\n", uf.Strategy)
		fmt.Fprintf(w, "║   Duration:      %s\n", uf.Duration.Round(time.Millisecond))
		fmt.Fprintf(w, "║   Sets:          %d\n", uf.SetCount)
		for _, s := range uf.Largest {
			fmt.Fprintf(w, "║   set of %-10d %d nodes\n", s.Representative, s.Size)
		}
	}
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range m.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the metrics as formatted JSON.
func (m *RunMetrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "…" + string(r[len(r)-n+1:])
}
