package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/efebarandurmaz/forge/internal/algo/unionfind"
	"github.com/efebarandurmaz/forge/internal/graph"
	"github.com/efebarandurmaz/forge/internal/loader"
)

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Load.Direction != "OUTGOING" {
		t.Errorf("expected default direction OUTGOING, got %s", cfg.Load.Direction)
	}
	if cfg.Load.BatchSize != loader.DefaultBatchSize {
		t.Errorf("expected default batch size, got %d", cfg.Load.BatchSize)
	}
	if cfg.Temporal.TaskQueue != "forge" {
		t.Errorf("expected task queue forge, got %s", cfg.Temporal.TaskQueue)
	}
	if cfg.Temporal.MaxConcurrentActivities != 1 {
		t.Errorf("expected one concurrent import per worker, got %d", cfg.Temporal.MaxConcurrentActivities)
	}
	if warnings := cfg.Validate(); len(warnings) != 0 {
		t.Errorf("default config should have no warnings, got %v", warnings)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forge.yaml")
	data := `
neo4j:
  uri: bolt://graph:7687
  label: City
load:
  direction: both
  weight_property: cost
  default_weight: 1.5
  variant: huge
unionfind:
  strategy: pipelined
  threshold: 2
  use_threshold: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FORGE_LOAD_BATCH_SIZE", "64")
	t.Setenv("FORGE_NEO4J_PASSWORD", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Neo4j.URI != "bolt://graph:7687" || cfg.Neo4j.Password != "secret" {
		t.Errorf("unexpected neo4j section: %+v", cfg.Neo4j)
	}
	if cfg.Load.BatchSize != 64 {
		t.Errorf("expected env batch size 64, got %d", cfg.Load.BatchSize)
	}

	lc, err := cfg.Loader()
	if err != nil {
		t.Fatalf("loader config: %v", err)
	}
	if lc.Direction != graph.Both || lc.Variant != loader.VariantHuge || lc.DefaultWeight != 1.5 {
		t.Errorf("unexpected loader config: %+v", lc)
	}

	uc, err := cfg.UnionFindRun()
	if err != nil {
		t.Fatalf("unionfind config: %v", err)
	}
	if uc.Strategy != unionfind.Pipelined || !uc.UseThreshold || uc.Threshold != 2 {
		t.Errorf("unexpected unionfind config: %+v", uc)
	}

	opts := cfg.Neo4jOptions()
	if opts.Label != "City" || opts.WeightProperty != "cost" {
		t.Errorf("unexpected neo4j options: %+v", opts)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate_InvalidEnums(t *testing.T) {
	cfg := &Config{
		Load:      LoadConfig{Direction: "sideways", Variant: "tiny"},
		UnionFind: UnionFindConfig{Strategy: "random"},
	}
	warnings := cfg.Validate()
	for _, want := range []string{"direction", "variant", "strategy"} {
		if !hasWarning(warnings, want) {
			t.Errorf("expected warning about %s, got %v", want, warnings)
		}
	}
	if _, err := cfg.Loader(); err == nil {
		t.Error("expected loader conversion to fail")
	}
	if _, err := cfg.UnionFindRun(); err == nil {
		t.Error("expected unionfind conversion to fail")
	}
}

func TestValidate_Negative(t *testing.T) {
	cfg := &Config{
		Load:      LoadConfig{Direction: "OUT", Concurrency: -1, MaxNodes: -5},
		UnionFind: UnionFindConfig{BatchSize: -1},
		Temporal:  TemporalConfig{MaxConcurrentActivities: -1},
	}
	warnings := cfg.Validate()
	for _, want := range []string{"concurrency", "batch_size", "max_nodes", "max_concurrent_activities"} {
		if !hasWarning(warnings, want) {
			t.Errorf("expected warning about %s, got %v", want, warnings)
		}
	}
}

func TestValidate_ThresholdWithoutWeights(t *testing.T) {
	cfg := &Config{
		Load:      LoadConfig{Direction: "BOTH"},
		UnionFind: UnionFindConfig{UseThreshold: true},
	}
	if !hasWarning(cfg.Validate(), "weight_property") {
		t.Error("expected warning about threshold on an unweighted graph")
	}

	cfg.Load.WeightProperty = "cost"
	if hasWarning(cfg.Validate(), "weight_property") {
		t.Error("weighted graph should not warn")
	}
}

func TestValidate_SampleRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want bool
	}{
		{"zero", 0, false},
		{"half", 0.5, false},
		{"one", 1, false},
		{"negative", -0.1, true},
		{"too_high", 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Load: LoadConfig{Direction: "OUT"}, Tracing: TracingConfig{SampleRate: tt.rate}}
			if got := hasWarning(cfg.Validate(), "sample_rate"); got != tt.want {
				t.Errorf("rate=%.1f: hasWarn=%v, want=%v", tt.rate, got, tt.want)
			}
		})
	}
}

func TestTracingOptions(t *testing.T) {
	cfg := &Config{Tracing: TracingConfig{Endpoint: "otel:4317", ServiceName: "forge", SampleRate: 0.5}}
	opts := cfg.TracingOptions("1.2.3")
	if opts.OTLPEndpoint != "otel:4317" || opts.ServiceVersion != "1.2.3" || opts.SampleRate != 0.5 {
		t.Errorf("unexpected tracing options: %+v", opts)
	}
}
