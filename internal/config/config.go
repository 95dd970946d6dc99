package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/efebarandurmaz/forge/internal/algo/unionfind"
	"github.com/efebarandurmaz/forge/internal/graph"
	"github.com/efebarandurmaz/forge/internal/graph/neo4j"
	"github.com/efebarandurmaz/forge/internal/loader"
	"github.com/efebarandurmaz/forge/internal/observability"
)

// Config holds all application configuration.
type Config struct {
	Neo4j     Neo4jConfig     `mapstructure:"neo4j"`
	Load      LoadConfig      `mapstructure:"load"`
	UnionFind UnionFindConfig `mapstructure:"unionfind"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Log       LogConfig       `mapstructure:"log"`
}

type Neo4jConfig struct {
	URI              string `mapstructure:"uri"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	Database         string `mapstructure:"database"`
	Label            string `mapstructure:"label"`
	RelationshipType string `mapstructure:"relationship_type"`
}

// LoadConfig configures graph import.
type LoadConfig struct {
	Direction      string  `mapstructure:"direction"`
	WeightProperty string  `mapstructure:"weight_property"`
	DefaultWeight  float64 `mapstructure:"default_weight"`
	Concurrency    int     `mapstructure:"concurrency"`
	BatchSize      int64   `mapstructure:"batch_size"`
	Variant        string  `mapstructure:"variant"`
	MaxNodes       int64   `mapstructure:"max_nodes"`
}

type UnionFindConfig struct {
	Strategy     string  `mapstructure:"strategy"`
	Concurrency  int     `mapstructure:"concurrency"`
	BatchSize    int64   `mapstructure:"batch_size"`
	Threshold    float64 `mapstructure:"threshold"`
	UseThreshold bool    `mapstructure:"use_threshold"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	// MaxConcurrentActivities bounds parallel imports per worker. Zero keeps
	// the SDK default.
	MaxConcurrentActivities int `mapstructure:"max_concurrent_activities"`
}

type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AuditPath string `mapstructure:"audit_path"`
}

func setDefaults(v *viper.Viper) {
	d := loader.DefaultConfig()
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
	v.SetDefault("neo4j.label", "")
	v.SetDefault("neo4j.relationship_type", "")

	v.SetDefault("load.direction", d.Direction.String())
	v.SetDefault("load.weight_property", "")
	v.SetDefault("load.default_weight", 0.0)
	v.SetDefault("load.concurrency", 0)
	v.SetDefault("load.batch_size", d.BatchSize)
	v.SetDefault("load.variant", string(d.Variant))
	v.SetDefault("load.max_nodes", 0)

	v.SetDefault("unionfind.strategy", string(unionfind.Parallel))
	v.SetDefault("unionfind.concurrency", 0)
	v.SetDefault("unionfind.batch_size", d.BatchSize)
	v.SetDefault("unionfind.threshold", 0.0)
	v.SetDefault("unionfind.use_threshold", false)

	t := observability.DefaultTracingConfig()
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", t.ServiceName)
	v.SetDefault("tracing.environment", t.Environment)
	v.SetDefault("tracing.sample_rate", t.SampleRate)

	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "forge")
	v.SetDefault("temporal.max_concurrent_activities", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.audit_path", "")
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if _, err := graph.ParseDirection(c.Load.Direction); err != nil {
		warnings = append(warnings, fmt.Sprintf("load direction '%s' is invalid, expected OUTGOING, INCOMING or BOTH", c.Load.Direction))
	}
	if _, err := loader.ParseVariant(c.Load.Variant); err != nil {
		warnings = append(warnings, fmt.Sprintf("load variant '%s' is invalid, expected auto, heavy or huge", c.Load.Variant))
	}
	if _, err := unionfind.ParseStrategy(c.UnionFind.Strategy); err != nil {
		warnings = append(warnings, fmt.Sprintf("unionfind strategy '%s' is invalid", c.UnionFind.Strategy))
	}

	if c.Load.Concurrency < 0 || c.UnionFind.Concurrency < 0 {
		warnings = append(warnings, "concurrency is negative, the number of CPUs is used instead")
	}
	if c.Load.BatchSize < 0 || c.UnionFind.BatchSize < 0 {
		warnings = append(warnings, "batch_size is negative, the default is used instead")
	}
	if c.Temporal.MaxConcurrentActivities < 0 {
		warnings = append(warnings, fmt.Sprintf("temporal max_concurrent_activities %d is negative, the SDK default is used instead", c.Temporal.MaxConcurrentActivities))
	}
	if c.Load.MaxNodes < 0 {
		warnings = append(warnings, fmt.Sprintf("load max_nodes %d is negative", c.Load.MaxNodes))
	}

	// A threshold on an unweighted graph compares against the default weight only.
	if c.UnionFind.UseThreshold && c.Load.WeightProperty == "" {
		warnings = append(warnings, fmt.Sprintf("unionfind threshold is enabled but load weight_property is empty, every relationship has weight %.2f", c.Load.DefaultWeight))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside range [0.0, 1.0]", c.Tracing.SampleRate))
	}

	return warnings
}

// Loader converts the load section. It fails on values Validate warns about.
func (c *Config) Loader() (loader.Config, error) {
	dir, err := graph.ParseDirection(c.Load.Direction)
	if err != nil {
		return loader.Config{}, err
	}
	variant, err := loader.ParseVariant(c.Load.Variant)
	if err != nil {
		return loader.Config{}, err
	}
	return loader.Config{
		Direction:      dir,
		WeightProperty: c.Load.WeightProperty,
		DefaultWeight:  c.Load.DefaultWeight,
		Concurrency:    c.Load.Concurrency,
		BatchSize:      c.Load.BatchSize,
		Variant:        variant,
		MaxNodes:       c.Load.MaxNodes,
	}, nil
}

// UnionFindRun converts the unionfind section.
func (c *Config) UnionFindRun() (unionfind.Config, error) {
	strategy, err := unionfind.ParseStrategy(c.UnionFind.Strategy)
	if err != nil {
		return unionfind.Config{}, err
	}
	return unionfind.Config{
		Strategy:     strategy,
		Concurrency:  c.UnionFind.Concurrency,
		BatchSize:    c.UnionFind.BatchSize,
		Threshold:    c.UnionFind.Threshold,
		UseThreshold: c.UnionFind.UseThreshold,
	}, nil
}

// Neo4jOptions returns the source options of the neo4j section. The weight
// property comes from the load section.
func (c *Config) Neo4jOptions() neo4j.Options {
	return neo4j.Options{
		Database:         c.Neo4j.Database,
		Label:            c.Neo4j.Label,
		RelationshipType: c.Neo4j.RelationshipType,
		WeightProperty:   c.Load.WeightProperty,
	}
}

// TracingOptions returns the observability tracing configuration.
func (c *Config) TracingOptions(version string) *observability.TracingConfig {
	return &observability.TracingConfig{
		ServiceName:    c.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    c.Tracing.Environment,
		OTLPEndpoint:   c.Tracing.Endpoint,
		SampleRate:     c.Tracing.SampleRate,
	}
}

// Load reads configuration from an optional file and the environment.
// Environment variables use the FORGE_ prefix, e.g. FORGE_LOAD_DIRECTION.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
