package loader

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/forge/internal/graph"
	"github.com/efebarandurmaz/forge/internal/graph/memory"
)

type entry struct {
	Source, Target int64
	Weight         float64
}

// traverse returns the entries of an external node in external ids, visiting
// the loaded direction.
func traverse(t *testing.T, g graph.Graph, external int64) []entry {
	t.Helper()
	node, err := g.ToInternal(external)
	require.NoError(t, err)
	var out []entry
	g.ForEachRelationship(node, g.LoadedDirection(), func(s, tg int64, w float64) bool {
		out = append(out, entry{g.ToExternal(s), g.ToExternal(tg), w})
		return true
	})
	return out
}

func weightOf(t *testing.T, g graph.Graph, s, tg int64) float64 {
	t.Helper()
	si, err := g.ToInternal(s)
	require.NoError(t, err)
	ti, err := g.ToInternal(tg)
	require.NoError(t, err)
	return g.WeightOf(si, ti)
}

func load(t *testing.T, src graph.Source, cfg Config) (graph.Graph, Stats) {
	t.Helper()
	g, stats, err := New(src, cfg, nil).Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, g)
	return g, stats
}

func weighted(dir graph.Direction, variant Variant) Config {
	cfg := DefaultConfig()
	cfg.Direction = dir
	cfg.WeightProperty = memory.WeightProperty
	cfg.Variant = variant
	return cfg
}

func w(v float64) graph.PropertyMap {
	return graph.PropertyMap{memory.WeightProperty: v}
}

var variants = []Variant{VariantHeavy, VariantHuge}

func TestLoad_InterconnectedWeights(t *testing.T) {
	const a, b = 10, 20
	src := memory.New()
	src.AddRelationship(a, b, "R", w(1))
	src.AddRelationship(b, a, "R", w(2))

	for _, v := range variants {
		t.Run(string(v)+"/outgoing", func(t *testing.T) {
			g, _ := load(t, src, weighted(graph.Outgoing, v))
			require.Equal(t, 1.0, weightOf(t, g, a, b))
			require.Equal(t, 2.0, weightOf(t, g, b, a))
			require.Equal(t, []entry{{a, b, 1}}, traverse(t, g, a))
			require.Equal(t, []entry{{b, a, 2}}, traverse(t, g, b))
		})
		t.Run(string(v)+"/incoming", func(t *testing.T) {
			g, _ := load(t, src, weighted(graph.Incoming, v))
			require.Equal(t, []entry{{a, b, 2}}, traverse(t, g, a))
			require.Equal(t, []entry{{b, a, 1}}, traverse(t, g, b))
			require.Equal(t, 2.0, weightOf(t, g, a, b))
			require.Equal(t, 1.0, weightOf(t, g, b, a))
		})
		t.Run(string(v)+"/both", func(t *testing.T) {
			g, stats := load(t, src, weighted(graph.Both, v))
			require.Equal(t, []entry{{a, b, 1}, {a, b, 1}}, traverse(t, g, a))
			require.Equal(t, []entry{{b, a, 1}, {b, a, 1}}, traverse(t, g, b))
			require.Equal(t, 1.0, weightOf(t, g, a, b))
			require.Equal(t, 1.0, weightOf(t, g, b, a))
			require.EqualValues(t, 4, stats.Relationships)
		})
	}
}

func TestLoad_TriangleWeights(t *testing.T) {
	const a, b, c = 1, 2, 3
	src := memory.New()
	src.AddRelationship(a, b, "R", w(1))
	src.AddRelationship(b, c, "R", w(2))
	src.AddRelationship(c, a, "R", w(3))

	weightsAt := func(t *testing.T, g graph.Graph, n int64) []float64 {
		var ws []float64
		for _, e := range traverse(t, g, n) {
			ws = append(ws, e.Weight)
		}
		return ws
	}

	for _, v := range variants {
		t.Run(string(v), func(t *testing.T) {
			g, _ := load(t, src, weighted(graph.Outgoing, v))
			require.Equal(t, []float64{1}, weightsAt(t, g, a))
			require.Equal(t, []float64{2}, weightsAt(t, g, b))
			require.Equal(t, []float64{3}, weightsAt(t, g, c))

			g, _ = load(t, src, weighted(graph.Incoming, v))
			require.Equal(t, []float64{3}, weightsAt(t, g, a))
			require.Equal(t, []float64{1}, weightsAt(t, g, b))
			require.Equal(t, []float64{2}, weightsAt(t, g, c))

			g, _ = load(t, src, weighted(graph.Both, v))
			require.Equal(t, []float64{3, 1}, weightsAt(t, g, a))
			require.Equal(t, []float64{1, 2}, weightsAt(t, g, b))
			require.Equal(t, []float64{2, 3}, weightsAt(t, g, c))
		})
	}
}

type rawRel struct {
	s, t int64
	w    float64
}

func randomGraph(seed uint64, nodes, rels int) (*memory.Source, []int64, []rawRel) {
	r := rand.New(rand.NewPCG(seed, seed*31+7))
	src := memory.New()
	ids := make([]int64, nodes)
	for i := range ids {
		ids[i] = int64(1000 + 7*i)
		src.AddNode(ids[i])
	}
	raw := make([]rawRel, rels)
	for i := range raw {
		raw[i] = rawRel{ids[r.IntN(nodes)], ids[r.IntN(nodes)], float64(r.IntN(50))}
		src.AddRelationship(raw[i].s, raw[i].t, "R", w(raw[i].w))
	}
	return src, ids, raw
}

// replay computes the expected registers by walking every node in order and
// writing each emitted entry, outgoing before incoming.
func replay(ids []int64, raw []rawRel, dir graph.Direction) map[[2]int64]float64 {
	reg := make(map[[2]int64]float64)
	write := func(x, y int64, w float64) {
		if dir == graph.Both && x > y {
			x, y = y, x
		}
		reg[[2]int64{x, y}] = w
	}
	for _, n := range ids {
		if dir.HasOutgoing() {
			for _, r := range raw {
				if r.s == n {
					write(n, r.t, r.w)
				}
			}
		}
		if dir.HasIncoming() {
			for _, r := range raw {
				if r.t == n {
					write(n, r.s, r.w)
				}
			}
		}
	}
	return reg
}

func TestLoad_MatchesSequentialReplay(t *testing.T) {
	src, ids, raw := randomGraph(42, 60, 400)

	for _, dir := range []graph.Direction{graph.Outgoing, graph.Incoming, graph.Both} {
		want := replay(ids, raw, dir)
		for _, v := range variants {
			t.Run(dir.String()+"/"+string(v), func(t *testing.T) {
				cfg := weighted(dir, v)
				cfg.BatchSize = 7
				cfg.Concurrency = 4
				cfg.DefaultWeight = -1
				g, stats := load(t, src, cfg)

				var entries int64
				for _, n := range ids {
					for _, e := range traverse(t, g, n) {
						key := [2]int64{e.Source, e.Target}
						if dir == graph.Both && key[0] > key[1] {
							key[0], key[1] = key[1], key[0]
						}
						require.Equal(t, want[key], e.Weight, "entry %v", e)
						require.Equal(t, e.Weight, weightOf(t, g, e.Source, e.Target))
						entries++
					}
				}
				require.Equal(t, stats.Relationships, entries)
				for _, x := range ids {
					if _, ok := want[[2]int64{x, x}]; !ok {
						require.Equal(t, -1.0, weightOf(t, g, x, x))
						break
					}
				}
			})
		}
	}
}

func TestLoad_DeterministicAcrossPartitioning(t *testing.T) {
	src, ids, _ := randomGraph(7, 45, 300)

	for _, dir := range []graph.Direction{graph.Outgoing, graph.Incoming, graph.Both} {
		seq := weighted(dir, VariantHeavy)
		seq.Concurrency = 1
		seq.BatchSize = 1000
		par := weighted(dir, VariantHuge)
		par.Concurrency = 8
		par.BatchSize = 2

		g1, s1 := load(t, src, seq)
		g2, s2 := load(t, src, par)
		require.Equal(t, s1.Relationships, s2.Relationships)
		require.Equal(t, 1, s1.Batches)
		require.Equal(t, 23, s2.Batches)
		for _, n := range ids {
			require.Equal(t, traverse(t, g1, n), traverse(t, g2, n), "node %d %s", n, dir)
			node, err := g1.ToInternal(n)
			require.NoError(t, err)
			require.Equal(t, g1.Degree(node, graph.Both), g2.Degree(node, graph.Both))
		}
	}
}

func TestLoad_Unweighted(t *testing.T) {
	src := memory.New()
	src.AddRelationship(1, 2, "R", w(9))
	src.AddRelationship(2, 3, "R", nil)

	cfg := DefaultConfig()
	cfg.DefaultWeight = 0.5
	g, stats := load(t, src, cfg)
	require.Equal(t, []entry{{1, 2, 0.5}}, traverse(t, g, 1))
	require.Equal(t, VariantHeavy, stats.Variant)
	require.Equal(t, graph.Outgoing, stats.Direction)
	require.NotEmpty(t, stats.RunID)

	cfg.WeightProperty = memory.WeightProperty
	cfg.RunID = "run-42"
	g, stats = load(t, src, cfg)
	require.Equal(t, "run-42", stats.RunID)
	require.Equal(t, []entry{{1, 2, 9}}, traverse(t, g, 1))
	require.Equal(t, []entry{{2, 3, 0.5}}, traverse(t, g, 2))
	require.Equal(t, 0.5, weightOf(t, g, 3, 1))
}

func TestLoad_InvalidWeightProperty(t *testing.T) {
	src := memory.New()
	src.AddRelationship(1, 2, "R", w(1))
	src.AddRelationship(2, 3, "R", graph.PropertyMap{memory.WeightProperty: "heavy"})

	for _, v := range variants {
		g, _, err := New(src, weighted(graph.Outgoing, v), nil).Load(context.Background())
		require.Nil(t, g)
		require.ErrorIs(t, err, graph.ErrInvalidProperty)

		var invalid *graph.InvalidPropertyError
		require.ErrorAs(t, err, &invalid)
		require.Equal(t, memory.WeightProperty, invalid.Key)
		require.Equal(t, "heavy", invalid.Value)
	}
}

func TestLoad_CapacityExceeded(t *testing.T) {
	src := memory.New()
	for i := int64(0); i < 5; i++ {
		src.AddNode(i)
	}

	cfg := DefaultConfig()
	cfg.MaxNodes = 4
	g, _, err := New(src, cfg, nil).Load(context.Background())
	require.Nil(t, g)
	require.ErrorIs(t, err, graph.ErrCapacityExceeded)

	var capErr *graph.CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	require.EqualValues(t, 4, capErr.Limit)

	cfg.MaxNodes = 5
	g, stats := load(t, src, cfg)
	require.EqualValues(t, 5, g.NodeCount())
	require.EqualValues(t, 5, stats.Nodes)
}

// hiddenNodes enumerates all nodes but one, while still reporting the
// relationships touching it.
type hiddenNodes struct {
	*memory.Source
	hidden int64
}

func (h hiddenNodes) ForEachNode(ctx context.Context, fn func(int64) error) error {
	return h.Source.ForEachNode(ctx, func(id int64) error {
		if id == h.hidden {
			return nil
		}
		return fn(id)
	})
}

func TestLoad_SkipsUnknownEndpoints(t *testing.T) {
	src := memory.New()
	src.AddRelationship(1, 2, "R", nil)
	src.AddRelationship(1, 99, "R", nil)
	src.AddRelationship(99, 2, "R", nil)

	cfg := DefaultConfig()
	cfg.Direction = graph.Both
	g, stats := load(t, hiddenNodes{src, 99}, cfg)
	require.EqualValues(t, 2, g.NodeCount())
	require.EqualValues(t, 2, stats.Skipped)
	require.EqualValues(t, 2, stats.Relationships)
	_, err := g.ToInternal(99)
	require.ErrorIs(t, err, graph.ErrNotFound)
}

type strayRelationships struct {
	*memory.Source
}

func (s strayRelationships) ForEachRelationship(ctx context.Context, nodes []int64, dir graph.Direction, fn func(graph.Relationship) error) error {
	return fn(graph.Relationship{Source: 3, Target: 1})
}

func TestLoad_RejectsRelationshipsOutsideBatch(t *testing.T) {
	src := memory.New()
	for i := int64(1); i <= 3; i++ {
		src.AddNode(i)
	}
	cfg := DefaultConfig()
	cfg.BatchSize = 1
	_, _, err := New(strayRelationships{src}, cfg, nil).Load(context.Background())
	require.ErrorContains(t, err, "outside the requested batch")
}

func TestLoad_SourceErrorIsWrapped(t *testing.T) {
	src := memory.New()
	src.AddNode(1)
	boom := errors.New("connection reset")
	_, _, err := New(failingSource{src, boom}, DefaultConfig(), nil).Load(context.Background())
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "scanning outgoing relationships")
}

type failingSource struct {
	*memory.Source
	err error
}

func (f failingSource) ForEachRelationship(context.Context, []int64, graph.Direction, func(graph.Relationship) error) error {
	return f.err
}

func TestLoad_Cancelled(t *testing.T) {
	src, _, _ := randomGraph(1, 10, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g, _, err := New(src, DefaultConfig(), nil).Load(ctx)
	require.Nil(t, g)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoad_EmptySource(t *testing.T) {
	g, stats := load(t, memory.New(), DefaultConfig())
	require.Zero(t, g.NodeCount())
	require.Zero(t, g.RelationshipCount())
	require.Zero(t, stats.Batches)
}

func TestLoad_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Direction = 0
	_, _, err := New(memory.New(), cfg, nil).Load(context.Background())
	require.ErrorContains(t, err, "invalid direction")

	cfg = DefaultConfig()
	cfg.Variant = "sparse"
	_, _, err = New(memory.New(), cfg, nil).Load(context.Background())
	require.ErrorContains(t, err, "unknown graph variant")
}

func TestParseVariant(t *testing.T) {
	for in, want := range map[string]Variant{"": VariantAuto, "AUTO": VariantAuto, "heavy": VariantHeavy, " huge ": VariantHuge} {
		got, err := ParseVariant(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseVariant("tiny")
	require.Error(t, err)
}

func TestConfig_Capacity(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, VariantHuge.Capacity(), cfg.capacity())

	cfg.Variant = VariantHeavy
	cfg.MaxNodes = 10
	require.EqualValues(t, 10, cfg.capacity())

	cfg.MaxNodes = VariantHuge.Capacity()
	require.Equal(t, VariantHeavy.Capacity(), cfg.capacity())
}
