package huge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/forge/internal/adjacency"
	"github.com/efebarandurmaz/forge/internal/graph"
	"github.com/efebarandurmaz/forge/internal/idmap"
	"github.com/efebarandurmaz/forge/internal/weights"
)

func TestPages_CrossBoundary(t *testing.T) {
	size := int64(pageSize*2 + 10)
	p := newPages[int64](size)
	require.Len(t, p.data, 3)
	require.Len(t, p.data[2], 10)

	src := make([]int64, 20)
	for i := range src {
		src[i] = int64(i + 1)
	}
	at := int64(pageSize - 5)
	p.copyInto(at, src)
	for i := range src {
		require.Equal(t, src[i], p.get(at+int64(i)))
	}

	p.set(size-1, 42)
	require.EqualValues(t, 42, p.get(size-1))
}

func TestPages_Empty(t *testing.T) {
	p := newPages[float64](0)
	require.Empty(t, p.data)
}

func buildIDs(t *testing.T, n int64) *idmap.IDMap {
	t.Helper()
	b := idmap.NewBuilder(0)
	for i := int64(0); i < n; i++ {
		_, err := b.Add(100 + i)
		require.NoError(t, err)
	}
	return b.Build()
}

func TestGraph_PackedTraversal(t *testing.T) {
	ids := buildIDs(t, 3)
	out := adjacency.NewLists(3)
	outW := weights.NewSlots(3)
	in := adjacency.NewLists(3)
	inW := weights.NewSlots(3)
	pairs := weights.NewPairs(3, 2, false, 0)

	add := func(s, tg int64, w float64) {
		out.Append(s, tg)
		outW.Append(s, w)
		in.Append(tg, s)
		inW.Append(tg, w)
		pairs.Set(s, tg, w)
	}
	add(0, 1, 1)
	add(0, 2, 2)
	add(2, 0, 3)

	g := New(ids, graph.Both, out, outW, in, inW, pairs)
	require.EqualValues(t, 6, g.RelationshipCount())
	require.Equal(t, 2, g.Degree(0, graph.Outgoing))
	require.Equal(t, 3, g.Degree(0, graph.Both))
	require.Equal(t, 0, g.Degree(1, graph.Outgoing))

	type entry struct {
		s, t int64
		w    float64
	}
	var got []entry
	g.ForEachRelationship(0, graph.Both, func(s, tg int64, w float64) bool {
		got = append(got, entry{s, tg, w})
		return true
	})
	require.Equal(t, []entry{{0, 2, 3}, {0, 1, 1}, {0, 2, 2}}, got)

	got = got[:0]
	g.ForEachRelationship(0, graph.Both, func(s, tg int64, w float64) bool {
		got = append(got, entry{s, tg, w})
		return false
	})
	require.Len(t, got, 1)

	require.Equal(t, 2.0, g.WeightOf(0, 2))
	require.Equal(t, 3.0, g.WeightOf(2, 0))
	require.EqualValues(t, 101, g.ToExternal(1))

	// builder rows were handed over
	require.EqualValues(t, 0, out.Total())
}

func TestGraph_OutgoingOnly(t *testing.T) {
	ids := buildIDs(t, 2)
	out := adjacency.NewLists(2)
	outW := weights.NewSlots(2)
	out.Append(0, 1)
	outW.Append(0, 5)

	g := New(ids, graph.Outgoing, out, outW, nil, nil, weights.NewPairs(2, 1, false, 0))
	calls := 0
	g.ForEachRelationship(1, graph.Incoming, func(int64, int64, float64) bool {
		calls++
		return true
	})
	require.Zero(t, calls)
	require.Equal(t, 0, g.Degree(1, graph.Incoming))
	require.EqualValues(t, 1, g.RelationshipCount())
}
