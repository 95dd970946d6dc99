package dss

import (
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/forge/internal/idmap"
)

func structs(n int64) map[string]Struct {
	return map[string]Struct{
		"ranked":     NewRanked(n),
		"concurrent": NewConcurrent(n),
	}
}

func TestStruct_Basics(t *testing.T) {
	for name, s := range structs(6) {
		t.Run(name, func(t *testing.T) {
			require.EqualValues(t, 6, s.NodeCount())
			require.EqualValues(t, 6, s.SetCount())
			for i := int64(0); i < 6; i++ {
				require.Equal(t, i, s.Find(i))
			}

			require.True(t, s.Union(0, 1))
			require.True(t, s.Union(2, 3))
			require.False(t, s.Union(1, 0))
			require.True(t, s.Union(1, 3))
			require.False(t, s.Union(0, 2))
			require.EqualValues(t, 3, s.SetCount())

			require.True(t, s.Connected(0, 3))
			require.False(t, s.Connected(0, 4))
			require.Equal(t, s.Find(0), s.Find(2))
			require.NotEqual(t, s.Find(4), s.Find(5))

			require.False(t, s.Union(5, 5))
			require.EqualValues(t, 3, s.SetCount())
		})
	}
}

func TestStruct_OutOfRangePanics(t *testing.T) {
	for name, s := range structs(3) {
		t.Run(name, func(t *testing.T) {
			require.Panics(t, func() { s.Find(3) })
			require.Panics(t, func() { s.Find(-1) })
			require.Panics(t, func() { s.Union(0, 7) })
		})
	}
}

func TestStruct_Empty(t *testing.T) {
	for name, s := range structs(0) {
		t.Run(name, func(t *testing.T) {
			require.Zero(t, s.SetCount())
			require.Panics(t, func() { s.Find(0) })
		})
	}
}

func TestRanked_LongChainCompresses(t *testing.T) {
	const n = 10_000
	r := NewRanked(n)
	for i := int64(1); i < n; i++ {
		r.Union(i-1, i)
	}
	require.EqualValues(t, 1, r.SetCount())
	root := r.Find(n - 1)
	for i := int64(0); i < n; i++ {
		require.Equal(t, root, r.parent[i])
	}
}

// partition canonicalizes a struct's sets as the smallest member per node.
func partition(s Struct) []int64 {
	n := s.NodeCount()
	minOf := make(map[int64]int64)
	for i := int64(0); i < n; i++ {
		root := s.Find(i)
		if m, ok := minOf[root]; !ok || i < m {
			minOf[root] = i
		}
	}
	out := make([]int64, n)
	for i := int64(0); i < n; i++ {
		out[i] = minOf[s.Find(i)]
	}
	return out
}

func TestConcurrent_MatchesRanked(t *testing.T) {
	const n, edges, workers = 2000, 1500, 8
	r := rand.New(rand.NewPCG(3, 5))
	pairs := make([][2]int64, edges)
	for i := range pairs {
		pairs[i] = [2]int64{r.Int64N(n), r.Int64N(n)}
	}

	want := NewRanked(n)
	for _, p := range pairs {
		want.Union(p[0], p[1])
	}

	got := NewConcurrent(n)
	var merged sync.WaitGroup
	var mu sync.Mutex
	links := int64(0)
	for w := 0; w < workers; w++ {
		merged.Add(1)
		go func() {
			defer merged.Done()
			local := int64(0)
			for i := w; i < edges; i += workers {
				if got.Union(pairs[i][0], pairs[i][1]) {
					local++
				}
				got.Connected(pairs[i][1], pairs[(i+1)%edges][0])
			}
			mu.Lock()
			links += local
			mu.Unlock()
		}()
	}
	merged.Wait()

	require.Equal(t, want.SetCount(), got.SetCount())
	require.Equal(t, n-got.SetCount(), links)
	require.Equal(t, partition(want), partition(got))
}

func TestStruct_FindIsIdempotent(t *testing.T) {
	const n = 500
	r := rand.New(rand.NewPCG(7, 13))
	for name, s := range structs(n) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 400; i++ {
				s.Union(r.Int64N(n), r.Int64N(n))
			}
			for x := int64(0); x < n; x++ {
				root := s.Find(x)
				require.Equal(t, root, s.Find(root))
				require.Equal(t, root, s.Find(x))
				require.Equal(t, root, s.Find(x))
			}
		})
	}
}

func TestStruct_SetCountTracksUnions(t *testing.T) {
	const n = 300
	r := rand.New(rand.NewPCG(17, 19))
	for name, s := range structs(n) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 600; i++ {
				a, b := r.Int64N(n), r.Int64N(n)
				before := s.SetCount()
				wasConnected := s.Connected(a, b)
				merged := s.Union(a, b)
				require.Equal(t, !wasConnected, merged)
				if merged {
					require.Equal(t, before-1, s.SetCount())
				} else {
					require.Equal(t, before, s.SetCount())
				}
			}
		})
	}
}

func TestResult_Stream(t *testing.T) {
	b := idmap.NewBuilder(0)
	for _, ext := range []int64{40, 10, 30, 20} {
		_, err := b.Add(ext)
		require.NoError(t, err)
	}
	ids := b.Build()

	s := NewRanked(4)
	s.Union(0, 2)
	res := NewResult(s)
	require.EqualValues(t, 3, res.SetCount())

	var got []Record
	for rec := range res.ResultStream(ids) {
		got = append(got, rec)
	}
	require.Len(t, got, 4)
	require.Equal(t, []int64{40, 10, 30, 20}, []int64{got[0].NodeID, got[1].NodeID, got[2].NodeID, got[3].NodeID})
	require.Equal(t, got[0].SetID, got[2].SetID)
	require.NotEqual(t, got[0].SetID, got[1].SetID)

	// restartable and lazy
	again := slices.Collect(res.ResultStream(ids))
	require.Equal(t, got, again)
	first := 0
	for range res.ResultStream(ids) {
		first++
		break
	}
	require.Equal(t, 1, first)
}

func TestResult_ForEach(t *testing.T) {
	b := idmap.NewBuilder(0)
	for ext := int64(0); ext < 5; ext++ {
		_, err := b.Add(ext * 10)
		require.NoError(t, err)
	}
	ids := b.Build()

	s := NewConcurrent(5)
	s.Union(1, 4)
	res := NewResult(s)

	seen := map[int64]int64{}
	res.ForEach(ids, func(node, set int64) bool {
		seen[node] = set
		return true
	})
	require.Len(t, seen, 5)
	require.Equal(t, seen[1], seen[4])
	require.Equal(t, res.SetOf(4), seen[1])

	calls := 0
	res.ForEach(ids, func(node, set int64) bool {
		calls++
		return calls < 2
	})
	require.Equal(t, 2, calls)
}

func TestResult_Largest(t *testing.T) {
	s := NewRanked(7)
	s.Union(0, 1)
	s.Union(1, 2)
	s.Union(3, 4)
	s.Union(5, 6)
	res := NewResult(s)

	sizes := res.SetSizes()
	require.Len(t, sizes, 3)
	require.EqualValues(t, 3, sizes[s.Find(0)])

	top := res.Largest(2)
	require.Len(t, top, 2)
	require.Equal(t, SetSize{SetID: s.Find(0), Size: 3}, top[0])
	require.EqualValues(t, 2, top[1].Size)
	require.Equal(t, min(s.Find(3), s.Find(5)), top[1].SetID)

	require.Len(t, res.Largest(0), 3)
	require.Len(t, res.Largest(10), 3)
}

func TestNewResult_NilPanics(t *testing.T) {
	require.Panics(t, func() { NewResult(nil) })
}
