package weights

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPairs_DirectedOverwrite(t *testing.T) {
	p := NewPairs(4, 2, false, 0.5)

	require.Equal(t, 0.5, p.Get(0, 1))
	_, ok := p.Lookup(0, 1)
	require.False(t, ok)

	p.Set(0, 1, 1)
	p.Set(1, 0, 2)
	p.Set(0, 1, 3)

	require.Equal(t, 3.0, p.Get(0, 1))
	require.Equal(t, 2.0, p.Get(1, 0))
	require.Equal(t, 2, p.Len())
	require.EqualValues(t, 1, p.Owner(1, 3))
	require.False(t, p.Symmetric())
}

func TestPairs_Symmetric(t *testing.T) {
	p := NewPairs(4, 2, true, 0)

	p.Set(3, 1, 7)
	require.Equal(t, 7.0, p.Get(1, 3))
	require.Equal(t, 7.0, p.Get(3, 1))

	p.Set(1, 3, 9)
	require.Equal(t, 9.0, p.Get(3, 1))
	require.Equal(t, 1, p.Len())
	require.EqualValues(t, 3, p.Owner(1, 3))
	require.EqualValues(t, 3, p.Owner(3, 1))
}

func TestPairs_ShardPerWriter(t *testing.T) {
	const n, shard = 1000, 100
	p := NewPairs(n, shard, false, 0)

	var wg sync.WaitGroup
	for lo := int64(0); lo < n; lo += shard {
		wg.Add(1)
		go func(lo int64) {
			defer wg.Done()
			for s := lo; s < lo+shard; s++ {
				p.Set(s, (s+1)%n, float64(s))
			}
		}(lo)
	}
	wg.Wait()

	require.Equal(t, n, p.Len())
	for s := int64(0); s < n; s++ {
		require.Equal(t, float64(s), p.Get(s, (s+1)%n))
	}
}

func TestPairs_EmptyGraph(t *testing.T) {
	p := NewPairs(0, 10, false, 1)
	require.Equal(t, 0, p.Len())
	require.Equal(t, 1.0, p.Get(0, 0))
}

func TestSlots(t *testing.T) {
	s := NewSlots(3)
	s.Append(1, 0.5)
	s.Append(1, 1.5)
	s.Append(2, 4)

	require.Empty(t, s.Row(0))
	require.Equal(t, []float64{0.5, 1.5}, s.Row(1))

	s.Set(1, 0, 9)
	require.Equal(t, 9.0, s.At(1, 0))

	s.Release(2)
	require.Nil(t, s.Row(2))
}
