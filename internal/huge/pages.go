package huge

const (
	pageShift = 14
	pageSize  = 1 << pageShift
	pageMask  = pageSize - 1
)

// pages is a fixed-size array split into equally sized pages so that no
// single allocation grows with the graph.
type pages[T any] struct {
	data [][]T
	size int64
}

func newPages[T any](size int64) *pages[T] {
	n := (size + pageSize - 1) >> pageShift
	data := make([][]T, n)
	for i := range data {
		l := int64(pageSize)
		if rest := size - int64(i)<<pageShift; rest < l {
			l = rest
		}
		data[i] = make([]T, l)
	}
	return &pages[T]{data: data, size: size}
}

func (p *pages[T]) get(i int64) T {
	return p.data[i>>pageShift][i&pageMask]
}

func (p *pages[T]) set(i int64, v T) {
	p.data[i>>pageShift][i&pageMask] = v
}

// copyInto writes src starting at index at, crossing page boundaries.
func (p *pages[T]) copyInto(at int64, src []T) {
	for len(src) > 0 {
		page := p.data[at>>pageShift]
		n := copy(page[at&pageMask:], src)
		src = src[n:]
		at += int64(n)
	}
}
