// Package adjacency holds the per-node target rows built during import.
package adjacency

// Lists is one row of internal target ids per node. During import each row is
// appended to by exactly one worker, the owner of the node's partition.
type Lists struct {
	rows [][]int64
}

// NewLists creates empty rows for nodeCount nodes.
func NewLists(nodeCount int64) *Lists {
	return &Lists{rows: make([][]int64, nodeCount)}
}

// Append adds target to the row of node and returns the entry index.
func (l *Lists) Append(node, target int64) int {
	l.rows[node] = append(l.rows[node], target)
	return len(l.rows[node]) - 1
}

// Row returns the targets of node in insertion order. The slice must not be
// modified.
func (l *Lists) Row(node int64) []int64 {
	return l.rows[node]
}

// Len returns the number of entries of node.
func (l *Lists) Len(node int64) int {
	return len(l.rows[node])
}

// NodeCount returns the number of rows.
func (l *Lists) NodeCount() int64 {
	return int64(len(l.rows))
}

// Total returns the number of entries over all rows.
func (l *Lists) Total() int64 {
	var n int64
	for _, r := range l.rows {
		n += int64(len(r))
	}
	return n
}

// Release drops the row of node.
func (l *Lists) Release(node int64) {
	l.rows[node] = nil
}
