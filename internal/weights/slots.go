package weights

// Slots holds one weight per adjacency entry, row by node. Rows are owned by
// a single writer during import and read-only afterwards.
type Slots struct {
	rows [][]float64
}

// NewSlots creates empty rows for nodeCount nodes.
func NewSlots(nodeCount int64) *Slots {
	return &Slots{rows: make([][]float64, nodeCount)}
}

// Append adds the weight of the next adjacency entry of node.
func (s *Slots) Append(node int64, w float64) {
	s.rows[node] = append(s.rows[node], w)
}

// Set overwrites the weight of entry i of node.
func (s *Slots) Set(node int64, i int, w float64) {
	s.rows[node][i] = w
}

// At returns the weight of entry i of node.
func (s *Slots) At(node int64, i int) float64 {
	return s.rows[node][i]
}

// Row returns the weights of node. The slice must not be modified.
func (s *Slots) Row(node int64) []float64 {
	return s.rows[node]
}

// Release drops the rows of node, e.g. after they were copied into pages.
func (s *Slots) Release(node int64) {
	s.rows[node] = nil
}
