// Package dss implements disjoint-set structures over the dense internal id
// space [0, n) and the read-only result wrapper used to project sets back to
// external node ids.
package dss

import "fmt"

// Struct is a disjoint-set forest over [0, NodeCount).
// Every method panics when given an id outside that range.
type Struct interface {
	// Find returns the representative of the set containing x.
	Find(x int64) int64
	// Union merges the sets of a and b and reports whether they were distinct.
	Union(a, b int64) bool
	Connected(a, b int64) bool
	SetCount() int64
	NodeCount() int64
}

func checkRange(x, n int64) {
	if x < 0 || x >= n {
		panic(fmt.Sprintf("dss: id %d out of range [0, %d)", x, n))
	}
}
