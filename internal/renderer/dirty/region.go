// Package dirty tracks which parts of the terminal grid changed since the
// last repaint.
//
// The panel only supports full-frame refresh, so the refresh scheduler reads
// nothing more than IsDirty. Row-level detail is kept for logging and for
// renderers that can make use of it.
package dirty

// Region is a contiguous span of dirty rows.
type Region struct {
	// StartRow is the first row of the region (inclusive).
	StartRow int

	// EndRow is the last row of the region (inclusive).
	EndRow int
}

// NewRegion creates a region covering rows a through b in either order.
func NewRegion(a, b int) Region {
	if b < a {
		a, b = b, a
	}
	return Region{StartRow: a, EndRow: b}
}

// IsEmpty returns true if the region covers no rows.
func (r Region) IsEmpty() bool {
	return r.StartRow > r.EndRow
}

// RowCount returns the number of rows covered by the region.
func (r Region) RowCount() int {
	if r.IsEmpty() {
		return 0
	}
	return r.EndRow - r.StartRow + 1
}

// Merge combines two overlapping or adjacent regions.
// The second return value is false when the regions are disjoint.
func (r Region) Merge(other Region) (Region, bool) {
	if r.IsEmpty() {
		return other, true
	}
	if other.IsEmpty() {
		return r, true
	}
	if r.EndRow+1 < other.StartRow || other.EndRow+1 < r.StartRow {
		return r, false
	}
	return Region{
		StartRow: min(r.StartRow, other.StartRow),
		EndRow:   max(r.EndRow, other.EndRow),
	}, true
}
