package dirty

// Tracker records damage for a fixed rows x cols grid.
//
// It is a plain value owned by whoever mutates the grid; the caller polls
// IsDirty and calls Clear after repainting. Tracker is not safe for
// concurrent use.
type Tracker struct {
	rows int
	cols int

	// dirtyRows[r] is true when row r changed since the last Clear.
	dirtyRows []bool
	count     int

	// fullRedraw indicates the entire grid needs redrawing.
	fullRedraw bool

	// marks counts mark calls since the last Clear.
	marks uint64
}

// NewTracker creates a tracker for a rows x cols grid.
// Negative dimensions are treated as zero.
func NewTracker(rows, cols int) *Tracker {
	rows = max(rows, 0)
	cols = max(cols, 0)
	return &Tracker{
		rows:      rows,
		cols:      cols,
		dirtyRows: make([]bool, rows),
	}
}

// MarkCell marks the row containing the given cell as dirty.
// Out-of-range coordinates are clamped.
// Damage is row-granular, so the column only documents the call site.
func (t *Tracker) MarkCell(row, _ int) {
	t.MarkRow(row)
}

// MarkRow marks a single row as dirty.
func (t *Tracker) MarkRow(row int) {
	t.marks++
	if t.fullRedraw || t.rows == 0 {
		return
	}
	row = clamp(row, 0, t.rows-1)
	if !t.dirtyRows[row] {
		t.dirtyRows[row] = true
		t.count++
	}
	if t.count == t.rows {
		t.fullRedraw = true
	}
}

// MarkRows marks rows a through b (inclusive, either order) as dirty.
func (t *Tracker) MarkRows(a, b int) {
	r := NewRegion(a, b)
	for row := r.StartRow; row <= r.EndRow; row++ {
		if t.fullRedraw {
			break
		}
		t.MarkRow(row)
	}
}

// MarkFull marks the entire grid as needing redraw.
func (t *Tracker) MarkFull() {
	t.marks++
	t.fullRedraw = true
}

// IsDirty returns true if anything changed since the last Clear.
func (t *Tracker) IsDirty() bool {
	return t.fullRedraw || t.count > 0
}

// NeedsFullRedraw returns true if the whole grid changed.
func (t *Tracker) NeedsFullRedraw() bool {
	return t.fullRedraw
}

// IsRowDirty returns true if the given row needs redrawing.
func (t *Tracker) IsRowDirty(row int) bool {
	if row < 0 || row >= t.rows {
		return false
	}
	return t.fullRedraw || t.dirtyRows[row]
}

// DirtyRows returns the indices of rows needing a redraw, in order.
func (t *Tracker) DirtyRows() []int {
	var rows []int
	for row := 0; row < t.rows; row++ {
		if t.fullRedraw || t.dirtyRows[row] {
			rows = append(rows, row)
		}
	}
	return rows
}

// DirtyRegions returns the dirty rows coalesced into contiguous spans.
func (t *Tracker) DirtyRegions() []Region {
	if t.rows == 0 {
		return nil
	}
	if t.fullRedraw {
		return []Region{NewRegion(0, t.rows-1)}
	}

	var regions []Region
	for row := 0; row < t.rows; row++ {
		if !t.dirtyRows[row] {
			continue
		}
		next := NewRegion(row, row)
		if n := len(regions); n > 0 {
			if merged, ok := regions[n-1].Merge(next); ok {
				regions[n-1] = merged
				continue
			}
		}
		regions = append(regions, next)
	}
	return regions
}

// Clear resets the tracker after a repaint.
func (t *Tracker) Clear() {
	clear(t.dirtyRows)
	t.count = 0
	t.fullRedraw = false
	t.marks = 0
}

// Stats returns statistics about the tracker state.
func (t *Tracker) Stats() Stats {
	rows := t.count
	if t.fullRedraw {
		rows = t.rows
	}
	return Stats{
		DirtyRows:  rows,
		FullRedraw: t.fullRedraw,
		Marks:      t.marks,
		Rows:       t.rows,
		Cols:       t.cols,
	}
}

// Stats contains statistics about the tracker state.
type Stats struct {
	DirtyRows  int
	FullRedraw bool
	Marks      uint64
	Rows       int
	Cols       int
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
