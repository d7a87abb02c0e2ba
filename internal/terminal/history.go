package terminal

import "strings"

// History is a bounded FIFO of rows scrolled off the top of the screen.
// When full, the oldest row is dropped.
type History struct {
	lines [][]Cell
	head  int // index of the oldest line
	count int
}

// NewHistory creates a history holding at most capacity rows.
// A non-positive capacity returns nil; a nil *History ignores pushes.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		return nil
	}
	return &History{lines: make([][]Cell, capacity)}
}

// Push appends a copy of row, evicting the oldest row at capacity.
func (h *History) Push(row []Cell) {
	if h == nil {
		return
	}
	line := make([]Cell, len(row))
	copy(line, row)

	if h.count < len(h.lines) {
		h.lines[(h.head+h.count)%len(h.lines)] = line
		h.count++
		return
	}
	h.lines[h.head] = line
	h.head = (h.head + 1) % len(h.lines)
}

// Line returns a line from history (0 = oldest), or nil if out of range.
func (h *History) Line(index int) []Cell {
	if h == nil || index < 0 || index >= h.count {
		return nil
	}
	return h.lines[(h.head+index)%len(h.lines)]
}

// Len returns the number of lines in history.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return h.count
}

// Cap returns the maximum number of lines kept.
func (h *History) Cap() int {
	if h == nil {
		return 0
	}
	return len(h.lines)
}

// Clear drops all lines.
func (h *History) Clear() {
	if h == nil {
		return
	}
	clear(h.lines)
	h.head = 0
	h.count = 0
}

// LineText returns the text of one history line, oldest first.
func (h *History) LineText(index int) string {
	return cellsText(h.Line(index))
}

// Text returns all history lines, oldest first, with trailing blanks trimmed.
func (h *History) Text() string {
	var sb strings.Builder
	for i := 0; i < h.Len(); i++ {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(cellsText(h.Line(i)))
	}
	return sb.String()
}

func cellsText(cells []Cell) string {
	runes := make([]rune, 0, len(cells))
	for _, c := range cells {
		if c.IsContinuation() {
			continue
		}
		if c.Rune == 0 {
			runes = append(runes, ' ')
			continue
		}
		runes = append(runes, c.Rune)
	}
	return strings.TrimRight(string(runes), " ")
}
