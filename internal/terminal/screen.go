package terminal

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dshills/inkterm/internal/renderer/dirty"
)

// Default grid dimensions used when a caller passes a non-positive size.
const (
	DefaultRows = 24
	DefaultCols = 80
)

// TabWidth is the distance between tab stops.
const TabWidth = 8

// EraseMode selects the extent of an erase operation.
type EraseMode int

const (
	// EraseToEnd clears from the cursor to the end (inclusive).
	EraseToEnd EraseMode = 0
	// EraseToStart clears from the start to the cursor (inclusive).
	EraseToStart EraseMode = 1
	// EraseAll clears everything.
	EraseAll EraseMode = 2
)

// Screen is a fixed rows x cols grid of cells plus cursor and pen state.
//
// Dimensions never change after construction. Coordinates passed to any
// method are clamped into the grid, so malformed input can move the cursor
// to an edge but never out of bounds. Every mutation marks the damage
// tracker; reads never do.
//
// Printing into the last column leaves the cursor there with a wrap
// pending. The next printed rune or tab wraps first; carriage return, line
// feed, cursor movement and erases cancel the pending wrap.
//
// Screen is not safe for concurrent use.
type Screen struct {
	rows  int
	cols  int
	cells []Cell

	// Cursor position (0-indexed), always inside the grid.
	row int
	col int

	// Set after printing into the last column.
	wrapPending bool

	cursorVisible bool

	// Pen applied to the next printed cell
	attrs Attr
	fg    Color
	bg    Color

	// Saved cursor state
	savedRow, savedCol int
	savedAttrs         Attr
	savedFg, savedBg   Color

	damage  *dirty.Tracker
	history *History
	bells   uint64
}

// ScreenOption configures a Screen.
type ScreenOption func(*Screen)

// WithScrollback keeps up to n scrolled-off rows. Zero disables scrollback.
func WithScrollback(n int) ScreenOption {
	return func(s *Screen) {
		s.history = NewHistory(n)
	}
}

// NewScreen creates a blank screen with the given dimensions.
func NewScreen(rows, cols int, opts ...ScreenOption) *Screen {
	if rows < 1 {
		rows = DefaultRows
	}
	if cols < 1 {
		cols = DefaultCols
	}

	s := &Screen{
		rows:          rows,
		cols:          cols,
		cells:         make([]Cell, rows*cols),
		cursorVisible: true,
		fg:            DefaultColor,
		bg:            DefaultColor,
		savedFg:       DefaultColor,
		savedBg:       DefaultColor,
		damage:        dirty.NewTracker(rows, cols),
	}
	for i := range s.cells {
		s.cells[i] = BlankCell()
	}
	for _, opt := range opts {
		opt(s)
	}

	// A fresh screen has never been painted.
	s.damage.MarkFull()
	return s
}

// Dimensions returns the grid size.
func (s *Screen) Dimensions() (rows, cols int) {
	return s.rows, s.cols
}

// Cursor returns the cursor position.
func (s *Screen) Cursor() (row, col int) {
	return s.row, s.col
}

// WrapPending reports whether the next printed rune wraps to a new line.
func (s *Screen) WrapPending() bool {
	return s.wrapPending
}

// CursorVisible returns whether the cursor is visible.
func (s *Screen) CursorVisible() bool {
	return s.cursorVisible
}

// Attr returns the attributes applied to the next printed cell.
func (s *Screen) Attr() Attr {
	return s.attrs
}

// Pen returns the colors applied to the next printed cell.
func (s *Screen) Pen() (fg, bg Color) {
	return s.fg, s.bg
}

// Damage returns the tracker marked by every mutation.
func (s *Screen) Damage() *dirty.Tracker {
	return s.damage
}

// Scrollback returns the scrollback history, or nil when disabled.
func (s *Screen) Scrollback() *History {
	return s.history
}

// Bells returns the number of BEL characters received.
func (s *Screen) Bells() uint64 {
	return s.bells
}

// index converts a position to an offset into cells, clamping both axes.
// It is the only place coordinates become offsets.
func (s *Screen) index(row, col int) int {
	return clamp(row, 0, s.rows-1)*s.cols + clamp(col, 0, s.cols-1)
}

// CellAt returns the cell at the given position, clamped into the grid.
func (s *Screen) CellAt(row, col int) Cell {
	return s.cells[s.index(row, col)]
}

// Row returns a copy of the given row, clamped into the grid.
func (s *Screen) Row(row int) []Cell {
	start := s.index(row, 0)
	cells := make([]Cell, s.cols)
	copy(cells, s.cells[start:start+s.cols])
	return cells
}

func (s *Screen) rowSlice(row int) []Cell {
	start := s.index(row, 0)
	return s.cells[start : start+s.cols]
}

// Put writes r at the cursor with the current pen and advances the cursor.
// A rune printed while a wrap is pending, or a wide rune that does not fit,
// moves to the next row first (scrolling at the bottom).
func (s *Screen) Put(r rune) {
	if r < 0x20 || r == 0x7F {
		return
	}

	width := runewidth.RuneWidth(r)
	if width == 0 {
		// Combining marks and zero-width runes have no cell of their own.
		return
	}
	if width > 1 && s.cols < 2 {
		width = 1
	}

	if s.wrapPending {
		s.newline()
	}
	if width == 2 && s.col == s.cols-1 {
		s.setCell(s.row, s.col, BlankCell())
		s.newline()
	}

	s.setCell(s.row, s.col, Cell{
		Rune:  r,
		Width: width,
		Fg:    s.fg,
		Bg:    s.bg,
		Attrs: s.attrs,
	})
	if width == 2 {
		s.setCell(s.row, s.col+1, Cell{
			Width: 0,
			Fg:    s.fg,
			Bg:    s.bg,
			Attrs: s.attrs,
		})
	}

	s.col += width
	if s.col >= s.cols {
		s.col = s.cols - 1
		s.wrapPending = true
	}
}

// setCell stores cell at (row, col), blanking any wide-rune half it splits.
func (s *Screen) setCell(row, col int, cell Cell) {
	line := s.rowSlice(row)
	col = clamp(col, 0, s.cols-1)

	old := line[col]
	if old.IsContinuation() && col > 0 && cell.Width != 0 {
		line[col-1] = BlankCell()
	}
	if old.Width == 2 && col+1 < s.cols && cell.Width != 2 {
		line[col+1] = BlankCell()
	}

	line[col] = cell
	s.damage.MarkCell(row, col)
}

// newline moves to column 0 of the next row, scrolling at the bottom.
func (s *Screen) newline() {
	s.col = 0
	s.lineFeed()
}

func (s *Screen) lineFeed() {
	s.wrapPending = false
	s.damage.MarkRow(s.row)
	if s.row >= s.rows-1 {
		s.row = s.rows - 1
		s.ScrollUp()
		return
	}
	s.row++
	s.damage.MarkRow(s.row)
}

// LineFeed moves the cursor down one row, scrolling at the bottom.
// The column is unchanged.
func (s *Screen) LineFeed() {
	s.lineFeed()
}

// CarriageReturn moves the cursor to column 0.
func (s *Screen) CarriageReturn() {
	s.col = 0
	s.wrapPending = false
	s.damage.MarkRow(s.row)
}

// Backspace moves the cursor one column left, stopping at column 0.
// With a wrap pending it only cancels the wrap.
func (s *Screen) Backspace() {
	switch {
	case s.wrapPending:
		s.wrapPending = false
	case s.col > 0:
		s.col--
	}
	s.damage.MarkRow(s.row)
}

// Tab advances to the next tab stop, wrapping like a printed character
// when the stop lies past the last column.
func (s *Screen) Tab() {
	next := (s.col/TabWidth + 1) * TabWidth
	if s.wrapPending || next >= s.cols {
		s.newline()
		return
	}
	s.col = next
	s.damage.MarkRow(s.row)
}

// Bell records a BEL. The grid is unchanged.
func (s *Screen) Bell() {
	s.bells++
}

// MoveCursor moves the cursor to (row, col), clamped into the grid.
func (s *Screen) MoveCursor(row, col int) {
	s.wrapPending = false
	s.damage.MarkRow(s.row)
	s.row = clamp(row, 0, s.rows-1)
	s.col = clamp(col, 0, s.cols-1)
	s.damage.MarkRow(s.row)
}

// MoveCursorRelative moves the cursor by the given delta, clamped into the grid.
func (s *Screen) MoveCursorRelative(dRow, dCol int) {
	s.MoveCursor(s.row+dRow, s.col+dCol)
}

// ScrollUp shifts every row up by one. Row 0 goes to scrollback (if any)
// and the new bottom row is blank.
func (s *Screen) ScrollUp() {
	s.history.Push(s.rowSlice(0))
	copy(s.cells, s.cells[s.cols:])
	fillBlank(s.rowSlice(s.rows - 1))
	s.damage.MarkFull()
}

// Clear erases the display. The cursor does not move.
func (s *Screen) Clear(mode EraseMode) {
	s.wrapPending = false
	switch mode {
	case EraseToEnd:
		fillBlank(s.cells[s.index(s.row, s.col):])
		s.damage.MarkRows(s.row, s.rows-1)
	case EraseToStart:
		fillBlank(s.cells[:s.index(s.row, s.col)+1])
		s.damage.MarkRows(0, s.row)
	case EraseAll:
		fillBlank(s.cells)
		s.damage.MarkFull()
	}
}

// EraseLine erases part or all of the cursor row. The cursor does not move.
func (s *Screen) EraseLine(mode EraseMode) {
	s.wrapPending = false
	line := s.rowSlice(s.row)
	switch mode {
	case EraseToEnd:
		fillBlank(line[s.col:])
	case EraseToStart:
		fillBlank(line[:s.col+1])
	case EraseAll:
		fillBlank(line)
	default:
		return
	}
	s.damage.MarkRow(s.row)
}

// InsertLines inserts n blank rows at the cursor row, pushing rows below
// it down and off the bottom.
func (s *Screen) InsertLines(n int) {
	s.wrapPending = false
	n = clamp(n, 0, s.rows-s.row)
	if n == 0 {
		return
	}
	start := s.index(s.row, 0)
	copy(s.cells[start+n*s.cols:], s.cells[start:len(s.cells)-n*s.cols])
	fillBlank(s.cells[start : start+n*s.cols])
	s.damage.MarkRows(s.row, s.rows-1)
}

// DeleteLines removes n rows at the cursor row, pulling rows below it up
// and blanking the bottom.
func (s *Screen) DeleteLines(n int) {
	s.wrapPending = false
	n = clamp(n, 0, s.rows-s.row)
	if n == 0 {
		return
	}
	start := s.index(s.row, 0)
	copy(s.cells[start:], s.cells[start+n*s.cols:])
	fillBlank(s.cells[len(s.cells)-n*s.cols:])
	s.damage.MarkRows(s.row, s.rows-1)
}

// DeleteChars removes n cells at the cursor, shifting the rest of the row left.
func (s *Screen) DeleteChars(n int) {
	s.wrapPending = false
	line := s.rowSlice(s.row)
	n = clamp(n, 0, s.cols-s.col)
	if n == 0 {
		return
	}
	copy(line[s.col:], line[s.col+n:])
	fillBlank(line[s.cols-n:])
	s.damage.MarkRow(s.row)
}

// EraseChars blanks n cells starting at the cursor.
func (s *Screen) EraseChars(n int) {
	s.wrapPending = false
	line := s.rowSlice(s.row)
	n = clamp(n, 0, s.cols-s.col)
	if n == 0 {
		return
	}
	fillBlank(line[s.col : s.col+n])
	s.damage.MarkRow(s.row)
}

// SetAttr turns on the given attributes for subsequently printed cells.
func (s *Screen) SetAttr(flags Attr) {
	s.setPen(s.attrs|flags, s.fg, s.bg)
}

// ClearAttr turns off the given attributes.
func (s *Screen) ClearAttr(flags Attr) {
	s.setPen(s.attrs&^flags, s.fg, s.bg)
}

// ResetAttr restores default attributes and colors.
func (s *Screen) ResetAttr() {
	s.setPen(AttrNone, DefaultColor, DefaultColor)
}

// SetForeground sets the foreground color for subsequently printed cells.
func (s *Screen) SetForeground(c Color) {
	s.setPen(s.attrs, c, s.bg)
}

// SetBackground sets the background color for subsequently printed cells.
func (s *Screen) SetBackground(c Color) {
	s.setPen(s.attrs, s.fg, c)
}

// setPen updates the pen, marking the cursor row when anything changes.
func (s *Screen) setPen(attrs Attr, fg, bg Color) {
	if attrs == s.attrs && fg == s.fg && bg == s.bg {
		return
	}
	s.attrs, s.fg, s.bg = attrs, fg, bg
	s.damage.MarkRow(s.row)
}

// SetCursorVisible shows or hides the cursor.
func (s *Screen) SetCursorVisible(visible bool) {
	if s.cursorVisible != visible {
		s.cursorVisible = visible
		s.damage.MarkRow(s.row)
	}
}

// SaveCursor saves the cursor position and pen.
func (s *Screen) SaveCursor() {
	s.savedRow, s.savedCol = s.row, s.col
	s.savedAttrs = s.attrs
	s.savedFg, s.savedBg = s.fg, s.bg
	s.damage.MarkRow(s.row)
}

// RestoreCursor restores the state saved by SaveCursor.
func (s *Screen) RestoreCursor() {
	s.MoveCursor(s.savedRow, s.savedCol)
	s.setPen(s.savedAttrs, s.savedFg, s.savedBg)
}

// RowText returns the text of a row with trailing blanks trimmed.
func (s *Screen) RowText(row int) string {
	return cellsText(s.rowSlice(row))
}

// Text returns the visible grid as text, one line per row.
func (s *Screen) Text() string {
	var sb strings.Builder
	for row := 0; row < s.rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(s.RowText(row))
	}
	return sb.String()
}

func fillBlank(cells []Cell) {
	for i := range cells {
		cells[i] = BlankCell()
	}
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
