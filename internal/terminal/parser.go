package terminal

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// DefaultMaxSequenceLen bounds the bytes accumulated for one CSI sequence.
const DefaultMaxSequenceLen = 256

// MaxParam is the largest value a numeric parameter can take.
const MaxParam = 9999

// State is the parser's escape-processing state.
type State int

const (
	StateNormal State = iota
	StateEscape
	StateCSI
	StateOSC
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateEscape:
		return "escape"
	case StateCSI:
		return "csi"
	case StateOSC:
		return "osc"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// CursorOrder selects the parameter order of CSI H and CSI f.
type CursorOrder int

const (
	// OrderRowCol reads "row;col", the standard VT100 order.
	OrderRowCol CursorOrder = iota
	// OrderColRow reads "col;row".
	OrderColRow
)

// String returns the configuration name of the order.
func (o CursorOrder) String() string {
	if o == OrderColRow {
		return "col_row"
	}
	return "row_col"
}

// ParseCursorOrder parses "row_col" or "col_row".
func ParseCursorOrder(s string) (CursorOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "row_col", "rowcol":
		return OrderRowCol, nil
	case "col_row", "colrow":
		return OrderColRow, nil
	default:
		return OrderRowCol, fmt.Errorf("%w: %q", ErrInvalidCursorOrder, s)
	}
}

// Parser interprets a byte stream from the application and mutates a Screen.
//
// State persists across Feed calls, so an escape sequence or a UTF-8 rune
// may be split anywhere. No input can make the parser panic or move the
// cursor outside the grid; malformed sequences are dropped.
type Parser struct {
	screen *Screen
	logger *slog.Logger

	state State
	seq   []byte // CSI bytes between "ESC [" and the final byte
	max   int
	order CursorOrder

	// Set after a CSI overflow; drops the rest of the aborted sequence.
	discarding bool

	// Pending bytes of a multi-byte UTF-8 rune
	utf8Buf [utf8.UTFMax]byte
	utf8Len int

	params  []int
	private byte

	unknown  uint64
	overflow uint64
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithMaxSequenceLen sets the CSI buffer bound. Values below 16 are raised to 16.
func WithMaxSequenceLen(n int) ParserOption {
	return func(p *Parser) {
		if n < 16 {
			n = 16
		}
		p.max = n
	}
}

// WithCursorOrder sets the parameter order of cursor position sequences.
func WithCursorOrder(order CursorOrder) ParserOption {
	return func(p *Parser) {
		p.order = order
	}
}

// WithLogger sets the logger used to report ignored sequences.
func WithLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a parser that writes to screen.
func NewParser(screen *Screen, opts ...ParserOption) *Parser {
	p := &Parser{
		screen: screen,
		logger: slog.New(slog.DiscardHandler),
		state:  StateNormal,
		max:    DefaultMaxSequenceLen,
		params: make([]int, 0, 16),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.seq = make([]byte, 0, p.max)
	return p
}

// Screen returns the screen the parser writes to.
func (p *Parser) Screen() *Screen {
	return p.screen
}

// State returns the current escape-processing state.
func (p *Parser) State() State {
	return p.state
}

// Unknown returns the number of sequences ignored as unknown or malformed.
func (p *Parser) Unknown() uint64 {
	return p.unknown
}

// Overflows returns the number of CSI sequences aborted for exceeding the bound.
func (p *Parser) Overflows() uint64 {
	return p.overflow
}

// Feed processes data.
func (p *Parser) Feed(data []byte) {
	for _, b := range data {
		p.processByte(b)
	}
}

// FeedString processes s.
func (p *Parser) FeedString(s string) {
	for i := 0; i < len(s); i++ {
		p.processByte(s[i])
	}
}

// Write implements io.Writer so a stream can be copied into the parser.
func (p *Parser) Write(data []byte) (int, error) {
	p.Feed(data)
	return len(data), nil
}

func (p *Parser) processByte(b byte) {
	switch b {
	case 0x18, 0x1A: // CAN, SUB
		p.flushUTF8()
		p.discarding = false
		p.state = StateNormal
		return
	}

	switch p.state {
	case StateNormal:
		p.processNormal(b)
	case StateEscape:
		p.processEscape(b)
	case StateCSI:
		p.processCSI(b)
	case StateOSC:
		p.processOSC(b)
	}
}

func (p *Parser) processNormal(b byte) {
	if p.discarding {
		switch {
		case b >= 0x20 && b <= 0x3F:
			return
		case b >= 0x40 && b <= 0x7E:
			// Final byte of the aborted sequence
			p.discarding = false
			return
		}
		p.discarding = false
	}

	if b >= 0x80 {
		p.processUTF8(b)
		return
	}
	p.flushUTF8()

	switch {
	case b == 0x1B:
		p.state = StateEscape
	case b < 0x20:
		p.execute(b)
	case b == 0x7F:
		// DEL is ignored
	default:
		p.screen.Put(rune(b))
	}
}

// execute runs a C0 control character.
func (p *Parser) execute(b byte) {
	switch b {
	case 0x07: // BEL
		p.screen.Bell()
	case 0x08: // BS
		p.screen.Backspace()
	case 0x09: // HT
		p.screen.Tab()
	case 0x0A, 0x0B, 0x0C: // LF, VT, FF
		p.screen.LineFeed()
	case 0x0D: // CR
		p.screen.CarriageReturn()
	}
}

func (p *Parser) processUTF8(b byte) {
	p.utf8Buf[p.utf8Len] = b
	p.utf8Len++
	if !utf8.FullRune(p.utf8Buf[:p.utf8Len]) {
		return
	}

	r, size := utf8.DecodeRune(p.utf8Buf[:p.utf8Len])
	var rest [utf8.UTFMax]byte
	n := copy(rest[:], p.utf8Buf[size:p.utf8Len])
	p.utf8Len = 0

	// Invalid input decodes to utf8.RuneError, which is U+FFFD.
	p.screen.Put(r)
	for _, c := range rest[:n] {
		p.processUTF8(c)
	}
}

// flushUTF8 prints a replacement for an incomplete rune, if any.
func (p *Parser) flushUTF8() {
	if p.utf8Len > 0 {
		p.utf8Len = 0
		p.screen.Put(utf8.RuneError)
	}
}

func (p *Parser) processEscape(b byte) {
	switch b {
	case '[':
		p.seq = p.seq[:0]
		p.state = StateCSI
	case ']':
		p.state = StateOSC
	default:
		// Single-character escapes are not interpreted. A second ESC is
		// one of them.
		p.state = StateNormal
	}
}

func (p *Parser) processCSI(b byte) {
	switch {
	case b == 0x1B:
		p.state = StateEscape
	case b < 0x20:
		// C0 controls execute in the middle of a sequence.
		p.execute(b)
	case b >= 0x40 && b <= 0x7E:
		p.state = StateNormal
		p.dispatchCSI(b)
	case b == 0x7F:
		// Ignored
	default:
		if len(p.seq) >= p.max {
			p.overflow++
			p.logger.Debug("escape sequence overflow", "limit", p.max)
			p.seq = p.seq[:0]
			p.state = StateNormal
			p.discarding = true
			return
		}
		p.seq = append(p.seq, b)
	}
}

func (p *Parser) processOSC(b byte) {
	switch b {
	case 0x07:
		p.state = StateNormal
	case 0x1B:
		// ESC usually starts the ST terminator "ESC \".
		p.state = StateEscape
	}
	// OSC content is discarded.
}

// parseParams splits the CSI buffer into a private marker and numeric
// parameters. It returns false for anything it does not understand.
func (p *Parser) parseParams() bool {
	p.params = p.params[:0]
	p.private = 0

	seq := p.seq
	if len(seq) > 0 && seq[0] >= '<' && seq[0] <= '?' {
		p.private = seq[0]
		seq = seq[1:]
	}
	if len(seq) == 0 {
		return true
	}

	cur := 0
	for _, b := range seq {
		switch {
		case b >= '0' && b <= '9':
			cur = cur*10 + int(b-'0')
			if cur > MaxParam {
				cur = MaxParam
			}
		case b == ';', b == ':':
			p.params = append(p.params, cur)
			cur = 0
		default:
			return false
		}
	}
	p.params = append(p.params, cur)
	return true
}

// param returns parameter i, or def when it is missing or zero.
func (p *Parser) param(i, def int) int {
	if i < len(p.params) && p.params[i] != 0 {
		return p.params[i]
	}
	return def
}

func (p *Parser) dispatchCSI(final byte) {
	if !p.parseParams() {
		p.reportUnknown(final)
		return
	}

	if p.private != 0 {
		if p.private == '?' && (final == 'h' || final == 'l') {
			p.handlePrivateMode(final == 'h')
			return
		}
		p.reportUnknown(final)
		return
	}

	s := p.screen
	row, col := s.Cursor()

	switch final {
	case 'A': // CUU
		s.MoveCursorRelative(-p.param(0, 1), 0)
	case 'B': // CUD
		s.MoveCursorRelative(p.param(0, 1), 0)
	case 'C': // CUF
		s.MoveCursorRelative(0, p.param(0, 1))
	case 'D': // CUB
		s.MoveCursorRelative(0, -p.param(0, 1))
	case 'E': // CNL
		s.MoveCursor(row+p.param(0, 1), 0)
	case 'F': // CPL
		s.MoveCursor(row-p.param(0, 1), 0)
	case 'G', '`': // CHA, HPA
		s.MoveCursor(row, p.param(0, 1)-1)
	case 'd': // VPA
		s.MoveCursor(p.param(0, 1)-1, col)
	case 'H', 'f': // CUP, HVP
		first, second := p.param(0, 1), p.param(1, 1)
		if p.order == OrderColRow {
			first, second = second, first
		}
		s.MoveCursor(first-1, second-1)
	case 'J': // ED
		// Only a full clear is supported; the cursor stays put.
		if p.param(0, 0) == 2 {
			s.Clear(EraseAll)
		}
	case 'K': // EL
		switch n := p.param(0, 0); n {
		case 0, 1, 2:
			s.EraseLine(EraseMode(n))
		}
	case 'L': // IL
		s.InsertLines(p.param(0, 1))
	case 'M': // DL
		s.DeleteLines(p.param(0, 1))
	case 'P': // DCH
		s.DeleteChars(p.param(0, 1))
	case 'X': // ECH
		s.EraseChars(p.param(0, 1))
	case 'm': // SGR
		p.handleSGR()
	case 's': // SCP
		s.SaveCursor()
	case 'u': // RCP
		s.RestoreCursor()
	case 'h', 'l':
		// Public modes are accepted and ignored.
	default:
		p.reportUnknown(final)
	}
}

func (p *Parser) handlePrivateMode(set bool) {
	for _, mode := range p.params {
		switch mode {
		case 25: // DECTCEM
			p.screen.SetCursorVisible(set)
		}
	}
}

func (p *Parser) handleSGR() {
	s := p.screen
	if len(p.params) == 0 {
		s.ResetAttr()
		return
	}

	for i := 0; i < len(p.params); i++ {
		code := p.params[i]
		switch {
		case code == 0:
			s.ResetAttr()
		case code == 1:
			s.SetAttr(AttrBold)
		case code == 4:
			s.SetAttr(AttrUnderline)
		case code == 7:
			s.SetAttr(AttrReverse)
		case code == 22:
			s.ClearAttr(AttrBold)
		case code == 24:
			s.ClearAttr(AttrUnderline)
		case code == 27:
			s.ClearAttr(AttrReverse)
		case code >= 30 && code <= 37:
			s.SetForeground(IndexedColor(code - 30))
		case code == 39:
			s.SetForeground(DefaultColor)
		case code >= 40 && code <= 47:
			s.SetBackground(IndexedColor(code - 40))
		case code == 49:
			s.SetBackground(DefaultColor)
		case code >= 90 && code <= 97:
			s.SetForeground(IndexedColor(code - 90 + 8))
		case code >= 100 && code <= 107:
			s.SetBackground(IndexedColor(code - 100 + 8))
		case code == 38, code == 48:
			i = p.skipExtendedColor(i)
		}
	}
}

// skipExtendedColor consumes the sub-parameters of SGR 38 or 48 starting
// at index i and returns the index of the last one.
func (p *Parser) skipExtendedColor(i int) int {
	if i+1 >= len(p.params) {
		return i
	}
	switch p.params[i+1] {
	case 5: // 256-color: 38;5;n
		return min(i+2, len(p.params)-1)
	case 2: // true color: 38;2;r;g;b
		return min(i+4, len(p.params)-1)
	default:
		return i + 1
	}
}

func (p *Parser) reportUnknown(final byte) {
	p.unknown++
	p.logger.Debug("ignored escape sequence", "seq", "CSI "+string(p.seq)+string(final))
}
