package key

// printableKey is the character a key types without and with Shift.
type printableKey struct {
	plain   byte
	shifted byte
}

// printable is the US layout for character-producing keys.
var printable = map[Code]printableKey{
	Code1: {'1', '!'}, Code2: {'2', '@'}, Code3: {'3', '#'}, Code4: {'4', '$'},
	Code5: {'5', '%'}, Code6: {'6', '^'}, Code7: {'7', '&'}, Code8: {'8', '*'},
	Code9: {'9', '('}, Code0: {'0', ')'},
	CodeMinus: {'-', '_'}, CodeEqual: {'=', '+'},
	CodeQ: {'q', 'Q'}, CodeW: {'w', 'W'}, CodeE: {'e', 'E'}, CodeR: {'r', 'R'},
	CodeT: {'t', 'T'}, CodeY: {'y', 'Y'}, CodeU: {'u', 'U'}, CodeI: {'i', 'I'},
	CodeO: {'o', 'O'}, CodeP: {'p', 'P'},
	CodeLeftBrace: {'[', '{'}, CodeRightBrace: {']', '}'},
	CodeA: {'a', 'A'}, CodeS: {'s', 'S'}, CodeD: {'d', 'D'}, CodeF: {'f', 'F'},
	CodeG: {'g', 'G'}, CodeH: {'h', 'H'}, CodeJ: {'j', 'J'}, CodeK: {'k', 'K'},
	CodeL: {'l', 'L'},
	CodeSemicolon: {';', ':'}, CodeApostrophe: {'\'', '"'}, CodeGrave: {'`', '~'},
	CodeBackslash: {'\\', '|'},
	CodeZ: {'z', 'Z'}, CodeX: {'x', 'X'}, CodeC: {'c', 'C'}, CodeV: {'v', 'V'},
	CodeB: {'b', 'B'}, CodeN: {'n', 'N'}, CodeM: {'m', 'M'},
	CodeComma: {',', '<'}, CodeDot: {'.', '>'}, CodeSlash: {'/', '?'},
	CodeSpace: {' ', ' '},
}

// keypad maps keypad operator keys to their characters. Digits on the
// keypad depend on NumLock, which is not tracked, so they are not mapped.
var keypad = map[Code]byte{
	CodeKPAsterisk: '*',
	CodeKPMinus:    '-',
	CodeKPPlus:     '+',
	CodeKPSlash:    '/',
}

// shiftedCodes maps shifted punctuation back to its key.
var shiftedCodes = func() map[rune]Code {
	m := make(map[rune]Code)
	for c, p := range printable {
		if p.shifted != p.plain && (p.shifted < 'A' || p.shifted > 'Z') {
			m[rune(p.shifted)] = c
		}
	}
	return m
}()

// special maps non-printing keys to their fixed sequences.
var special = map[Code]string{
	CodeEnter:     "\r",
	CodeKPEnter:   "\r",
	CodeBackspace: "\x7f",
	CodeTab:       "\t",
	CodeEsc:       "\x1b",
	CodeUp:        "\x1b[A",
	CodeDown:      "\x1b[B",
	CodeRight:     "\x1b[C",
	CodeLeft:      "\x1b[D",
	CodeHome:      "\x1b[H",
	CodeEnd:       "\x1b[F",
	CodeInsert:    "\x1b[2~",
	CodeDelete:    "\x1b[3~",
	CodePageUp:    "\x1b[5~",
	CodePageDown:  "\x1b[6~",
	CodeF1:        "\x1bOP",
	CodeF2:        "\x1bOQ",
	CodeF3:        "\x1bOR",
	CodeF4:        "\x1bOS",
	CodeF5:        "\x1b[15~",
	CodeF6:        "\x1b[17~",
	CodeF7:        "\x1b[18~",
	CodeF8:        "\x1b[19~",
	CodeF9:        "\x1b[20~",
	CodeF10:       "\x1b[21~",
	CodeF11:       "\x1b[23~",
	CodeF12:       "\x1b[24~",
}

// Encode returns the bytes a key press sends to the application.
//
// Encode is total and deterministic: special keys map to fixed ANSI
// sequences, printable keys to their (shifted) character, Ctrl+letter to
// 0x01-0x1A, and Alt prefixes ESC. Modifier keys and unknown codes
// encode to nil.
func Encode(code Code, mods Modifier) []byte {
	var out []byte

	switch {
	case code == CodeTab && mods.HasShift():
		out = []byte("\x1b[Z")
	case special[code] != "":
		out = []byte(special[code])
	default:
		p, ok := printable[code]
		if !ok {
			ch, ok := keypad[code]
			if !ok {
				return nil
			}
			p = printableKey{ch, ch}
		}
		ch := p.plain
		if mods.HasShift() {
			ch = p.shifted
		}
		if mods.HasCtrl() {
			if c, ok := controlByte(ch); ok {
				ch = c
			}
		}
		out = []byte{ch}
	}

	if mods.HasAlt() {
		out = append([]byte{0x1b}, out...)
	}
	return out
}

// controlByte maps a character to its Ctrl combination.
func controlByte(ch byte) (byte, bool) {
	switch {
	case ch >= 'a' && ch <= 'z':
		return ch - 'a' + 1, true
	case ch >= 'A' && ch <= 'Z':
		return ch - 'A' + 1, true
	case ch == ' ', ch == '@', ch == '2':
		return 0x00, true
	case ch == '[':
		return 0x1b, true
	case ch == '\\':
		return 0x1c, true
	case ch == ']':
		return 0x1d, true
	case ch == '^', ch == '6':
		return 0x1e, true
	case ch == '_', ch == '-':
		return 0x1f, true
	case ch == '?', ch == '/':
		return 0x7f, true
	}
	return 0, false
}
