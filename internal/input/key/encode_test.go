package key

import (
	"bytes"
	"testing"

	"github.com/dshills/inkterm/internal/terminal"
)

func TestEncodeSpecialKeys(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{CodeEnter, "\r"},
		{CodeKPEnter, "\r"},
		{CodeBackspace, "\x7f"},
		{CodeTab, "\t"},
		{CodeEsc, "\x1b"},
		{CodeUp, "\x1b[A"},
		{CodeDown, "\x1b[B"},
		{CodeRight, "\x1b[C"},
		{CodeLeft, "\x1b[D"},
		{CodeHome, "\x1b[H"},
		{CodeEnd, "\x1b[F"},
		{CodePageUp, "\x1b[5~"},
		{CodePageDown, "\x1b[6~"},
		{CodeDelete, "\x1b[3~"},
		{CodeInsert, "\x1b[2~"},
		{CodeF1, "\x1bOP"},
		{CodeF5, "\x1b[15~"},
		{CodeF12, "\x1b[24~"},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			got := Encode(tt.code, ModNone)
			if string(got) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEncodePrintable(t *testing.T) {
	tests := []struct {
		code Code
		mods Modifier
		want string
	}{
		{CodeA, ModNone, "a"},
		{CodeA, ModShift, "A"},
		{CodeZ, ModShift, "Z"},
		{Code1, ModNone, "1"},
		{Code1, ModShift, "!"},
		{Code2, ModShift, "@"},
		{CodeMinus, ModShift, "_"},
		{CodeEqual, ModShift, "+"},
		{CodeSemicolon, ModShift, ":"},
		{CodeApostrophe, ModShift, "\""},
		{CodeGrave, ModShift, "~"},
		{CodeBackslash, ModNone, "\\"},
		{CodeSlash, ModShift, "?"},
		{CodeSpace, ModNone, " "},
		{CodeKPPlus, ModNone, "+"},
	}

	for _, tt := range tests {
		got := Encode(tt.code, tt.mods)
		if string(got) != tt.want {
			t.Errorf("%v %v: expected %q, got %q", tt.mods, tt.code, tt.want, got)
		}
	}
}

func TestEncodeCtrl(t *testing.T) {
	letters := []Code{
		CodeA, CodeB, CodeC, CodeD, CodeE, CodeF, CodeG, CodeH, CodeI, CodeJ,
		CodeK, CodeL, CodeM, CodeN, CodeO, CodeP, CodeQ, CodeR, CodeS, CodeT,
		CodeU, CodeV, CodeW, CodeX, CodeY, CodeZ,
	}
	for i, c := range letters {
		want := []byte{byte(i + 1)}
		if got := Encode(c, ModCtrl); !bytes.Equal(got, want) {
			t.Errorf("ctrl+%v: expected %q, got %q", c, want, got)
		}
		if got := Encode(c, ModCtrl|ModShift); !bytes.Equal(got, want) {
			t.Errorf("ctrl+shift+%v: expected %q, got %q", c, want, got)
		}
	}

	tests := []struct {
		code Code
		want byte
	}{
		{CodeSpace, 0x00},
		{CodeLeftBrace, 0x1b},
		{CodeBackslash, 0x1c},
		{CodeRightBrace, 0x1d},
	}
	for _, tt := range tests {
		got := Encode(tt.code, ModCtrl)
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("ctrl+%v: expected %#x, got %q", tt.code, tt.want, got)
		}
	}
}

func TestEncodeAltPrefixesEscape(t *testing.T) {
	tests := []struct {
		code Code
		mods Modifier
		want string
	}{
		{CodeX, ModAlt, "\x1bx"},
		{CodeX, ModAlt | ModShift, "\x1bX"},
		{CodeC, ModAlt | ModCtrl, "\x1b\x03"},
		{CodeEnter, ModAlt, "\x1b\r"},
		{CodeUp, ModAlt, "\x1b\x1b[A"},
	}

	for _, tt := range tests {
		if got := Encode(tt.code, tt.mods); string(got) != tt.want {
			t.Errorf("%v: expected %q, got %q", Event{Code: tt.code, Mods: tt.mods}, tt.want, got)
		}
	}
}

func TestEncodeShiftTab(t *testing.T) {
	if got := Encode(CodeTab, ModShift); string(got) != "\x1b[Z" {
		t.Errorf("expected back-tab, got %q", got)
	}
}

func TestEncodeUnknownIsEmpty(t *testing.T) {
	for _, c := range []Code{CodeNone, CodeLeftShift, CodeRightCtrl, CodeLeftAlt, CodeCapsLock, CodeKP5, Code(999)} {
		if got := Encode(c, ModNone); len(got) != 0 {
			t.Errorf("%v: expected empty sequence, got %q", c, got)
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	for c := Code(0); c < 256; c++ {
		for m := Modifier(0); m < 8; m++ {
			a, b := Encode(c, m), Encode(c, m)
			if !bytes.Equal(a, b) {
				t.Fatalf("%v %v: encoding differs between calls", m, c)
			}
		}
	}

	for c := range special {
		if len(Encode(c, ModNone)) == 0 {
			t.Errorf("%v: expected non-empty sequence", c)
		}
	}
}

func TestEncodeRoundTripThroughParser(t *testing.T) {
	tests := []struct {
		name    string
		code    Code
		wantRow int
		wantCol int
	}{
		{"enter returns to column 0", CodeEnter, 5, 0},
		{"up", CodeUp, 4, 10},
		{"down", CodeDown, 6, 10},
		{"right", CodeRight, 5, 11},
		{"left", CodeLeft, 5, 9},
		{"home", CodeHome, 0, 0},
		{"tab", CodeTab, 5, 16},
		{"printable advances", CodeA, 5, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := terminal.NewScreen(24, 80)
			p := terminal.NewParser(s)
			s.MoveCursor(5, 10)

			p.Feed(Encode(tt.code, ModNone))

			row, col := s.Cursor()
			if row != tt.wantRow || col != tt.wantCol {
				t.Errorf("expected (%d,%d), got (%d,%d)", tt.wantRow, tt.wantCol, row, col)
			}
		})
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{NewEvent(CodeA, ModNone), "a"},
		{NewEvent(CodeT, ModCtrl|ModAlt), "ctrl+alt+t"},
		{NewEvent(CodeTab, ModShift), "shift+tab"},
		{NewEvent(Code(999), ModNone), "code(999)"},
	}

	for _, tt := range tests {
		if got := tt.event.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}

	if got := NewEvent(CodeEnter, ModNone).Encode(); string(got) != "\r" {
		t.Errorf("expected \\r, got %q", got)
	}
}
