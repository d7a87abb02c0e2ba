package key

import (
	"strconv"
	"strings"
)

// Code is a Linux evdev key code, as reported in input_event.code.
type Code uint16

// Key codes from linux/input-event-codes.h.
const (
	CodeNone       Code = 0
	CodeEsc        Code = 1
	Code1          Code = 2
	Code2          Code = 3
	Code3          Code = 4
	Code4          Code = 5
	Code5          Code = 6
	Code6          Code = 7
	Code7          Code = 8
	Code8          Code = 9
	Code9          Code = 10
	Code0          Code = 11
	CodeMinus      Code = 12
	CodeEqual      Code = 13
	CodeBackspace  Code = 14
	CodeTab        Code = 15
	CodeQ          Code = 16
	CodeW          Code = 17
	CodeE          Code = 18
	CodeR          Code = 19
	CodeT          Code = 20
	CodeY          Code = 21
	CodeU          Code = 22
	CodeI          Code = 23
	CodeO          Code = 24
	CodeP          Code = 25
	CodeLeftBrace  Code = 26
	CodeRightBrace Code = 27
	CodeEnter      Code = 28
	CodeLeftCtrl   Code = 29
	CodeA          Code = 30
	CodeS          Code = 31
	CodeD          Code = 32
	CodeF          Code = 33
	CodeG          Code = 34
	CodeH          Code = 35
	CodeJ          Code = 36
	CodeK          Code = 37
	CodeL          Code = 38
	CodeSemicolon  Code = 39
	CodeApostrophe Code = 40
	CodeGrave      Code = 41
	CodeLeftShift  Code = 42
	CodeBackslash  Code = 43
	CodeZ          Code = 44
	CodeX          Code = 45
	CodeC          Code = 46
	CodeV          Code = 47
	CodeB          Code = 48
	CodeN          Code = 49
	CodeM          Code = 50
	CodeComma      Code = 51
	CodeDot        Code = 52
	CodeSlash      Code = 53
	CodeRightShift Code = 54
	CodeKPAsterisk Code = 55
	CodeLeftAlt    Code = 56
	CodeSpace      Code = 57
	CodeCapsLock   Code = 58
	CodeF1         Code = 59
	CodeF2         Code = 60
	CodeF3         Code = 61
	CodeF4         Code = 62
	CodeF5         Code = 63
	CodeF6         Code = 64
	CodeF7         Code = 65
	CodeF8         Code = 66
	CodeF9         Code = 67
	CodeF10        Code = 68
	CodeNumLock    Code = 69
	CodeScrollLock Code = 70
	CodeKP7        Code = 71
	CodeKP8        Code = 72
	CodeKP9        Code = 73
	CodeKPMinus    Code = 74
	CodeKP4        Code = 75
	CodeKP5        Code = 76
	CodeKP6        Code = 77
	CodeKPPlus     Code = 78
	CodeKP1        Code = 79
	CodeKP2        Code = 80
	CodeKP3        Code = 81
	CodeKP0        Code = 82
	CodeKPDot      Code = 83
	CodeF11        Code = 87
	CodeF12        Code = 88
	CodeKPEnter    Code = 96
	CodeRightCtrl  Code = 97
	CodeKPSlash    Code = 98
	CodeRightAlt   Code = 100
	CodeHome       Code = 102
	CodeUp         Code = 103
	CodePageUp     Code = 104
	CodeLeft       Code = 105
	CodeRight      Code = 106
	CodeEnd        Code = 107
	CodeDown       Code = 108
	CodePageDown   Code = 109
	CodeInsert     Code = 110
	CodeDelete     Code = 111
	CodeLeftMeta   Code = 125
	CodeRightMeta  Code = 126
)

// codeNames maps codes to lowercase names. Printable keys are named by
// their unshifted character.
var codeNames = map[Code]string{
	CodeEsc:        "escape",
	CodeBackspace:  "backspace",
	CodeTab:        "tab",
	CodeEnter:      "enter",
	CodeSpace:      "space",
	CodeLeftCtrl:   "leftctrl",
	CodeRightCtrl:  "rightctrl",
	CodeLeftShift:  "leftshift",
	CodeRightShift: "rightshift",
	CodeLeftAlt:    "leftalt",
	CodeRightAlt:   "rightalt",
	CodeLeftMeta:   "leftmeta",
	CodeRightMeta:  "rightmeta",
	CodeCapsLock:   "capslock",
	CodeNumLock:    "numlock",
	CodeScrollLock: "scrolllock",
	CodeF1:         "f1",
	CodeF2:         "f2",
	CodeF3:         "f3",
	CodeF4:         "f4",
	CodeF5:         "f5",
	CodeF6:         "f6",
	CodeF7:         "f7",
	CodeF8:         "f8",
	CodeF9:         "f9",
	CodeF10:        "f10",
	CodeF11:        "f11",
	CodeF12:        "f12",
	CodeKPEnter:    "kpenter",
	CodeKPAsterisk: "kpasterisk",
	CodeKPMinus:    "kpminus",
	CodeKPPlus:     "kpplus",
	CodeKPSlash:    "kpslash",
	CodeHome:       "home",
	CodeEnd:        "end",
	CodePageUp:     "pageup",
	CodePageDown:   "pagedown",
	CodeInsert:     "insert",
	CodeDelete:     "delete",
	CodeUp:         "up",
	CodeDown:       "down",
	CodeLeft:       "left",
	CodeRight:      "right",
}

// nameAliases are extra names accepted by CodeFromName.
var nameAliases = map[string]Code{
	"esc":    CodeEsc,
	"return": CodeEnter,
	"cr":     CodeEnter,
	"bs":     CodeBackspace,
	"del":    CodeDelete,
	"ins":    CodeInsert,
	"pgup":   CodePageUp,
	"pgdn":   CodePageDown,
}

var nameCodes = func() map[string]Code {
	m := make(map[string]Code, len(codeNames)+len(printable)+len(nameAliases))
	for c, n := range codeNames {
		m[n] = c
	}
	for c, p := range printable {
		m[string(p.plain)] = c
	}
	for n, c := range nameAliases {
		m[n] = c
	}
	return m
}()

// String returns the lowercase name of the code, or "code(N)" when unnamed.
func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	if p, ok := printable[c]; ok {
		return string(p.plain)
	}
	return "code(" + strconv.Itoa(int(c)) + ")"
}

// IsModifier reports whether the code is a modifier key.
func (c Code) IsModifier() bool {
	_, ok := ModifierFor(c)
	return ok || c == CodeLeftMeta || c == CodeRightMeta
}

// CodeFromName returns the code for a name (case-insensitive), or CodeNone.
// Printable keys are named by their unshifted character ("a", "1", "[").
func CodeFromName(name string) Code {
	if name == " " {
		return CodeSpace
	}
	if c, ok := nameCodes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c
	}
	return CodeNone
}
