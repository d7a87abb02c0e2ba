package key

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Parse parses a key specification like "ctrl+alt+t", "shift+tab" or
// "C-x" into a code and modifiers. The key is the last component.
func Parse(spec string) (Code, Modifier, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return CodeNone, ModNone, ErrEmptySpec
	}

	sep := "+"
	if !strings.Contains(spec, "+") && strings.Contains(spec, "-") && len(spec) > 1 {
		sep = "-"
	}

	parts := strings.Split(spec, sep)
	keyPart := parts[len(parts)-1]
	if keyPart == "" && len(parts) > 1 {
		// "ctrl++" binds the plus key
		keyPart = sep
		parts = parts[:len(parts)-1]
	}

	var mods Modifier
	for _, part := range parts[:len(parts)-1] {
		if part == "" {
			continue
		}
		mod := ModifierFromName(part)
		if mod == ModNone {
			return CodeNone, ModNone, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidSpec, part, spec)
		}
		mods = mods.With(mod)
	}

	code, shifted := codeForKey(keyPart)
	if code == CodeNone {
		return CodeNone, ModNone, fmt.Errorf("%w: unknown key %q in %q", ErrInvalidSpec, keyPart, spec)
	}
	if shifted {
		mods = mods.With(ModShift)
	}
	return code, mods, nil
}

// codeForKey resolves a key name or a single printable character.
// Shifted characters such as "A" or "!" report shifted=true.
func codeForKey(name string) (code Code, shifted bool) {
	if len(name) == 1 {
		if c, ok := shiftedCodes[rune(name[0])]; ok {
			return c, true
		}
		if name[0] >= 'A' && name[0] <= 'Z' {
			return CodeFromName(strings.ToLower(name)), true
		}
		if name == " " {
			return CodeSpace, false
		}
	}
	return CodeFromName(name), false
}

// FromRune returns the key and modifiers that type r on a US layout.
func FromRune(r rune) (Code, Modifier, bool) {
	if r < ' ' || r > '~' {
		return CodeNone, ModNone, false
	}
	code, shifted := codeForKey(string(r))
	if code == CodeNone {
		return CodeNone, ModNone, false
	}
	if shifted {
		return code, ModShift, true
	}
	return code, ModNone, true
}
