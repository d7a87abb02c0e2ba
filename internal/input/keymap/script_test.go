package keymap

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/inkterm/internal/input/key"
)

func TestLoadStringBindings(t *testing.T) {
	s, err := LoadString(`
bindings = {
    ["ctrl+alt+t"] = "tmux attach\r",
    ["f1"] = "",
}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if s.Bindings() != 2 {
		t.Errorf("expected 2 bindings, got %d", s.Bindings())
	}
	if s.HasHook() {
		t.Error("expected no on_key hook")
	}

	out, handled, err := s.Lookup(key.NewEvent(key.CodeT, key.ModCtrl|key.ModAlt))
	if err != nil || !handled {
		t.Fatalf("expected handled binding, got handled=%v err=%v", handled, err)
	}
	if string(out) != "tmux attach\r" {
		t.Errorf("expected binding text, got %q", out)
	}

	out, handled, _ = s.Lookup(key.NewEvent(key.CodeF1, key.ModNone))
	if !handled || len(out) != 0 {
		t.Errorf("expected F1 swallowed, got handled=%v out=%q", handled, out)
	}

	if _, handled, _ = s.Lookup(key.NewEvent(key.CodeA, key.ModNone)); handled {
		t.Error("expected unbound key to fall through")
	}
}

func TestOnKeyHook(t *testing.T) {
	s, err := LoadString(`
function on_key(code, mods, name)
    if name == "ctrl+q" then
        return encode("ctrl+c")
    end
    if code == 30 and mods == 0 then
        return "A!"
    end
    if name == "f2" then
        return false
    end
    return nil
end
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	tests := []struct {
		event   key.Event
		want    string
		handled bool
	}{
		{key.NewEvent(key.CodeQ, key.ModCtrl), "\x03", true},
		{key.NewEvent(key.CodeA, key.ModNone), "A!", true},
		{key.NewEvent(key.CodeF2, key.ModNone), "", true},
		{key.NewEvent(key.CodeB, key.ModNone), "", false},
	}

	for _, tt := range tests {
		out, handled, err := s.Lookup(tt.event)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", tt.event, err)
		}
		if handled != tt.handled || string(out) != tt.want {
			t.Errorf("%v: expected (%q, %v), got (%q, %v)", tt.event, tt.want, tt.handled, out, handled)
		}
	}
}

func TestOnKeyTimeout(t *testing.T) {
	s, err := LoadString(`
function on_key(code, mods, name)
    while true do end
end
`, WithCallTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if _, _, err := s.Lookup(key.NewEvent(key.CodeA, key.ModNone)); err == nil {
		t.Error("expected timeout error")
	}

	// The state stays usable after a timeout.
	if _, _, err := s.Lookup(key.NewEvent(key.CodeA, key.ModNone)); err == nil {
		t.Error("expected timeout error on second call")
	}
}

func TestSandbox(t *testing.T) {
	for _, src := range []string{
		`os.exit(1)`,
		`io.open("/etc/passwd")`,
		`dofile("/etc/passwd")`,
		`require("os")`,
		`load("return 1")()`,
	} {
		if s, err := LoadString(src); err == nil {
			s.Close()
			t.Errorf("%q: expected sandbox error", src)
		}
	}
}

func TestInvalidBindings(t *testing.T) {
	tests := []string{
		`bindings = { ["hyper+x"] = "x" }`,
		`bindings = { ["a"] = 42 }`,
		`bindings = { [1] = "x" }`,
	}

	for _, src := range tests {
		_, err := LoadString(src)
		if !errors.Is(err, ErrInvalidBinding) {
			t.Errorf("%q: expected ErrInvalidBinding, got %v", src, err)
		}
	}
}

func TestLoadStringSyntaxError(t *testing.T) {
	if _, err := LoadString(`bindings = {`); err == nil {
		t.Error("expected syntax error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keymap.lua")
	if err := os.WriteFile(path, []byte(`bindings = { ["ctrl+l"] = "clear\r" }`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	out, handled, _ := s.Lookup(key.NewEvent(key.CodeL, key.ModCtrl))
	if !handled || string(out) != "clear\r" {
		t.Errorf("expected 'clear\\r', got %q", out)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.lua")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestClosedScript(t *testing.T) {
	s, err := LoadString(``)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()
	s.Close()

	if _, _, err := s.Lookup(key.NewEvent(key.CodeA, key.ModNone)); !errors.Is(err, ErrScriptClosed) {
		t.Errorf("expected ErrScriptClosed, got %v", err)
	}
}

func TestEncoder(t *testing.T) {
	s, err := LoadString(`
bindings = { ["ctrl+alt+t"] = "hello" }
function on_key(code, mods, name)
    if name == "f3" then error("boom") end
end
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := NewEncoder(s, nil)
	defer e.Close()

	if got := e.Encode(key.NewEvent(key.CodeT, key.ModCtrl|key.ModAlt)); string(got) != "hello" {
		t.Errorf("expected script binding, got %q", got)
	}
	if got := e.Encode(key.NewEvent(key.CodeEnter, key.ModNone)); string(got) != "\r" {
		t.Errorf("expected default encoding, got %q", got)
	}
	if got := e.Encode(key.NewEvent(key.CodeF3, key.ModNone)); !strings.HasPrefix(string(got), "\x1b") {
		t.Errorf("expected default encoding after script error, got %q", got)
	}

	e.SetScript(nil)
	if got := e.Encode(key.NewEvent(key.CodeT, key.ModCtrl|key.ModAlt)); string(got) != "\x1b\x14" {
		t.Errorf("expected default encoding without script, got %q", got)
	}
}
