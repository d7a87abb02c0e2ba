package keymap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/inkterm/internal/input/key"
)

// DefaultCallTimeout bounds a single on_key call.
const DefaultCallTimeout = 50 * time.Millisecond

type binding struct {
	code key.Code
	mods key.Modifier
}

// Script is a loaded keymap script.
//
// gopher-lua states are not goroutine-safe; a Script must be used from the
// goroutine that owns the session loop.
type Script struct {
	L       *lua.LState
	logger  *slog.Logger
	timeout time.Duration

	bindings map[binding]string
	onKey    *lua.LFunction

	closed bool
}

// Option configures a Script.
type Option func(*Script)

// WithCallTimeout sets the timeout for each on_key call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Script) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger that receives print output and script errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Script) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// LoadFile loads and runs a keymap script from path.
func LoadFile(path string, opts ...Option) (*Script, error) {
	s := newScript(opts...)
	if err := s.run(func() error { return s.L.DoFile(path) }); err != nil {
		s.Close()
		return nil, fmt.Errorf("load keymap %s: %w", path, err)
	}
	if err := s.collect(); err != nil {
		s.Close()
		return nil, fmt.Errorf("load keymap %s: %w", path, err)
	}
	return s, nil
}

// LoadString loads and runs a keymap script from source.
func LoadString(src string, opts ...Option) (*Script, error) {
	s := newScript(opts...)
	if err := s.run(func() error { return s.L.DoString(src) }); err != nil {
		s.Close()
		return nil, fmt.Errorf("load keymap: %w", err)
	}
	if err := s.collect(); err != nil {
		s.Close()
		return nil, fmt.Errorf("load keymap: %w", err)
	}
	return s, nil
}

func newScript(opts ...Option) *Script {
	s := &Script{
		logger:   slog.New(slog.DiscardHandler),
		timeout:  DefaultCallTimeout,
		bindings: make(map[binding]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(s.L)
	s.installGlobals()
	return s
}

// openSafeLibraries opens only the libraries a keymap needs.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// installGlobals registers print and encode.
func (s *Script) installGlobals() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		args := make([]any, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			args = append(args, L.ToStringMeta(L.Get(i)).String())
		}
		s.logger.Info("keymap print", "args", args)
		return 0
	}))

	// encode(spec) returns the default bytes for a key specification.
	s.L.SetGlobal("encode", s.L.NewFunction(func(L *lua.LState) int {
		code, mods, err := key.Parse(L.CheckString(1))
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(lua.LString(key.Encode(code, mods)))
		return 1
	}))
}

// run executes fn with panic recovery.
func (s *Script) run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// collect reads the bindings table and on_key function.
func (s *Script) collect() error {
	if fn, ok := s.L.GetGlobal("on_key").(*lua.LFunction); ok {
		s.onKey = fn
	}

	tbl, ok := s.L.GetGlobal("bindings").(*lua.LTable)
	if !ok {
		return nil
	}

	var err error
	tbl.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		spec, ok := k.(lua.LString)
		if !ok {
			err = fmt.Errorf("%w: key %v is not a string", ErrInvalidBinding, k)
			return
		}
		text, ok := v.(lua.LString)
		if !ok {
			err = fmt.Errorf("%w: %q must map to a string", ErrInvalidBinding, string(spec))
			return
		}
		code, mods, perr := key.Parse(string(spec))
		if perr != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidBinding, perr)
			return
		}
		s.bindings[binding{code, mods}] = string(text)
	})
	return err
}

// Bindings returns the number of static bindings.
func (s *Script) Bindings() int {
	return len(s.bindings)
}

// HasHook reports whether the script defines on_key.
func (s *Script) HasHook() bool {
	return s.onKey != nil
}

// Lookup returns the bytes the script assigns to ev. handled is false when
// the script leaves the key to the default encoding. A handled key with
// no bytes is swallowed.
func (s *Script) Lookup(ev key.Event) (out []byte, handled bool, err error) {
	if s.closed {
		return nil, false, ErrScriptClosed
	}

	if text, ok := s.bindings[binding{ev.Code, ev.Mods}]; ok {
		return []byte(text), true, nil
	}
	if s.onKey == nil {
		return nil, false, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	err = s.run(func() error {
		return s.L.CallByParam(lua.P{Fn: s.onKey, NRet: 1, Protect: true},
			lua.LNumber(ev.Code), lua.LNumber(ev.Mods), lua.LString(ev.String()))
	})
	if err != nil {
		return nil, false, fmt.Errorf("on_key %s: %w", ev, err)
	}

	ret := s.L.Get(-1)
	s.L.Pop(1)

	switch v := ret.(type) {
	case lua.LString:
		return []byte(v), true, nil
	case lua.LBool:
		if !bool(v) {
			// false swallows the key
			return nil, true, nil
		}
	}
	return nil, false, nil
}

// Close releases the Lua state.
func (s *Script) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}
