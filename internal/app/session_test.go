package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/inkterm/internal/config"
	"github.com/dshills/inkterm/internal/input/key"
	"github.com/dshills/inkterm/internal/panel"
	"github.com/dshills/inkterm/internal/pty"
	"github.com/dshills/inkterm/internal/renderer/refresh"
)

// fakePTY serves queued chunks, one per Read, then optionally io.EOF.
type fakePTY struct {
	mu      sync.Mutex
	chunks  [][]byte
	eof     bool
	written []string
	closed  bool
	failW   error
}

func (p *fakePTY) queue(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, []byte(s))
}

func (p *fakePTY) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.chunks) == 0 {
		if p.eof {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(buf, p.chunks[0])
	if n < len(p.chunks[0]) {
		p.chunks[0] = p.chunks[0][n:]
	} else {
		p.chunks = p.chunks[1:]
	}
	return n, nil
}

func (p *fakePTY) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failW != nil {
		return 0, p.failW
	}
	p.written = append(p.written, string(b))
	return len(b), nil
}

func (p *fakePTY) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePTY) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePTY) writes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.written...)
}

// fakeKeyboard returns queued events, then nothing or err.
type fakeKeyboard struct {
	events []key.Event
	err    error
	closed bool
}

func (k *fakeKeyboard) Poll() (key.Event, bool, error) {
	if len(k.events) == 0 {
		if k.err != nil {
			return key.Event{}, false, k.err
		}
		return key.Event{}, false, nil
	}
	ev := k.events[0]
	k.events = k.events[1:]
	return ev, true, nil
}

func (k *fakeKeyboard) Close() error {
	k.closed = true
	return nil
}

type fixture struct {
	session  *Session
	pty      *fakePTY
	panel    *panel.Memory
	keyboard *fakeKeyboard
	clock    *refresh.ManualClock
}

func newFixture(t *testing.T, modify func(*Options)) *fixture {
	t.Helper()

	f := &fixture{
		pty:      &fakePTY{},
		panel:    panel.NewMemory(800, 480),
		keyboard: &fakeKeyboard{},
		clock:    &refresh.ManualClock{},
	}
	opts := Options{
		Rows:       24,
		Cols:       80,
		Scrollback: 100,
		Panel:      f.panel,
		PTY:        f.pty,
		Keyboard:   f.keyboard,
		Clock:      f.clock,
		ID:         "test-session",
	}
	if modify != nil {
		modify(&opts)
	}

	s, err := NewSession(opts)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	f.session = s
	return f
}

func (f *fixture) init(t *testing.T) {
	t.Helper()
	if err := f.panel.Init(); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) tick(t *testing.T) bool {
	t.Helper()
	active, err := f.session.Tick()
	if err != nil {
		t.Fatalf("unexpected tick error: %v", err)
	}
	return active
}

func TestNewSessionRequiresComponents(t *testing.T) {
	if _, err := NewSession(Options{PTY: &fakePTY{}}); !errors.Is(err, ErrMissingComponent) {
		t.Errorf("expected ErrMissingComponent without panel, got %v", err)
	}
	if _, err := NewSession(Options{Panel: panel.NewMemory(800, 480)}); !errors.Is(err, ErrMissingComponent) {
		t.Errorf("expected ErrMissingComponent without pty, got %v", err)
	}
}

func TestNewSessionRejectsBadPolicy(t *testing.T) {
	_, err := NewSession(Options{
		Panel:  panel.NewMemory(800, 480),
		PTY:    &fakePTY{},
		Policy: refresh.Policy{Quiet: time.Second, Force: time.Second},
	})
	if !errors.Is(err, refresh.ErrInvalidPolicy) {
		t.Errorf("expected ErrInvalidPolicy, got %v", err)
	}
}

func TestNewSessionRenderSizeMismatch(t *testing.T) {
	f := &fakePTY{}
	_, err := NewSession(Options{Panel: panel.NewMemory(800, 480), PTY: f})
	if err != nil {
		t.Fatalf("expected render size to follow the panel, got %v", err)
	}

	opts := Options{Panel: panel.NewMemory(800, 480), PTY: f}
	opts.Render.Width, opts.Render.Height = 640, 384
	if _, err := NewSession(opts); !errors.Is(err, panel.ErrFrameSize) {
		t.Errorf("expected ErrFrameSize, got %v", err)
	}
}

func TestNewSessionGeneratesID(t *testing.T) {
	s, err := NewSession(Options{Panel: panel.NewMemory(800, 480), PTY: &fakePTY{}})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.ID()) != 36 {
		t.Errorf("expected a UUID session id, got %q", s.ID())
	}
}

func TestTickFeedsParserAndWaitsForQuiet(t *testing.T) {
	f := newFixture(t, nil)
	f.init(t)

	f.pty.queue("Hello\r\n")
	if !f.tick(t) {
		t.Error("expected tick to report activity")
	}

	if got := f.session.Screen().RowText(0); got != "Hello" {
		t.Errorf("expected row 0 'Hello', got %q", got)
	}
	if row, col := f.session.Screen().Cursor(); row != 1 || col != 0 {
		t.Errorf("expected cursor (1,0), got (%d,%d)", row, col)
	}
	if f.panel.Displays() != 0 {
		t.Errorf("expected no display during input, got %d", f.panel.Displays())
	}

	f.clock.Advance(801 * time.Millisecond)
	if f.tick(t) {
		t.Error("expected idle tick")
	}
	if f.panel.Displays() != 1 {
		t.Fatalf("expected one display after the quiet period, got %d", f.panel.Displays())
	}
	if f.session.Screen().Damage().IsDirty() {
		t.Error("expected damage cleared after display")
	}

	// Nothing changed: no further repaint.
	f.clock.Advance(10 * time.Second)
	f.tick(t)
	if f.panel.Displays() != 1 {
		t.Errorf("expected no repaint without damage, got %d", f.panel.Displays())
	}
}

func TestTickForcesRefreshUnderContinuousOutput(t *testing.T) {
	f := newFixture(t, nil)
	f.init(t)

	for range 49 {
		f.pty.queue("x")
		f.tick(t)
		f.clock.Advance(100 * time.Millisecond)
	}
	if f.panel.Displays() != 0 {
		t.Fatalf("expected no display before the force timeout, got %d", f.panel.Displays())
	}

	f.clock.Advance(200 * time.Millisecond)
	f.pty.queue("x")
	f.tick(t)
	if f.panel.Displays() != 1 {
		t.Errorf("expected a forced display, got %d", f.panel.Displays())
	}
}

func TestTickEncodesKeys(t *testing.T) {
	f := newFixture(t, nil)
	f.init(t)

	f.keyboard.events = []key.Event{
		key.NewEvent(key.CodeA, key.ModNone),
		key.NewEvent(key.CodeA, key.ModShift),
		key.NewEvent(key.Code(0x2fe), key.ModNone),
		key.NewEvent(key.CodeEnter, key.ModNone),
		key.NewEvent(key.CodeUp, key.ModNone),
	}
	if !f.tick(t) {
		t.Error("expected activity")
	}

	want := []string{"a", "A", "\r", "\x1b[A"}
	got := f.pty.writes()
	if len(got) != len(want) {
		t.Fatalf("expected writes %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	s := f.session.Metrics().Snapshot()
	if s.KeyCount != 4 || s.KeysDropped != 1 {
		t.Errorf("expected 4 keys and 1 dropped, got %d and %d", s.KeyCount, s.KeysDropped)
	}
}

func TestTickKeyBatchIsBounded(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Batch = 2 })
	f.init(t)

	for range 5 {
		f.keyboard.events = append(f.keyboard.events, key.NewEvent(key.CodeA, key.ModNone))
	}

	f.tick(t)
	if n := len(f.pty.writes()); n != 2 {
		t.Errorf("expected 2 writes in the first tick, got %d", n)
	}
	f.tick(t)
	f.tick(t)
	if n := len(f.pty.writes()); n != 5 {
		t.Errorf("expected all 5 writes after three ticks, got %d", n)
	}
}

func TestTickKeysDelayRefresh(t *testing.T) {
	f := newFixture(t, nil)
	f.init(t)

	f.pty.queue("prompt$ ")
	f.tick(t)
	f.clock.Advance(700 * time.Millisecond)

	f.keyboard.events = []key.Event{key.NewEvent(key.CodeA, key.ModNone)}
	f.tick(t)

	f.clock.Advance(700 * time.Millisecond)
	f.tick(t)
	if f.panel.Displays() != 0 {
		t.Errorf("expected typing to postpone the repaint, got %d displays", f.panel.Displays())
	}

	f.clock.Advance(200 * time.Millisecond)
	f.tick(t)
	if f.panel.Displays() != 1 {
		t.Errorf("expected repaint after typing stopped, got %d", f.panel.Displays())
	}
}

func TestTickPanelFailureIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.init(t)

	boom := errors.New("busy line stuck")
	f.panel.FailDisplay = boom
	f.clock.Advance(time.Second)

	_, err := f.session.Tick()
	var ce *ComponentError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ComponentError, got %v", err)
	}
	if ce.Component != "panel" || ce.Action != "display" {
		t.Errorf("expected panel display failure, got %s %s", ce.Component, ce.Action)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped panel error, got %v", err)
	}
}

func TestTickChannelClosed(t *testing.T) {
	f := newFixture(t, nil)
	f.init(t)

	f.pty.queue("bye\r\n")
	f.pty.eof = true

	f.tick(t)
	_, err := f.session.Tick()
	if !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
	if !IsCleanExit(err) {
		t.Error("expected hangup to count as a clean exit")
	}
	if got := f.session.Screen().RowText(0); got != "bye" {
		t.Errorf("expected final output on screen, got %q", got)
	}
}

func TestTickKeyboardFailure(t *testing.T) {
	lost := errors.New("device unplugged")
	f := newFixture(t, nil)
	f.init(t)
	f.keyboard.err = lost

	_, err := f.session.Tick()
	if !errors.Is(err, lost) {
		t.Fatalf("expected keyboard error, got %v", err)
	}
	var ce *ComponentError
	if !errors.As(err, &ce) || ce.Component != "keyboard" {
		t.Errorf("expected keyboard component error, got %v", err)
	}
}

func TestTickPTYWriteFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.init(t)
	f.pty.failW = errors.New("write failed")
	f.keyboard.events = []key.Event{key.NewEvent(key.CodeA, key.ModNone)}

	_, err := f.session.Tick()
	var ce *ComponentError
	if !errors.As(err, &ce) || ce.Component != "pty" || ce.Action != "write" {
		t.Errorf("expected pty write error, got %v", err)
	}
}

func TestTickWriteAfterHangup(t *testing.T) {
	f := newFixture(t, nil)
	f.init(t)
	f.pty.failW = pty.ErrClosed
	f.keyboard.events = []key.Event{key.NewEvent(key.CodeA, key.ModNone)}

	_, err := f.session.Tick()
	if !errors.Is(err, ErrChannelClosed) {
		t.Errorf("expected ErrChannelClosed, got %v", err)
	}
	if !IsCleanExit(err) {
		t.Errorf("expected a clean exit, got %v", err)
	}
}

func TestRunKeyDuringProgramExit(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Clock = refresh.NewMonotonicClock()
		o.ActiveSleep = time.Millisecond
		o.IdleSleep = time.Millisecond
	})
	f.pty.failW = pty.ErrClosed
	f.pty.eof = true
	f.keyboard.events = []key.Event{key.NewEvent(key.CodeA, key.ModNone)}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := f.session.Run(ctx); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
	if !f.panel.Closed() {
		t.Error("expected panel closed")
	}
}

func TestRefreshLogsDirtyRegions(t *testing.T) {
	var buf bytes.Buffer
	f := newFixture(t, func(o *Options) {
		o.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	})
	f.init(t)

	f.clock.Advance(801 * time.Millisecond)
	f.tick(t)
	if f.panel.Displays() != 1 {
		t.Fatalf("expected the initial display, got %d", f.panel.Displays())
	}
	buf.Reset()

	f.pty.queue("\x1b[6;1Hx")
	f.tick(t)
	f.clock.Advance(801 * time.Millisecond)
	f.tick(t)

	out := buf.String()
	if !strings.Contains(out, "msg=refresh") || !strings.Contains(out, "{5 5}") {
		t.Errorf("expected refresh log with row 5 region, got %q", out)
	}
}

func TestTickAfterStop(t *testing.T) {
	f := newFixture(t, nil)
	f.session.Stop()

	if _, err := f.session.Tick(); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestReloadAppliesConfig(t *testing.T) {
	f := newFixture(t, nil)
	f.init(t)

	script := filepath.Join(t.TempDir(), "keymap.lua")
	if err := os.WriteFile(script, []byte(`bindings = { ["a"] = "ls\r" }`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Refresh.Quiet = config.Duration(100 * time.Millisecond)
	cfg.Refresh.Force = config.Duration(time.Second)
	cfg.Keyboard.Keymap = script

	f.session.Reload(config.Default())
	f.session.Reload(cfg)
	f.keyboard.events = []key.Event{key.NewEvent(key.CodeA, key.ModNone)}
	f.tick(t)

	if p := f.session.Policy(); p.Quiet != 100*time.Millisecond || p.Force != time.Second {
		t.Errorf("expected reloaded policy 100ms/1s, got %v/%v", p.Quiet, p.Force)
	}
	if got := f.pty.writes(); len(got) != 1 || got[0] != "ls\r" {
		t.Errorf("expected keymap binding output, got %q", got)
	}

	cfg2 := *cfg
	cfg2.Keyboard.Keymap = ""
	cfg2.Refresh.Quiet = config.Duration(5 * time.Second) // invalid, kept
	f.session.Reload(&cfg2)
	f.keyboard.events = []key.Event{key.NewEvent(key.CodeA, key.ModNone)}
	f.tick(t)

	if p := f.session.Policy(); p.Quiet != 100*time.Millisecond {
		t.Errorf("expected invalid policy to be ignored, got %v", p.Quiet)
	}
	if got := f.pty.writes(); got[len(got)-1] != "a" {
		t.Errorf("expected default encoding after keymap removal, got %q", got)
	}
}

func TestSnapshotRequest(t *testing.T) {
	f := newFixture(t, nil)
	f.init(t)

	path := filepath.Join(t.TempDir(), "snap.json")
	f.pty.queue("one\r\ntwo")
	f.tick(t)

	if !f.session.RequestSnapshot(path) {
		t.Fatal("expected request to be queued")
	}
	f.tick(t)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected snapshot file: %v", err)
	}
	doc := string(data)
	if got := gjson.Get(doc, "session").String(); got != "test-session" {
		t.Errorf("expected session id, got %q", got)
	}
	if got := gjson.Get(doc, "lines.1").String(); got != "two" {
		t.Errorf("expected second line 'two', got %q", got)
	}
	if got := gjson.Get(doc, "cursor.col").Int(); got != 3 {
		t.Errorf("expected cursor col 3, got %d", got)
	}
}

func TestRunUntilProgramExits(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Clock = refresh.NewMonotonicClock()
		o.ActiveSleep = time.Millisecond
		o.IdleSleep = time.Millisecond
	})
	f.pty.queue("done\r\n")
	f.pty.eof = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := f.session.Run(ctx); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
	if f.panel.Clears() != 1 {
		t.Errorf("expected panel cleared once, got %d", f.panel.Clears())
	}
	if !f.panel.Asleep() || !f.panel.Closed() {
		t.Error("expected panel asleep and closed")
	}
	if !f.pty.Closed() || !f.keyboard.closed {
		t.Error("expected pty and keyboard closed")
	}
	if got := f.session.Screen().RowText(0); got != "done" {
		t.Errorf("expected output on screen, got %q", got)
	}
}

func TestRunStopsOnContext(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Clock = refresh.NewMonotonicClock()
		o.IdleSleep = 2 * time.Millisecond
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := f.session.Run(ctx); err != nil {
		t.Fatalf("expected nil on cancellation, got %v", err)
	}
	if f.session.Metrics().Snapshot().Ticks == 0 {
		t.Error("expected the loop to tick")
	}
	if !f.panel.Asleep() {
		t.Error("expected panel asleep")
	}
}

func TestRunStop(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Clock = refresh.NewMonotonicClock()
		o.IdleSleep = time.Millisecond
	})

	done := make(chan error, 1)
	go func() { done <- f.session.Run(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	f.session.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil after Stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRunPanelInitFailure(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.panel.Close()

	err := f.session.Run(context.Background())
	var ce *ComponentError
	if !errors.As(err, &ce) || ce.Action != "init" {
		t.Fatalf("expected panel init failure, got %v", err)
	}
	if !errors.Is(err, panel.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if !f.pty.Closed() {
		t.Error("expected pty closed after failed start")
	}
}

func TestRunReturnsFatalError(t *testing.T) {
	boom := errors.New("spi timeout")
	f := newFixture(t, func(o *Options) {
		o.Clock = refresh.NewMonotonicClock()
		o.Policy = refresh.Policy{Quiet: time.Millisecond, Force: 10 * time.Millisecond}
		o.IdleSleep = time.Millisecond
	})
	f.panel.FailDisplay = boom

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := f.session.Run(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("expected display failure, got %v", err)
	}
	if IsCleanExit(err) {
		t.Error("expected panel failure not to be a clean exit")
	}
	if !f.panel.Asleep() {
		t.Error("expected panel put to sleep after failure")
	}
}
