package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/inkterm/internal/config"
	"github.com/dshills/inkterm/internal/glyph"
	"github.com/dshills/inkterm/internal/input/keyboard"
	"github.com/dshills/inkterm/internal/input/keymap"
	"github.com/dshills/inkterm/internal/panel"
	"github.com/dshills/inkterm/internal/pty"
	"github.com/dshills/inkterm/internal/renderer/raster"
	"github.com/dshills/inkterm/internal/renderer/refresh"
	"github.com/dshills/inkterm/internal/snapshot"
	"github.com/dshills/inkterm/internal/terminal"
)

// Loop defaults.
const (
	DefaultBatch       = 32
	DefaultActiveSleep = 5 * time.Millisecond
	DefaultIdleSleep   = 50 * time.Millisecond
	DefaultReadSize    = 4096
)

// PTY is the byte channel to the hosted program. Read must not block:
// it returns (0, nil) when nothing is pending and io.EOF once the program
// has hung up.
type PTY interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Closed() bool
	Close() error
}

// Options configures a Session. Panel and PTY are required.
type Options struct {
	Rows           int
	Cols           int
	Scrollback     int
	MaxSequenceLen int
	CursorOrder    terminal.CursorOrder

	Policy      refresh.Policy
	Batch       int
	ActiveSleep time.Duration
	IdleSleep   time.Duration
	ReadSize    int

	// Render geometry; a zero width or height takes the panel size.
	Render raster.Options
	Glyphs glyph.Service

	Panel    panel.Panel
	PTY      PTY
	Keyboard keyboard.Source // nil runs without local input
	Keys     *keymap.Encoder // nil uses the default key encoding

	// KeymapPath is the script currently loaded into Keys, compared on reload.
	KeymapPath string

	Clock   refresh.Clock
	Logger  *slog.Logger
	Logging *Logging // receives level changes on reload
	ID      string   // empty generates a UUID
}

// Session drives one terminal session. Everything except Stop, Reload,
// RequestSnapshot, ID and Metrics must be called from the loop goroutine.
type Session struct {
	id     string
	logger *slog.Logger

	screen   *terminal.Screen
	parser   *terminal.Parser
	renderer *raster.Renderer
	policy   refresh.Policy
	clock    refresh.Clock

	panel    panel.Panel
	pty      PTY
	keyboard keyboard.Source
	keys     *keymap.Encoder
	logging  *Logging

	batch       int
	activeSleep time.Duration
	idleSleep   time.Duration
	keymapPath  string

	lastInput   int64
	lastRefresh int64
	buf         []byte

	metrics *Metrics

	running   atomic.Bool
	stop      atomic.Bool
	reloads   chan *config.Config
	snapshots chan string
}

// NewSession builds a session from opts. The panel is not touched until Run.
func NewSession(opts Options) (*Session, error) {
	if opts.Panel == nil {
		return nil, fmt.Errorf("%w: panel", ErrMissingComponent)
	}
	if opts.PTY == nil {
		return nil, fmt.Errorf("%w: pty", ErrMissingComponent)
	}
	if opts.Rows <= 0 {
		opts.Rows = terminal.DefaultRows
	}
	if opts.Cols <= 0 {
		opts.Cols = terminal.DefaultCols
	}
	if opts.Policy == (refresh.Policy{}) {
		opts.Policy = refresh.DefaultPolicy()
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	if opts.Batch <= 0 {
		opts.Batch = DefaultBatch
	}
	if opts.ActiveSleep <= 0 {
		opts.ActiveSleep = DefaultActiveSleep
	}
	if opts.IdleSleep <= 0 {
		opts.IdleSleep = DefaultIdleSleep
	}
	if opts.ReadSize <= 0 {
		opts.ReadSize = DefaultReadSize
	}
	if opts.Clock == nil {
		opts.Clock = refresh.NewMonotonicClock()
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	logger := opts.Logger.With("session", opts.ID)

	pw, ph := opts.Panel.Size()
	if opts.Render.Width <= 0 || opts.Render.Height <= 0 {
		opts.Render.Width, opts.Render.Height = pw, ph
	}
	if opts.Render.Width != pw || opts.Render.Height != ph {
		return nil, fmt.Errorf("%w: render size %dx%d, panel %dx%d",
			panel.ErrFrameSize, opts.Render.Width, opts.Render.Height, pw, ph)
	}

	if opts.Keys == nil {
		opts.Keys = keymap.NewEncoder(nil, logger.With("component", "keymap"))
	}

	screen := terminal.NewScreen(opts.Rows, opts.Cols, terminal.WithScrollback(opts.Scrollback))
	parserOpts := []terminal.ParserOption{
		terminal.WithCursorOrder(opts.CursorOrder),
		terminal.WithLogger(logger.With("component", "parser")),
	}
	if opts.MaxSequenceLen > 0 {
		parserOpts = append(parserOpts, terminal.WithMaxSequenceLen(opts.MaxSequenceLen))
	}

	now := opts.Clock.NowMillis()
	return &Session{
		id:          opts.ID,
		logger:      logger,
		screen:      screen,
		parser:      terminal.NewParser(screen, parserOpts...),
		renderer:    raster.NewRenderer(opts.Glyphs, opts.Render, opts.Rows, opts.Cols),
		policy:      opts.Policy,
		clock:       opts.Clock,
		panel:       opts.Panel,
		pty:         opts.PTY,
		keyboard:    opts.Keyboard,
		keys:        opts.Keys,
		logging:     opts.Logging,
		batch:       opts.Batch,
		activeSleep: opts.ActiveSleep,
		idleSleep:   opts.IdleSleep,
		keymapPath:  opts.KeymapPath,
		lastInput:   now,
		lastRefresh: now,
		buf:         make([]byte, opts.ReadSize),
		metrics:     NewMetrics(),
		reloads:     make(chan *config.Config, 1),
		snapshots:   make(chan string, 4),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Screen returns the screen model.
func (s *Session) Screen() *terminal.Screen { return s.screen }

// Parser returns the escape parser.
func (s *Session) Parser() *terminal.Parser { return s.parser }

// Metrics returns the session counters.
func (s *Session) Metrics() *Metrics { return s.metrics }

// Policy returns the refresh policy in effect.
func (s *Session) Policy() refresh.Policy { return s.policy }

// Stop asks the loop to exit before its next tick.
func (s *Session) Stop() {
	s.stop.Store(true)
}

// Reload queues cfg to be applied at the start of the next tick. Only the
// latest pending configuration is kept.
func (s *Session) Reload(cfg *config.Config) {
	for {
		select {
		case s.reloads <- cfg:
			return
		default:
		}
		select {
		case <-s.reloads:
		default:
		}
	}
}

// RequestSnapshot queues a JSON snapshot of the screen to be written to
// path. It reports false when too many requests are pending.
func (s *Session) RequestSnapshot(path string) bool {
	select {
	case s.snapshots <- path:
		return true
	default:
		return false
	}
}

// Snapshot returns the JSON snapshot of the current screen.
func (s *Session) Snapshot() (string, error) {
	return snapshot.Build(s.screen, snapshot.Meta{
		Session:   s.id,
		Time:      time.Now(),
		Unknown:   s.parser.Unknown(),
		Overflows: s.parser.Overflows(),
		Frames:    s.renderer.Frames(),
	})
}

// Tick runs one loop iteration: key events to the pty, one pty read into
// the parser, then a repaint if the policy allows it. It reports whether
// any input or output was handled.
//
// The returned error is ErrStopped after Stop, wraps ErrChannelClosed when
// the pty hangs up, and is a *ComponentError for collaborator failures.
func (s *Session) Tick() (bool, error) {
	if s.stop.Load() {
		return false, ErrStopped
	}
	s.metrics.RecordTick()
	s.drainControl()

	keys, err := s.pumpKeys()
	if err != nil {
		return keys, err
	}

	output, readErr := s.pumpOutput()

	// Bytes read together with a hangup are still shown.
	if err := s.maybeRefresh(); err != nil {
		return keys || output, err
	}
	return keys || output, readErr
}

func (s *Session) pumpKeys() (bool, error) {
	if s.keyboard == nil {
		return false, nil
	}

	handled := false
	for range s.batch {
		ev, ok, err := s.keyboard.Poll()
		if err != nil {
			return handled, NewComponentError("keyboard", "poll", err)
		}
		if !ok {
			break
		}
		handled = true

		out := s.keys.Encode(ev)
		if len(out) == 0 {
			s.metrics.RecordKeyDropped()
			s.logger.Debug("key ignored", "key", ev.String())
			continue
		}
		if _, err := s.pty.Write(out); err != nil {
			if errors.Is(err, pty.ErrClosed) || s.pty.Closed() {
				// The program exited before its hangup was read.
				err = fmt.Errorf("%w: %w", ErrChannelClosed, err)
			}
			return handled, NewComponentError("pty", "write", err)
		}
		s.metrics.RecordKey(len(out))
		s.lastInput = s.clock.NowMillis()
	}
	return handled, nil
}

func (s *Session) pumpOutput() (bool, error) {
	n, err := s.pty.Read(s.buf)
	if n > 0 {
		s.parser.Feed(s.buf[:n])
		s.metrics.RecordRead(n)
		s.lastInput = s.clock.NowMillis()
	}
	switch {
	case err == nil:
		if n == 0 && s.pty.Closed() {
			return false, NewComponentError("pty", "read", ErrChannelClosed)
		}
		return n > 0, nil
	case errors.Is(err, io.EOF):
		return n > 0, NewComponentError("pty", "read", fmt.Errorf("%w: %w", ErrChannelClosed, err))
	default:
		return n > 0, NewComponentError("pty", "read", err)
	}
}

func (s *Session) maybeRefresh() error {
	damage := s.screen.Damage()
	now := s.clock.NowMillis()
	if !s.policy.ShouldRefresh(now, s.lastInput, s.lastRefresh, damage.IsDirty()) {
		return nil
	}

	timer := StartTimer()
	fb := s.renderer.Render(s.screen)
	if err := s.panel.Display(fb.Bytes()); err != nil {
		return NewComponentError("panel", "display", err)
	}
	s.lastRefresh = s.clock.NowMillis()

	stats := damage.Stats()
	regions := damage.DirtyRegions()
	damage.Clear()
	s.metrics.RecordFrame(timer.Elapsed())
	s.logger.Debug("refresh",
		"dirty_rows", stats.DirtyRows,
		"regions", regions,
		"full", stats.FullRedraw,
		"elapsed", timer.Elapsed(),
	)
	return nil
}

// drainControl applies pending reloads and snapshot requests.
func (s *Session) drainControl() {
	select {
	case cfg := <-s.reloads:
		s.apply(cfg)
	default:
	}

	for {
		select {
		case path := <-s.snapshots:
			s.writeSnapshot(path)
		default:
			return
		}
	}
}

func (s *Session) apply(cfg *config.Config) {
	if cfg == nil {
		return
	}

	policy := cfg.Refresh.Policy()
	if err := policy.Validate(); err != nil {
		s.logger.Warn("reload: keeping refresh policy", "error", err)
	} else {
		s.policy = policy
	}
	if cfg.Keyboard.Batch > 0 {
		s.batch = cfg.Keyboard.Batch
	}
	if a, i := cfg.Session.ActiveSleep.D(), cfg.Session.IdleSleep.D(); a > 0 && i >= a {
		s.activeSleep, s.idleSleep = a, i
	}
	if s.logging != nil {
		s.logging.SetLevel(cfg.Logging.Level)
	}

	if path := cfg.Keyboard.Keymap; path != s.keymapPath {
		if path == "" {
			s.keys.SetScript(nil)
			s.keymapPath = ""
		} else {
			script, err := keymap.LoadFile(path,
				keymap.WithCallTimeout(cfg.Keyboard.CallTimeout.D()),
				keymap.WithLogger(s.logger.With("component", "keymap")),
			)
			if err != nil {
				s.logger.Warn("reload: keeping keymap", "path", path, "error", err)
			} else {
				s.keys.SetScript(script)
				s.keymapPath = path
			}
		}
	}

	s.logger.Info("configuration applied",
		"quiet", s.policy.Quiet,
		"force", s.policy.Force,
		"keymap", s.keymapPath,
	)
}

func (s *Session) writeSnapshot(path string) {
	doc, err := s.Snapshot()
	if err == nil {
		err = os.WriteFile(path, []byte(doc), 0o644)
	}
	if err != nil {
		s.logger.Warn("snapshot failed", "path", path, "error", err)
		return
	}
	s.logger.Info("snapshot written", "path", path)
}

// Run initializes the panel and loops until ctx is done, Stop is called,
// the pty hangs up or a collaborator fails. On exit the panel is put to
// sleep and every channel is closed. A stop request, a cancelled context
// and the program exiting all return nil.
func (s *Session) Run(ctx context.Context) (err error) {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	defer func() {
		if r := recover(); r != nil {
			err = NewRecoveredPanicError(r, string(debug.Stack()))
		}
		if cerr := s.shutdown(); cerr != nil {
			s.logger.Warn("shutdown", "error", cerr)
			if err == nil {
				err = cerr
			}
		}
		s.logger.Info("session ended", s.metrics.Snapshot().LogAttrs()...)
	}()

	if err := s.panel.Init(); err != nil {
		return NewComponentError("panel", "init", err)
	}
	if err := s.panel.Clear(); err != nil {
		return NewComponentError("panel", "clear", err)
	}
	now := s.clock.NowMillis()
	s.lastInput, s.lastRefresh = now, now
	s.logger.Info("session started")

	for {
		if ctx.Err() != nil {
			return nil
		}

		active, err := s.Tick()
		if err != nil {
			switch {
			case errors.Is(err, ErrStopped):
				return nil
			case errors.Is(err, ErrChannelClosed):
				s.logger.Info("program exited")
				return nil
			default:
				return err
			}
		}

		wait := s.idleSleep
		if active || !s.policy.Quiescent(s.clock.NowMillis(), s.lastInput) {
			wait = s.activeSleep
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// shutdown sleeps the panel and closes every channel.
func (s *Session) shutdown() error {
	var errs []error
	if err := s.panel.Sleep(); err != nil {
		errs = append(errs, NewComponentError("panel", "sleep", err))
	}
	if err := s.panel.Close(); err != nil {
		errs = append(errs, NewComponentError("panel", "close", err))
	}
	if s.keyboard != nil {
		if err := s.keyboard.Close(); err != nil {
			errs = append(errs, NewComponentError("keyboard", "close", err))
		}
	}
	if err := s.pty.Close(); err != nil {
		errs = append(errs, NewComponentError("pty", "close", err))
	}
	s.keys.Close()
	return errors.Join(errs...)
}
