package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/dshills/inkterm/internal/config"
	"github.com/dshills/inkterm/internal/glyph"
	"github.com/dshills/inkterm/internal/input/keyboard"
	"github.com/dshills/inkterm/internal/input/keymap"
	"github.com/dshills/inkterm/internal/panel"
	"github.com/dshills/inkterm/internal/panel/epd"
	"github.com/dshills/inkterm/internal/panel/preview"
	"github.com/dshills/inkterm/internal/pty"
	"github.com/dshills/inkterm/internal/renderer/raster"
	"github.com/dshills/inkterm/internal/terminal"
)

// DefaultSPIDevice is the spidev node whose presence selects the e-paper
// driver in auto mode.
const DefaultSPIDevice = "/dev/spidev0.0"

// Environment probes used by driver selection; replaced in tests.
var (
	stdoutIsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	spiPresent       = func() bool {
		_, err := os.Stat(DefaultSPIDevice)
		return err == nil
	}
)

// ResolveDriver picks a concrete panel driver. Auto prefers the e-paper
// panel when an SPI device exists, then a preview on an interactive
// terminal, then the in-memory panel.
func ResolveDriver(driver string, tty, spi bool) string {
	if driver != config.DriverAuto {
		return driver
	}
	switch {
	case spi:
		return config.DriverEPD
	case tty:
		return config.DriverPreview
	default:
		return config.DriverMemory
	}
}

// DetectDriver resolves driver against the running system.
func DetectDriver(driver string) string {
	if driver != config.DriverAuto {
		return driver
	}
	return ResolveDriver(driver, stdoutIsTerminal(), spiPresent())
}

// bootstrapper builds session components with cleanup on failure.
type bootstrapper struct {
	cfg     *config.Config
	logging *Logging
	logger  *slog.Logger

	initOrder []string
	closers   []func() error

	panel    panel.Panel
	glyphs   glyph.Service
	keyboard keyboard.Source
	keys     *keymap.Encoder
	pty      *pty.Channel
	rows     int
	cols     int
	render   raster.Options
}

// Build assembles a session from cfg: panel, glyphs, keyboard, keymap and
// the hosted program. Anything opened is released if a later step fails.
func Build(cfg *config.Config, logging *Logging) (*Session, error) {
	logger := slog.New(slog.DiscardHandler)
	if logging != nil {
		logger = logging.Logger
	}
	b := &bootstrapper{
		cfg:       cfg,
		logging:   logging,
		logger:    logger,
		initOrder: make([]string, 0, 6),
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"panel", b.initPanel},
		{"grid", b.initGrid},
		{"glyphs", b.initGlyphs},
		{"keyboard", b.initKeyboard},
		{"keymap", b.initKeymap},
		{"pty", b.initPTY},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			b.cleanup()
			return nil, fmt.Errorf("%w: %w", ErrInitialization, NewComponentError(step.name, "init", err))
		}
		b.initOrder = append(b.initOrder, step.name)
	}

	order, err := terminal.ParseCursorOrder(cfg.Terminal.CursorOrder)
	if err != nil {
		b.cleanup()
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	s, err := NewSession(Options{
		Rows:           b.rows,
		Cols:           b.cols,
		Scrollback:     cfg.Terminal.Scrollback,
		MaxSequenceLen: cfg.Terminal.MaxSequenceLen,
		CursorOrder:    order,
		Policy:         cfg.Refresh.Policy(),
		Batch:          cfg.Keyboard.Batch,
		ActiveSleep:    cfg.Session.ActiveSleep.D(),
		IdleSleep:      cfg.Session.IdleSleep.D(),
		Render:         b.render,
		Glyphs:         b.glyphs,
		Panel:          b.panel,
		PTY:            b.pty,
		Keyboard:       b.keyboard,
		Keys:           b.keys,
		KeymapPath:     cfg.Keyboard.Keymap,
		Logger:         logger,
		Logging:        logging,
	})
	if err != nil {
		b.cleanup()
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	logger.Debug("session components ready", "order", b.initOrder)
	return s, nil
}

// cleanup releases components in reverse order of creation.
func (b *bootstrapper) cleanup() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			b.logger.Warn("cleanup failed", "error", err)
		}
	}
	b.closers = nil
}

func (b *bootstrapper) initPanel() error {
	pc := b.cfg.Panel
	driver := DetectDriver(pc.Driver)
	b.logger.Info("panel driver", "driver", driver)

	switch driver {
	case config.DriverEPD:
		d, err := epd.Open(epd.Options{
			SPIPort:     pc.SPIPort,
			Pins:        epd.Pins(pc.Pins),
			BusyTimeout: pc.BusyTimeout.D(),
			Logger:      b.logger.With("component", "epd"),
		})
		if err != nil {
			return err
		}
		if pc.Width != epd.Width || pc.Height != epd.Height {
			b.logger.Warn("panel size fixed by driver", "width", epd.Width, "height", epd.Height)
		}
		b.panel = d

	case config.DriverPreview:
		p, err := preview.New(pc.Width, pc.Height)
		if err != nil {
			return err
		}
		// The keyboard source reads from the same screen, so start it now.
		if err := p.Init(); err != nil {
			return err
		}
		b.panel = p

	case config.DriverMemory:
		b.panel = panel.NewMemory(pc.Width, pc.Height)

	default:
		return fmt.Errorf("%w: %s", panel.ErrUnknownDriver, driver)
	}

	b.closers = append(b.closers, b.panel.Close)
	return nil
}

// initGrid fits the configured grid onto the panel.
func (b *bootstrapper) initGrid() error {
	w, h := b.panel.Size()
	b.render = raster.Options{
		Width:      w,
		Height:     h,
		CellWidth:  b.cfg.Font.CellWidth,
		CellHeight: b.cfg.Font.CellHeight,
	}
	rows, cols, clamped := FitGrid(b.cfg.Terminal.Rows, b.cfg.Terminal.Cols, b.render)
	if rows < 1 || cols < 1 {
		return fmt.Errorf("cell %dx%d does not fit a %dx%d panel", b.render.CellWidth, b.render.CellHeight, w, h)
	}
	if clamped {
		b.logger.Warn("terminal size reduced to fit the panel",
			"rows", rows, "cols", cols,
			"requested_rows", b.cfg.Terminal.Rows, "requested_cols", b.cfg.Terminal.Cols)
	}
	b.rows, b.cols = rows, cols
	return nil
}

// FitGrid clamps rows x cols to the cells that fit in opts and reports
// whether anything was reduced.
func FitGrid(rows, cols int, opts raster.Options) (int, int, bool) {
	maxRows, maxCols := opts.GridSize()
	clamped := false
	if rows > maxRows {
		rows, clamped = maxRows, true
	}
	if cols > maxCols {
		cols, clamped = maxCols, true
	}
	return rows, cols, clamped
}

func (b *bootstrapper) initGlyphs() error {
	svc, err := BuildGlyphs(b.cfg.Font, b.logger)
	if err != nil {
		return err
	}
	b.glyphs = svc
	return nil
}

// BuildGlyphs chains the configured or discovered regular font, an
// optional CJK fallback and the built-in bitmap font behind a cache.
// An explicitly configured font that fails to load is an error;
// discovered fonts that fail are skipped.
func BuildGlyphs(fc config.FontConfig, logger *slog.Logger) (glyph.Service, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var chain glyph.Chain
	load := func(path string, names []string, role string) error {
		explicit := path != ""
		if !explicit {
			if !fc.Discover {
				return nil
			}
			found, err := glyph.Find(names, glyph.DefaultFontDirs)
			if err != nil {
				logger.Debug("no font discovered", "role", role)
				return nil
			}
			path = found
		}

		svc, err := glyph.LoadFile(path, fc.Size, fc.CellWidth, fc.CellHeight)
		if err != nil {
			if explicit {
				return err
			}
			logger.Warn("skipping discovered font", "path", path, "error", err)
			return nil
		}
		logger.Info("font loaded", "role", role, "path", path)
		chain = append(chain, svc)
		return nil
	}

	if err := load(fc.Path, glyph.RegularFonts, "regular"); err != nil {
		return nil, err
	}
	if err := load(fc.CJKPath, glyph.CJKFonts, "cjk"); err != nil {
		return nil, err
	}

	basic, err := glyph.NewBasicService(fc.CellWidth, fc.CellHeight)
	if err != nil {
		return nil, err
	}
	chain = append(chain, basic)

	cc := glyph.DefaultCacheConfig()
	if fc.CacheSize > 0 {
		cc.MaxEntries = fc.CacheSize
	}
	return glyph.NewCache(chain, cc), nil
}

func (b *bootstrapper) initKeyboard() error {
	dev := b.cfg.Keyboard.Device
	previewPanel, isPreview := b.panel.(*preview.Panel)

	var src keyboard.Source
	switch {
	case dev == config.KeyboardNone:
		b.logger.Info("keyboard disabled")
		return nil

	case dev == config.KeyboardTcell || (dev == config.KeyboardAuto && isPreview):
		if !isPreview {
			return fmt.Errorf("keyboard %q needs the preview panel", dev)
		}
		src = keyboard.NewTcell(previewPanel.Screen())

	case dev == config.KeyboardAuto:
		path, err := keyboard.Discover()
		if err != nil {
			if errors.Is(err, keyboard.ErrNoKeyboard) {
				b.logger.Warn("no keyboard found; running without local input")
				return nil
			}
			return err
		}
		ev, err := keyboard.OpenEvdev(path)
		if err != nil {
			return err
		}
		b.logger.Info("keyboard", "device", path)
		src = ev

	default:
		ev, err := keyboard.OpenEvdev(dev)
		if err != nil {
			return err
		}
		b.logger.Info("keyboard", "device", dev)
		src = ev
	}

	b.keyboard = src
	b.closers = append(b.closers, src.Close)
	return nil
}

func (b *bootstrapper) initKeymap() error {
	kc := b.cfg.Keyboard
	logger := b.logger.With("component", "keymap")

	var script *keymap.Script
	if kc.Keymap != "" {
		s, err := keymap.LoadFile(kc.Keymap,
			keymap.WithCallTimeout(kc.CallTimeout.D()),
			keymap.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		script = s
		b.logger.Info("keymap loaded", "path", kc.Keymap, "bindings", s.Bindings(), "hook", s.HasHook())
	}

	b.keys = keymap.NewEncoder(script, logger)
	b.closers = append(b.closers, func() error {
		b.keys.Close()
		return nil
	})
	return nil
}

func (b *bootstrapper) initPTY() error {
	sc := b.cfg.Session
	ch, err := pty.Spawn(pty.Options{
		Command: b.cfg.Command(),
		Rows:    b.rows,
		Cols:    b.cols,
		Term:    sc.Term,
	})
	if err != nil {
		return err
	}
	b.logger.Info("program started", "command", b.cfg.Command(), "pid", ch.Pid())
	b.pty = ch
	b.closers = append(b.closers, ch.Close)
	return nil
}
