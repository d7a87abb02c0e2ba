package config

import (
	"errors"
	"slices"
	"strings"

	"github.com/dshills/inkterm/internal/terminal"
)

// Limits on the screen model.
const (
	MaxRows = 500
	MaxCols = 1000
)

var logLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate checks the configuration and returns every problem found,
// joined. Each problem is a *ValidationError.
func (c *Config) Validate() error {
	var errs []error
	fail := func(path, msg string, v any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: v})
	}

	t := c.Terminal
	if t.Rows < 1 || t.Rows > MaxRows {
		fail("terminal.rows", "must be between 1 and 500", t.Rows)
	}
	if t.Cols < 1 || t.Cols > MaxCols {
		fail("terminal.cols", "must be between 1 and 1000", t.Cols)
	}
	if t.Scrollback < 0 {
		fail("terminal.scrollback", "must not be negative", t.Scrollback)
	}
	if t.MaxSequenceLen < 16 {
		fail("terminal.max_sequence_len", "must be at least 16", t.MaxSequenceLen)
	}
	if _, err := terminal.ParseCursorOrder(t.CursorOrder); err != nil {
		fail("terminal.cursor_order", "must be row_col or col_row", t.CursorOrder)
	}

	if err := c.Refresh.Policy().Validate(); err != nil {
		fail("refresh", "quiet must be positive and shorter than force", c.Refresh.Quiet.String()+"/"+c.Refresh.Force.String())
	}

	p := c.Panel
	switch p.Driver {
	case DriverAuto, DriverEPD, DriverPreview, DriverMemory:
	default:
		fail("panel.driver", "must be auto, epd, preview or memory", p.Driver)
	}
	if p.Width < 1 || p.Height < 1 {
		fail("panel.width", "panel size must be positive", [2]int{p.Width, p.Height})
	}
	if p.BusyTimeout <= 0 {
		fail("panel.busy_timeout", "must be positive", p.BusyTimeout.String())
	}

	f := c.Font
	if f.CellWidth < 1 || f.CellHeight < 1 {
		fail("font.cell_width", "cell size must be positive", [2]int{f.CellWidth, f.CellHeight})
	}
	if f.Size <= 0 {
		fail("font.size", "must be positive", f.Size)
	}
	if f.CacheSize < 1 {
		fail("font.cache_size", "must be positive", f.CacheSize)
	}

	k := c.Keyboard
	if k.Device == "" {
		fail("keyboard.device", "must be auto, tcell, none or a device path", k.Device)
	}
	if k.Batch < 1 {
		fail("keyboard.batch", "must be positive", k.Batch)
	}
	if k.CallTimeout <= 0 {
		fail("keyboard.call_timeout", "must be positive", k.CallTimeout.String())
	}

	s := c.Session
	if s.Shell == "" {
		fail("session.shell", "must not be empty", s.Shell)
	}
	if s.ActiveSleep <= 0 || s.IdleSleep <= 0 {
		fail("session.active_sleep", "sleeps must be positive", s.ActiveSleep.String()+"/"+s.IdleSleep.String())
	}
	if s.ActiveSleep > s.IdleSleep {
		fail("session.active_sleep", "must not exceed idle_sleep", s.ActiveSleep.String())
	}

	l := c.Logging
	if !slices.Contains(logLevels, strings.ToLower(l.Level)) {
		fail("logging.level", "must be debug, info, warn or error", l.Level)
	}
	if l.Format != "text" && l.Format != "json" {
		fail("logging.format", "must be text or json", l.Format)
	}

	return errors.Join(errs...)
}
