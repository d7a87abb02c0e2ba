package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INKTERM_"

// envSetting applies one environment variable to a Config.
type envSetting struct {
	path string
	set  func(c *Config, v string) error
}

// envMapping maps environment variables to settings.
var envMapping = map[string]envSetting{
	"INKTERM_ROWS":             {"terminal.rows", intSetter(func(c *Config) *int { return &c.Terminal.Rows })},
	"INKTERM_COLS":             {"terminal.cols", intSetter(func(c *Config) *int { return &c.Terminal.Cols })},
	"INKTERM_SCROLLBACK":       {"terminal.scrollback", intSetter(func(c *Config) *int { return &c.Terminal.Scrollback })},
	"INKTERM_MAX_SEQUENCE_LEN": {"terminal.max_sequence_len", intSetter(func(c *Config) *int { return &c.Terminal.MaxSequenceLen })},
	"INKTERM_CURSOR_ORDER":     {"terminal.cursor_order", stringSetter(func(c *Config) *string { return &c.Terminal.CursorOrder })},
	"INKTERM_REFRESH_QUIET":    {"refresh.quiet", durationSetter(func(c *Config) *Duration { return &c.Refresh.Quiet })},
	"INKTERM_REFRESH_FORCE":    {"refresh.force", durationSetter(func(c *Config) *Duration { return &c.Refresh.Force })},
	"INKTERM_DRIVER":           {"panel.driver", stringSetter(func(c *Config) *string { return &c.Panel.Driver })},
	"INKTERM_SPI_PORT":         {"panel.spi_port", stringSetter(func(c *Config) *string { return &c.Panel.SPIPort })},
	"INKTERM_FONT":             {"font.path", stringSetter(func(c *Config) *string { return &c.Font.Path })},
	"INKTERM_FONT_CJK":         {"font.cjk_path", stringSetter(func(c *Config) *string { return &c.Font.CJKPath })},
	"INKTERM_FONT_SIZE":        {"font.size", floatSetter(func(c *Config) *float64 { return &c.Font.Size })},
	"INKTERM_KEYBOARD":         {"keyboard.device", stringSetter(func(c *Config) *string { return &c.Keyboard.Device })},
	"INKTERM_KEYMAP":           {"keyboard.keymap", stringSetter(func(c *Config) *string { return &c.Keyboard.Keymap })},
	"INKTERM_SHELL":            {"session.shell", stringSetter(func(c *Config) *string { return &c.Session.Shell })},
	"INKTERM_TERM":             {"session.term", stringSetter(func(c *Config) *string { return &c.Session.Term })},
	"INKTERM_SNAPSHOT":         {"session.snapshot_path", stringSetter(func(c *Config) *string { return &c.Session.SnapshotPath })},
	"INKTERM_LOG_LEVEL":        {"logging.level", stringSetter(func(c *Config) *string { return &c.Logging.Level })},
	"INKTERM_LOG_FORMAT":       {"logging.format", stringSetter(func(c *Config) *string { return &c.Logging.Format })},
	"INKTERM_LOG_FILE":         {"logging.file", stringSetter(func(c *Config) *string { return &c.Logging.File })},
}

// ApplyEnv overrides settings from INKTERM_* variables in the process
// environment.
func (c *Config) ApplyEnv() error {
	return c.ApplyEnvFrom(os.LookupEnv)
}

// ApplyEnvFrom overrides settings using lookup. Empty values are treated
// as set, not as unset.
func (c *Config) ApplyEnvFrom(lookup func(string) (string, bool)) error {
	for name, s := range envMapping {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := s.set(c, strings.TrimSpace(v)); err != nil {
			return &ParseError{Path: name, Err: fmt.Errorf("%s: %w", s.path, err)}
		}
	}
	c.expandPaths()
	return nil
}

// EnvVars returns the supported variable names and the settings they map to.
func EnvVars() map[string]string {
	out := make(map[string]string, len(envMapping))
	for name, s := range envMapping {
		out[name] = s.path
	}
	return out
}

func stringSetter(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func floatSetter(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

// durationSetter accepts Go durations ("800ms") or bare milliseconds.
func durationSetter(field func(*Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			*field(c) = Duration(time.Duration(ms) * time.Millisecond)
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = Duration(d)
		return nil
	}
}
