package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/inkterm/internal/renderer/refresh"
	"github.com/dshills/inkterm/internal/terminal"
)

// Panel drivers.
const (
	DriverAuto    = "auto"
	DriverEPD     = "epd"
	DriverPreview = "preview"
	DriverMemory  = "memory"
)

// Keyboard devices other than a device path.
const (
	KeyboardAuto  = "auto"
	KeyboardTcell = "tcell"
	KeyboardNone  = "none"
)

// Config is the complete inkterm configuration.
type Config struct {
	Terminal TerminalConfig `toml:"terminal" yaml:"terminal"`
	Refresh  RefreshConfig  `toml:"refresh" yaml:"refresh"`
	Panel    PanelConfig    `toml:"panel" yaml:"panel"`
	Font     FontConfig     `toml:"font" yaml:"font"`
	Keyboard KeyboardConfig `toml:"keyboard" yaml:"keyboard"`
	Session  SessionConfig  `toml:"session" yaml:"session"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
}

// TerminalConfig sizes the screen model and tunes the parser.
type TerminalConfig struct {
	Rows           int    `toml:"rows" yaml:"rows"`
	Cols           int    `toml:"cols" yaml:"cols"`
	Scrollback     int    `toml:"scrollback" yaml:"scrollback"`
	MaxSequenceLen int    `toml:"max_sequence_len" yaml:"max_sequence_len"`
	CursorOrder    string `toml:"cursor_order" yaml:"cursor_order"`
}

// RefreshConfig is the refresh scheduler policy.
type RefreshConfig struct {
	Quiet Duration `toml:"quiet" yaml:"quiet"`
	Force Duration `toml:"force" yaml:"force"`
}

// Policy returns the scheduler policy.
func (r RefreshConfig) Policy() refresh.Policy {
	return refresh.Policy{Quiet: r.Quiet.D(), Force: r.Force.D()}
}

// PanelConfig selects and wires the display.
type PanelConfig struct {
	Driver      string     `toml:"driver" yaml:"driver"`
	Width       int        `toml:"width" yaml:"width"`
	Height      int        `toml:"height" yaml:"height"`
	SPIPort     string     `toml:"spi_port" yaml:"spi_port"`
	Pins        PinsConfig `toml:"pins" yaml:"pins"`
	BusyTimeout Duration   `toml:"busy_timeout" yaml:"busy_timeout"`
}

// PinsConfig names the e-paper GPIO lines (periph.io names, BCM numbering).
type PinsConfig struct {
	RST  string `toml:"rst" yaml:"rst"`
	DC   string `toml:"dc" yaml:"dc"`
	CS   string `toml:"cs" yaml:"cs"`
	BUSY string `toml:"busy" yaml:"busy"`
	PWR  string `toml:"pwr" yaml:"pwr"`
}

// FontConfig selects glyph sources. Empty paths fall back to discovery,
// then to the built-in 7x13 bitmap font.
type FontConfig struct {
	Path       string  `toml:"path" yaml:"path"`
	CJKPath    string  `toml:"cjk_path" yaml:"cjk_path"`
	Size       float64 `toml:"size" yaml:"size"`
	CellWidth  int     `toml:"cell_width" yaml:"cell_width"`
	CellHeight int     `toml:"cell_height" yaml:"cell_height"`
	Discover   bool    `toml:"discover" yaml:"discover"`
	CacheSize  int     `toml:"cache_size" yaml:"cache_size"`
}

// KeyboardConfig selects the key source and keymap script.
type KeyboardConfig struct {
	Device      string   `toml:"device" yaml:"device"`
	Batch       int      `toml:"batch" yaml:"batch"`
	Keymap      string   `toml:"keymap" yaml:"keymap"`
	CallTimeout Duration `toml:"call_timeout" yaml:"call_timeout"`
}

// SessionConfig describes the hosted program and loop pacing.
type SessionConfig struct {
	Shell        string   `toml:"shell" yaml:"shell"`
	Args         []string `toml:"args" yaml:"args"`
	Term         string   `toml:"term" yaml:"term"`
	ActiveSleep  Duration `toml:"active_sleep" yaml:"active_sleep"`
	IdleSleep    Duration `toml:"idle_sleep" yaml:"idle_sleep"`
	SnapshotPath string   `toml:"snapshot_path" yaml:"snapshot_path"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	File   string `toml:"file" yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	return &Config{
		Terminal: TerminalConfig{
			Rows:           terminal.DefaultRows,
			Cols:           terminal.DefaultCols,
			Scrollback:     100,
			MaxSequenceLen: terminal.DefaultMaxSequenceLen,
			CursorOrder:    terminal.OrderRowCol.String(),
		},
		Refresh: RefreshConfig{
			Quiet: Duration(refresh.DefaultQuiet),
			Force: Duration(refresh.DefaultForce),
		},
		Panel: PanelConfig{
			Driver: DriverAuto,
			Width:  800,
			Height: 480,
			Pins: PinsConfig{
				RST: "GPIO17", DC: "GPIO25", CS: "GPIO8", BUSY: "GPIO24", PWR: "GPIO18",
			},
			BusyTimeout: Duration(30 * time.Second),
		},
		Font: FontConfig{
			Size:       13,
			CellWidth:  8,
			CellHeight: 16,
			Discover:   true,
			CacheSize:  1024,
		},
		Keyboard: KeyboardConfig{
			Device:      KeyboardAuto,
			Batch:       32,
			CallTimeout: Duration(50 * time.Millisecond),
		},
		Session: SessionConfig{
			Shell:       shell,
			Term:        "xterm-256color",
			ActiveSleep: Duration(5 * time.Millisecond),
			IdleSleep:   Duration(50 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. The format is chosen by extension.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := Default()
	if err := decode(path, data, cfg); err != nil {
		return nil, err
	}
	cfg.expandPaths()
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if errors.Is(err, io.EOF) {
			err = nil // empty document
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}

// Encode writes cfg in the format chosen by the extension of path.
func Encode(path string, cfg *Config) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Marshal(cfg)
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// DefaultPath returns the first existing config file in the user config
// directory, or "" when there is none.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		p := filepath.Join(dir, "inkterm", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// expandPaths expands a leading ~ in path settings.
func (c *Config) expandPaths() {
	for _, p := range []*string{&c.Font.Path, &c.Font.CJKPath, &c.Keyboard.Keymap, &c.Session.SnapshotPath, &c.Logging.File} {
		*p = expandHome(*p)
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Command returns the program and arguments to run in the session.
func (c *Config) Command() []string {
	return append([]string{c.Session.Shell}, c.Session.Args...)
}
