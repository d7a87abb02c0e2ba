package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/inkterm/internal/config"
	"github.com/dshills/inkterm/internal/glyph"
	"github.com/dshills/inkterm/internal/panel"
	"github.com/dshills/inkterm/internal/renderer/raster"
)

func TestResolveDriver(t *testing.T) {
	tests := []struct {
		driver   string
		tty, spi bool
		expected string
	}{
		{config.DriverAuto, false, true, config.DriverEPD},
		{config.DriverAuto, true, true, config.DriverEPD},
		{config.DriverAuto, true, false, config.DriverPreview},
		{config.DriverAuto, false, false, config.DriverMemory},
		{config.DriverMemory, true, true, config.DriverMemory},
		{config.DriverPreview, false, false, config.DriverPreview},
	}

	for _, tt := range tests {
		if got := ResolveDriver(tt.driver, tt.tty, tt.spi); got != tt.expected {
			t.Errorf("ResolveDriver(%s, tty=%v, spi=%v): expected %s, got %s",
				tt.driver, tt.tty, tt.spi, tt.expected, got)
		}
	}
}

func TestFitGrid(t *testing.T) {
	opts := raster.Options{Width: 800, Height: 480, CellWidth: 8, CellHeight: 16}

	tests := []struct {
		rows, cols       int
		expRows, expCols int
		clamped          bool
	}{
		{24, 80, 24, 80, false},
		{30, 100, 30, 100, false},
		{40, 120, 30, 100, true},
		{10, 200, 10, 100, true},
	}

	for _, tt := range tests {
		rows, cols, clamped := FitGrid(tt.rows, tt.cols, opts)
		if rows != tt.expRows || cols != tt.expCols || clamped != tt.clamped {
			t.Errorf("FitGrid(%d, %d): expected %d %d %v, got %d %d %v",
				tt.rows, tt.cols, tt.expRows, tt.expCols, tt.clamped, rows, cols, clamped)
		}
	}
}

func TestBuildGlyphsBuiltin(t *testing.T) {
	fc := config.Default().Font
	fc.Discover = false

	svc, err := BuildGlyphs(fc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.(*glyph.Cache); !ok {
		t.Errorf("expected a cached service, got %T", svc)
	}

	g, ok := svc.BitmapFor('A')
	if !ok {
		t.Fatal("expected the built-in font to cover 'A'")
	}
	if g.Width != fc.CellWidth || g.Height != fc.CellHeight {
		t.Errorf("expected %dx%d glyph, got %dx%d", fc.CellWidth, fc.CellHeight, g.Width, g.Height)
	}
	if _, ok := svc.BitmapFor('漢'); ok {
		t.Error("expected the built-in font to miss CJK")
	}
}

func TestBuildGlyphsExplicitFontMissing(t *testing.T) {
	fc := config.Default().Font
	fc.Path = filepath.Join(t.TempDir(), "missing.ttf")

	if _, err := BuildGlyphs(fc, nil); err == nil {
		t.Error("expected error for a configured font that does not exist")
	}
}

func withProbes(t *testing.T, tty, spi bool) {
	t.Helper()
	oldTTY, oldSPI := stdoutIsTerminal, spiPresent
	stdoutIsTerminal = func() bool { return tty }
	spiPresent = func() bool { return spi }
	t.Cleanup(func() {
		stdoutIsTerminal, spiPresent = oldTTY, oldSPI
	})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	cfg := config.Default()
	cfg.Panel.Driver = config.DriverAuto
	cfg.Keyboard.Device = config.KeyboardNone
	cfg.Font.Discover = false
	cfg.Session.Shell = "/bin/sh"
	cfg.Session.Args = []string{"-c", "printf 'ready'; exit 0"}
	cfg.Session.IdleSleep = config.Duration(2 * time.Millisecond)
	return cfg
}

func TestBuildAndRun(t *testing.T) {
	withProbes(t, false, false)
	cfg := testConfig(t)
	cfg.Terminal.Rows = 40 // reduced to 30 on a 480px panel

	s, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rows, cols := s.Screen().Dimensions(); rows != 30 || cols != 80 {
		t.Errorf("expected 30x80 after fitting, got %dx%d", rows, cols)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
	if got := s.Screen().RowText(0); got != "ready" {
		t.Errorf("expected program output, got %q", got)
	}
}

func TestBuildUnknownKeyboardDevice(t *testing.T) {
	withProbes(t, false, false)
	cfg := testConfig(t)
	cfg.Keyboard.Device = filepath.Join(t.TempDir(), "event99")

	_, err := Build(cfg, nil)
	if !errors.Is(err, ErrInitialization) {
		t.Fatalf("expected ErrInitialization, got %v", err)
	}
	var ce *ComponentError
	if !errors.As(err, &ce) || ce.Component != "keyboard" {
		t.Errorf("expected keyboard component error, got %v", err)
	}
}

func TestBuildTcellNeedsPreview(t *testing.T) {
	withProbes(t, false, false)
	cfg := testConfig(t)
	cfg.Keyboard.Device = config.KeyboardTcell

	if _, err := Build(cfg, nil); !errors.Is(err, ErrInitialization) {
		t.Errorf("expected ErrInitialization, got %v", err)
	}
}

func TestBuildBadKeymap(t *testing.T) {
	withProbes(t, false, false)
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "keymap.lua")
	if err := os.WriteFile(path, []byte("bindings = {"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Keyboard.Keymap = path

	_, err := Build(cfg, nil)
	var ce *ComponentError
	if !errors.As(err, &ce) || ce.Component != "keymap" {
		t.Errorf("expected keymap component error, got %v", err)
	}
}

func TestBuildUnknownDriver(t *testing.T) {
	withProbes(t, false, false)
	cfg := testConfig(t)
	cfg.Panel.Driver = "lcd"

	if _, err := Build(cfg, nil); !errors.Is(err, panel.ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}
}
