package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/inkterm/internal/app"
	"github.com/dshills/inkterm/internal/config"
)

// root flags
var (
	rootConfigPath string
	rootLogLevel   string
	rootDriver     string
	rootRows       int
	rootCols       int
	rootShell      string
)

var rootCmd = &cobra.Command{
	Use:   "inkterm",
	Short: "Terminal emulator for e-paper panels",
	Long: `Run a shell on a slow-refresh monochrome panel.

inkterm hosts a program in a pseudo-terminal, interprets its output and
repaints the panel only after typing pauses, or at the latest after the
force interval while output keeps flowing.

The panel driver is chosen by --driver (epd, preview, memory or auto).
Auto uses the e-paper panel when an SPI device is present, a braille
preview on an interactive terminal, and an in-memory panel otherwise.

Send SIGUSR1 to write a JSON snapshot of the screen.

Examples:
  inkterm                          # Run $SHELL on the detected panel
  inkterm --driver preview         # Preview in this terminal
  inkterm --rows 30 --cols 100     # Larger grid
  inkterm replay session.log       # Print the screen a capture produces`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSession,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootConfigPath, "config", "c", "", "Path to configuration file (TOML or YAML)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&rootRows, "rows", 0, "Terminal rows")
	rootCmd.PersistentFlags().IntVar(&rootCols, "cols", 0, "Terminal columns")
	rootCmd.PersistentFlags().StringVar(&rootDriver, "driver", "", "Panel driver (auto, epd, preview, memory)")
	rootCmd.PersistentFlags().StringVar(&rootShell, "shell", "", "Program to run")

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a session (the default command)",
	Args:  cobra.NoArgs,
	RunE:  runSession,
}

// loadConfig resolves configuration from defaults, the config file, the
// environment and flags, in that order. It returns the file used, if any.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path := rootConfigPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, "", err
	}
	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// applyFlags overrides cfg with flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = rootLogLevel
	}
	if flags.Changed("rows") {
		cfg.Terminal.Rows = rootRows
	}
	if flags.Changed("cols") {
		cfg.Terminal.Cols = rootCols
	}
	if flags.Changed("driver") {
		cfg.Panel.Driver = rootDriver
	}
	if flags.Changed("shell") {
		cfg.Session.Shell = rootShell
		cfg.Session.Args = nil
	}
}

func runSession(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The preview owns the terminal; without a log file, logs are dropped.
	var fallback io.Writer = os.Stderr
	if app.DetectDriver(cfg.Panel.Driver) == config.DriverPreview {
		fallback = io.Discard
	}
	logging, err := app.NewLogging(cfg.Logging, fallback)
	if err != nil {
		return err
	}
	defer logging.Close()
	logger := logging.Logger

	session, err := app.Build(cfg, logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if path != "" {
		if err := watchConfig(ctx, cmd, path, session, logger); err != nil {
			logger.Warn("config watcher disabled", "path", path, "error", err)
		}
	}
	go snapshotOnSignal(ctx, session, cfg.Session.SnapshotPath, logger)

	err = session.Run(ctx)
	if app.IsCleanExit(err) {
		return nil
	}
	return err
}

// watchConfig forwards reloaded configurations to the session until ctx
// is done. Command-line overrides are reapplied to every reload.
func watchConfig(ctx context.Context, cmd *cobra.Command, path string, s *app.Session, logger *slog.Logger) error {
	w, err := config.NewWatcher(path,
		config.WithEnv(os.LookupEnv),
		config.WithWatcherLogger(logger.With("component", "config")),
	)
	if err != nil {
		return err
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-w.Updates():
				if !ok {
					return
				}
				applyFlags(cmd, cfg)
				if err := cfg.Validate(); err != nil {
					logger.Warn("reloaded config rejected", "error", err)
					continue
				}
				s.Reload(cfg)
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				logger.Warn("config reload failed", "error", err)
			}
		}
	}()
	return nil
}

// snapshotOnSignal queues a screen snapshot on every SIGUSR1.
func snapshotOnSignal(ctx context.Context, s *app.Session, path string, logger *slog.Logger) {
	if path == "" {
		path = filepath.Join(os.TempDir(), fmt.Sprintf("inkterm-%s.json", s.ID()))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			if !s.RequestSnapshot(path) {
				logger.Warn("snapshot request dropped", "path", path)
			}
		}
	}
}
