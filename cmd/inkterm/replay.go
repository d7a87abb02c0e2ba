package main

import (
	"fmt"
	"image/png"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/inkterm/internal/app"
	"github.com/dshills/inkterm/internal/config"
	"github.com/dshills/inkterm/internal/renderer/raster"
	"github.com/dshills/inkterm/internal/snapshot"
	"github.com/dshills/inkterm/internal/terminal"
)

// replay flags
var (
	replayJSON       bool
	replayQuery      string
	replayPNG        string
	replayScrollback bool
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Feed a captured byte stream through the emulator",
	Long: `Feed a captured program output (for example from script(1)) into a fresh
screen and print the result. Use "-" to read from stdin.

The grid size, cursor order and font come from the configuration.

Examples:
  inkterm replay out.log                      # Print the final screen text
  inkterm replay out.log --json               # Print a JSON snapshot
  inkterm replay out.log --query cursor.row   # Query the snapshot
  inkterm replay out.log --png screen.png     # Render the panel image`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Output a JSON snapshot")
	replayCmd.Flags().StringVar(&replayQuery, "query", "", "Print a gjson path from the snapshot")
	replayCmd.Flags().StringVar(&replayPNG, "png", "", "Write the rendered panel image to this file")
	replayCmd.Flags().BoolVar(&replayScrollback, "scrollback", false, "Print scrollback before the screen")

	rootCmd.AddCommand(replayCmd)
}

type replayOptions struct {
	JSON       bool
	Query      string
	PNG        string
	Scrollback bool
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var data []byte
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	return replay(cmd.OutOrStdout(), cfg, data, replayOptions{
		JSON:       replayJSON,
		Query:      replayQuery,
		PNG:        replayPNG,
		Scrollback: replayScrollback,
	})
}

// replay feeds data into a screen sized to fit the configured panel and
// writes the requested view of it.
func replay(w io.Writer, cfg *config.Config, data []byte, opts replayOptions) error {
	order, err := terminal.ParseCursorOrder(cfg.Terminal.CursorOrder)
	if err != nil {
		return err
	}

	geom := raster.Options{
		Width:      cfg.Panel.Width,
		Height:     cfg.Panel.Height,
		CellWidth:  cfg.Font.CellWidth,
		CellHeight: cfg.Font.CellHeight,
	}
	rows, cols := cfg.Terminal.Rows, cfg.Terminal.Cols
	if opts.PNG != "" {
		rows, cols, _ = app.FitGrid(rows, cols, geom)
	}

	screen := terminal.NewScreen(rows, cols, terminal.WithScrollback(cfg.Terminal.Scrollback))
	parser := terminal.NewParser(screen,
		terminal.WithCursorOrder(order),
		terminal.WithMaxSequenceLen(cfg.Terminal.MaxSequenceLen),
	)
	parser.Feed(data)

	switch {
	case opts.PNG != "":
		glyphs, err := app.BuildGlyphs(cfg.Font, nil)
		if err != nil {
			return err
		}
		fb := raster.NewRenderer(glyphs, geom, rows, cols).Render(screen)

		f, err := os.Create(opts.PNG)
		if err != nil {
			return err
		}
		if err := png.Encode(f, fb.Image()); err != nil {
			f.Close()
			return fmt.Errorf("encode png: %w", err)
		}
		return f.Close()

	case opts.JSON || opts.Query != "":
		doc, err := snapshot.Build(screen, snapshot.Meta{
			Unknown:   parser.Unknown(),
			Overflows: parser.Overflows(),
		})
		if err != nil {
			return err
		}
		if opts.Query == "" {
			_, err = fmt.Fprintln(w, doc)
			return err
		}
		res, err := snapshot.Query(doc, opts.Query)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, res.String())
		return err

	default:
		if opts.Scrollback && screen.Scrollback().Len() > 0 {
			if _, err := fmt.Fprintln(w, screen.Scrollback().Text()); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(w, screen.Text())
		return err
	}
}
