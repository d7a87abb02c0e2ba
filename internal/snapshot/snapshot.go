// Package snapshot serializes screen state to JSON for debugging and
// replay tooling, and queries it back with gjson paths.
//
// A snapshot looks like:
//
//	{
//	  "session": "…",
//	  "time": "2026-01-02T15:04:05Z",
//	  "rows": 24, "cols": 80,
//	  "cursor": {"row": 1, "col": 0, "visible": true},
//	  "lines": ["$ ls", ...],
//	  "styled": [{"row": 0, "col": 2, "rune": "x", "attrs": ["bold"]}],
//	  "scrollback": ["..."],
//	  "stats": {"bells": 0, "unknown": 3, "overflows": 0, "frames": 12}
//	}
package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/inkterm/internal/terminal"
)

// ErrInvalidJSON is returned when a document is not valid JSON.
var ErrInvalidJSON = errors.New("invalid snapshot json")

// Meta is session information recorded alongside the screen.
type Meta struct {
	Session   string
	Time      time.Time
	Unknown   uint64
	Overflows uint64
	Frames    uint64
}

// Build returns the JSON snapshot of s.
func Build(s *terminal.Screen, meta Meta) (string, error) {
	rows, cols := s.Dimensions()
	row, col := s.Cursor()

	doc := `{}`
	var err error
	set := func(path string, value any) {
		if err != nil {
			return
		}
		doc, err = sjson.Set(doc, path, value)
	}

	if meta.Session != "" {
		set("session", meta.Session)
	}
	if !meta.Time.IsZero() {
		set("time", meta.Time.UTC().Format(time.RFC3339))
	}
	set("rows", rows)
	set("cols", cols)
	set("cursor.row", row)
	set("cursor.col", col)
	set("cursor.visible", s.CursorVisible())

	lines := make([]string, rows)
	for r := range rows {
		lines[r] = s.RowText(r)
	}
	set("lines", lines)

	set("styled", []any{})
	for r := range rows {
		for c, cell := range s.Row(r) {
			if cell.IsContinuation() || !styled(cell) {
				continue
			}
			set("styled.-1", map[string]any{
				"row":   r,
				"col":   c,
				"rune":  string(cell.Rune),
				"attrs": attrNames(cell),
			})
		}
	}

	hist := s.Scrollback()
	scrollback := make([]string, hist.Len())
	for i := range scrollback {
		scrollback[i] = hist.LineText(i)
	}
	set("scrollback", scrollback)

	set("stats.bells", s.Bells())
	set("stats.unknown", meta.Unknown)
	set("stats.overflows", meta.Overflows)
	set("stats.frames", meta.Frames)

	if err != nil {
		return "", fmt.Errorf("build snapshot: %w", err)
	}
	return doc, nil
}

func styled(c terminal.Cell) bool {
	return c.Attrs != terminal.AttrNone || !c.Fg.Default || !c.Bg.Default
}

// attrNames lists a cell's attributes and colors.
func attrNames(c terminal.Cell) []string {
	var names []string
	if c.Attrs.Has(terminal.AttrBold) {
		names = append(names, "bold")
	}
	if c.Attrs.Has(terminal.AttrUnderline) {
		names = append(names, "underline")
	}
	if c.Attrs.Has(terminal.AttrReverse) {
		names = append(names, "reverse")
	}
	if !c.Fg.Default {
		names = append(names, fmt.Sprintf("fg%d", c.Fg.Index))
	}
	if !c.Bg.Default {
		names = append(names, fmt.Sprintf("bg%d", c.Bg.Index))
	}
	return names
}

// Query evaluates a gjson path against a snapshot.
func Query(doc, path string) (gjson.Result, error) {
	if !gjson.Valid(doc) {
		return gjson.Result{}, ErrInvalidJSON
	}
	return gjson.Get(doc, path), nil
}

// Text returns the visible lines of a snapshot joined by newlines.
func Text(doc string) (string, error) {
	if !gjson.Valid(doc) {
		return "", ErrInvalidJSON
	}
	var out []byte
	for i, line := range gjson.Get(doc, "lines").Array() {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, line.String()...)
	}
	return string(out), nil
}
