// Package terminal implements the screen model and escape-sequence parser
// of the e-paper terminal.
//
// The package is organized around three types:
//
//   - Screen: a fixed rows x cols grid of cells with cursor and pen state
//   - Parser: a byte-at-a-time VT100 subset interpreter that mutates a Screen
//   - History: a bounded ring of rows scrolled off the top of the screen
//
// # Usage
//
//	screen := terminal.NewScreen(30, 100, terminal.WithScrollback(100))
//	parser := terminal.NewParser(screen, terminal.WithLogger(logger))
//
//	parser.Feed(ptyOutput)
//	if screen.Damage().IsDirty() {
//	    // repaint
//	}
//
// # Safety
//
// Terminal input is untrusted. Every coordinate is clamped into the grid,
// the CSI buffer is bounded, and malformed sequences are dropped. Neither
// Parser nor Screen returns errors or panics on any byte stream.
//
// # Thread Safety
//
// Screen and Parser are not safe for concurrent use. The session loop owns
// both and drives them from a single goroutine.
package terminal
