// Package key defines keyboard input for the terminal and encodes key
// presses into the byte sequences an application expects on its pty.
//
// This package defines:
//
//   - Code: a Linux evdev key code (KEY_A is 30, KEY_ENTER is 28, ...)
//   - Modifier: Shift (1), Alt (2) and Ctrl (4) state
//   - Event: one key press or auto-repeat with its modifiers
//   - Encode: a deterministic, total mapping from (Code, Modifier) to bytes
//
// # Key Specifications
//
// Bindings name keys as modifier-joined strings:
//
//   - Simple keys: "a", "enter", "f5", "pagedown"
//   - With modifiers: "ctrl+alt+t", "shift+tab", "C-x"
//
// Parse turns a specification into a Code and Modifier.
package key
