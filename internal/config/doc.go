// Package config loads inkterm settings.
//
// Settings come from three layers, later ones overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A TOML or YAML file, chosen by extension (Load)
//  3. INKTERM_* environment variables (ApplyEnv)
//
// Command-line flags are applied on top by the caller. Validate checks the
// merged result; a Config that passes Validate can be handed to the
// session without further checks.
//
// # File Format
//
//	[terminal]
//	rows = 24
//	cols = 80
//	scrollback = 100
//	cursor_order = "row_col"
//
//	[refresh]
//	quiet = "800ms"
//	force = "5s"
//
//	[panel]
//	driver = "auto"   # auto, epd, preview, memory
//
//	[keyboard]
//	device = "auto"   # auto, tcell, or /dev/input/eventN
//	keymap = "~/.config/inkterm/keymap.lua"
//
// # Live Reload
//
// Watcher observes the config file with fsnotify and delivers a freshly
// loaded, validated Config after writes settle. Only settings that can
// change at runtime (refresh policy, keymap, log level) are applied by
// the session; the rest take effect on restart.
package config
