package keymap

import "errors"

// Errors for keymap scripts.
var (
	// ErrScriptClosed is returned when using a closed script.
	ErrScriptClosed = errors.New("keymap script is closed")

	// ErrInvalidBinding indicates a bindings entry that is not a key
	// specification mapped to a string.
	ErrInvalidBinding = errors.New("invalid binding")
)
