package terminal

import "errors"

// Configuration errors.
var (
	// ErrInvalidCursorOrder indicates an unrecognized cursor order name.
	ErrInvalidCursorOrder = errors.New("invalid cursor order")
)
