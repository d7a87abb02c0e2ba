package keyboard

import (
	"errors"

	"github.com/dshills/inkterm/internal/input/key"
)

var (
	// ErrNoKeyboard is returned by Discover when no keyboard device exists.
	ErrNoKeyboard = errors.New("no keyboard device found")

	// ErrClosed is returned by Poll after Close.
	ErrClosed = errors.New("keyboard source closed")

	// ErrUnsupported is returned where evdev input is unavailable.
	ErrUnsupported = errors.New("evdev input is not supported on this platform")
)

// Source yields key events without blocking.
type Source interface {
	// Poll returns the next pending event. ok is false when none is pending.
	// A non-nil error is terminal.
	Poll() (ev key.Event, ok bool, err error)

	// Close releases the underlying device.
	Close() error
}
