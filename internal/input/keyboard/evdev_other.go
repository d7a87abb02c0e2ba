//go:build !linux

package keyboard

import "github.com/dshills/inkterm/internal/input/key"

// Evdev is unavailable outside Linux.
type Evdev struct{}

// OpenEvdev always fails outside Linux.
func OpenEvdev(path string) (*Evdev, error) {
	return nil, ErrUnsupported
}

// Path returns "".
func (e *Evdev) Path() string { return "" }

// Poll implements Source.
func (e *Evdev) Poll() (key.Event, bool, error) {
	return key.Event{}, false, ErrUnsupported
}

// Close implements Source.
func (e *Evdev) Close() error { return nil }
