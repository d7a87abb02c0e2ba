package panel

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when a frame is sent before Init.
	ErrNotInitialized = errors.New("panel not initialized")

	// ErrClosed is returned by any operation after Close.
	ErrClosed = errors.New("panel closed")

	// ErrFrameSize is returned when a frame does not match the panel.
	ErrFrameSize = errors.New("frame size mismatch")

	// ErrUnknownDriver is returned by drivers that cannot be resolved.
	ErrUnknownDriver = errors.New("unknown panel driver")
)

// Panel is a monochrome display that shows whole frames.
type Panel interface {
	// Init powers the panel up and prepares it for frames.
	Init() error

	// Clear blanks the panel to paper.
	Clear() error

	// Display shows a packed 1-bit frame of FrameSize bytes.
	Display(frame []byte) error

	// Sleep puts the panel into its low-power state. Init wakes it.
	Sleep() error

	// Close releases the hardware.
	Close() error

	// Size returns the panel resolution in pixels.
	Size() (width, height int)
}

// FrameSize returns the packed frame length for a width x height panel.
func FrameSize(width, height int) int {
	return (width + 7) / 8 * height
}

// CheckFrame returns ErrFrameSize when frame does not fit p.
func CheckFrame(p Panel, frame []byte) error {
	w, h := p.Size()
	if want := FrameSize(w, h); len(frame) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(frame), want)
	}
	return nil
}
