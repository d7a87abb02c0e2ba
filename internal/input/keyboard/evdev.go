//go:build linux

package keyboard

import (
	"fmt"
	"io"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/dshills/inkterm/internal/input/key"
)

// readBatch is the number of input_event records read per syscall.
const readBatch = 64

// Evdev reads key events from a Linux input device.
type Evdev struct {
	fd      int
	path    string
	dec     *decoder
	buf     []byte
	pending []key.Event
	closed  bool
}

// OpenEvdev opens path non-blocking.
func OpenEvdev(path string) (*Evdev, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	dec := newDecoder(int(unsafe.Sizeof(unix.Timeval{})))
	return &Evdev{
		fd:   fd,
		path: path,
		dec:  dec,
		buf:  make([]byte, dec.recordSize()*readBatch),
	}, nil
}

// Path returns the device node.
func (e *Evdev) Path() string {
	return e.path
}

// Poll implements Source.
func (e *Evdev) Poll() (key.Event, bool, error) {
	if e.closed {
		return key.Event{}, false, ErrClosed
	}

	for len(e.pending) == 0 {
		n, err := unix.Read(e.fd, e.buf)
		switch {
		case err == unix.EAGAIN || err == unix.EINTR:
			return key.Event{}, false, nil
		case err == unix.ENODEV:
			return key.Event{}, false, fmt.Errorf("read %s: %w", e.path, io.EOF)
		case err != nil:
			return key.Event{}, false, fmt.Errorf("read %s: %w", e.path, err)
		case n == 0:
			return key.Event{}, false, fmt.Errorf("read %s: %w", e.path, io.EOF)
		}
		e.pending = e.dec.decode(e.buf[:n], e.pending[:0])
	}

	ev := e.pending[0]
	e.pending = e.pending[1:]
	return ev, true, nil
}

// Close implements Source.
func (e *Evdev) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return unix.Close(e.fd)
}
