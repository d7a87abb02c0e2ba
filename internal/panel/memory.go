package panel

import (
	"sync"
)

// Memory is a Panel that keeps the last frame in memory.
type Memory struct {
	mu       sync.Mutex
	width    int
	height   int
	frame    []byte
	inited   bool
	asleep   bool
	closed   bool
	displays int
	clears   int

	// FailDisplay, when set, is returned by Display.
	FailDisplay error
}

// NewMemory creates a width x height memory panel.
func NewMemory(width, height int) *Memory {
	return &Memory{
		width:  width,
		height: height,
		frame:  make([]byte, FrameSize(width, height)),
	}
}

// Init implements Panel.
func (m *Memory) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.inited = true
	m.asleep = false
	return nil
}

// Clear implements Panel.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return err
	}
	for i := range m.frame {
		m.frame[i] = 0xFF
	}
	m.clears++
	return nil
}

// Display implements Panel.
func (m *Memory) Display(frame []byte) error {
	if err := CheckFrame(m, frame); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready(); err != nil {
		return err
	}
	if m.FailDisplay != nil {
		return m.FailDisplay
	}
	copy(m.frame, frame)
	m.displays++
	return nil
}

// Sleep implements Panel.
func (m *Memory) Sleep() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.asleep = true
	return nil
}

// Close implements Panel.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// Size implements Panel.
func (m *Memory) Size() (int, int) {
	return m.width, m.height
}

// Frame returns a copy of the last frame shown.
func (m *Memory) Frame() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]byte, len(m.frame))
	copy(out, m.frame)
	return out
}

// Displays returns the number of successful Display calls.
func (m *Memory) Displays() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.displays
}

// Clears returns the number of successful Clear calls.
func (m *Memory) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// Asleep reports whether Sleep was the last power transition.
func (m *Memory) Asleep() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.asleep
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Memory) ready() error {
	switch {
	case m.closed:
		return ErrClosed
	case !m.inited || m.asleep:
		return ErrNotInitialized
	}
	return nil
}
