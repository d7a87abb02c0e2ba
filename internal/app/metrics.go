package app

import (
	"math"
	"sync/atomic"
	"time"
)

// Metrics counts session activity. All methods are safe for concurrent
// use so a snapshot can be taken from outside the loop.
type Metrics struct {
	// Frame timing (render plus panel display)
	frameCount   atomic.Uint64
	frameTotalNs atomic.Int64
	frameMinNs   atomic.Int64
	frameMaxNs   atomic.Int64
	lastFrameNs  atomic.Int64

	// Input handling
	keyCount    atomic.Uint64
	keysDropped atomic.Uint64
	bytesOut    atomic.Uint64

	// Output handling
	readCount atomic.Uint64
	bytesIn   atomic.Uint64

	ticks atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{startTime: time.Now()}
	m.frameMinNs.Store(math.MaxInt64)
	return m
}

// RecordFrame records the time spent rendering and displaying one frame.
func (m *Metrics) RecordFrame(d time.Duration) {
	ns := d.Nanoseconds()
	m.frameCount.Add(1)
	m.frameTotalNs.Add(ns)
	m.lastFrameNs.Store(ns)
	lowerTo(&m.frameMinNs, ns)
	raiseTo(&m.frameMaxNs, ns)
}

// lowerTo stores v in a if it is smaller than the current value.
func lowerTo(a *atomic.Int64, v int64) {
	for old := a.Load(); v < old; old = a.Load() {
		if a.CompareAndSwap(old, v) {
			return
		}
	}
}

// raiseTo stores v in a if it is larger than the current value.
func raiseTo(a *atomic.Int64, v int64) {
	for old := a.Load(); v > old; old = a.Load() {
		if a.CompareAndSwap(old, v) {
			return
		}
	}
}

// RecordKey records a key event written to the pty as n bytes.
func (m *Metrics) RecordKey(n int) {
	m.keyCount.Add(1)
	m.bytesOut.Add(uint64(n))
}

// RecordKeyDropped records a key event that encoded to nothing.
func (m *Metrics) RecordKeyDropped() {
	m.keysDropped.Add(1)
}

// RecordRead records n bytes read from the pty.
func (m *Metrics) RecordRead(n int) {
	m.readCount.Add(1)
	m.bytesIn.Add(uint64(n))
}

// RecordTick records one loop iteration.
func (m *Metrics) RecordTick() {
	m.ticks.Add(1)
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	frameCount := m.frameCount.Load()

	var avgFrameNs int64
	if frameCount > 0 {
		avgFrameNs = m.frameTotalNs.Load() / int64(frameCount)
	}

	minFrameNs := m.frameMinNs.Load()
	if minFrameNs == math.MaxInt64 {
		minFrameNs = 0
	}

	return MetricsSnapshot{
		Uptime:         time.Since(m.startTime),
		FrameCount:     frameCount,
		AvgFrameTimeNs: avgFrameNs,
		MinFrameTimeNs: minFrameNs,
		MaxFrameTimeNs: m.frameMaxNs.Load(),
		LastFrameNs:    m.lastFrameNs.Load(),
		KeyCount:       m.keyCount.Load(),
		KeysDropped:    m.keysDropped.Load(),
		BytesOut:       m.bytesOut.Load(),
		ReadCount:      m.readCount.Load(),
		BytesIn:        m.bytesIn.Load(),
		Ticks:          m.ticks.Load(),
	}
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime         time.Duration
	FrameCount     uint64
	AvgFrameTimeNs int64
	MinFrameTimeNs int64
	MaxFrameTimeNs int64
	LastFrameNs    int64
	KeyCount       uint64
	KeysDropped    uint64
	BytesOut       uint64
	ReadCount      uint64
	BytesIn        uint64
	Ticks          uint64
}

// LogAttrs returns the snapshot as slog key/value pairs.
func (s MetricsSnapshot) LogAttrs() []any {
	return []any{
		"uptime", s.Uptime.Round(time.Millisecond),
		"frames", s.FrameCount,
		"avg_frame", time.Duration(s.AvgFrameTimeNs).Round(time.Millisecond),
		"max_frame", time.Duration(s.MaxFrameTimeNs).Round(time.Millisecond),
		"keys", s.KeyCount,
		"keys_dropped", s.KeysDropped,
		"bytes_in", s.BytesIn,
		"bytes_out", s.BytesOut,
		"ticks", s.Ticks,
	}
}

// Timer provides a simple way to measure elapsed time.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
