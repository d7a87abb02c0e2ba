// Package refresh decides when the e-paper panel should be repainted.
//
// A panel refresh is slow and visibly flashes, so repainting on every
// change is not acceptable. Policy coalesces bursts of activity into one
// repaint after a quiet period and bounds staleness with a force timeout
// when activity never pauses.
package refresh

import (
	"errors"
	"fmt"
	"time"
)

// Default timeouts.
const (
	DefaultQuiet = 800 * time.Millisecond
	DefaultForce = 5 * time.Second
)

// ErrInvalidPolicy indicates timeouts that do not satisfy 0 < Quiet < Force.
var ErrInvalidPolicy = errors.New("invalid refresh policy")

// Policy holds the two refresh timeouts. It is stateless: the caller owns
// the timestamps and passes them in on every evaluation.
type Policy struct {
	// Quiet is how long input must pause before a repaint.
	Quiet time.Duration
	// Force bounds how long damage may stay on screen unpainted.
	Force time.Duration
}

// DefaultPolicy returns the default policy.
func DefaultPolicy() Policy {
	return Policy{
		Quiet: DefaultQuiet,
		Force: DefaultForce,
	}
}

// Validate checks that 0 < Quiet < Force.
func (p Policy) Validate() error {
	if p.Quiet <= 0 {
		return fmt.Errorf("%w: quiet timeout %v must be positive", ErrInvalidPolicy, p.Quiet)
	}
	if p.Force <= p.Quiet {
		return fmt.Errorf("%w: force timeout %v must exceed quiet timeout %v", ErrInvalidPolicy, p.Force, p.Quiet)
	}
	return nil
}

// ShouldRefresh reports whether to repaint now. All times are monotonic
// millisecond counters from the same Clock.
//
// A repaint happens only when there is damage, and then either input has
// been quiet for longer than Quiet or the last repaint is older than Force.
func (p Policy) ShouldRefresh(now, lastInput, lastRefresh int64, damaged bool) bool {
	if !damaged {
		return false
	}
	return now-lastInput > p.Quiet.Milliseconds() ||
		now-lastRefresh > p.Force.Milliseconds()
}

// Quiescent reports whether input has been idle longer than the quiet
// timeout. The session loop uses it to pick a tick interval.
func (p Policy) Quiescent(now, lastInput int64) bool {
	return now-lastInput > p.Quiet.Milliseconds()
}
