// Package app runs a terminal session: it wires the pty, keyboard, parser,
// renderer and panel together and drives them from a single polling loop.
package app

import (
	"errors"
	"fmt"
	"strings"
)

// Session errors.
var (
	// ErrAlreadyRunning indicates Run was called on a running session.
	ErrAlreadyRunning = errors.New("session already running")

	// ErrStopped signals that the session was asked to stop.
	ErrStopped = errors.New("session stopped")

	// ErrChannelClosed indicates the pty reached end of file.
	ErrChannelClosed = errors.New("pty channel closed")

	// ErrInitialization indicates a component could not be built.
	ErrInitialization = errors.New("initialization failed")

	// ErrMissingComponent indicates a required collaborator was not supplied.
	ErrMissingComponent = errors.New("missing component")
)

// ComponentError represents an error from a specific component.
type ComponentError struct {
	Component string // Component name (e.g., "panel", "pty", "keyboard")
	Action    string // Action being performed
	Err       error  // Underlying error
}

// NewComponentError creates a new ComponentError.
func NewComponentError(component, action string, err error) *ComponentError {
	return &ComponentError{
		Component: component,
		Action:    action,
		Err:       err,
	}
}

func (e *ComponentError) Error() string {
	if e == nil {
		return ""
	}
	parts := []string{e.Component}
	if e.Action != "" {
		parts = append(parts, e.Action)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ComponentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches both the wrapper itself and the wrapped error.
func (e *ComponentError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*ComponentError); ok {
		return e == t
	}
	return errors.Is(e.Err, target)
}

// RecoveredPanicError wraps a panic value raised inside the loop.
type RecoveredPanicError struct {
	Value any
	Stack string
}

// NewRecoveredPanicError creates a new RecoveredPanicError.
func NewRecoveredPanicError(value any, stack string) *RecoveredPanicError {
	return &RecoveredPanicError{
		Value: value,
		Stack: stack,
	}
}

func (e *RecoveredPanicError) Error() string {
	if e == nil {
		return ""
	}
	if e.Stack != "" {
		return fmt.Sprintf("panic: %v\n%s", e.Value, e.Stack)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// IsCleanExit reports whether err ends a session without a failure:
// a stop request, a cancelled context or the shell exiting.
func IsCleanExit(err error) bool {
	return err == nil || errors.Is(err, ErrStopped) || errors.Is(err, ErrChannelClosed)
}
