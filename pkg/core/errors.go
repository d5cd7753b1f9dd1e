// Package core wires the feedback, improvement and metalearning layers into
// a single improvement cycle and runs it on demand or on a schedule.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotRunning indicates an operation that requires a started manager.
	ErrNotRunning = errors.New("manager not running")

	// ErrAlreadyRunning indicates a second Start on a running manager.
	ErrAlreadyRunning = errors.New("manager already running")

	// ErrNoFeedback indicates that no feedback data has been processed yet.
	ErrNoFeedback = errors.New("no feedback data available")

	// ErrNoImprovement indicates that no improvement results exist for
	// reflection.
	ErrNoImprovement = errors.New("no improvement results available for reflection")
)

// LoopError wraps errors with operation context.
//
// It records which loop operation failed, so callers can both match the
// underlying sentinel with errors.Is and report where it happened.
//
// Example:
//
//	err := &LoopError{
//	    Op:  "Reflect",
//	    Err: ErrNoImprovement,
//	}
//	// Error() returns: "selfloop: Reflect: no improvement results available for reflection"
type LoopError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message in the form
// "selfloop: <Op>: <Err>".
func (e *LoopError) Error() string {
	return fmt.Sprintf("selfloop: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As.
func (e *LoopError) Unwrap() error {
	return e.Err
}

// NewLoopError creates a LoopError wrapping err. If err is nil, it returns
// nil, which allows unconditional wrapping at return sites:
//
//	return NewLoopError("RunCycle", err)
func NewLoopError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &LoopError{
		Op:  op,
		Err: err,
	}
}
