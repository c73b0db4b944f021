package booking

import (
	"errors"
	"fmt"

	"github.com/example/spinbook/internal/domain/ui"
)

var (
	// ErrGateNotOpen is expected when the trigger fires outside the window.
	ErrGateNotOpen = errors.New("booking window not open")
	// ErrSeatUnavailable means every seat in the priority list was taken.
	ErrSeatUnavailable = errors.New("no seat in the priority list is available")
	// ErrDriverFatal marks failures of the browser automation layer itself.
	ErrDriverFatal = ui.ErrDriverFatal
)

type AuthErrorKind string

const (
	AuthElementNotFound AuthErrorKind = "element_not_found"
	AuthTimeout         AuthErrorKind = "timeout"
	AuthRejected        AuthErrorKind = "rejected"
)

// AuthError is terminal for the run. Login is never retried because repeated
// failures risk an account lockout.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("auth %s", e.Kind)
	}
	return fmt.Sprintf("auth %s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// StepError is a pipeline step that exhausted its retries.
type StepError struct {
	Step     string
	Selector string
	Attempts int
	Err      error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("step %s failed", e.Step)
	if e.Selector != "" {
		msg += fmt.Sprintf(" (selector %s", e.Selector)
		if e.Attempts > 0 {
			msg += fmt.Sprintf(", %d attempts", e.Attempts)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StepError) Unwrap() error { return e.Err }
