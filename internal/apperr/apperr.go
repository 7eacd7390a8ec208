// Package apperr defines the sentinel error categories used across fairleak.
//
// Error taxonomy
//
//	UserError    – caused by missing or invalid user input (wrong flag, bad partition
//	               file, attribute outside the configured groups, …).
//	               The CLI prints only the message; usage help is NOT repeated.
//	               Exit code: 1.
//
//	ErrCancelled – the user deliberately aborted an interactive flow (configuration
//	               selector, overwrite confirmation, …).
//	               Exit code: 0 (not a failure).
//
// Infeasible fairness targets are reported by the enhance package (enhance.ErrInfeasible)
// and exit with code 3. Everything else is a plain Go error (I/O, malformed tables, …)
// and is propagated with fmt.Errorf("context: %w", err) wrapping.
package apperr

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when the user explicitly aborts an interactive
// operation. The CLI should exit 0 rather than 1 when it sees this error.
var ErrCancelled = errors.New("operation cancelled")

// UserError represents an error caused by invalid or missing user input.
// Cobra command handlers return this instead of a bare fmt.Errorf so that
// the root command can suppress repeated usage output and format the message
// in a user-friendly way.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.Err }

// User creates a UserError with the given message.
func User(msg string) error { return &UserError{Message: msg} }

// Userf creates a formatted UserError.
func Userf(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// Wrap turns err into a UserError while keeping it reachable for errors.Is/As.
// A nil err stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if IsUser(err) {
		return err
	}
	return &UserError{Message: err.Error(), Err: err}
}

// IsUser reports whether err is (or wraps) a *UserError.
func IsUser(err error) bool {
	var u *UserError
	return errors.As(err, &u)
}
