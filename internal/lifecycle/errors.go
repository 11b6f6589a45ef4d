package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPhaseOrder is returned when a phase is entered out of plan order.
	ErrPhaseOrder = errors.New("phase out of order")
	// ErrNotStarted is returned by Stop for a context Start never ran on.
	ErrNotStarted = errors.New("invocation was not started")
	// ErrAlreadyStarted is returned by Start for a context that was started before.
	ErrAlreadyStarted = errors.New("invocation already started")
)

// VerificationError lists every problem recorded during one verification
// phase.
type VerificationError struct {
	Phase  Phase
	Errors []error
}

func (e *VerificationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%s found %d problem(s): %s", e.Phase, len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (e *VerificationError) Unwrap() []error { return e.Errors }

// IsVerificationError checks if an error is or wraps a VerificationError.
func IsVerificationError(err error) bool {
	var verificationErr *VerificationError
	return errors.As(err, &verificationErr)
}

// SetupError is a fatal failure of a setup phase.
type SetupError struct {
	Phase Phase
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// IsSetupError checks if an error is or wraps a SetupError.
func IsSetupError(err error) bool {
	var setupErr *SetupError
	return errors.As(err, &setupErr)
}

// TeardownFailure is one cleanup step that failed.
type TeardownFailure struct {
	Step string
	Err  error
}

// TeardownError collects every failed cleanup step. Steps never stop each
// other from running.
type TeardownError struct {
	Failures []TeardownFailure
}

func (e *TeardownError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, fmt.Sprintf("%s: %v", f.Step, f.Err))
	}
	return fmt.Sprintf("teardown failed in %d step(s): %s", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *TeardownError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// IsTeardownError checks if an error is or wraps a TeardownError.
func IsTeardownError(err error) bool {
	var teardownErr *TeardownError
	return errors.As(err, &teardownErr)
}
