// Package workflow contains the pure domain rules of the card room:
// the chip arithmetic and the finite-state transition tables for
// settlements, withdrawals, orders and the waiting list. Everything in
// this package is side-effect free; the repository layer enforces the
// same rules transactionally against the store.
package workflow

import (
	"errors"
	"fmt"
)

// ErrValidation marks a request that is malformed on its own terms
// (non-positive amount, mismatched denomination sum). It is rejected
// before any state change and maps to HTTP 400.
var ErrValidation = errors.New("validation failed")

// ErrConflict marks a request that is well-formed but collides with
// current state (seat taken, settlement already pending, balance too
// low at approval). The caller should refresh and retry. Maps to 409.
var ErrConflict = errors.New("conflict")

// ErrForbidden marks a caller invoking a procedure they are not
// authorized for. Maps to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrTransient marks a temporarily unreachable store. Money-affecting
// procedures re-validate on every call, so retrying is safe. Maps to 503.
var ErrTransient = errors.New("store unavailable")

// Validationf wraps ErrValidation with a human-readable message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

// Conflictf wraps ErrConflict with a human-readable message.
func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConflict}, args...)...)
}
