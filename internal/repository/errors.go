// Package repository defines error values shared across repositories.
// Store-level failures surface as these sentinels so handlers can
// translate them without string matching. Invariant violations that the
// schema itself enforces (duplicate pending settlement, guarded balance
// updates) are mapped to the workflow error taxonomy at the repository
// boundary.
package repository

import "errors"

// ErrPatronNotFound is returned when a patron lookup yields no rows.
var ErrPatronNotFound = errors.New("patron not found")

// ErrTableNotFound is returned when a table lookup yields no rows.
var ErrTableNotFound = errors.New("table not found")

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// ErrEmailExists is returned when registering an email that is already
// taken.
var ErrEmailExists = errors.New("email already exists")
