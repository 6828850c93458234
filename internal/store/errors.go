package store

import "errors"

// ErrNotFound is returned when a lookup by id/key finds nothing.
var ErrNotFound = errors.New("store: not found")

// ErrIllegalTransition is returned when a status transition requested
// of SetJobStatus is not among the legal transitions spec.md §4.1 lists.
var ErrIllegalTransition = errors.New("store: illegal status transition")
