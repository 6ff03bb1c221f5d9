// Package apperr holds the sentinel errors shared across the import pipeline.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrMalformedPush = errors.New("malformed push")

	// ErrVCSUnavailable marks a failed revision or diff query. Callers fall
	// back to a full scan; it is never fatal.
	ErrVCSUnavailable = errors.New("version control unavailable")
)
