package backend

import "errors"

var (
	// ErrUnauthenticated is returned by identity lookups when there is no
	// logged in principal. It is an expected outcome, not a failure.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrBadStatus wraps any other unexpected HTTP status from the backend.
	ErrBadStatus = errors.New("bad status")
)
