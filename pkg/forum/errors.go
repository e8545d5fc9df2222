package forum

import "errors"

// Sentinel errors mapped to HTTP statuses at the API boundary. Everything
// related to realtime delivery or caching is deliberately absent: those
// failures are swallowed inside the services and never reach callers.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrInvalid      = errors.New("invalid request")
)
