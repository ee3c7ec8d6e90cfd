package discovery

import "errors"

// Domain errors for discovery operations

var (
	// Request validation errors
	ErrEmptyQuery       = errors.New("query must not be empty")
	ErrQueryTooLong     = errors.New("query must not exceed 500 characters")
	ErrInvalidPageSize  = errors.New("page size must be between 1 and the configured maximum")
	ErrInvalidSessionID = errors.New("session id must not exceed 128 characters")

	// Collaborator failures
	ErrStoreUnavailable = errors.New("recipe store unavailable")
	ErrSessionStore     = errors.New("session store failure")
)

// MaxQueryLength bounds the raw query accepted from callers
const MaxQueryLength = 500

// MaxSessionIDLength bounds caller-supplied session identifiers
const MaxSessionIDLength = 128
