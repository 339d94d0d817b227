package store

import "errors"

var (
	// ErrNotFound is the kind of errors for unknown book, member or loan ids.
	ErrNotFound = errors.New("not found")

	// ErrConflict is the kind of errors for checkouts of books already on loan.
	ErrConflict = errors.New("conflict")

	// ErrStorageCorrupt marks a persisted payload that could not be decoded.
	// The store recovers from it by re-seeding; it never reaches callers.
	ErrStorageCorrupt = errors.New("stored dataset is corrupt")
)

// Error is a failed operation with a message fit for display.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func notFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

func conflict(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}
