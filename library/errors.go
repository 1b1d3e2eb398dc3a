package library

import "errors"

// Failures are reported as wrapped sentinel errors; callers branch with
// errors.Is. A failed operation never leaves partial state behind.
var (
	// ErrNotFound is returned for lookups of unknown book, user, or
	// checkout identifiers.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a book or user whose
	// identifier is already present.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrBookUnavailable is returned when checking out a book that is
	// already lent out.
	ErrBookUnavailable = errors.New("book unavailable")

	// ErrNoOpenCheckout is returned when returning a book without a
	// matching open checkout.
	ErrNoOpenCheckout = errors.New("no open checkout")

	// ErrOpenCheckouts is returned when removing a book or user that an
	// open checkout still references.
	ErrOpenCheckouts = errors.New("open checkouts exist")

	// ErrStorageUnavailable wraps persistence I/O failures.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
