package shortener

import "errors"

var (
	// ErrNotFound is returned when no usable link matches a lookup.
	ErrNotFound = errors.New("link not found")

	// ErrInvalidURL is returned when a destination cannot be normalized.
	ErrInvalidURL = errors.New("invalid destination url")

	// ErrInvalidCustomKey is returned when a custom key uses characters outside the
	// configured alphabet.
	ErrInvalidCustomKey = errors.New("invalid custom key")

	// ErrCustomKeyTaken is returned when a caller-supplied key already exists.
	ErrCustomKeyTaken = errors.New("custom key already taken")

	// ErrKeyAllocationExhausted is returned when every generated key collided.
	ErrKeyAllocationExhausted = errors.New("unique key allocation exhausted")

	// ErrTokenConflict is returned by a Repository when an insert violates the
	// token uniqueness constraint.
	ErrTokenConflict = errors.New("token already exists")
)
