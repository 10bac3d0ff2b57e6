package storage

import "github.com/cockroachdb/errors"

// Common storage errors.
var (
	// ErrClosed is returned when a closed store is used.
	ErrClosed = errors.New("store is closed")
)
