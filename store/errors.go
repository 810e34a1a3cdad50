package store

import (
	"errors"
	"fmt"
)

var (
	// ErrWrite is the kind of every *WriteError.
	ErrWrite = errors.New("store: write failed")
	// ErrIntegrity is the kind of every *IntegrityError.
	ErrIntegrity = errors.New("store: integrity check failed")
	ErrNotFound  = errors.New("store: entry not found")
	// ErrIndex is returned by Open when the index cannot be decoded.
	ErrIndex = errors.New("store: unreadable index")
)

// WriteError reports a failed cache write. The index is unchanged.
type WriteError struct {
	Op       string
	Checksum string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Checksum, e.Err)
}

func (e *WriteError) Unwrap() []error { return []error{ErrWrite, e.Err} }

// IntegrityError reports a payload whose bytes no longer match its
// checksum, or whose entry is flagged.
type IntegrityError struct {
	Checksum string
	Reason   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("store: entry %s failed integrity check: %s", e.Checksum, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }
