package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the locator names content the provider does not hold.
	// It is a terminal answer, not a transport failure.
	ErrNotFound = errors.New("storage: not found")

	// ErrInvalidURI means the locator is not a decodable ipfs:// CID.
	ErrInvalidURI = errors.New("storage: invalid content uri")
)

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// UploadError is returned once the retry budget for an upload is exhausted.
// Callers still hold the hash and manifest computed before the upload, so the
// upload step alone can be retried without redoing earlier work.
type UploadError struct {
	Provider string
	Cause    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("storage: upload to %s failed: %v", e.Provider, e.Cause)
}

func (e *UploadError) Unwrap() error { return e.Cause }
