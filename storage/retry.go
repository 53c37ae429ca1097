package storage

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry bounds for uploads. Four attempts total, exponential spacing,
// honoring context cancellation between attempts.
const (
	maxUploadRetries       = 3
	initialBackoffInterval = 500 * time.Millisecond
)

func newUploadBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialBackoffInterval
	return backoff.WithContext(backoff.WithMaxRetries(b, maxUploadRetries), ctx)
}

// UploadBytes uploads an in-memory buffer with bounded exponential backoff.
// After the attempt ceiling the last failure surfaces as *UploadError.
func UploadBytes(ctx context.Context, p Provider, data []byte) (string, error) {
	var uri string
	op := func() error {
		var err error
		uri, err = p.Upload(ctx, bytes.NewReader(data))
		return err
	}
	if err := backoff.Retry(op, newUploadBackoff(ctx)); err != nil {
		return "", &UploadError{Provider: p.Name(), Cause: err}
	}
	return uri, nil
}

// UploadFrom uploads a re-openable source with the same retry policy as
// UploadBytes. Each attempt opens a fresh reader, so a failed attempt never
// leaves a half-consumed stream behind.
func UploadFrom(ctx context.Context, p Provider, open func() (io.ReadCloser, error)) (string, error) {
	var uri string
	op := func() error {
		r, err := open()
		if err != nil {
			// The source itself is broken; retrying cannot help.
			return backoff.Permanent(err)
		}
		defer r.Close()
		uri, err = p.Upload(ctx, r)
		return err
	}
	if err := backoff.Retry(op, newUploadBackoff(ctx)); err != nil {
		return "", &UploadError{Provider: p.Name(), Cause: err}
	}
	return uri, nil
}
