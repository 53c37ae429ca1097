// Package storage defines the content-addressed storage capability the
// registration and verification pipelines are written against, plus the
// retry and composition helpers shared by all provider variants.
package storage

import (
	"context"
	"io"
)

// Provider is the single capability every storage backend exposes.
//
// Contract:
//   - Upload MUST be idempotent: the same bytes always resolve to the same
//     ipfs:// locator, and re-uploading existing bytes is not an error.
//   - Fetch MUST return ErrNotFound when the locator names absent content;
//     every other failure (auth, timeout, transport) must surface as itself
//     so callers can tell "missing" from "unreachable".
//   - Implementations validate fetched bytes against the locator's CID
//     whenever the CID's codec makes that possible.
//
// The orchestrator and verifier depend on this interface only, never on a
// concrete variant; new backends are new implementations, not new
// conditionals in the pipeline.
type Provider interface {
	// Name identifies the variant in errors and logs (e.g. "pinata").
	Name() string

	// Upload streams content into the store and returns its ipfs:// locator.
	Upload(ctx context.Context, r io.Reader) (string, error)

	// Fetch retrieves the bytes named by an ipfs:// locator.
	Fetch(ctx context.Context, uri string) ([]byte, error)
}
