// Package registry abstracts the on-chain content registry: a bytes32
// content hash maps to at most one live entry per chain, append-only.
package registry

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/provenir/provenir/digest"
)

// Entry is one registered content hash on one chain.
type Entry struct {
	ContentHash    digest.Digest
	ManifestURI    string
	CreatorAddress common.Address
	TxHash         common.Hash // zero when the registering tx is unknown
	ChainID        *big.Int
	RegisteredAt   time.Time
}

// Client is the registry capability.
//
// Register is state-changing and not idempotent at the network layer: it
// costs a transaction. Callers must Resolve first and skip Register when an
// entry already exists; that resolve-then-register sequence is what makes
// the overall registration operation idempotent.
type Client interface {
	// Resolve returns the entry for hash, or ok=false when none exists.
	// A false return is a definitive on-chain answer, not a failure.
	Resolve(ctx context.Context, hash digest.Digest) (*Entry, bool, error)

	// Register submits a new entry and waits for it to be mined.
	Register(ctx context.Context, hash digest.Digest, manifestURI string) (*Entry, error)
}

// Reasons for ChainError, stable for programmatic handling.
const (
	ReasonUnreachable       = "rpc_unreachable"
	ReasonReverted          = "transaction_reverted"
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonNoSigningKey      = "no_signing_key"
)

// ChainError is fatal for the current attempt but state-preserving: the
// caller still holds the manifest and its storage URI, so a retry does not
// redo hashing, signing, or uploads.
type ChainError struct {
	Reason string
	Cause  error
}

func (e *ChainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("chain: %s: %v", e.Reason, e.Cause)
	}
	return "chain: " + e.Reason
}

func (e *ChainError) Unwrap() error { return e.Cause }
