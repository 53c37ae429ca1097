// Package manifest builds, serializes, and parses the signed provenance
// manifest that binds a content fingerprint to a creator identity.
//
// The canonical byte form is the single choke point: it is what gets signed,
// what gets re-derived during verification, and what gets uploaded. Field
// order is fixed, addresses render lowercase, timestamps are integer unix
// seconds, and the optional contentUri key is omitted entirely when unset,
// so independent implementations agree byte-for-byte.
package manifest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/provenir/provenir/cidutil"
	"github.com/provenir/provenir/digest"
)

// Version is the manifest schema version this package produces.
const Version = 1

// Manifest is the portable provenance record. Once signed it is immutable:
// any edit produces different canonical bytes and therefore a different
// storage address.
type Manifest struct {
	Version        int
	ContentHash    digest.Digest
	ContentURI     string // empty in privacy mode
	CreatorAddress common.Address
	Signature      []byte // 65-byte recoverable signature, empty until signed
	CreatedAt      int64  // unix seconds, UTC
}

// Build validates the fields and returns an unsigned manifest. It fails fast:
// a partially valid manifest is never returned.
func Build(contentHash digest.Digest, contentURI string, creator common.Address, createdAt time.Time) (*Manifest, error) {
	if contentHash.IsZero() {
		return nil, errors.New("manifest: empty content hash")
	}
	if creator == (common.Address{}) {
		return nil, errors.New("manifest: zero creator address")
	}
	if createdAt.IsZero() || createdAt.Unix() <= 0 {
		return nil, fmt.Errorf("manifest: invalid creation time %v", createdAt)
	}
	if contentURI != "" {
		if _, err := cidutil.ParseURI(contentURI); err != nil {
			return nil, fmt.Errorf("manifest: %w", err)
		}
	}
	return &Manifest{
		Version:        Version,
		ContentHash:    contentHash,
		ContentURI:     contentURI,
		CreatorAddress: creator,
		CreatedAt:      createdAt.Unix(),
	}, nil
}

// Signed reports whether the manifest carries a signature.
func (m *Manifest) Signed() bool { return len(m.Signature) > 0 }

// creatorHex is the canonical lowercase address rendering.
func (m *Manifest) creatorHex() string {
	return strings.ToLower(m.CreatorAddress.Hex())
}
