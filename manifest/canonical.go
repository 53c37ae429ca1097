package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/provenir/provenir/cidutil"
	"github.com/provenir/provenir/digest"
	"github.com/provenir/provenir/keys"
)

// document is the wire shape. Struct field order fixes the key order in the
// emitted JSON; there is no map anywhere on this path.
type document struct {
	Version        int    `json:"version"`
	ContentHash    string `json:"contentHash"`
	ContentURI     string `json:"contentUri,omitempty"`
	CreatorAddress string `json:"creatorAddress"`
	Signature      string `json:"signature,omitempty"`
	CreatedAt      int64  `json:"createdAt"`
}

// CanonicalPayload returns the byte-exact serialization covered by the
// signature: every field except the signature itself.
func (m *Manifest) CanonicalPayload() []byte {
	b, err := json.Marshal(document{
		Version:        m.Version,
		ContentHash:    m.ContentHash.Hex(),
		ContentURI:     m.ContentURI,
		CreatorAddress: m.creatorHex(),
		CreatedAt:      m.CreatedAt,
	})
	if err != nil {
		// document contains only ints and strings; Marshal cannot fail.
		panic(err)
	}
	return b
}

// Encode returns the full manifest document. The manifest must be signed.
func (m *Manifest) Encode() ([]byte, error) {
	if !m.Signed() {
		return nil, errors.New("manifest: encode called before signing")
	}
	return json.Marshal(document{
		Version:        m.Version,
		ContentHash:    m.ContentHash.Hex(),
		ContentURI:     m.ContentURI,
		CreatorAddress: m.creatorHex(),
		Signature:      keys.SignatureHex(m.Signature),
		CreatedAt:      m.CreatedAt,
	})
}

// Parse strictly decodes a manifest document. Unknown fields, missing
// required fields, malformed addresses, hashes, URIs, and structurally
// invalid signatures are all rejected; a manifest that parses is well-formed
// (its signature may still recover to the wrong address, which is a
// verification outcome rather than a parse error).
func Parse(b []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("manifest: invalid document: %w", err)
	}
	if dec.More() {
		return nil, errors.New("manifest: trailing data after document")
	}

	if doc.Version != Version {
		return nil, fmt.Errorf("manifest: unsupported version %d", doc.Version)
	}
	hash, err := digest.ParseHex(doc.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("manifest: contentHash: %w", err)
	}
	if hash.IsZero() {
		return nil, errors.New("manifest: zero content hash")
	}
	if !common.IsHexAddress(doc.CreatorAddress) {
		return nil, fmt.Errorf("manifest: malformed creatorAddress %q", doc.CreatorAddress)
	}
	creator := common.HexToAddress(doc.CreatorAddress)
	if creator == (common.Address{}) {
		return nil, errors.New("manifest: zero creator address")
	}
	if doc.ContentURI != "" {
		if _, err := cidutil.ParseURI(doc.ContentURI); err != nil {
			return nil, fmt.Errorf("manifest: %w", err)
		}
	}
	if doc.Signature == "" {
		return nil, errors.New("manifest: missing signature")
	}
	sig, err := keys.ParseSignatureHex(doc.Signature)
	if err != nil {
		return nil, err
	}
	if doc.CreatedAt <= 0 {
		return nil, fmt.Errorf("manifest: invalid createdAt %d", doc.CreatedAt)
	}

	return &Manifest{
		Version:        doc.Version,
		ContentHash:    hash,
		ContentURI:     doc.ContentURI,
		CreatorAddress: creator,
		Signature:      sig,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

// RecoverSigner recomputes the canonical payload from the manifest's declared
// fields and recovers the signing address. Verifiers must use this rather
// than trusting however the document arrived over the wire: extra or
// reordered wire fields cannot influence the recomputed payload.
func (m *Manifest) RecoverSigner() (common.Address, error) {
	if !m.Signed() {
		return common.Address{}, &keys.SignatureError{Reason: "manifest is unsigned"}
	}
	return keys.RecoverAddress(m.CanonicalPayload(), m.Signature)
}
