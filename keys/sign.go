// Package keys signs canonical manifest payloads and recovers the signing
// address from a signature. Signing is local and offline; nothing in this
// package touches the network.
package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureSize is the length of a [R || S || V] secp256k1 signature.
const SignatureSize = 65

// SignatureError reports a structurally invalid signature: wrong length, bad
// hex, or an unrecoverable V byte. It is distinct from a well-formed
// signature that recovers to an unexpected address; that case is a negative
// verification outcome, not an error.
type SignatureError struct {
	Reason string
	Cause  error
}

func (e *SignatureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("signature: %s: %v", e.Reason, e.Cause)
	}
	return "signature: " + e.Reason
}

func (e *SignatureError) Unwrap() error { return e.Cause }

// Sign produces a 65-byte recoverable signature over the EIP-191
// personal-message hash of payload. The same payload and key always produce
// the same signature.
func Sign(payload []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, &SignatureError{Reason: "missing private key"}
	}
	sig, err := crypto.Sign(accounts.TextHash(payload), key)
	if err != nil {
		return nil, &SignatureError{Reason: "signing failed", Cause: err}
	}
	return sig, nil
}

// RecoverAddress returns the address whose key produced sig over payload.
// Structural problems yield *SignatureError; callers compare the returned
// address against the claimed one themselves.
func RecoverAddress(payload, sig []byte) (common.Address, error) {
	if len(sig) != SignatureSize {
		return common.Address{}, &SignatureError{Reason: fmt.Sprintf("want %d bytes, got %d", SignatureSize, len(sig))}
	}
	norm := make([]byte, SignatureSize)
	copy(norm, sig)
	// Wallets emit V as 27/28; crypto.SigToPub wants 0/1.
	if norm[64] == 27 || norm[64] == 28 {
		norm[64] -= 27
	}
	if norm[64] > 1 {
		return common.Address{}, &SignatureError{Reason: fmt.Sprintf("invalid recovery id %d", sig[64])}
	}
	pub, err := crypto.SigToPub(accounts.TextHash(payload), norm)
	if err != nil {
		return common.Address{}, &SignatureError{Reason: "recovery failed", Cause: err}
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// AddressOf returns the address for a private key.
func AddressOf(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// SignatureHex renders a signature as 0x-prefixed hex for the manifest
// document form.
func SignatureHex(sig []byte) string {
	return "0x" + hex.EncodeToString(sig)
}

// ParseSignatureHex decodes a 0x-prefixed (or bare) hex signature and checks
// its length.
func ParseSignatureHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, &SignatureError{Reason: "invalid hex", Cause: err}
	}
	if len(b) != SignatureSize {
		return nil, &SignatureError{Reason: fmt.Sprintf("want %d bytes, got %d", SignatureSize, len(b))}
	}
	return b, nil
}
