// Package digest computes fixed-width content fingerprints over streaming
// byte sources. A fingerprint covers content bytes only; file names,
// timestamps, and other metadata never enter the digest.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Size is the digest width in bytes. All supported algorithms produce
// 32-byte digests, matching the registry contract's bytes32 key.
const Size = 32

// Digest is a fixed-width content fingerprint.
type Digest [Size]byte

// Hex returns the 0x-prefixed lowercase hex form used on the wire.
func (d Digest) Hex() string {
	return "0x" + hex.EncodeToString(d[:])
}

func (d Digest) String() string { return d.Hex() }

// IsZero reports whether d is the all-zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ParseHex parses a 0x-prefixed (or bare) 64-char hex digest.
func ParseHex(s string) (Digest, error) {
	var d Digest
	s = strings.TrimPrefix(s, "0x")
	if len(s) != Size*2 {
		return d, fmt.Errorf("digest: want %d hex chars, got %d", Size*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("digest: invalid hex: %w", err)
	}
	copy(d[:], b)
	return d, nil
}

// Algorithm names accepted by NewEngine.
const (
	SHA256    = "sha256"
	SHA3256   = "sha3-256"
	Keccak256 = "keccak256"
)

// Engine produces digests with a fixed algorithm. Engines are stateless and
// safe for concurrent use.
type Engine struct {
	alg string
}

// NewEngine returns an engine for the named algorithm. The algorithm is a
// deployment-level constant: the registering and verifying sides must agree
// on it or recomputed hashes will not match.
func NewEngine(alg string) (Engine, error) {
	switch alg {
	case SHA256, SHA3256, Keccak256:
		return Engine{alg: alg}, nil
	case "":
		return Engine{alg: SHA256}, nil
	default:
		return Engine{}, fmt.Errorf("digest: unsupported algorithm %q", alg)
	}
}

// Algorithm returns the engine's algorithm name.
func (e Engine) Algorithm() string {
	if e.alg == "" {
		return SHA256
	}
	return e.alg
}

func (e Engine) newHash() hash.Hash {
	switch e.alg {
	case SHA3256:
		return sha3.New256()
	case Keccak256:
		return sha3.NewLegacyKeccak256()
	default:
		return sha256.New()
	}
}

// Sum streams r to completion and returns the content digest. Read errors
// are returned as-is; a short or failed read never yields a digest.
func (e Engine) Sum(r io.Reader) (Digest, error) {
	h := e.newHash()
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, fmt.Errorf("digest: reading content: %w", err)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// SumBytes digests an in-memory buffer.
func (e Engine) SumBytes(b []byte) Digest {
	h := e.newHash()
	_, _ = h.Write(b)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}
