package registry

import (
	"context"
	"crypto/sha256"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/provenir/provenir/digest"
)

// InMem is an in-process registry for tests and local development. It keeps
// the contract's invariant: at most one live entry per content hash, and a
// duplicate register resolves to the existing entry instead of overwriting.
type InMem struct {
	mu      sync.Mutex
	entries map[digest.Digest]*Entry
	txSeq   uint64

	// Creator is stamped on registered entries, standing in for the tx
	// sender. Zero values make Register fail like a missing key would.
	Creator common.Address
	// Now is the clock seam; defaults to time.Now.
	Now func() time.Time
	// ResolveErr / RegisterErr force failures for error-path tests.
	ResolveErr  error
	RegisterErr error
	// RegisterCalls counts actual state-changing submissions.
	RegisterCalls int
}

var _ Client = (*InMem)(nil)

func NewInMem(creator common.Address) *InMem {
	return &InMem{entries: make(map[digest.Digest]*Entry), Creator: creator}
}

func (m *InMem) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *InMem) Resolve(ctx context.Context, hash digest.Digest) (*Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ResolveErr != nil {
		return nil, false, m.ResolveErr
	}
	e, ok := m.entries[hash]
	if !ok {
		return nil, false, nil
	}
	cp := *e
	return &cp, true, nil
}

func (m *InMem) Register(ctx context.Context, hash digest.Digest, manifestURI string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RegisterErr != nil {
		return nil, m.RegisterErr
	}
	if m.Creator == (common.Address{}) {
		return nil, &ChainError{Reason: ReasonNoSigningKey}
	}
	m.RegisterCalls++
	if e, ok := m.entries[hash]; ok {
		cp := *e
		return &cp, nil
	}

	m.txSeq++
	var tx common.Hash
	seq := sha256.Sum256([]byte{byte(m.txSeq), byte(m.txSeq >> 8)})
	copy(tx[:], seq[:])

	e := &Entry{
		ContentHash:    hash,
		ManifestURI:    manifestURI,
		CreatorAddress: m.Creator,
		TxHash:         tx,
		ChainID:        big.NewInt(1337),
		RegisteredAt:   m.now(),
	}
	m.entries[hash] = e
	cp := *e
	return &cp, nil
}
