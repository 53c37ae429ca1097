package provenance

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/provenir/provenir/digest"
	"github.com/provenir/provenir/keys"
	"github.com/provenir/provenir/manifest"
	"github.com/provenir/provenir/registry"
	"github.com/provenir/provenir/storage"
)

// Registrar drives hash -> [content upload] -> manifest -> sign ->
// manifest upload -> chain lookup -> [chain register].
//
// Registrations for the same content hash are serialized through a per-hash
// lock, so two concurrent runs over identical bytes cannot race past the
// resolve-then-register check and double-submit a transaction. Concurrent
// duplicates in the same operating mode additionally share one in-flight
// result via a singleflight group; runs in different modes never share a
// result, since a privacy-mode caller must not receive a receipt whose
// manifest embeds a content locator, nor the reverse.
type Registrar struct {
	engine   digest.Engine
	provider storage.Provider
	registry registry.Client
	key      *ecdsa.PrivateKey
	log      *slog.Logger
	now      func() time.Time

	group singleflight.Group

	mu    sync.Mutex
	locks map[string]*hashLock
}

// hashLock is one content hash's exclusion scope, reference-counted so idle
// entries do not accumulate.
type hashLock struct {
	sync.Mutex
	refs int
}

type RegistrarOptions struct {
	Engine   digest.Engine
	Provider storage.Provider
	Registry registry.Client
	// Key signs manifests and register transactions.
	Key    *ecdsa.PrivateKey
	Logger *slog.Logger
	// Now is the manifest timestamp clock; defaults to time.Now.
	Now func() time.Time
}

func NewRegistrar(opts RegistrarOptions) (*Registrar, error) {
	if opts.Provider == nil {
		return nil, errors.New("provenance: registrar needs a storage provider")
	}
	if opts.Registry == nil {
		return nil, errors.New("provenance: registrar needs a registry client")
	}
	if opts.Key == nil {
		return nil, errors.New("provenance: registrar needs a signing key")
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Registrar{
		engine:   opts.Engine,
		provider: opts.Provider,
		registry: opts.Registry,
		key:      opts.Key,
		log:      log,
		now:      now,
		locks:    make(map[string]*hashLock),
	}, nil
}

// RegisterOptions selects the operating mode.
type RegisterOptions struct {
	// UploadContent publishes the content bytes alongside the manifest and
	// embeds their locator in it. Off by default: in privacy mode the
	// original bytes never leave local custody.
	UploadContent bool
}

// Receipt is the successful outcome of a registration run.
type Receipt struct {
	ContentHash digest.Digest
	Manifest    *manifest.Manifest
	ManifestURI string
	ContentURI  string // empty in privacy mode
	Entry       *registry.Entry
	// AlreadyRegistered is true when the chain lookup found an existing
	// entry and the register step was skipped.
	AlreadyRegistered bool
}

// StepError wraps a pipeline failure together with everything computed
// before it, so callers can resume from the failed step without redoing
// earlier ones.
type StepError struct {
	Step        string
	ContentHash digest.Digest
	Manifest    *manifest.Manifest
	ContentURI  string
	ManifestURI string
	Err         error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("provenance: %s step failed for %s: %v", e.Step, e.ContentHash, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Register runs the full registration pipeline for src.
func (r *Registrar) Register(ctx context.Context, src Source, opts RegisterOptions) (*Receipt, error) {
	hash, err := r.hashSource(src)
	if err != nil {
		return nil, err
	}

	// Hashing is pure and repeatable; everything that talks to storage or
	// the chain runs inside the per-hash exclusion scope. The flight key
	// carries the mode: same-mode duplicates share one result, a
	// different-mode run waits its turn and lands on the resolve-skip path
	// with its own mode honored.
	v, err, shared := r.group.Do(flightKey(hash, opts), func() (interface{}, error) {
		l := r.lockHash(hash.Hex())
		defer r.unlockHash(hash.Hex(), l)
		return r.registerLocked(ctx, src, hash, opts)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.log.Debug("registration shared with concurrent duplicate", "contentHash", hash.Hex())
	}
	return v.(*Receipt), nil
}

func flightKey(hash digest.Digest, opts RegisterOptions) string {
	if opts.UploadContent {
		return hash.Hex() + "/public"
	}
	return hash.Hex() + "/private"
}

func (r *Registrar) lockHash(key string) *hashLock {
	r.mu.Lock()
	l := r.locks[key]
	if l == nil {
		l = &hashLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()
	l.Lock()
	return l
}

func (r *Registrar) unlockHash(key string, l *hashLock) {
	l.Unlock()
	r.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, key)
	}
	r.mu.Unlock()
}

func (r *Registrar) hashSource(src Source) (digest.Digest, error) {
	rc, err := src.Open()
	if err != nil {
		return digest.Digest{}, fmt.Errorf("provenance: opening content: %w", err)
	}
	defer rc.Close()
	return r.engine.Sum(rc)
}

func (r *Registrar) registerLocked(ctx context.Context, src Source, hash digest.Digest, opts RegisterOptions) (*Receipt, error) {
	fail := func(step string, m *manifest.Manifest, contentURI, manifestURI string, err error) (*Receipt, error) {
		return nil, &StepError{
			Step:        step,
			ContentHash: hash,
			Manifest:    m,
			ContentURI:  contentURI,
			ManifestURI: manifestURI,
			Err:         err,
		}
	}

	var contentURI string
	if opts.UploadContent {
		uri, err := storage.UploadFrom(ctx, r.provider, src.Open)
		if err != nil {
			return fail("content_upload", nil, "", "", err)
		}
		contentURI = uri
		r.log.Info("content uploaded", "contentHash", hash.Hex(), "contentUri", contentURI)
	}

	m, err := manifest.Build(hash, contentURI, keys.AddressOf(r.key), r.now().UTC())
	if err != nil {
		return nil, err
	}
	sig, err := keys.Sign(m.CanonicalPayload(), r.key)
	if err != nil {
		return nil, err
	}
	m.Signature = sig

	doc, err := m.Encode()
	if err != nil {
		return nil, err
	}
	manifestURI, err := storage.UploadBytes(ctx, r.provider, doc)
	if err != nil {
		return fail("manifest_upload", m, contentURI, "", err)
	}
	r.log.Info("manifest uploaded", "contentHash", hash.Hex(), "manifestUri", manifestURI)

	existing, found, err := r.registry.Resolve(ctx, hash)
	if err != nil {
		return fail("chain_lookup", m, contentURI, manifestURI, err)
	}
	if found {
		r.log.Info("already registered, skipping transaction",
			"contentHash", hash.Hex(), "tx", existing.TxHash.Hex())
		return &Receipt{
			ContentHash:       hash,
			Manifest:          m,
			ManifestURI:       manifestURI,
			ContentURI:        contentURI,
			Entry:             existing,
			AlreadyRegistered: true,
		}, nil
	}

	// Last cancellation point before the one non-idempotent step. Resolve
	// was read-only, so honoring ctx here leaves no partial on-chain state.
	if err := ctx.Err(); err != nil {
		return fail("chain_register", m, contentURI, manifestURI, err)
	}

	entry, err := r.registry.Register(ctx, hash, manifestURI)
	if err != nil {
		return fail("chain_register", m, contentURI, manifestURI, err)
	}
	r.log.Info("registered on chain",
		"contentHash", hash.Hex(), "tx", entry.TxHash.Hex(), "chainId", entry.ChainID)

	return &Receipt{
		ContentHash: hash,
		Manifest:    m,
		ManifestURI: manifestURI,
		ContentURI:  contentURI,
		Entry:       entry,
	}, nil
}
