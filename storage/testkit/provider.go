// Package testkit provides an in-memory storage provider and a shared
// conformance suite every variant can run.
package testkit

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/provenir/provenir/cidutil"
	"github.com/provenir/provenir/storage"
)

// Provider is an in-memory storage.Provider for tests. It records uploads so
// tests can assert what crossed the capability boundary (e.g. that privacy
// mode never uploads content bytes).
type Provider struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads [][]byte

	// FailUploads makes the next N uploads fail; used for retry tests.
	FailUploads int
	// FetchErr, when set, is returned by every Fetch.
	FetchErr error
}

var _ storage.Provider = (*Provider)(nil)

func NewProvider() *Provider {
	return &Provider{objects: make(map[string][]byte)}
}

func (p *Provider) Name() string { return "testkit" }

func (p *Provider) Upload(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailUploads > 0 {
		p.FailUploads--
		return "", io.ErrUnexpectedEOF
	}
	uri, err := cidutil.URIForBytes(data)
	if err != nil {
		return "", err
	}
	p.objects[uri] = data
	p.uploads = append(p.uploads, data)
	return uri, nil
}

func (p *Provider) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FetchErr != nil {
		return nil, p.FetchErr
	}
	b, ok := p.objects[uri]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

// Uploads returns a copy of every payload uploaded so far.
func (p *Provider) Uploads() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.uploads))
	for i, b := range p.uploads {
		out[i] = append([]byte(nil), b...)
	}
	return out
}

// Holds reports whether the provider stores the given locator.
func (p *Provider) Holds(uri string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.objects[uri]
	return ok
}

// NewProviderFunc constructs a fresh, isolated provider for one test.
type NewProviderFunc func(t *testing.T) storage.Provider

// RunProviderConformance exercises the storage.Provider contract.
func RunProviderConformance(t *testing.T, newProvider NewProviderFunc) {
	t.Helper()
	ctx := context.Background()

	t.Run("UploadFetchRoundTrip", func(t *testing.T) {
		p := newProvider(t)
		want := []byte("hello, provenance storage")

		uri, err := p.Upload(ctx, bytes.NewReader(want))
		if err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
		wantURI, err := cidutil.URIForBytes(want)
		if err != nil {
			t.Fatalf("URIForBytes failed: %v", err)
		}
		if uri != wantURI {
			t.Fatalf("Upload locator mismatch: got %s want %s", uri, wantURI)
		}

		got, err := p.Fetch(ctx, uri)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Fetch bytes mismatch")
		}
	})

	t.Run("UploadIdempotent", func(t *testing.T) {
		p := newProvider(t)
		b := []byte("same bytes")

		uri1, err := p.Upload(ctx, bytes.NewReader(b))
		if err != nil {
			t.Fatalf("Upload(1) failed: %v", err)
		}
		uri2, err := p.Upload(ctx, bytes.NewReader(b))
		if err != nil {
			t.Fatalf("Upload(2) failed: %v", err)
		}
		if uri1 != uri2 {
			t.Fatalf("Upload not idempotent: %s vs %s", uri1, uri2)
		}
	})

	t.Run("FetchMissingIsNotFound", func(t *testing.T) {
		p := newProvider(t)
		uri, err := cidutil.URIForBytes([]byte("never uploaded"))
		if err != nil {
			t.Fatalf("URIForBytes failed: %v", err)
		}
		_, err = p.Fetch(ctx, uri)
		if !storage.IsNotFound(err) {
			t.Fatalf("Fetch missing: got err=%v want ErrNotFound", err)
		}
	})

	t.Run("FetchRejectsInvalidURI", func(t *testing.T) {
		p := newProvider(t)
		if _, err := p.Fetch(ctx, "ipfs://not-a-cid"); err == nil {
			t.Fatalf("Fetch accepted an invalid locator")
		}
	})
}
