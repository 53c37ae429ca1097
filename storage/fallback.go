package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Fallback composes providers with deterministic, ordered read fallback.
//
// Fetch tries providers in slice order; ErrNotFound falls through to the
// next provider, any other failure stops the scan so an unreachable backend
// is never silently reported as "not found". Uploads go to the first
// provider only. Callers MUST supply a fixed order; the retrieval strategy
// is explicit, never map-iteration luck.
type Fallback struct {
	Providers []Provider
}

var _ Provider = Fallback{}

func (f Fallback) Name() string {
	names := make([]string, 0, len(f.Providers))
	for _, p := range f.Providers {
		names = append(names, p.Name())
	}
	return "fallback(" + strings.Join(names, ",") + ")"
}

func (f Fallback) Upload(ctx context.Context, r io.Reader) (string, error) {
	if len(f.Providers) == 0 {
		return "", errors.New("storage: Fallback has no providers")
	}
	return f.Providers[0].Upload(ctx, r)
}

func (f Fallback) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if len(f.Providers) == 0 {
		return nil, errors.New("storage: Fallback has no providers")
	}
	for _, p := range f.Providers {
		b, err := p.Fetch(ctx, uri)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}
