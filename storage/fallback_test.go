package storage_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/provenir/provenir/storage"
	"github.com/provenir/provenir/storage/testkit"
)

func TestFallbackUploadGoesToFirstProvider(t *testing.T) {
	primary := testkit.NewProvider()
	secondary := testkit.NewProvider()
	f := storage.Fallback{Providers: []storage.Provider{primary, secondary}}

	uri, err := f.Upload(context.Background(), bytes.NewReader([]byte("primary only")))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if !primary.Holds(uri) {
		t.Fatalf("primary does not hold %s", uri)
	}
	if secondary.Holds(uri) {
		t.Fatalf("secondary unexpectedly holds %s", uri)
	}
}

func TestFallbackFetchFallsThroughNotFound(t *testing.T) {
	ctx := context.Background()
	primary := testkit.NewProvider()
	secondary := testkit.NewProvider()
	want := []byte("only on the second provider")
	uri, err := secondary.Upload(ctx, bytes.NewReader(want))
	if err != nil {
		t.Fatalf("seed upload failed: %v", err)
	}

	f := storage.Fallback{Providers: []storage.Provider{primary, secondary}}
	got, err := f.Fetch(ctx, uri)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Fetch bytes mismatch")
	}
}

func TestFallbackFetchStopsOnRealFailure(t *testing.T) {
	ctx := context.Background()
	broken := testkit.NewProvider()
	broken.FetchErr = errors.New("backend unreachable")
	healthy := testkit.NewProvider()
	uri, err := healthy.Upload(ctx, bytes.NewReader([]byte("present downstream")))
	if err != nil {
		t.Fatalf("seed upload failed: %v", err)
	}

	f := storage.Fallback{Providers: []storage.Provider{broken, healthy}}
	_, err = f.Fetch(ctx, uri)
	if err == nil {
		t.Fatalf("Fetch succeeded past an unreachable provider")
	}
	if storage.IsNotFound(err) {
		t.Fatalf("unreachable provider was reported as not found: %v", err)
	}
}

func TestFallbackFetchAllMissing(t *testing.T) {
	f := storage.Fallback{Providers: []storage.Provider{testkit.NewProvider(), testkit.NewProvider()}}
	_, err := f.Fetch(context.Background(), "ipfs://bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku")
	if !storage.IsNotFound(err) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
