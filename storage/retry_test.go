package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/provenir/provenir/storage"
	"github.com/provenir/provenir/storage/testkit"
)

func TestUploadBytesRetriesTransientFailure(t *testing.T) {
	p := testkit.NewProvider()
	p.FailUploads = 1
	data := []byte("payload that survives one flaky attempt")

	uri, err := storage.UploadBytes(context.Background(), p, data)
	if err != nil {
		t.Fatalf("UploadBytes failed after transient error: %v", err)
	}
	got, err := p.Fetch(context.Background(), uri)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("Fetch bytes mismatch after retried upload")
	}
}

func TestUploadBytesExhaustionWrapsUploadError(t *testing.T) {
	p := testkit.NewProvider()
	p.FailUploads = 100 // more than the attempt ceiling

	_, err := storage.UploadBytes(context.Background(), p, []byte("never lands"))
	if err == nil {
		t.Fatalf("UploadBytes succeeded with a permanently failing provider")
	}
	var upErr *storage.UploadError
	if !errors.As(err, &upErr) {
		t.Fatalf("got %T, want *storage.UploadError", err)
	}
	if upErr.Provider != "testkit" {
		t.Fatalf("UploadError.Provider = %q, want %q", upErr.Provider, "testkit")
	}
}

func TestUploadBytesHonorsCancellation(t *testing.T) {
	p := testkit.NewProvider()
	p.FailUploads = 100
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.UploadBytes(ctx, p, []byte("cancelled"))
	if err == nil {
		t.Fatalf("UploadBytes succeeded with a cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled in chain", err)
	}
}

func TestUploadFromReopensPerAttempt(t *testing.T) {
	p := testkit.NewProvider()
	p.FailUploads = 1
	data := []byte("re-openable source")

	opens := 0
	open := func() (io.ReadCloser, error) {
		opens++
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	uri, err := storage.UploadFrom(context.Background(), p, open)
	if err != nil {
		t.Fatalf("UploadFrom failed: %v", err)
	}
	if opens != 2 {
		t.Fatalf("source opened %d times, want 2 (one per attempt)", opens)
	}
	if !p.Holds(uri) {
		t.Fatalf("provider does not hold %s after upload", uri)
	}
}

func TestUploadFromBrokenSourceIsPermanent(t *testing.T) {
	p := testkit.NewProvider()
	opens := 0
	open := func() (io.ReadCloser, error) {
		opens++
		return nil, errors.New("source is gone")
	}
	_, err := storage.UploadFrom(context.Background(), p, open)
	if err == nil {
		t.Fatalf("UploadFrom succeeded with a broken source")
	}
	if opens != 1 {
		t.Fatalf("broken source opened %d times, want 1 (no retries)", opens)
	}
}
