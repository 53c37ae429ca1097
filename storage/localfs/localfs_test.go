package localfs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/provenir/provenir/cidutil"
	"github.com/provenir/provenir/storage"
	"github.com/provenir/provenir/storage/testkit"
)

func TestLocalFSConformance(t *testing.T) {
	testkit.RunProviderConformance(t, func(t *testing.T) storage.Provider {
		p, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return p
	})
}

func TestNewRequiresRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("New accepted an empty root")
	}
}

func TestFetchRejectsCorruptedObject(t *testing.T) {
	root := t.TempDir()
	p, err := New(root)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	uri, err := p.Upload(ctx, bytes.NewReader([]byte("pristine bytes")))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	id, err := cidutil.ParseURI(uri)
	if err != nil {
		t.Fatalf("ParseURI failed: %v", err)
	}

	// Corrupt the stored object behind the provider's back.
	path := p.pathFor(id)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("tampered bytes"), 0o644); err != nil {
		t.Fatalf("tamper write failed: %v", err)
	}

	if _, err := p.Fetch(ctx, uri); err == nil {
		t.Fatalf("Fetch returned tampered bytes without error")
	}
	if _, statErr := os.Stat(filepath.Dir(path)); statErr != nil {
		t.Fatalf("shard directory disappeared: %v", statErr)
	}
}
