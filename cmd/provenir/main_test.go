package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsManifestURI(t *testing.T) {
	tests := []struct {
		arg  string
		want bool
	}{
		{"ipfs://bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku", true},
		{"video.mp4", false},
		{"/tmp/ipfs/video.mp4", false},
		{"./ipfs://looks-local", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isManifestURI(tt.arg); got != tt.want {
			t.Fatalf("isManifestURI(%q) = %v, want %v", tt.arg, got, tt.want)
		}
	}
}

// A positional locator must be dispatched into the verify pipeline, not
// treated as a file path. Exit 1 (missing config) proves the argument got
// past usage validation; exit 2 would mean it was rejected up front.
func TestVerifyAcceptsPositionalManifestURI(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.json")
	var out, errOut bytes.Buffer
	code := run([]string{
		"verify", "--config", missing,
		"ipfs://bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku",
	}, &out, &errOut)
	if code != 1 {
		t.Fatalf("exit = %d, want 1; stderr: %s", code, errOut.String())
	}
	if !strings.Contains(errOut.String(), "provenir init") {
		t.Fatalf("expected a missing-config error, got: %s", errOut.String())
	}
}

func TestVerifyRejectsFileWithURIBatch(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{
		"verify", "--manifest-uri", "ipfs://bafyone", "--manifest-uri", "ipfs://bafytwo", "video.mp4",
	}, &out, &errOut)
	if code != 2 {
		t.Fatalf("exit = %d, want 2 (usage error)", code)
	}
}

// Both spellings of the provider override must parse on upload and verify.
func TestProviderFlagSpellings(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.json")
	cases := [][]string{
		{"upload", "--config", missing, "--ipfs-provider", "pinata", "video.mp4"},
		{"upload", "--config", missing, "--provider", "pinata", "video.mp4"},
		{"verify", "--config", missing, "--ipfs-provider", "pinata", "--manifest-uri", "ipfs://bafyone"},
		{"verify", "--config", missing, "--provider", "pinata", "--manifest-uri", "ipfs://bafyone"},
	}
	for _, args := range cases {
		var out, errOut bytes.Buffer
		code := run(args, &out, &errOut)
		if code != 1 {
			t.Fatalf("%v: exit = %d, want 1 (flag parsed, config missing); stderr: %s",
				args, code, errOut.String())
		}
	}
}

func TestUploadTimeoutFlagParses(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.json")
	var out, errOut bytes.Buffer
	code := run([]string{"upload", "--config", missing, "--timeout", "90s", "video.mp4"}, &out, &errOut)
	if code != 1 {
		t.Fatalf("exit = %d, want 1 (flag parsed, config missing); stderr: %s", code, errOut.String())
	}
}

func TestRunUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(nil, &out, &errOut); code != 2 {
		t.Fatalf("run() with no args: exit = %d, want 2", code)
	}
	if code := run([]string{"no-such-command"}, &out, &errOut); code != 2 {
		t.Fatalf("unknown command: exit = %d, want 2", code)
	}
	out.Reset()
	if code := run([]string{"help"}, &out, &errOut); code != 0 {
		t.Fatalf("help: exit = %d, want 0", code)
	}
	if !strings.Contains(out.String(), "--ipfs-provider") {
		t.Fatalf("usage does not document --ipfs-provider:\n%s", out.String())
	}
}
