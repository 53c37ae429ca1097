package digest

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSumDeterministic(t *testing.T) {
	e, err := NewEngine(SHA256)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	content := []byte("the same bytes every time")

	d1, err := e.Sum(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Sum(1) failed: %v", err)
	}
	d2, err := e.Sum(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Sum(2) failed: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("digests differ: %s vs %s", d1, d2)
	}
	if d1 != e.SumBytes(content) {
		t.Fatalf("streaming and in-memory digests differ")
	}
}

func TestSumContentOnly(t *testing.T) {
	e, _ := NewEngine("")
	a := e.SumBytes([]byte("content"))
	b := e.SumBytes([]byte("content!"))
	if a == b {
		t.Fatalf("different bytes produced equal digests")
	}
}

func TestAlgorithmsDisagree(t *testing.T) {
	content := []byte("same input, different algorithms")
	seen := map[Digest]string{}
	for _, alg := range []string{SHA256, SHA3256, Keccak256} {
		e, err := NewEngine(alg)
		if err != nil {
			t.Fatalf("NewEngine(%s) failed: %v", alg, err)
		}
		d := e.SumBytes(content)
		if prev, ok := seen[d]; ok {
			t.Fatalf("%s and %s produced the same digest", alg, prev)
		}
		seen[d] = alg
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestSumSurfacesReadErrors(t *testing.T) {
	e, _ := NewEngine(SHA256)
	_, err := e.Sum(io.MultiReader(strings.NewReader("partial"), failingReader{}))
	if err == nil {
		t.Fatalf("Sum swallowed a read error")
	}
	if !strings.Contains(err.Error(), "disk on fire") {
		t.Fatalf("read error not preserved: %v", err)
	}
}

func TestNewEngineRejectsUnknownAlgorithm(t *testing.T) {
	if _, err := NewEngine("md5"); err == nil {
		t.Fatalf("NewEngine accepted md5")
	}
}

func TestParseHex(t *testing.T) {
	e, _ := NewEngine(SHA256)
	d := e.SumBytes([]byte("round trip"))

	parsed, err := ParseHex(d.Hex())
	if err != nil {
		t.Fatalf("ParseHex failed: %v", err)
	}
	if parsed != d {
		t.Fatalf("hex round trip mismatch: %s vs %s", parsed, d)
	}

	if _, err := ParseHex("0x1234"); err == nil {
		t.Fatalf("ParseHex accepted a short digest")
	}
}
