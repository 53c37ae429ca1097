package cidutil

import (
	"crypto/sha256"
	"strings"
	"testing"
)

func TestURIForBytesDeterministic(t *testing.T) {
	data := []byte("the same bytes, the same address")
	uri1, err := URIForBytes(data)
	if err != nil {
		t.Fatalf("URIForBytes failed: %v", err)
	}
	uri2, err := URIForBytes(append([]byte(nil), data...))
	if err != nil {
		t.Fatalf("URIForBytes failed: %v", err)
	}
	if uri1 != uri2 {
		t.Fatalf("locators differ for identical bytes: %s vs %s", uri1, uri2)
	}
	if !strings.HasPrefix(uri1, Scheme) {
		t.Fatalf("locator %q missing scheme %q", uri1, Scheme)
	}
}

func TestParseURIRoundTrip(t *testing.T) {
	id, err := CIDForBytes([]byte("round trip"))
	if err != nil {
		t.Fatalf("CIDForBytes failed: %v", err)
	}
	uri := URIFor(id)

	got, err := ParseURI(uri)
	if err != nil {
		t.Fatalf("ParseURI(%q) failed: %v", uri, err)
	}
	if !got.Equals(id) {
		t.Fatalf("ParseURI round trip: got %s want %s", got, id)
	}

	// Bare CIDs come back from gateways without the scheme.
	bare, err := ParseURI(id.String())
	if err != nil {
		t.Fatalf("ParseURI(bare) failed: %v", err)
	}
	if !bare.Equals(id) {
		t.Fatalf("bare CID round trip: got %s want %s", bare, id)
	}
}

func TestParseURIRejectsGarbage(t *testing.T) {
	for _, uri := range []string{"", "ipfs://", "ipfs://not-a-cid", "   "} {
		if _, err := ParseURI(uri); err == nil {
			t.Fatalf("ParseURI(%q) accepted garbage", uri)
		}
	}
}

func TestCIDForSHA256DigestMatchesBytes(t *testing.T) {
	data := []byte("streamed once, addressed the same")
	fromBytes, err := CIDForBytes(data)
	if err != nil {
		t.Fatalf("CIDForBytes failed: %v", err)
	}
	fromDigest, err := CIDForSHA256Digest(sha256.Sum256(data))
	if err != nil {
		t.Fatalf("CIDForSHA256Digest failed: %v", err)
	}
	if !fromBytes.Equals(fromDigest) {
		t.Fatalf("digest-derived CID %s != byte-derived CID %s", fromDigest, fromBytes)
	}
}

func TestVerifyBytes(t *testing.T) {
	data := []byte("verify me")
	uri, err := URIForBytes(data)
	if err != nil {
		t.Fatalf("URIForBytes failed: %v", err)
	}
	if err := VerifyBytes(uri, data); err != nil {
		t.Fatalf("VerifyBytes rejected matching bytes: %v", err)
	}
	if err := VerifyBytes(uri, []byte("tampered")); err == nil {
		t.Fatalf("VerifyBytes accepted tampered bytes")
	}
}
