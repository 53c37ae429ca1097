// Package cidutil derives and validates the content-addressed URIs used for
// manifest and content storage.
package cidutil

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Scheme is the URI scheme for content-addressed locators.
const Scheme = "ipfs://"

// CIDForBytes returns the CIDv1 (raw multicodec, sha2-256 multihash) for data.
// This is the CID every storage provider must report for the same bytes.
func CIDForBytes(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// URIForBytes returns the ipfs:// locator for data.
func URIForBytes(data []byte) (string, error) {
	id, err := CIDForBytes(data)
	if err != nil {
		return "", err
	}
	return Scheme + id.String(), nil
}

// URIFor returns the ipfs:// locator for an already-decoded CID.
func URIFor(id cid.Cid) string {
	return Scheme + id.String()
}

// ParseURI decodes an ipfs:// locator. Bare CID strings are accepted too,
// since gateways and pinning APIs return them without the scheme.
func ParseURI(uri string) (cid.Cid, error) {
	s := strings.TrimPrefix(uri, Scheme)
	if s == "" {
		return cid.Undef, errors.New("cidutil: empty content URI")
	}
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("cidutil: invalid content URI %q: %w", uri, err)
	}
	return id, nil
}

// CIDForSHA256Digest builds the raw CIDv1 for a content digest computed
// elsewhere, so streaming uploads can derive their locator without buffering.
func CIDForSHA256Digest(sum [32]byte) (cid.Cid, error) {
	mh, err := multihash.Encode(sum[:], multihash.SHA2_256)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// VerifyBytes checks that data re-derives the CID named by uri. Providers
// call this on every fetch: transport and reachability are not validity,
// content addressing is.
//
// Only raw-codec sha2-256 CIDs can be recomputed from flat bytes. Locators
// with other codecs (e.g. chunked dag-pb from a pinning service) pass
// through unverified.
func VerifyBytes(uri string, data []byte) error {
	want, err := ParseURI(uri)
	if err != nil {
		return err
	}
	prefix := want.Prefix()
	if prefix.Codec != cid.Raw || prefix.MhType != multihash.SHA2_256 {
		return nil
	}
	got, err := CIDForBytes(data)
	if err != nil {
		return err
	}
	if !bytes.Equal(got.Bytes(), want.Bytes()) {
		return fmt.Errorf("cidutil: fetched bytes hash to %s, locator names %s", got, want)
	}
	return nil
}
