// Package provenance drives the two protocol entry points: registering
// content (hash, manifest, sign, upload, anchor on-chain) and verifying it
// (fetch, recheck, cross-validate, verdict).
package provenance

import (
	"bytes"
	"io"
	"os"
)

// Source is re-openable content. Hashing and uploading are separate streaming
// passes, and upload retries need a fresh reader per attempt, so a plain
// io.Reader is not enough.
type Source interface {
	Open() (io.ReadCloser, error)
}

type fileSource struct{ path string }

func (s fileSource) Open() (io.ReadCloser, error) { return os.Open(s.path) }

// FileSource wraps a local file path as a Source.
func FileSource(path string) Source { return fileSource{path: path} }

type bytesSource struct{ data []byte }

func (s bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// BytesSource wraps an in-memory buffer as a Source.
func BytesSource(data []byte) Source { return bytesSource{data: data} }
