// Package localfs is a filesystem-backed provider for development and tests.
// Objects are stored immutably, sharded by CID, and re-verified on read.
package localfs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"github.com/provenir/provenir/cidutil"
	"github.com/provenir/provenir/storage"
)

type Provider struct {
	root string
}

var _ storage.Provider = (*Provider)(nil)

// New constructs a provider rooted at root, creating the directory if needed.
func New(root string) (*Provider, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Provider{root: root}, nil
}

func (p *Provider) Name() string { return "localfs" }

func (p *Provider) Upload(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	id, err := cidutil.CIDForBytes(data)
	if err != nil {
		return "", err
	}

	path := p.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			// Same CID means same bytes; re-upload is a no-op.
			return cidutil.URIFor(id), nil
		}
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return cidutil.URIFor(id), nil
}

func (p *Provider) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := cidutil.ParseURI(uri)
	if err != nil {
		return nil, storage.ErrInvalidURI
	}
	b, err := os.ReadFile(p.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if err := cidutil.VerifyBytes(uri, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Provider) pathFor(id cid.Cid) string {
	s := id.String()
	if len(s) < 2 {
		return filepath.Join(p.root, s)
	}
	return filepath.Join(p.root, s[:2], s)
}
