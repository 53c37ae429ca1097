// Package kubo stores content as raw blocks on a self-hosted IPFS node via
// its HTTP RPC.
//
// Blocks are written with explicit raw/sha2-256 parameters so the node's CID
// matches the locator contract, and every upload and fetch is re-verified
// against the locally computed CID. The node is not authoritative; content
// addressing is.
package kubo

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/provenir/provenir/cidutil"
	"github.com/provenir/provenir/storage"
)

const defaultAPIURL = "http://127.0.0.1:5001"

type Options struct {
	// APIURL is the node's RPC endpoint. Defaults to the local daemon.
	APIURL string
	// HTTPClient overrides the transport (auth, proxies). A 30s-timeout
	// client is used when nil.
	HTTPClient *http.Client
}

type Provider struct {
	apiURL string
	client *http.Client
	name   string
}

var _ storage.Provider = (*Provider)(nil)

func New(opts Options) (*Provider, error) {
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("kubo: invalid api url %q: %w", apiURL, err)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Provider{apiURL: strings.TrimSuffix(apiURL, "/"), client: client, name: "kubo"}, nil
}

// NewNamed constructs a provider for an IPFS-RPC-compatible endpoint that
// should report a different variant name in errors and logs.
func NewNamed(opts Options, name string) (*Provider, error) {
	if name == "" {
		return nil, errors.New("kubo: empty provider name")
	}
	p, err := New(opts)
	if err != nil {
		return nil, err
	}
	p.name = name
	return p, nil
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Upload(ctx context.Context, r io.Reader) (string, error) {
	sum := sha256.New()
	body := io.TeeReader(r, sum)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", "blob")
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, body); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	endpoint := p.apiURL + "/api/v0/block/put?cid-codec=raw&mhtype=sha2-256&mhlen=32&pin=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: block put: %w", p.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: block put: %s", p.name, rpcError(resp))
	}

	var out struct {
		Key  string `json:"Key"`
		Size int64  `json:"Size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: unexpected block put response: %w", p.name, err)
	}

	var d [32]byte
	copy(d[:], sum.Sum(nil))
	want, err := cidutil.CIDForSHA256Digest(d)
	if err != nil {
		return "", err
	}
	if out.Key != want.String() {
		return "", fmt.Errorf("%s: node returned CID %s, local bytes hash to %s", p.name, out.Key, want)
	}
	return cidutil.URIFor(want), nil
}

func (p *Provider) Fetch(ctx context.Context, uri string) ([]byte, error) {
	id, err := cidutil.ParseURI(uri)
	if err != nil {
		return nil, storage.ErrInvalidURI
	}

	endpoint := p.apiURL + "/api/v0/block/get?arg=" + url.QueryEscape(id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: block get: %w", p.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg := rpcError(resp)
		if isLikelyNotFound(msg) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("%s: block get: %s", p.name, msg)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: block get: %w", p.name, err)
	}
	if err := cidutil.VerifyBytes(uri, b); err != nil {
		return nil, err
	}
	return b, nil
}

// rpcError extracts the kubo RPC error message body, falling back to the
// HTTP status line.
func rpcError(resp *http.Response) string {
	var out struct {
		Message string `json:"Message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&out); err == nil && out.Message != "" {
		return out.Message
	}
	return resp.Status
}

func isLikelyNotFound(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "not found") || strings.Contains(m, "could not find")
}
