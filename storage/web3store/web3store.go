// Package web3store is the gateway-based pinning-service variant: uploads
// post raw bytes to the service's upload endpoint with a bearer token, reads
// resolve through its public gateway.
package web3store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/provenir/provenir/cidutil"
	"github.com/provenir/provenir/storage"
)

const (
	defaultAPIURL     = "https://api.web3.storage"
	defaultGatewayURL = "https://w3s.link"
)

type Options struct {
	// Token is the API bearer token; required.
	Token string
	// APIURL and GatewayURL default to the hosted service.
	APIURL     string
	GatewayURL string
	HTTPClient *http.Client
}

type Provider struct {
	token   string
	apiURL  string
	gateway string
	client  *http.Client
}

var _ storage.Provider = (*Provider)(nil)

func New(opts Options) (*Provider, error) {
	if opts.Token == "" {
		return nil, errors.New("web3store: token is required")
	}
	p := &Provider{
		token:   opts.Token,
		apiURL:  strings.TrimSuffix(opts.APIURL, "/"),
		gateway: opts.GatewayURL,
		client:  opts.HTTPClient,
	}
	if p.apiURL == "" {
		p.apiURL = defaultAPIURL
	}
	if p.gateway == "" {
		p.gateway = defaultGatewayURL
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 60 * time.Second}
	}
	return p, nil
}

func (p *Provider) Name() string { return "web3store" }

func (p *Provider) Upload(ctx context.Context, r io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/upload", r)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("web3store: upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("web3store: upload: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out struct {
		CID string `json:"cid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("web3store: unexpected upload response: %w", err)
	}
	id, err := cid.Decode(out.CID)
	if err != nil {
		return "", fmt.Errorf("web3store: service returned invalid CID %q: %w", out.CID, err)
	}
	return cidutil.URIFor(id), nil
}

func (p *Provider) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return storage.GatewayFetch(ctx, p.client, p.Name(), p.gateway, uri)
}
