// Package pinata is the primary pinning-service variant of the storage
// capability. Uploads go through the pinning API with a JWT; reads go
// through the service's public gateway.
package pinata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/provenir/provenir/cidutil"
	"github.com/provenir/provenir/storage"
)

const (
	defaultAPIURL     = "https://api.pinata.cloud"
	defaultGatewayURL = "https://gateway.pinata.cloud"
)

type Options struct {
	// JWT is the pinning API token; required.
	JWT string
	// APIURL and GatewayURL default to the hosted service.
	APIURL     string
	GatewayURL string
	HTTPClient *http.Client
}

type Provider struct {
	jwt     string
	apiURL  string
	gateway string
	client  *http.Client
}

var _ storage.Provider = (*Provider)(nil)

func New(opts Options) (*Provider, error) {
	if opts.JWT == "" {
		return nil, errors.New("pinata: jwt is required")
	}
	p := &Provider{
		jwt:     opts.JWT,
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

func (p *Provider) Name() string { return "pinata" }

func (p *Provider) Upload(ctx context.Context, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		// CIDv1 keeps locators consistent across providers.
		if err := mw.WriteField("pinataOptions", `{"cidVersion":1}`); err != nil {
			pw.CloseWithError(err)
			return
		}
		part, err := mw.CreateFormFile("file", "blob")
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/pinning/pinFileToIPFS", pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.jwt)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pinata: pin: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("pinata: pin: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("pinata: unexpected pin response: %w", err)
	}
	id, err := cid.Decode(out.IpfsHash)
	if err != nil {
		return "", fmt.Errorf("pinata: service returned invalid CID %q: %w", out.IpfsHash, err)
	}
	return cidutil.URIFor(id), nil
}

func (p *Provider) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return storage.GatewayFetch(ctx, p.client, p.Name(), p.gateway, uri)
}
