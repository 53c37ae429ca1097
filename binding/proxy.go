package binding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProxyClient talks to the hosted binding-proxy API. It implements
// IdentityLinks by asking the proxy which providers the caller has linked,
// and forwards authorized bind requests.
type ProxyClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ IdentityLinks = (*ProxyClient)(nil)

func NewProxyClient(baseURL, apiKey string) (*ProxyClient, error) {
	if baseURL == "" {
		return nil, errors.New("binding: empty api base url")
	}
	if apiKey == "" {
		return nil, errors.New("binding: empty api key")
	}
	return &ProxyClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *ProxyClient) Linked(ctx context.Context, identity, provider string) (bool, error) {
	endpoint := fmt.Sprintf("%s/identities/%s/providers/%s", c.baseURL, identity, provider)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("binding: provider lookup: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("binding: provider lookup: %s", resp.Status)
	}

	var out struct {
		Linked bool `json:"linked"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("binding: unexpected provider lookup response: %w", err)
	}
	return out.Linked, nil
}

// BindRequest is the single-bind proxy payload.
type BindRequest struct {
	RegistryAddress string `json:"registryAddress"`
	Platform        string `json:"platform"`
	PlatformID      string `json:"platformId"`
	ContentHash     string `json:"contentHash"`
}

// Bind forwards one authorized binding to the proxy. Callers are expected to
// have passed Authorizer.Authorize first.
func (c *ProxyClient) Bind(ctx context.Context, req BindRequest) error {
	return c.post(ctx, "/bindings", req)
}

// BindBatchRequest is the multi-bind proxy payload.
type BindBatchRequest struct {
	RegistryAddress string    `json:"registryAddress"`
	ContentHash     string    `json:"contentHash"`
	Bindings        []Binding `json:"bindings"`
}

// BindBatch forwards an authorized batch. Callers are expected to have
// passed Authorizer.AuthorizeAll first.
func (c *ProxyClient) BindBatch(ctx context.Context, req BindBatchRequest) error {
	return c.post(ctx, "/bindings/batch", req)
}

func (c *ProxyClient) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("binding: proxy request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("binding: proxy request: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
