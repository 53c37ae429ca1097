package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/provenir/provenir/cidutil"
)

// GatewayFetch retrieves a locator through an HTTP gateway path
// ({gateway}/ipfs/{cid}) and verifies the bytes against the CID where the
// codec permits. Pinning-service variants share this read path.
func GatewayFetch(ctx context.Context, client *http.Client, provider, gatewayURL, uri string) ([]byte, error) {
	id, err := cidutil.ParseURI(uri)
	if err != nil {
		return nil, ErrInvalidURI
	}

	endpoint := strings.TrimSuffix(gatewayURL, "/") + "/ipfs/" + id.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: gateway fetch: %w", provider, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("%s: gateway fetch: %s", provider, resp.Status)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: gateway fetch: %w", provider, err)
	}
	if err := cidutil.VerifyBytes(uri, b); err != nil {
		return nil, err
	}
	return b, nil
}
