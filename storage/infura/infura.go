// Package infura adapts a node-operator IPFS API (project id/secret over
// basic auth) to the storage capability. The wire protocol is the standard
// IPFS HTTP RPC, so the heavy lifting lives in the kubo client; this variant
// contributes endpoint defaults and credentials.
package infura

import (
	"errors"
	"net/http"
	"time"

	"github.com/provenir/provenir/storage"
	"github.com/provenir/provenir/storage/kubo"
)

const defaultAPIURL = "https://ipfs.infura.io:5001"

type Options struct {
	// APIURL defaults to the hosted endpoint.
	APIURL string
	// ProjectID and ProjectSecret are the operator credentials; both are
	// required.
	ProjectID     string
	ProjectSecret string
}

type basicAuthTransport struct {
	user, pass string
	next       http.RoundTripper
}

func (t basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.SetBasicAuth(t.user, t.pass)
	return t.next.RoundTrip(clone)
}

// New constructs the node-operator provider.
func New(opts Options) (storage.Provider, error) {
	if opts.ProjectID == "" || opts.ProjectSecret == "" {
		return nil, errors.New("infura: project id and secret are required")
	}
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: basicAuthTransport{
			user: opts.ProjectID,
			pass: opts.ProjectSecret,
			next: http.DefaultTransport,
		},
	}
	return kubo.NewNamed(kubo.Options{APIURL: apiURL, HTTPClient: client}, "infura")
}
