package binding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProxyClientLinked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "k-123" {
			t.Errorf("api key header = %q, want %q", got, "k-123")
		}
		switch r.URL.Path {
		case "/identities/0xabc/providers/google":
			_ = json.NewEncoder(w).Encode(map[string]bool{"linked": true})
		case "/identities/0xabc/providers/twitter":
			_ = json.NewEncoder(w).Encode(map[string]bool{"linked": false})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewProxyClient(srv.URL, "k-123")
	if err != nil {
		t.Fatalf("NewProxyClient failed: %v", err)
	}

	linked, err := c.Linked(context.Background(), "0xabc", "google")
	if err != nil || !linked {
		t.Fatalf("Linked(google) = %v, %v; want true", linked, err)
	}
	linked, err = c.Linked(context.Background(), "0xabc", "twitter")
	if err != nil || linked {
		t.Fatalf("Linked(twitter) = %v, %v; want false", linked, err)
	}
	// Unknown identity is a plain "not linked", not a failure.
	linked, err = c.Linked(context.Background(), "0xother", "google")
	if err != nil || linked {
		t.Fatalf("Linked(unknown) = %v, %v; want false, nil", linked, err)
	}
}

func TestProxyClientBindPostsPayload(t *testing.T) {
	var got BindRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/bindings" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding bind payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, err := NewProxyClient(srv.URL+"/", "k-123") // trailing slash is tolerated
	if err != nil {
		t.Fatalf("NewProxyClient failed: %v", err)
	}
	req := BindRequest{
		RegistryAddress: "0x00000000000000000000000000000000000000aa",
		Platform:        "youtube",
		PlatformID:      "UC123",
		ContentHash:     "0x1111111111111111111111111111111111111111111111111111111111111111",
	}
	if err := c.Bind(context.Background(), req); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if got != req {
		t.Fatalf("proxy received %+v, want %+v", got, req)
	}
}

func TestProxyClientBindSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "duplicate binding", http.StatusConflict)
	}))
	defer srv.Close()

	c, _ := NewProxyClient(srv.URL, "k-123")
	err := c.Bind(context.Background(), BindRequest{Platform: "youtube"})
	if err == nil {
		t.Fatalf("Bind swallowed a server error")
	}
}

func TestNewProxyClientValidation(t *testing.T) {
	if _, err := NewProxyClient("", "k"); err == nil {
		t.Fatalf("NewProxyClient accepted an empty base URL")
	}
	if _, err := NewProxyClient("http://proxy", ""); err == nil {
		t.Fatalf("NewProxyClient accepted an empty API key")
	}
}
