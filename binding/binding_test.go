package binding

import (
	"context"
	"errors"
	"testing"
)

// fakeLinks serves Linked answers from a map of "identity/provider" keys and
// records every lookup.
type fakeLinks struct {
	linked  map[string]bool
	err     error
	lookups []string
}

func (f *fakeLinks) Linked(ctx context.Context, identity, provider string) (bool, error) {
	f.lookups = append(f.lookups, identity+"/"+provider)
	if f.err != nil {
		return false, f.err
	}
	return f.linked[identity+"/"+provider], nil
}

func TestAuthorizeLinkedProvider(t *testing.T) {
	links := &fakeLinks{linked: map[string]bool{"0xabc/google": true}}
	a, err := NewAuthorizer(links, nil)
	if err != nil {
		t.Fatalf("NewAuthorizer failed: %v", err)
	}
	if err := a.Authorize(context.Background(), "0xabc", "youtube", "UC123"); err != nil {
		t.Fatalf("Authorize denied a linked identity: %v", err)
	}
}

func TestAuthorizeDenialNamesMissingProvider(t *testing.T) {
	a, err := NewAuthorizer(&fakeLinks{linked: map[string]bool{}}, nil)
	if err != nil {
		t.Fatalf("NewAuthorizer failed: %v", err)
	}
	err = a.Authorize(context.Background(), "0xabc", "instagram", "insta-1")
	var denial *AuthorizationError
	if !errors.As(err, &denial) {
		t.Fatalf("got %v, want *AuthorizationError", err)
	}
	if denial.Platform != "instagram" || denial.MissingProvider != "facebook" {
		t.Fatalf("denial = %+v, want platform instagram missing facebook", denial)
	}
}

func TestAuthorizeUnknownPlatform(t *testing.T) {
	a, _ := NewAuthorizer(&fakeLinks{}, nil)
	if err := a.Authorize(context.Background(), "0xabc", "myspace", "tom"); err == nil {
		t.Fatalf("Authorize accepted an unknown platform")
	}
}

func TestAuthorizeLookupFailureIsNotADenial(t *testing.T) {
	a, _ := NewAuthorizer(&fakeLinks{err: errors.New("auth service down")}, nil)
	err := a.Authorize(context.Background(), "0xabc", "github", "octocat")
	if err == nil {
		t.Fatalf("Authorize succeeded with a failing links service")
	}
	var denial *AuthorizationError
	if errors.As(err, &denial) {
		t.Fatalf("infrastructure failure misreported as a denial: %v", err)
	}
}

func TestAuthorizeAllDeniesWholeBatchUpFront(t *testing.T) {
	// google is linked, twitter is not: the whole batch must be denied and
	// the denial must name the twitter requirement.
	links := &fakeLinks{linked: map[string]bool{"0xabc/google": true}}
	a, _ := NewAuthorizer(links, nil)

	batch := []Binding{
		{Platform: "youtube", PlatformID: "UC123", ContentID: "0xhash"},
		{Platform: "twitter", PlatformID: "@creator", ContentID: "0xhash"},
	}
	err := a.AuthorizeAll(context.Background(), "0xabc", batch)
	var denial *AuthorizationError
	if !errors.As(err, &denial) {
		t.Fatalf("got %v, want *AuthorizationError", err)
	}
	if denial.Platform != "twitter" || denial.MissingProvider != "twitter" {
		t.Fatalf("denial = %+v, want the twitter requirement", denial)
	}
}

func TestAuthorizeAllChecksEachProviderOnce(t *testing.T) {
	links := &fakeLinks{linked: map[string]bool{"0xabc/google": true, "0xabc/github": true}}
	a, _ := NewAuthorizer(links, nil)

	batch := []Binding{
		{Platform: "youtube", PlatformID: "UC1", ContentID: "0xhash"},
		{Platform: "youtube", PlatformID: "UC2", ContentID: "0xhash"},
		{Platform: "github", PlatformID: "octocat", ContentID: "0xhash"},
	}
	if err := a.AuthorizeAll(context.Background(), "0xabc", batch); err != nil {
		t.Fatalf("AuthorizeAll denied a fully linked batch: %v", err)
	}
	if len(links.lookups) != 2 {
		t.Fatalf("links checked %d times, want 2 (deduplicated per provider): %v", len(links.lookups), links.lookups)
	}
}

func TestAuthorizeAllRejectsEmptyBatchAndIDs(t *testing.T) {
	a, _ := NewAuthorizer(&fakeLinks{}, nil)
	if err := a.AuthorizeAll(context.Background(), "0xabc", nil); err == nil {
		t.Fatalf("AuthorizeAll accepted an empty batch")
	}
	err := a.AuthorizeAll(context.Background(), "0xabc", []Binding{{Platform: "youtube"}})
	if err == nil {
		t.Fatalf("AuthorizeAll accepted an empty platform id")
	}
}

func TestCustomRequirements(t *testing.T) {
	links := &fakeLinks{linked: map[string]bool{"0xabc/corp-sso": true}}
	a, err := NewAuthorizer(links, map[string]string{"intranet": "corp-sso"})
	if err != nil {
		t.Fatalf("NewAuthorizer failed: %v", err)
	}
	if err := a.Authorize(context.Background(), "0xabc", "intranet", "page-1"); err != nil {
		t.Fatalf("Authorize denied a custom requirement: %v", err)
	}
	if err := a.Authorize(context.Background(), "0xabc", "youtube", "UC1"); err == nil {
		t.Fatalf("custom requirements leaked the defaults")
	}
}
