// Package binding gates the association of third-party platform identifiers
// to registered content. The core never verifies identity itself; it
// consumes a yes/no "has this identity linked that provider" capability and
// decides whether a binding may be created.
package binding

import (
	"context"
	"errors"
	"fmt"
)

// Binding associates a platform identifier with a registered content item.
// (platform, platformID) is unique; creation is gated by Authorizer.
type Binding struct {
	Platform   string `json:"platform"`
	PlatformID string `json:"platformId"`
	ContentID  string `json:"contentId"`
}

// IdentityLinks answers whether an identity has linked a given provider.
// Implementations typically call the session/auth service; tests inject a
// map.
type IdentityLinks interface {
	Linked(ctx context.Context, identity, provider string) (bool, error)
}

// AuthorizationError is a denial. MissingProvider names the identity
// provider the caller must link before retrying, so UIs can point the user
// at the right flow.
type AuthorizationError struct {
	Platform        string
	MissingProvider string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("binding: platform %q requires linked provider %q", e.Platform, e.MissingProvider)
}

// DefaultRequirements maps bindable platforms to the identity provider whose
// proof is required. The mapping is fixed at construction; new platforms are
// configuration, not code changes in the pipeline.
var DefaultRequirements = map[string]string{
	"youtube":   "google",
	"github":    "github",
	"twitter":   "twitter",
	"instagram": "facebook",
}

// Authorizer decides whether bindings may be created.
type Authorizer struct {
	links        IdentityLinks
	requirements map[string]string
}

// NewAuthorizer builds an authorizer. A nil requirements map selects
// DefaultRequirements.
func NewAuthorizer(links IdentityLinks, requirements map[string]string) (*Authorizer, error) {
	if links == nil {
		return nil, errors.New("binding: identity links capability is required")
	}
	if requirements == nil {
		requirements = DefaultRequirements
	}
	return &Authorizer{links: links, requirements: requirements}, nil
}

// requiredProvider returns the provider proof a platform demands.
func (a *Authorizer) requiredProvider(platform string) (string, error) {
	p, ok := a.requirements[platform]
	if !ok {
		return "", fmt.Errorf("binding: unknown platform %q", platform)
	}
	return p, nil
}

// Authorize allows or denies a single binding. A denial is always an
// *AuthorizationError carrying the missing provider.
func (a *Authorizer) Authorize(ctx context.Context, identity, platform, platformID string) error {
	if identity == "" {
		return errors.New("binding: empty caller identity")
	}
	if platformID == "" {
		return errors.New("binding: empty platform id")
	}
	provider, err := a.requiredProvider(platform)
	if err != nil {
		return err
	}
	linked, err := a.links.Linked(ctx, identity, provider)
	if err != nil {
		return fmt.Errorf("binding: checking provider link: %w", err)
	}
	if !linked {
		return &AuthorizationError{Platform: platform, MissingProvider: provider}
	}
	return nil
}

// AuthorizeAll gates a batch. The full set of required proofs is computed
// and checked up front, before any caller-side binding is created: partial
// authorization must not produce partial bindings.
func (a *Authorizer) AuthorizeAll(ctx context.Context, identity string, bindings []Binding) error {
	if len(bindings) == 0 {
		return errors.New("binding: empty batch")
	}

	// Collect the distinct providers first, in request order, so one
	// missing link denies the whole batch deterministically before any
	// binding is created.
	type requirement struct{ provider, platform string }
	var required []requirement
	seen := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		if b.PlatformID == "" {
			return fmt.Errorf("binding: empty platform id for platform %q", b.Platform)
		}
		provider, err := a.requiredProvider(b.Platform)
		if err != nil {
			return err
		}
		if !seen[provider] {
			seen[provider] = true
			required = append(required, requirement{provider: provider, platform: b.Platform})
		}
	}

	for _, req := range required {
		linked, err := a.links.Linked(ctx, identity, req.provider)
		if err != nil {
			return fmt.Errorf("binding: checking provider link: %w", err)
		}
		if !linked {
			return &AuthorizationError{Platform: req.platform, MissingProvider: req.provider}
		}
	}
	return nil
}
