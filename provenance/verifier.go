package provenance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/provenir/provenir/digest"
	"github.com/provenir/provenir/keys"
	"github.com/provenir/provenir/manifest"
	"github.com/provenir/provenir/registry"
	"github.com/provenir/provenir/storage"
)

// Status is the terminal outcome of a verification run.
type Status string

const (
	StatusVerified         Status = "verified"
	StatusHashMismatch     Status = "hash_mismatch"
	StatusSignatureInvalid Status = "signature_invalid"
	StatusNotRegistered    Status = "not_registered"
	StatusCreatorMismatch  Status = "creator_mismatch"
)

// Verdict is a complete, explainable verification outcome. It is a pure
// function of (content bytes or nothing, manifest, registry state): two
// independent parties computing it from the same public inputs agree.
// Negative statuses are first-class results, never errors.
type Verdict struct {
	Status         Status
	RecomputedHash digest.Digest // zero when no content was supplied
	Manifest       *manifest.Manifest
	Entry          *registry.Entry // nil unless the chain lookup ran and found one
	Reasons        []string
}

// Verified reports whether every check passed.
func (v *Verdict) Verified() bool { return v.Status == StatusVerified }

// Verifier replays the registration checks from public data alone:
// fetch -> hash recheck -> signature check -> chain lookup -> creator
// consistency.
type Verifier struct {
	engine   digest.Engine
	provider storage.Provider
	registry registry.Client
}

type VerifierOptions struct {
	Engine   digest.Engine
	Provider storage.Provider
	Registry registry.Client
}

func NewVerifier(opts VerifierOptions) (*Verifier, error) {
	if opts.Provider == nil {
		return nil, errors.New("provenance: verifier needs a storage provider")
	}
	if opts.Registry == nil {
		return nil, errors.New("provenance: verifier needs a registry client")
	}
	return &Verifier{engine: opts.Engine, provider: opts.Provider, registry: opts.Registry}, nil
}

// VerifyURI fetches the manifest from its locator and runs the checks.
// content may be nil when only the manifest and registry are being checked.
// Fetch and chain failures are errors (the engine could not finish), never
// negative verdicts; a missing manifest is reported distinctly from a
// missing registry entry.
func (v *Verifier) VerifyURI(ctx context.Context, manifestURI string, content Source) (*Verdict, error) {
	doc, err := v.provider.Fetch(ctx, manifestURI)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("provenance: manifest %s not found in storage: %w", manifestURI, err)
		}
		return nil, fmt.Errorf("provenance: fetching manifest %s: %w", manifestURI, err)
	}
	m, err := manifest.Parse(doc)
	if err != nil {
		return nil, err
	}
	return v.VerifyManifest(ctx, m, content)
}

// VerifyManifest runs the checks against an already-parsed manifest.
func (v *Verifier) VerifyManifest(ctx context.Context, m *manifest.Manifest, content Source) (*Verdict, error) {
	verdict := &Verdict{Manifest: m}

	// Hash recheck, only when content is available locally.
	if content != nil {
		rc, err := content.Open()
		if err != nil {
			return nil, fmt.Errorf("provenance: opening content: %w", err)
		}
		recomputed, err := v.engine.Sum(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		verdict.RecomputedHash = recomputed
		if recomputed != m.ContentHash {
			verdict.Status = StatusHashMismatch
			verdict.Reasons = append(verdict.Reasons, fmt.Sprintf(
				"content hashes to %s but manifest declares %s", recomputed, m.ContentHash))
			return verdict, nil
		}
	}

	// Signature check over canonical bytes recomputed from declared fields.
	signer, err := m.RecoverSigner()
	if err != nil {
		var serr *keys.SignatureError
		if errors.As(err, &serr) {
			verdict.Status = StatusSignatureInvalid
			verdict.Reasons = append(verdict.Reasons, "signature is structurally invalid: "+serr.Reason)
			return verdict, nil
		}
		return nil, err
	}
	if signer != m.CreatorAddress {
		verdict.Status = StatusSignatureInvalid
		verdict.Reasons = append(verdict.Reasons, fmt.Sprintf(
			"signature recovers to %s, manifest claims creator %s",
			strings.ToLower(signer.Hex()), strings.ToLower(m.CreatorAddress.Hex())))
		return verdict, nil
	}

	// Chain lookup. Absence is a distinct non-error outcome: a well-formed,
	// self-consistent manifest may simply never have been anchored.
	entry, found, err := v.registry.Resolve(ctx, m.ContentHash)
	if err != nil {
		return nil, err
	}
	if !found {
		verdict.Status = StatusNotRegistered
		verdict.Reasons = append(verdict.Reasons, fmt.Sprintf(
			"no registry entry for %s on the configured chain", m.ContentHash))
		return verdict, nil
	}
	verdict.Entry = entry

	// Creator consistency: valid signature, but the on-chain registrant is
	// not the party who signed this manifest. Kept distinct from
	// signature_invalid; the remediation differs.
	if entry.CreatorAddress != signer {
		verdict.Status = StatusCreatorMismatch
		verdict.Reasons = append(verdict.Reasons, fmt.Sprintf(
			"registry entry was created by %s, manifest is signed by %s",
			strings.ToLower(entry.CreatorAddress.Hex()), strings.ToLower(signer.Hex())))
		return verdict, nil
	}

	verdict.Status = StatusVerified
	return verdict, nil
}

// VerifyContent resolves the manifest for local content through the registry
// (hash -> entry -> manifestUri) and runs the checks against it.
func (v *Verifier) VerifyContent(ctx context.Context, content Source) (*Verdict, error) {
	rc, err := content.Open()
	if err != nil {
		return nil, fmt.Errorf("provenance: opening content: %w", err)
	}
	hash, err := v.engine.Sum(rc)
	rc.Close()
	if err != nil {
		return nil, err
	}

	entry, found, err := v.registry.Resolve(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !found {
		return &Verdict{
			Status:         StatusNotRegistered,
			RecomputedHash: hash,
			Reasons: []string{fmt.Sprintf(
				"no registry entry for %s on the configured chain", hash)},
		}, nil
	}
	return v.VerifyURI(ctx, entry.ManifestURI, content)
}

// VerifyBatch verifies many manifest locators, one verdict or error per
// input. Negative verdicts never abort the batch.
func (v *Verifier) VerifyBatch(ctx context.Context, manifestURIs []string) ([]*Verdict, []error) {
	verdicts := make([]*Verdict, len(manifestURIs))
	errs := make([]error, len(manifestURIs))
	for i, uri := range manifestURIs {
		verdicts[i], errs[i] = v.VerifyURI(ctx, uri, nil)
	}
	return verdicts, errs
}
