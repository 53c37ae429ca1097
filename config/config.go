// Package config loads and validates the local configuration file. The
// result is an explicit value handed to constructors; nothing reads ambient
// global state, so tests supply isolated configurations per case.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"

	"github.com/provenir/provenir/digest"
	"github.com/provenir/provenir/storage"
	"github.com/provenir/provenir/storage/providerreg"
)

// Error reports a missing or malformed setting. It is raised before any
// network call is attempted.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config: missing required setting %q", e.Field)
}

// Config is the full local configuration.
type Config struct {
	// APIBaseURL and APIKey address the hosted binding-proxy API.
	APIBaseURL string `json:"api_base_url,omitempty"`
	APIKey     string `json:"api_key,omitempty"`

	// PrivateKey is a hex secp256k1 key or a path to a keystore JSON file.
	PrivateKey string `json:"private_key,omitempty"`

	// RPCURL and RegistryAddress locate the registry contract.
	RPCURL          string `json:"rpc_url,omitempty"`
	RegistryAddress string `json:"registry_address,omitempty"`

	// HashAlgorithm selects the content digest (default sha256). Both sides
	// of a deployment must agree on it.
	HashAlgorithm string `json:"hash_algorithm,omitempty"`

	// Provider names the storage variant; ProviderSettings carries that
	// variant's credentials (pinata_jwt, web3_token, project_id/
	// project_secret, local_api_url, daemon_addr, root).
	Provider         string            `json:"provider,omitempty"`
	ProviderSettings map[string]string `json:"provider_settings,omitempty"`
}

// DefaultPath is the per-user config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".provenir", "config.json"), nil
}

// LoadFile reads and decodes a config file.
func LoadFile(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config file with owner-only permissions; it holds
// credentials.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o600)
}

// ValidateChain checks the settings every chain interaction needs.
func (c Config) ValidateChain() error {
	if c.RPCURL == "" {
		return &Error{Field: "rpc_url"}
	}
	if c.RegistryAddress == "" {
		return &Error{Field: "registry_address"}
	}
	if !common.IsHexAddress(c.RegistryAddress) {
		return &Error{Field: "registry_address", Message: "not a hex contract address"}
	}
	return nil
}

// ValidateUpload checks everything registration needs, signing key included.
func (c Config) ValidateUpload() error {
	if err := c.ValidateChain(); err != nil {
		return err
	}
	if c.PrivateKey == "" {
		return &Error{Field: "private_key"}
	}
	if c.Provider == "" {
		return &Error{Field: "provider"}
	}
	return nil
}

// ValidateVerify checks everything verification needs (no signing key).
func (c Config) ValidateVerify() error {
	if err := c.ValidateChain(); err != nil {
		return err
	}
	if c.Provider == "" {
		return &Error{Field: "provider"}
	}
	return nil
}

// ContractAddress returns the parsed registry address. ValidateChain must
// have passed.
func (c Config) ContractAddress() common.Address {
	return common.HexToAddress(c.RegistryAddress)
}

// Engine constructs the configured digest engine.
func (c Config) Engine() (digest.Engine, error) {
	e, err := digest.NewEngine(c.HashAlgorithm)
	if err != nil {
		return digest.Engine{}, &Error{Field: "hash_algorithm", Message: err.Error()}
	}
	return e, nil
}

// OpenProvider constructs the configured storage variant, selected once
// here and injected everywhere else.
func (c Config) OpenProvider() (storage.Provider, error) {
	if c.Provider == "" {
		return nil, &Error{Field: "provider"}
	}
	p, err := providerreg.Open(c.Provider, c.ProviderSettings)
	if err != nil {
		return nil, &Error{Field: "provider", Message: err.Error()}
	}
	return p, nil
}
