package keys

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
)

// PassphraseFunc supplies the passphrase for an encrypted keystore file.
// It is only invoked when the key material actually needs one.
type PassphraseFunc func() (string, error)

// LoadPrivateKey resolves signing key material from either a raw hex private
// key or a path to a geth keystore JSON file. Hex is tried first; anything
// that is not 32 bytes of hex is treated as a file path.
func LoadPrivateKey(keyRef string, passphrase PassphraseFunc) (*ecdsa.PrivateKey, error) {
	if keyRef == "" {
		return nil, errors.New("keys: empty private key reference")
	}
	if key, err := crypto.HexToECDSA(strings.TrimPrefix(keyRef, "0x")); err == nil {
		return key, nil
	}
	b, err := os.ReadFile(keyRef)
	if err != nil {
		return nil, fmt.Errorf("keys: %q is neither a hex key nor a readable keystore file: %w", keyRef, err)
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("keys: %q is not a keystore JSON file", keyRef)
	}
	if passphrase == nil {
		return nil, errors.New("keys: keystore file requires a passphrase")
	}
	pass, err := passphrase()
	if err != nil {
		return nil, err
	}
	unlocked, err := keystore.DecryptKey(b, pass)
	if err != nil {
		return nil, fmt.Errorf("keys: decrypting keystore %q: %w", keyRef, err)
	}
	return unlocked.PrivateKey, nil
}
