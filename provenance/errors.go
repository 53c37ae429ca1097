package provenance

import (
	"errors"

	"github.com/provenir/provenir/binding"
	"github.com/provenir/provenir/config"
	"github.com/provenir/provenir/keys"
	"github.com/provenir/provenir/registry"
	"github.com/provenir/provenir/storage"
)

// Stable error kinds for programmatic handling. Callers branch on these,
// never on error strings.
const (
	KindConfig        = "config"
	KindStorageUpload = "storage_upload"
	KindSignature     = "signature"
	KindChain         = "chain"
	KindAuthorization = "authorization"
	KindInternal      = "internal"
)

// ErrorKind classifies any error from this module into its stable kind.
// StepError wrappers are unwrapped first, so the kind reflects the root
// failure while the step context stays available via errors.As.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var (
		cfgErr   *config.Error
		upErr    *storage.UploadError
		sigErr   *keys.SignatureError
		chainErr *registry.ChainError
		authErr  *binding.AuthorizationError
	)
	switch {
	case errors.As(err, &cfgErr):
		return KindConfig
	case errors.As(err, &upErr):
		return KindStorageUpload
	case errors.As(err, &sigErr):
		return KindSignature
	case errors.As(err, &chainErr):
		return KindChain
	case errors.As(err, &authErr):
		return KindAuthorization
	default:
		return KindInternal
	}
}
