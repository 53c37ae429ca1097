package providerreg

import (
	"errors"
	"time"

	"github.com/provenir/provenir/storage"
	"github.com/provenir/provenir/storage/grpcstore"
	"github.com/provenir/provenir/storage/infura"
	"github.com/provenir/provenir/storage/kubo"
	"github.com/provenir/provenir/storage/localfs"
	"github.com/provenir/provenir/storage/pinata"
	"github.com/provenir/provenir/storage/web3store"
)

func init() {
	MustRegister("pinata", func(s map[string]string) (storage.Provider, error) {
		return pinata.New(pinata.Options{
			JWT:        s["pinata_jwt"],
			APIURL:     s["api_url"],
			GatewayURL: s["gateway_url"],
		})
	})
	MustRegister("web3store", func(s map[string]string) (storage.Provider, error) {
		return web3store.New(web3store.Options{
			Token:      s["web3_token"],
			APIURL:     s["api_url"],
			GatewayURL: s["gateway_url"],
		})
	})
	MustRegister("infura", func(s map[string]string) (storage.Provider, error) {
		return infura.New(infura.Options{
			APIURL:        s["api_url"],
			ProjectID:     s["project_id"],
			ProjectSecret: s["project_secret"],
		})
	})
	MustRegister("kubo", func(s map[string]string) (storage.Provider, error) {
		return kubo.New(kubo.Options{APIURL: s["local_api_url"]})
	})
	MustRegister("localfs", func(s map[string]string) (storage.Provider, error) {
		return localfs.New(s["root"])
	})
	MustRegister("grpcstore", func(s map[string]string) (storage.Provider, error) {
		target := s["daemon_addr"]
		if target == "" {
			return nil, errors.New("grpcstore: daemon_addr is required")
		}
		return grpcstore.Dial(target, grpcstore.DialOptions{Timeout: 30 * time.Second})
	})
}
