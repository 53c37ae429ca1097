// Package providerreg maps storage variant names to constructors so the
// variant is chosen once, from configuration, at construction time. New
// backends are new registrations, not new conditionals in the pipeline.
package providerreg

import (
	"fmt"
	"sort"
	"sync"

	"github.com/provenir/provenir/storage"
)

// Factory builds a provider from backend-specific settings. Keys mirror the
// config file field names for that variant.
type Factory func(settings map[string]string) (storage.Provider, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds a named variant. Duplicate names are a programming error.
func Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("providerreg: empty provider name")
	}
	if f == nil {
		return fmt.Errorf("providerreg: nil factory for %q", name)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[name]; dup {
		return fmt.Errorf("providerreg: provider %q already registered", name)
	}
	factories[name] = f
	return nil
}

// MustRegister panics on registration failure; for use from init.
func MustRegister(name string, f Factory) {
	if err := Register(name, f); err != nil {
		panic(err)
	}
}

// Open constructs the named variant.
func Open(name string, settings map[string]string) (storage.Provider, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("providerreg: unknown provider %q (have %v)", name, Names())
	}
	return f(settings)
}

// Names lists registered variants in stable order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
