// Package verifycache memoizes verification verdicts on the consumer side.
//
// Caching lives strictly here, never inside the verification engine: a
// verdict must stay a pure function of its public inputs, and a cache hit is
// caller-local state. Entries are last-write-wins per locator with a fixed
// freshness window; no cross-process coordination.
package verifycache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/provenir/provenir/provenance"
)

// DefaultTTL is the reference deployment's freshness window.
const DefaultTTL = 5 * time.Minute

const defaultMaxEntries = 4096

// Cache memoizes verdicts keyed by resource locator.
type Cache struct {
	lru *expirable.LRU[string, *provenance.Verdict]
}

// New builds a cache with the given freshness window; ttl <= 0 selects
// DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{lru: expirable.NewLRU[string, *provenance.Verdict](defaultMaxEntries, nil, ttl)}
}

// Get returns the fresh verdict for locator, if any.
func (c *Cache) Get(locator string) (*provenance.Verdict, bool) {
	return c.lru.Get(locator)
}

// Put stores a verdict, replacing any previous one for the locator.
func (c *Cache) Put(locator string, v *provenance.Verdict) {
	c.lru.Add(locator, v)
}
