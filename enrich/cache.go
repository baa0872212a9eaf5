package enrich

import (
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"triage/core"
)

// Cache holds recent enrichment deltas so repeat rounds over the same value
// and tool selection skip the collaborator entirely. The upstream sources
// are rate limited, so re-enriching an unchanged indicator inside the TTL
// window only burns quota. Session-lifetime only; nothing is persisted.
type Cache struct {
	lru *expirable.LRU[string, core.IOCRecord]
}

// NewCache creates an enrichment cache with the given capacity and TTL
func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{
		lru: expirable.NewLRU[string, core.IOCRecord](size, nil, ttl),
	}
}

// cacheKey combines the indicator value with the sorted tool selection; a
// different tool set is a different enrichment result.
func cacheKey(value string, tools []string) string {
	sorted := append([]string(nil), tools...)
	sort.Strings(sorted)
	return value + "|" + strings.Join(sorted, ",")
}

// Get returns the cached delta for value under the given tool selection
func (c *Cache) Get(value string, tools []string) (core.IOCRecord, bool) {
	return c.lru.Get(cacheKey(value, tools))
}

// Put stores one enrichment delta
func (c *Cache) Put(delta core.IOCRecord, tools []string) {
	c.lru.Add(cacheKey(delta.Value, tools), delta)
}

// Len returns the number of live cache entries
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops all entries, used when the session is cleared
func (c *Cache) Purge() {
	c.lru.Purge()
}
