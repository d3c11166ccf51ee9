package pricefeed

import (
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"retroswap/internal/model"
)

// DefaultCacheSize bounds the number of distinct (ids, currency) keys.
const DefaultCacheSize = 256

// Entry is a cached upstream payload and its capture time.
type Entry struct {
	Data      model.PriceTable
	Timestamp time.Time
}

// Cache is a bounded, recency-evicting price cache. Entries are replaced
// wholesale; the last writer wins.
type Cache struct {
	entries *lru.Cache[string, Entry]
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a cache holding up to size keys, each fresh for ttl.
func NewCache(size int, ttl time.Duration, now func() time.Time) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if now == nil {
		now = time.Now
	}
	entries, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("create price cache: %w", err)
	}
	return &Cache{entries: entries, ttl: ttl, now: now}, nil
}

// Get returns the entry for key and whether it is still fresh.
func (c *Cache) Get(key string) (Entry, bool, bool) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return Entry{}, false, false
	}
	return entry, c.now().Sub(entry.Timestamp) < c.ttl, true
}

// Put stores data under key stamped with the current time.
func (c *Cache) Put(key string, data model.PriceTable) {
	c.entries.Add(key, Entry{Data: data, Timestamp: c.now()})
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// NormalizeIDs lowercases, trims, dedupes and sorts coin ids.
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SplitIDs parses a comma separated id list.
func SplitIDs(raw string) []string {
	return NormalizeIDs(strings.Split(raw, ","))
}

// CacheKey is the canonical key for an id set and currency.
func CacheKey(ids []string, currency string) string {
	return strings.Join(NormalizeIDs(ids), ",") + "-" + strings.ToLower(strings.TrimSpace(currency))
}
