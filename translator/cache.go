package translator

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache remembers validated SQL per (table, provider, question).
type Cache struct {
	entries *lru.Cache[string, Translation]
}

// NewCache creates a cache holding up to size translations.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = 256
	}
	entries, _ := lru.New[string, Translation](size)
	return &Cache{entries: entries}
}

func cacheKey(table, provider, question string) string {
	return table + "\x00" + provider + "\x00" + strings.TrimSpace(question)
}

// Get returns a cached translation.
func (c *Cache) Get(table, provider, question string) (Translation, bool) {
	if c == nil {
		return Translation{}, false
	}
	return c.entries.Get(cacheKey(table, provider, question))
}

// Put stores a validated translation.
func (c *Cache) Put(table, provider, question string, t Translation) {
	if c == nil {
		return
	}
	c.entries.Add(cacheKey(table, provider, question), t)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
