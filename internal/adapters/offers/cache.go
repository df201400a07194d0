package offers

import (
	"sync"
)

// TitleCache stores product titles keyed by marketplace and ASIN
type TitleCache interface {
	Get(key string) (string, bool)
	Set(key, title string)
}

// MemoryCache is an in-process TitleCache
type MemoryCache struct {
	mu     sync.RWMutex
	titles map[string]string
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		titles: make(map[string]string),
	}
}

// Get looks up a title
func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	title, found := c.titles[key]
	return title, found
}

// Set stores a title
func (c *MemoryCache) Set(key, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.titles[key] = title
}

// Clear drops every entry
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.titles = make(map[string]string)
}

// Size returns the number of cached titles
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.titles)
}
