package fetch

import (
	"sync"
)

// Cache is a thread-safe store of resolved values keyed by identity.
// One Cache may be shared by every bucket of a scheduler for its whole
// lifetime, letting the engine skip re-executing operations for
// identities it has already resolved.
type Cache struct {
	kv map[string]any
	mu sync.RWMutex
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{kv: make(map[string]any)}
}

// Get retrieves the cached value for identity with read lock protection.
func (c *Cache) Get(identity string) (val any, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok = c.kv[identity]
	return
}

// Set stores a resolved value for identity with write lock protection.
func (c *Cache) Set(identity string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kv[identity] = val
}

// Delete removes an identity from the cache.
// If the identity does not exist, this is a no-op.
func (c *Cache) Delete(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.kv, identity)
}

// Len returns the number of cached identities.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.kv)
}

// Range iterates over all cached entries with read lock protection.
// If f returns false, iteration stops early. The function f should not
// modify the cache.
func (c *Cache) Range(f func(identity string, val any) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, v := range c.kv {
		if !f(k, v) {
			return
		}
	}
}
