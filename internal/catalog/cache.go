// Package catalog holds the administrator's view of all known datasets.
package catalog

import (
	"sync"

	"github.com/ashureev/dashgenie/internal/domain"
)

// Cache is the in-memory dataset catalog. Writers replace the whole map at
// once; readers always see either the previous or the new catalog.
type Cache struct {
	mu        sync.RWMutex
	datasets  domain.Catalog
	ready     chan struct{}
	populated bool
	listeners []func()
}

// NewCache creates an empty, not-yet-ready cache.
func NewCache() *Cache {
	return &Cache{
		datasets: domain.Catalog{},
		ready:    make(chan struct{}),
	}
}

// Replace swaps in a new catalog. An empty catalog is ignored so a
// half-started platform cannot wipe a populated cache. It returns true if
// the catalog was replaced.
func (c *Cache) Replace(datasets domain.Catalog) bool {
	if len(datasets) == 0 {
		return false
	}
	next := datasets.Clone()

	c.mu.Lock()
	c.datasets = next
	var notify []func()
	if !c.populated {
		c.populated = true
		close(c.ready)
		notify, c.listeners = c.listeners, nil
	}
	c.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	return true
}

// Snapshot returns a copy of the current catalog.
func (c *Cache) Snapshot() domain.Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.datasets.Clone()
}

// IDs returns the set of dataset ids in the current catalog.
func (c *Cache) IDs() map[int]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.datasets.IDs()
}

// Len returns the number of cached datasets.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.datasets)
}

// Ready is closed once the cache has been populated for the first time.
func (c *Cache) Ready() <-chan struct{} {
	return c.ready
}

// IsReady reports whether the cache has been populated.
func (c *Cache) IsReady() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// OnReady registers fn to run when the cache first becomes ready. If it is
// already ready, fn runs immediately.
func (c *Cache) OnReady(fn func()) {
	c.mu.Lock()
	if !c.populated {
		c.listeners = append(c.listeners, fn)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	fn()
}
