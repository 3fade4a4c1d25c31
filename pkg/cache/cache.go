// Package cache hosts the CacheFactory extension point: spec.md §1 lists
// "the Cache storage implementations (only their factory contract)" as an
// out-of-scope external collaborator, so this package stops at the
// factory contract itself (GetCache(url) Cache) rather than shipping a
// production cache backend. Two minimal backends are wired in anyway,
// named after Dubbo's own real cache extensions ("lru", and a "noop"
// pass-through standing in for its "threadlocal" backend's semantics of
// never sharing state across callers), so the CacheFactory extension
// point has real implementations to exercise the registry through.
package cache

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/telepresenceio/go-extension/pkg/extension"
)

// Cache is the minimal storage contract a CacheFactory produces. The
// concrete backend is this module's own concern; a production deployment
// is expected to swap in a real distributed cache behind the same
// contract, which is exactly what spec.md §1 excludes from this module's
// scope.
type Cache interface {
	Get(key string) (interface{}, bool)
	Put(key string, value interface{})
	Delete(key string)
}

// CacheFactory materializes a Cache from URL parameters, the same
// URL-driven construction pattern pkg/threadpool's ThreadPoolFactory uses.
type CacheFactory interface {
	GetCache(u *extension.URL) (Cache, error)
}

func init() {
	extension.Extensible[CacheFactory]("lru")
}

func register(name, classPath string, ctor func() CacheFactory) {
	extension.RegisterClass(classPath, func(b extension.Builder) (interface{}, error) {
		return ctor(), nil
	})
	reg := extension.For[CacheFactory]()
	_ = reg.AddExtension(name, classPath)
}

// LRUFactory produces a bounded least-recently-used Cache sized by the
// URL's "cache.size" parameter (default 1000).
type LRUFactory struct{}

func init() {
	register("lru", "github.com/telepresenceio/go-extension/pkg/cache.LRUFactory",
		func() CacheFactory { return LRUFactory{} })
}

// GetCache implements CacheFactory.
func (LRUFactory) GetCache(u *extension.URL) (Cache, error) {
	size := 1000
	if v, ok := u.GetParameter("cache.size"); ok && v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			size = n
		}
	}
	return newLRU(size), nil
}

// lru is a bounded, mutex-guarded least-recently-used Cache: a
// container/list for recency ordering plus a map for O(1) lookup.
// Standard library only: no pack dependency offers an LRU cache more
// directly than container/list, and this module's scope stops at the
// factory contract (see the package doc comment) rather than a
// production-grade concurrent cache implementation.
type lru struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type lruEntry struct {
	key   string
	value interface{}
}

func newLRU(capacity int) *lru {
	return &lru{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get implements Cache.
func (c *lru) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

// Put implements Cache.
func (c *lru) Put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).value = value
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&lruEntry{key: key, value: value})
	c.items[key] = el
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
		}
	}
}

// Delete implements Cache.
func (c *lru) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// NoopFactory produces a Cache that never retains anything, standing in
// for a per-caller/"threadlocal"-scoped cache that is never actually
// shared: every Get misses, every Put is discarded.
type NoopFactory struct{}

func init() {
	register("noop", "github.com/telepresenceio/go-extension/pkg/cache.NoopFactory",
		func() CacheFactory { return NoopFactory{} })
}

// GetCache implements CacheFactory.
func (NoopFactory) GetCache(u *extension.URL) (Cache, error) {
	return noopCache{}, nil
}

type noopCache struct{}

func (noopCache) Get(string) (interface{}, bool) { return nil, false }
func (noopCache) Put(string, interface{})        {}
func (noopCache) Delete(string)                  {}
