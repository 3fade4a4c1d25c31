package cache

import (
	"testing"

	"github.com/telepresenceio/go-extension/pkg/extension"
)

func TestLRUEvictsOldestBeyondCapacity(t *testing.T) {
	f, err := extension.For[CacheFactory]().Get("lru")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u := extension.NewURL("goext", "localhost", 0, map[string]string{"cache.size": "2"})
	c, err := f.GetCache(u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3) // evicts "a", the least recently touched

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to have been evicted")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("expected b=2 to survive, got %v %v", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("expected c=3 to survive, got %v %v", v, ok)
	}
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	f, _ := extension.For[CacheFactory]().Get("lru")
	u := extension.NewURL("goext", "localhost", 0, map[string]string{"cache.size": "2"})
	c, _ := f.GetCache(u)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")       // touch a, making b the least recently used
	c.Put("c", 3) // evicts "b", not "a"

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to have been evicted after a was touched")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to survive since it was touched most recently")
	}
}

func TestLRUDelete(t *testing.T) {
	f, _ := extension.For[CacheFactory]().Get("lru")
	c, _ := f.GetCache(extension.NewURL("goext", "localhost", 0, nil))
	c.Put("a", 1)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to be gone after Delete")
	}
}

func TestNoopCacheNeverRetains(t *testing.T) {
	f, err := extension.For[CacheFactory]().Get("noop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := f.GetCache(extension.NewURL("goext", "localhost", 0, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Put("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected the noop cache to never retain a value")
	}
}

func TestDefaultCacheFactoryIsLRU(t *testing.T) {
	f, err := extension.For[CacheFactory]().GetDefault()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.(LRUFactory); !ok {
		t.Fatalf("expected the default cache factory to be LRUFactory, got %T", f)
	}
}
