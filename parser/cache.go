package parser

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/willibrandon/stlog/core"
)

// DefaultCacheSize bounds the number of distinct templates kept parsed.
const DefaultCacheSize = 10_000

var globalCache atomic.Pointer[lru.Cache[string, *MessageTemplate]]

func init() {
	cache, _ := lru.New[string, *MessageTemplate](DefaultCacheSize)
	globalCache.Store(cache)
}

// ParseCached parses a template, reusing the parsed form of templates seen
// before. Parsed templates are immutable, so sharing them is safe.
func ParseCached(template string) (*MessageTemplate, error) {
	cache := globalCache.Load()

	if cached, ok := cache.Get(template); ok {
		return cached, nil
	}

	parsed, err := Parse(template)
	if err != nil {
		return nil, err
	}

	cache.Add(template, parsed)
	return parsed, nil
}

// ConfigureCache replaces the global cache with an empty one of the given size.
// This should be called at application startup.
func ConfigureCache(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: cache size must be positive, got %d", core.ErrInvalidArgument, size)
	}
	cache, err := lru.New[string, *MessageTemplate](size)
	if err != nil {
		return err
	}
	globalCache.Store(cache)
	return nil
}

// ClearCache clears the template cache (useful for tests).
func ClearCache() {
	globalCache.Load().Purge()
}

// CacheLen returns the number of cached templates.
func CacheLen() int {
	return globalCache.Load().Len()
}
