package registry

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachingClient decorates a Client with an LRU cache over Search and
// Versions results, scoped to one driver invocation: a registry is never
// polled twice for the same query within a single resolve. Fetch is never
// cached — archive bytes are large and already land in the content-
// addressed source store, which is the right place to avoid refetching.
type CachingClient struct {
	inner    Client
	versions *lru.Cache[string, []string]
	search   *lru.Cache[string, []SearchResult]
}

// NewCachingClient wraps inner with an LRU cache sized for size distinct
// queries per method.
func NewCachingClient(inner Client, size int) (*CachingClient, error) {
	if size <= 0 {
		size = 256
	}
	versions, err := lru.New[string, []string](size)
	if err != nil {
		return nil, err
	}
	search, err := lru.New[string, []SearchResult](size)
	if err != nil {
		return nil, err
	}
	return &CachingClient{inner: inner, versions: versions, search: search}, nil
}

func (c *CachingClient) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	key := fmt.Sprintf("%s\x00%d", query, limit)
	if v, ok := c.search.Get(key); ok {
		return v, nil
	}
	v, err := c.inner.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	c.search.Add(key, v)
	return v, nil
}

func (c *CachingClient) Versions(ctx context.Context, name string) ([]string, error) {
	if v, ok := c.versions.Get(name); ok {
		return v, nil
	}
	v, err := c.inner.Versions(ctx, name)
	if err != nil {
		return nil, err
	}
	c.versions.Add(name, v)
	return v, nil
}

func (c *CachingClient) Fetch(ctx context.Context, name, version string) ([]byte, error) {
	return c.inner.Fetch(ctx, name, version)
}
