package route

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/paulmach/orb"
)

// Cached serves repeated requests from memory. Failures are not cached.
type Cached struct {
	next  Router
	cache *lru.Cache[uint64, orb.LineString]
}

func NewCached(next Router, size int) (*Cached, error) {
	c, err := lru.New[uint64, orb.LineString](size)
	if err != nil {
		return nil, fmt.Errorf("route cache: %w", err)
	}
	return &Cached{next: next, cache: c}, nil
}

func (c *Cached) Route(ctx context.Context, req Request) (orb.LineString, error) {
	key, err := hashstructure.Hash(req, hashstructure.FormatV2, nil)
	if err != nil {
		return c.next.Route(ctx, req)
	}
	if ls, ok := c.cache.Get(key); ok {
		return ls.Clone(), nil
	}
	ls, err := c.next.Route(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, ls.Clone())
	return ls, nil
}

// Len is the number of cached routes.
func (c *Cached) Len() int {
	return c.cache.Len()
}
