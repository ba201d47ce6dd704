package asset

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore serves GetByID from an LRU cache. Records are never updated
// after insert, so cached entries cannot go stale.
type CachedStore struct {
	Store
	records *lru.Cache[int64, Asset]
}

// NewCachedStore wraps store with a cache of up to size records.
func NewCachedStore(store Store, size int) (*CachedStore, error) {
	records, err := lru.New[int64, Asset](size)
	if err != nil {
		return nil, fmt.Errorf("create record cache: %w", err)
	}
	return &CachedStore{Store: store, records: records}, nil
}

func (c *CachedStore) Create(ctx context.Context, in NewAsset) (*Asset, error) {
	a, err := c.Store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	c.records.Add(a.ID, *a)
	return a, nil
}

func (c *CachedStore) GetByID(ctx context.Context, id int64) (*Asset, error) {
	if a, ok := c.records.Get(id); ok {
		return &a, nil
	}
	a, err := c.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.records.Add(id, *a)
	return a, nil
}
