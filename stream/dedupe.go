package stream

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gocache "github.com/patrickmn/go-cache"
)

// Deduper drops hints that were already delivered
type Deduper interface {
	// MarkSeen returns true the first time a hash is seen within the window
	MarkSeen(ctx context.Context, hash common.Hash) (bool, error)
}

// LocalDeduper keeps seen hashes in process memory
type LocalDeduper struct {
	cache *gocache.Cache
}

func NewLocalDeduper(window time.Duration) *LocalDeduper {
	return &LocalDeduper{
		cache: gocache.New(window, 2*window),
	}
}

func (d *LocalDeduper) MarkSeen(_ context.Context, hash common.Hash) (bool, error) {
	// Add fails if a non expired item exists
	err := d.cache.Add(hash.Hex(), struct{}{}, gocache.DefaultExpiration)
	return err == nil, nil
}
