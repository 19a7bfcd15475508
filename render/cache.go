// Package render serves per-chunk draw lists to a renderer, caching them
// between frames.
package render

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/milk9111/tilemap/chunks"
)

// Source is the part of the chunk store the cache reads.
type Source interface {
	ChunkView(key chunks.ChunkKey) (*chunks.ChunkView, bool)
	Revision(key chunks.ChunkKey) uint64
	DrainDirty() []chunks.ChunkKey
}

type Config struct {
	NumCounters int64
	MaxCost     int64
}

// DefaultConfig sizes the cache for a few thousand full chunks.
var DefaultConfig = Config{NumCounters: 100_000, MaxCost: 1 << 20}

// Cache holds draw lists keyed by chunk. Entries carry the chunk revision
// they were built from and are rebuilt when it no longer matches.
type Cache struct {
	views *ristretto.Cache[string, *chunks.ChunkView]

	hits   uint64
	misses uint64
}

func New(cfg Config) (*Cache, error) {
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = DefaultConfig.NumCounters
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = DefaultConfig.MaxCost
	}
	views, err := ristretto.NewCache(&ristretto.Config[string, *chunks.ChunkView]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{views: views}, nil
}

// View returns the draw list of one chunk. Missing chunks report false.
// The returned view is shared and must not be modified.
func (c *Cache) View(src Source, key chunks.ChunkKey) (*chunks.ChunkView, bool) {
	k := key.String()
	if v, ok := c.views.Get(k); ok && v.Rev == src.Revision(key) {
		c.hits++
		return v, true
	}
	c.misses++

	v, ok := src.ChunkView(key)
	if !ok {
		c.views.Del(k)
		return nil, false
	}
	c.views.Set(k, v, cost(v))
	return v, true
}

// Frame returns the draw lists of the present chunks among keys, in order.
func (c *Cache) Frame(src Source, keys []chunks.ChunkKey) []*chunks.ChunkView {
	out := make([]*chunks.ChunkView, 0, len(keys))
	for _, key := range keys {
		if v, ok := c.View(src, key); ok {
			out = append(out, v)
		}
	}
	return out
}

// Sync drains the store's dirty set, evicts those chunks and returns them.
func (c *Cache) Sync(src Source) []chunks.ChunkKey {
	dirty := src.DrainDirty()
	for _, key := range dirty {
		c.views.Del(key.String())
	}
	return dirty
}

// Invalidate drops every cached draw list.
func (c *Cache) Invalidate() {
	c.views.Clear()
}

// Stats returns the hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses uint64) { return c.hits, c.misses }

func (c *Cache) Close() {
	c.views.Close()
}

func cost(v *chunks.ChunkView) int64 {
	n := int64(1)
	for _, l := range v.Layers {
		n += int64(len(l.Tiles) + len(l.Decor))
	}
	return n
}
