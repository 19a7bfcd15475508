package render

import (
	"testing"

	"github.com/milk9111/tilemap/chunks"
)

func newStore(t *testing.T) *chunks.Store {
	t.Helper()
	s, err := chunks.NewStore(chunks.Geometry{TileSize: 16, ChunkSize: 8})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestViewTracksRevisions(t *testing.T) {
	s := newStore(t)
	c := newCache(t)
	key := chunks.ChunkKey{}

	s.AddTile(chunks.TilePos{X: 1, Y: 1}, "0", chunks.Asset{Sheet: "grass"}, false)
	v, ok := c.View(s, key)
	if !ok || len(v.Layers) != 1 || len(v.Layers[0].Tiles) != 1 {
		t.Fatalf("first view = %+v, %v", v, ok)
	}
	c.views.Wait()

	if again, _ := c.View(s, key); again != v {
		t.Fatalf("unchanged chunk was rebuilt")
	}
	if hits, _ := c.Stats(); hits != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}

	// no Sync: the revision check alone must catch the change
	s.AddTile(chunks.TilePos{X: 2, Y: 1}, "0", chunks.Asset{Sheet: "grass"}, false)
	v, _ = c.View(s, key)
	if len(v.Layers[0].Tiles) != 2 {
		t.Fatalf("stale view served: %+v", v)
	}
}

func TestSyncDrainsDirty(t *testing.T) {
	s := newStore(t)
	c := newCache(t)
	s.AddTile(chunks.TilePos{X: 0, Y: 0}, "0", chunks.Asset{Sheet: "grass"}, false)
	s.AddTile(chunks.TilePos{X: -1, Y: 0}, "0", chunks.Asset{Sheet: "grass"}, false)

	dirty := c.Sync(s)
	if len(dirty) != 2 || dirty[0] != (chunks.ChunkKey{X: -1}) {
		t.Fatalf("Sync = %v", dirty)
	}
	if again := c.Sync(s); len(again) != 0 {
		t.Fatalf("dirty set not cleared: %v", again)
	}
}

func TestFrameSkipsMissingChunks(t *testing.T) {
	s := newStore(t)
	c := newCache(t)
	s.AddTile(chunks.TilePos{X: 0, Y: 0}, "0", chunks.Asset{Sheet: "grass"}, false)

	frame := c.Frame(s, []chunks.ChunkKey{{X: 0}, {X: 1}, {X: 2}})
	if len(frame) != 1 || frame[0].Key != (chunks.ChunkKey{}) {
		t.Fatalf("Frame = %+v", frame)
	}

	s.RemoveTile(chunks.TilePos{}, "0", false)
	s.Prune()
	c.Invalidate()
	if frame := c.Frame(s, []chunks.ChunkKey{{X: 0}}); len(frame) != 0 {
		t.Fatalf("pruned chunk still drawn: %+v", frame)
	}
}
