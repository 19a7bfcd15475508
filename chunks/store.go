package chunks

import (
	"github.com/milk9111/tilemap/kdtree"
)

// Store is the live, mutable tile plane. It is owned by a single goroutine;
// background work reads a Snapshot instead.
type Store struct {
	grid

	dirty map[ChunkKey]struct{}
	revs  map[ChunkKey]uint64
	clock uint64

	index      map[Layer]*kdtree.Tree[Placed]
	indexStale bool
}

func NewStore(geo Geometry) (*Store, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		grid:  newGrid(geo),
		dirty: make(map[ChunkKey]struct{}),
		revs:  make(map[ChunkKey]uint64),
	}, nil
}

func (s *Store) markDirty(key ChunkKey) {
	s.clock++
	s.revs[key] = s.clock
	s.dirty[key] = struct{}{}
}

// Revision returns a value that changes whenever the chunk is marked dirty.
// Chunks never touched report zero.
func (s *Store) Revision(key ChunkKey) uint64 { return s.revs[key] }

// DrainDirty returns the chunks changed since the last drain and clears the
// set.
func (s *Store) DrainDirty() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.dirty))
	for key := range s.dirty {
		keys = append(keys, key)
	}
	clear(s.dirty)
	sortKeys(keys)
	return keys
}

func (s *Store) chunkFor(key ChunkKey) *Chunk {
	c, ok := s.chunks[key]
	if !ok {
		c = newChunk()
		s.chunks[key] = c
	}
	return c
}

// AddTile paints asset at pos. Painting an identical record again does
// nothing; a different record at the same spot is replaced in place.
func (s *Store) AddTile(pos TilePos, layer Layer, asset Asset, autotile bool) TilePos {
	key := s.geo.ChunkOf(pos)
	rx, ry := s.geo.RelOf(pos)
	t := Tile{
		X:     rx,
		Y:     ry,
		Sheet: s.refs.ID(asset.Sheet),
		Row:   asset.Row,
		Col:   asset.Col,
		Auto:  autotile,
	}

	c := s.chunkFor(key)
	tiles := c.Tiles[layer]
	i, found := findTile(tiles, rx, ry)
	switch {
	case found && tiles[i].sameAs(t):
		return pos
	case found:
		t.Mask = tiles[i].Mask
		tiles[i] = t
	default:
		tiles = append(tiles, Tile{})
		copy(tiles[i+1:], tiles[i:])
		tiles[i] = t
		c.Tiles[layer] = tiles
	}
	s.markDirty(key)

	if autotile {
		s.AutoTile(pos, layer)
	}
	return pos
}

// Holds reports whether pos already carries exactly the record AddTile
// would write, making that call a no-op.
func (s *Store) Holds(pos TilePos, layer Layer, asset Asset, autotile bool) bool {
	id, ok := s.refs.Find(asset.Sheet)
	if !ok {
		return false
	}
	t, ok := s.Tile(pos, layer)
	if !ok {
		return false
	}
	return t.sameAs(Tile{X: t.X, Y: t.Y, Sheet: id, Row: asset.Row, Col: asset.Col, Auto: autotile})
}

// RemoveTile erases whatever is at pos and returns its chunk-relative
// coordinate. Missing chunks, layers, and tiles are a no-op.
func (s *Store) RemoveTile(pos TilePos, layer Layer, autotile bool) (rx, ry uint8, ok bool) {
	key := s.geo.ChunkOf(pos)
	c, exists := s.chunks[key]
	if !exists {
		return 0, 0, false
	}
	rx, ry = s.geo.RelOf(pos)
	tiles := c.Tiles[layer]
	i, found := findTile(tiles, rx, ry)
	if !found {
		return 0, 0, false
	}
	c.Tiles[layer] = append(tiles[:i], tiles[i+1:]...)
	s.markDirty(key)

	if autotile {
		for _, n := range pos.Neighbors() {
			s.retile(n, layer)
		}
	}
	return rx, ry, true
}

// Prune drops empty layers, then chunks left with nothing in them.
func (s *Store) Prune() {
	for _, key := range s.Keys() {
		if !s.chunks[key].prune() {
			delete(s.chunks, key)
			s.markDirty(key)
		}
	}
}

// Snapshot returns a deep copy of the store contents.
func (s *Store) Snapshot() *Snapshot {
	return &Snapshot{grid: s.grid.clone()}
}

// Restore replaces the store contents with a copy of snap. Every chunk that
// existed before or after is marked dirty. The store keeps its own decor
// footprint size.
func (s *Store) Restore(snap *Snapshot) {
	for key := range s.chunks {
		s.markDirty(key)
	}
	itemSize := s.geo.ItemSize
	s.grid = snap.grid.clone()
	s.geo.ItemSize = itemSize
	for key := range s.chunks {
		s.markDirty(key)
	}
	s.indexStale = true
}

// ChunkView is the draw list a renderer needs for one chunk.
type ChunkView struct {
	Key    ChunkKey
	Rev    uint64
	Layers []LayerView
}

type LayerView struct {
	Layer Layer
	Tiles []Tile
	Decor []Decor
}

// ChunkView returns a copy of the chunk's layers in draw order.
func (s *Store) ChunkView(key ChunkKey) (*ChunkView, bool) {
	c, ok := s.chunks[key]
	if !ok {
		return nil, false
	}
	seen := make(map[Layer]struct{}, len(c.Tiles)+len(c.Decor))
	for layer := range c.Tiles {
		seen[layer] = struct{}{}
	}
	for layer := range c.Decor {
		seen[layer] = struct{}{}
	}
	layers := make([]Layer, 0, len(seen))
	for layer := range seen {
		layers = append(layers, layer)
	}
	SortLayers(layers)

	view := &ChunkView{Key: key, Rev: s.revs[key], Layers: make([]LayerView, 0, len(layers))}
	for _, layer := range layers {
		view.Layers = append(view.Layers, LayerView{
			Layer: layer,
			Tiles: append([]Tile(nil), c.Tiles[layer]...),
			Decor: append([]Decor(nil), c.Decor[layer]...),
		})
	}
	return view, true
}
