package chunks

import (
	"cmp"
	"slices"

	"github.com/milk9111/tilemap/sheets"
)

// Reader is the read-only view region algorithms and background tasks work
// against. Both *Store and *Snapshot satisfy it.
type Reader interface {
	Geometry() Geometry
	HasTile(pos TilePos, layer Layer) bool
	Tile(pos TilePos, layer Layer) (Tile, bool)
	ChunksIn(r TileRect, skipEmpty bool) []ChunkKey
	TileLayer(key ChunkKey, layer Layer) []Tile
}

// grid is the chunk map shared by the live store and its snapshots.
type grid struct {
	geo    Geometry
	chunks map[ChunkKey]*Chunk
	refs   *sheets.Table
}

func newGrid(geo Geometry) grid {
	return grid{
		geo:    geo,
		chunks: make(map[ChunkKey]*Chunk),
		refs:   sheets.NewTable(),
	}
}

func (g *grid) clone() grid {
	out := grid{
		geo:    g.geo,
		chunks: make(map[ChunkKey]*Chunk, len(g.chunks)),
		refs:   g.refs.Clone(),
	}
	for key, c := range g.chunks {
		out.chunks[key] = c.Clone()
	}
	return out
}

func (g *grid) Geometry() Geometry { return g.geo }

// Len returns the number of chunks present.
func (g *grid) Len() int { return len(g.chunks) }

// Keys returns every chunk key in row-major order.
func (g *grid) Keys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(g.chunks))
	for key := range g.chunks {
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys
}

// Chunks returns a deep copy of every chunk.
func (g *grid) Chunks() map[ChunkKey]*Chunk {
	out := make(map[ChunkKey]*Chunk, len(g.chunks))
	for key, c := range g.chunks {
		out[key] = c.Clone()
	}
	return out
}

// SheetRefs returns the id to sheet-name table.
func (g *grid) SheetRefs() map[sheets.ID]string { return g.refs.Refs() }

func (g *grid) SheetName(id sheets.ID) (string, bool) { return g.refs.Name(id) }

func (g *grid) Tile(pos TilePos, layer Layer) (Tile, bool) {
	c, ok := g.chunks[g.geo.ChunkOf(pos)]
	if !ok {
		return Tile{}, false
	}
	rx, ry := g.geo.RelOf(pos)
	tiles := c.Tiles[layer]
	i, found := findTile(tiles, rx, ry)
	if !found {
		return Tile{}, false
	}
	return tiles[i], true
}

func (g *grid) HasTile(pos TilePos, layer Layer) bool {
	_, ok := g.Tile(pos, layer)
	return ok
}

// TileLayer returns a copy of one chunk layer's tiles in (Y, X) order.
func (g *grid) TileLayer(key ChunkKey, layer Layer) []Tile {
	c, ok := g.chunks[key]
	if !ok {
		return nil
	}
	return slices.Clone(c.Tiles[layer])
}

// DecorLayer returns a copy of one chunk layer's decorations.
func (g *grid) DecorLayer(key ChunkKey, layer Layer) []Decor {
	c, ok := g.chunks[key]
	if !ok {
		return nil
	}
	return slices.Clone(c.Decor[layer])
}

// ChunksIn lists the chunks overlapping r plus one chunk of padding on every
// side, so decorations spilling in from neighbours are included.
func (g *grid) ChunksIn(r TileRect, skipEmpty bool) []ChunkKey {
	lo, hi := g.geo.chunkSpan(r)
	var keys []ChunkKey
	if skipEmpty && (hi.X-lo.X+1)*(hi.Y-lo.Y+1) > len(g.chunks) {
		for key := range g.chunks {
			if key.X >= lo.X && key.X <= hi.X && key.Y >= lo.Y && key.Y <= hi.Y {
				keys = append(keys, key)
			}
		}
		sortKeys(keys)
		return keys
	}
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			key := ChunkKey{X: x, Y: y}
			if skipEmpty {
				if _, ok := g.chunks[key]; !ok {
					continue
				}
			}
			keys = append(keys, key)
		}
	}
	return keys
}

// Layers returns every layer used anywhere, sorted.
func (g *grid) Layers() []Layer {
	seen := make(map[Layer]struct{})
	for _, c := range g.chunks {
		for layer := range c.Tiles {
			seen[layer] = struct{}{}
		}
		for layer := range c.Decor {
			seen[layer] = struct{}{}
		}
	}
	layers := make([]Layer, 0, len(seen))
	for layer := range seen {
		layers = append(layers, layer)
	}
	SortLayers(layers)
	return layers
}

// Stats summarises the contents of a store or snapshot.
type Stats struct {
	Chunks int
	Layers int
	Tiles  int
	// Decor counts decorations once, not once per replica.
	Decor int
}

func (g *grid) Stats() Stats {
	st := Stats{Chunks: len(g.chunks), Layers: len(g.Layers())}
	for _, c := range g.chunks {
		for _, tiles := range c.Tiles {
			st.Tiles += len(tiles)
		}
		for _, decor := range c.Decor {
			for _, d := range decor {
				if isPrimary(d) {
					st.Decor++
				}
			}
		}
	}
	return st
}

func sortKeys(keys []ChunkKey) {
	slices.SortFunc(keys, func(a, b ChunkKey) int {
		if c := cmp.Compare(a.Y, b.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.X, b.X)
	})
}
