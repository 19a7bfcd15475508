package chunks

import (
	"github.com/milk9111/tilemap/sheets"
)

// Tile is a grid-aligned sheet reference stored relative to its chunk.
type Tile struct {
	X, Y  uint8
	Sheet sheets.ID
	Row   uint32
	Col   uint32
	Mask  uint8
	// Auto marks tiles whose mask is maintained by the autotiler.
	Auto bool
}

// sameAs compares everything but the mask, which the autotiler derives.
func (t Tile) sameAs(o Tile) bool {
	return t.X == o.X && t.Y == o.Y && t.Sheet == o.Sheet &&
		t.Row == o.Row && t.Col == o.Col && t.Auto == o.Auto
}

// Decor is a freely placed sheet reference. X and Y are pixels relative to
// the owning chunk's origin and may fall outside it for replicas.
type Decor struct {
	X, Y  float64
	Sheet sheets.ID
	Row   uint32
	Col   uint32
	W, H  float64
}

// Asset names a cell of a sheet.
type Asset struct {
	Sheet string
	Row   uint32
	Col   uint32
}

// Chunk holds per-layer tiles, ordered by (Y, X), and per-layer decorations.
type Chunk struct {
	Tiles map[Layer][]Tile
	Decor map[Layer][]Decor
}

func newChunk() *Chunk {
	return &Chunk{
		Tiles: make(map[Layer][]Tile),
		Decor: make(map[Layer][]Decor),
	}
}

// Empty reports whether no layer holds anything.
func (c *Chunk) Empty() bool {
	for _, tiles := range c.Tiles {
		if len(tiles) > 0 {
			return false
		}
	}
	for _, decor := range c.Decor {
		if len(decor) > 0 {
			return false
		}
	}
	return true
}

// Clone deep-copies c.
func (c *Chunk) Clone() *Chunk {
	out := &Chunk{
		Tiles: make(map[Layer][]Tile, len(c.Tiles)),
		Decor: make(map[Layer][]Decor, len(c.Decor)),
	}
	for layer, tiles := range c.Tiles {
		out.Tiles[layer] = append([]Tile(nil), tiles...)
	}
	for layer, decor := range c.Decor {
		out.Decor[layer] = append([]Decor(nil), decor...)
	}
	return out
}

// prune drops empty layers and reports whether anything is left.
func (c *Chunk) prune() bool {
	for layer, tiles := range c.Tiles {
		if len(tiles) == 0 {
			delete(c.Tiles, layer)
		}
	}
	for layer, decor := range c.Decor {
		if len(decor) == 0 {
			delete(c.Decor, layer)
		}
	}
	return len(c.Tiles) > 0 || len(c.Decor) > 0
}

// findTile returns the index of the record at (x, y), or the index at which
// such a record would be inserted to keep (Y, X) order.
func findTile(tiles []Tile, x, y uint8) (int, bool) {
	for i, t := range tiles {
		if t.Y == y && t.X == x {
			return i, true
		}
		if t.Y > y || (t.Y == y && t.X > x) {
			return i, false
		}
	}
	return len(tiles), false
}
