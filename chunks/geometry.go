package chunks

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/milk9111/tilemap/common"
)

// MaxChunkSize bounds the chunk edge so relative coordinates fit in a byte.
const MaxChunkSize = 256

// Geometry fixes the pixel size of a tile and the tile size of a chunk. It is
// handed to a store at construction and never changes afterwards.
type Geometry struct {
	TileSize  int
	ChunkSize int
	// ItemSize is the footprint edge, in pixels, decorations get in the
	// per-layer spatial trees. Zero means one tile.
	ItemSize float64
}

func (g Geometry) Validate() error {
	if g.TileSize <= 0 {
		return fmt.Errorf("%w: tile size %d", ErrInvalidGeometry, g.TileSize)
	}
	if g.ChunkSize <= 0 || g.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk size %d", ErrInvalidGeometry, g.ChunkSize)
	}
	if g.ItemSize < 0 {
		return fmt.Errorf("%w: item size %g", ErrInvalidGeometry, g.ItemSize)
	}
	return nil
}

// ChunkPixels is the edge length of a chunk in world pixels.
func (g Geometry) ChunkPixels() int { return g.TileSize * g.ChunkSize }

func (g Geometry) itemSize() float64 {
	if g.ItemSize > 0 {
		return g.ItemSize
	}
	return float64(g.TileSize)
}

// TilePos is a global tile coordinate.
type TilePos struct {
	X, Y int
}

// Neighbors returns the four axis neighbours in north, east, south, west
// order. North is y-1.
func (p TilePos) Neighbors() [4]TilePos {
	return [4]TilePos{
		{p.X, p.Y - 1},
		{p.X + 1, p.Y},
		{p.X, p.Y + 1},
		{p.X - 1, p.Y},
	}
}

// ChunkKey identifies a chunk by its chunk-grid coordinate.
type ChunkKey struct {
	X, Y int
}

// String returns the canonical "x,y" form used in persisted documents.
func (k ChunkKey) String() string {
	return strconv.Itoa(k.X) + "," + strconv.Itoa(k.Y)
}

// ParseChunkKey reverses ChunkKey.String. Anything other than the canonical
// form is rejected.
func ParseChunkKey(s string) (ChunkKey, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return ChunkKey{}, fmt.Errorf("%w: %q", ErrMalformedChunkKey, s)
	}
	x, okX := canonicalInt(xs)
	y, okY := canonicalInt(ys)
	if !okX || !okY {
		return ChunkKey{}, fmt.Errorf("%w: %q", ErrMalformedChunkKey, s)
	}
	return ChunkKey{X: x, Y: y}, nil
}

func canonicalInt(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	if err != nil || strconv.Itoa(v) != s {
		return 0, false
	}
	return v, true
}

// TileRect is an inclusive rectangle of tile coordinates.
type TileRect struct {
	MinX, MinY, MaxX, MaxY int
}

func (r TileRect) Contains(p TilePos) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

func (r TileRect) Empty() bool { return r.MaxX < r.MinX || r.MaxY < r.MinY }

func (r TileRect) Area() int {
	if r.Empty() {
		return 0
	}
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

func (g Geometry) TileOf(wx, wy float64) TilePos {
	ts := float64(g.TileSize)
	return TilePos{X: common.FloorToInt(wx / ts), Y: common.FloorToInt(wy / ts)}
}

func (g Geometry) ChunkOf(p TilePos) ChunkKey {
	return ChunkKey{X: common.FloorDiv(p.X, g.ChunkSize), Y: common.FloorDiv(p.Y, g.ChunkSize)}
}

// RelOf returns p's coordinate inside its chunk, always in [0, ChunkSize).
func (g Geometry) RelOf(p TilePos) (uint8, uint8) {
	return uint8(common.FloorMod(p.X, g.ChunkSize)), uint8(common.FloorMod(p.Y, g.ChunkSize))
}

// Origin returns the global tile coordinate of a chunk's top-left tile.
func (g Geometry) Origin(k ChunkKey) TilePos {
	return TilePos{X: k.X * g.ChunkSize, Y: k.Y * g.ChunkSize}
}

// Global converts a chunk-relative tile coordinate back to a global one.
func (g Geometry) Global(k ChunkKey, relX, relY uint8) TilePos {
	o := g.Origin(k)
	return TilePos{X: o.X + int(relX), Y: o.Y + int(relY)}
}

// TileBounds returns the inclusive tiles covered by a world-pixel rectangle.
// The right and bottom pixel edges are exclusive, so a rectangle two tiles
// wide covers exactly two columns. A degenerate rectangle covers the tile
// under its origin.
func (g Geometry) TileBounds(r common.Rect) TileRect {
	ts := float64(g.TileSize)
	out := TileRect{
		MinX: common.FloorToInt(r.X / ts),
		MinY: common.FloorToInt(r.Y / ts),
		MaxX: common.CeilToInt(r.Right()/ts) - 1,
		MaxY: common.CeilToInt(r.Bottom()/ts) - 1,
	}
	if out.MaxX < out.MinX {
		out.MaxX = out.MinX
	}
	if out.MaxY < out.MinY {
		out.MaxY = out.MinY
	}
	return out
}

// chunkSpan returns the chunk keys covering r, padded by one chunk per side.
func (g Geometry) chunkSpan(r TileRect) (lo, hi ChunkKey) {
	lo = g.ChunkOf(TilePos{X: r.MinX, Y: r.MinY})
	hi = g.ChunkOf(TilePos{X: r.MaxX, Y: r.MaxY})
	lo.X--
	lo.Y--
	hi.X++
	hi.Y++
	return lo, hi
}
