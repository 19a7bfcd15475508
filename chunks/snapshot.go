package chunks

import (
	"fmt"

	"github.com/milk9111/tilemap/sheets"
)

// Snapshot is an immutable deep copy of a store. It shares nothing with the
// store it came from and is safe to read from any goroutine.
type Snapshot struct {
	grid
}

// NewSnapshot builds a snapshot from decoded data, checking every record.
// The inputs are copied.
func NewSnapshot(geo Geometry, chunks map[ChunkKey]*Chunk, refs map[sheets.ID]string) (*Snapshot, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	table, err := sheets.FromRefs(refs)
	if err != nil {
		return nil, err
	}

	g := grid{geo: geo, chunks: make(map[ChunkKey]*Chunk, len(chunks)), refs: table}
	for key, c := range chunks {
		if c == nil {
			return nil, fmt.Errorf("%w: chunk %s is null", ErrCorruptChunk, key)
		}
		if err := checkChunk(geo, table, key, c); err != nil {
			return nil, err
		}
		g.chunks[key] = c.Clone()
	}
	return &Snapshot{grid: g}, nil
}

func checkChunk(geo Geometry, table *sheets.Table, key ChunkKey, c *Chunk) error {
	for layer, tiles := range c.Tiles {
		for i, t := range tiles {
			if int(t.X) >= geo.ChunkSize || int(t.Y) >= geo.ChunkSize {
				return fmt.Errorf("%w: chunk %s layer %q: tile (%d,%d) outside chunk", ErrCorruptChunk, key, layer, t.X, t.Y)
			}
			if i > 0 {
				prev := tiles[i-1]
				if prev.Y > t.Y || (prev.Y == t.Y && prev.X >= t.X) {
					return fmt.Errorf("%w: chunk %s layer %q: tiles out of order at %d", ErrCorruptChunk, key, layer, i)
				}
			}
			if _, ok := table.Name(t.Sheet); !ok {
				return fmt.Errorf("%w: %d in chunk %s", ErrUnknownSheet, t.Sheet, key)
			}
		}
	}
	for layer, decor := range c.Decor {
		for _, d := range decor {
			if d.W < 0 || d.H < 0 {
				return fmt.Errorf("%w: chunk %s layer %q: negative decoration size", ErrCorruptChunk, key, layer)
			}
			if _, ok := table.Name(d.Sheet); !ok {
				return fmt.Errorf("%w: %d in chunk %s", ErrUnknownSheet, d.Sheet, key)
			}
		}
	}
	return nil
}
