package levels

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/milk9111/tilemap/chunks"
	"github.com/milk9111/tilemap/sheets"
)

// Version is the document version this package writes.
const Version = 1

var (
	ErrUnsupportedVersion = errors.New("unsupported document version")
	ErrGeometryMismatch   = errors.New("document geometry does not match")
)

// Document is the persisted form of a tile map. Chunk keys are "x,y".
type Document struct {
	Version   int                  `json:"version"`
	TileSize  int                  `json:"tile_size"`
	ChunkSize int                  `json:"chunk_size"`
	SheetRefs map[sheets.ID]string `json:"sheet_refs"`
	Chunks    map[string]ChunkDoc  `json:"chunks"`
}

type ChunkDoc struct {
	Tiles map[string][]TileDoc  `json:"tiles,omitempty"`
	Decor map[string][]DecorDoc `json:"decor,omitempty"`
}

type TileDoc struct {
	X     uint8     `json:"x"`
	Y     uint8     `json:"y"`
	Sheet sheets.ID `json:"sheet"`
	Row   uint32    `json:"row"`
	Col   uint32    `json:"col"`
	Mask  uint8     `json:"mask,omitempty"`
	Auto  bool      `json:"auto,omitempty"`
}

type DecorDoc struct {
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Sheet sheets.ID `json:"sheet"`
	Row   uint32    `json:"row"`
	Col   uint32    `json:"col"`
	W     float64   `json:"w"`
	H     float64   `json:"h"`
}

// FromSnapshot converts a snapshot to its document form.
func FromSnapshot(snap *chunks.Snapshot) *Document {
	geo := snap.Geometry()
	doc := &Document{
		Version:   Version,
		TileSize:  geo.TileSize,
		ChunkSize: geo.ChunkSize,
		SheetRefs: snap.SheetRefs(),
		Chunks:    make(map[string]ChunkDoc),
	}
	for key, c := range snap.Chunks() {
		cd := ChunkDoc{}
		for layer, tiles := range c.Tiles {
			if len(tiles) == 0 {
				continue
			}
			if cd.Tiles == nil {
				cd.Tiles = make(map[string][]TileDoc)
			}
			out := make([]TileDoc, len(tiles))
			for i, t := range tiles {
				out[i] = TileDoc{X: t.X, Y: t.Y, Sheet: t.Sheet, Row: t.Row, Col: t.Col, Mask: t.Mask, Auto: t.Auto}
			}
			cd.Tiles[string(layer)] = out
		}
		for layer, decor := range c.Decor {
			if len(decor) == 0 {
				continue
			}
			if cd.Decor == nil {
				cd.Decor = make(map[string][]DecorDoc)
			}
			out := make([]DecorDoc, len(decor))
			for i, d := range decor {
				out[i] = DecorDoc{X: d.X, Y: d.Y, Sheet: d.Sheet, Row: d.Row, Col: d.Col, W: d.W, H: d.H}
			}
			cd.Decor[string(layer)] = out
		}
		doc.Chunks[key.String()] = cd
	}
	return doc
}

// Snapshot validates the document and converts it. Nothing is returned
// unless every chunk key and record checks out.
func (d *Document) Snapshot() (*chunks.Snapshot, error) {
	// documents written before versioning carry no version field
	if d.Version < 0 || d.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, d.Version)
	}
	geo := chunks.Geometry{TileSize: d.TileSize, ChunkSize: d.ChunkSize}

	data := make(map[chunks.ChunkKey]*chunks.Chunk, len(d.Chunks))
	for tag, cd := range d.Chunks {
		key, err := chunks.ParseChunkKey(tag)
		if err != nil {
			return nil, err
		}
		c := &chunks.Chunk{
			Tiles: make(map[chunks.Layer][]chunks.Tile, len(cd.Tiles)),
			Decor: make(map[chunks.Layer][]chunks.Decor, len(cd.Decor)),
		}
		for layer, tiles := range cd.Tiles {
			out := make([]chunks.Tile, len(tiles))
			for i, t := range tiles {
				out[i] = chunks.Tile{X: t.X, Y: t.Y, Sheet: t.Sheet, Row: t.Row, Col: t.Col, Mask: t.Mask, Auto: t.Auto}
			}
			c.Tiles[chunks.Layer(layer)] = out
		}
		for layer, decor := range cd.Decor {
			out := make([]chunks.Decor, len(decor))
			for i, dd := range decor {
				out[i] = chunks.Decor{X: dd.X, Y: dd.Y, Sheet: dd.Sheet, Row: dd.Row, Col: dd.Col, W: dd.W, H: dd.H}
			}
			c.Decor[chunks.Layer(layer)] = out
		}
		data[key] = c
	}

	snap, err := chunks.NewSnapshot(geo, data, d.SheetRefs)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return snap, nil
}

// Encode writes snap as indented JSON.
func Encode(w io.Writer, snap *chunks.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(FromSnapshot(snap))
}

// Decode reads a JSON document, gzip-compressed or not, and validates it.
func Decode(r io.Reader) (*chunks.Snapshot, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	var doc Document
	if err := json.NewDecoder(src).Decode(&doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc.Snapshot()
}

// Save writes snap to path, gzip-compressed when the name ends in ".gz".
func Save(path string, snap *chunks.Snapshot) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".gz") {
		return Encode(f, snap)
	}
	zw := gzip.NewWriter(f)
	if err := Encode(zw, snap); err != nil {
		return err
	}
	return zw.Close()
}

// Load reads the document at path.
func Load(path string) (*chunks.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Match reports ErrGeometryMismatch when snap was drawn on a different grid
// than geo.
func Match(snap *chunks.Snapshot, geo chunks.Geometry) error {
	got := snap.Geometry()
	if got.TileSize != geo.TileSize || got.ChunkSize != geo.ChunkSize {
		return fmt.Errorf("%w: document %dpx/%d tiles, editor %dpx/%d tiles",
			ErrGeometryMismatch, got.TileSize, got.ChunkSize, geo.TileSize, geo.ChunkSize)
	}
	return nil
}
