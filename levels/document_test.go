package levels

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/milk9111/tilemap/chunks"
)

var geo = chunks.Geometry{TileSize: 16, ChunkSize: 8}

func sampleStore(t *testing.T) *chunks.Store {
	t.Helper()
	s, err := chunks.NewStore(geo)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for _, p := range []chunks.TilePos{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}} {
		s.AddTile(p, "0", chunks.Asset{Sheet: "grass", Col: 3}, true)
	}
	s.AddTile(chunks.TilePos{X: -20, Y: 33}, "fg", chunks.Asset{Sheet: "rock", Row: 2}, false)
	s.AddDecor(120, -4, "deco", chunks.Asset{Sheet: "props", Row: 1, Col: 1}, 24, 16)
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"map.json", "nested/map.json.gz"} {
		t.Run(name, func(t *testing.T) {
			s := sampleStore(t)
			path := filepath.Join(t.TempDir(), name)
			if err := Save(path, s.Snapshot()); err != nil {
				t.Fatalf("Save: %v", err)
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			zipped := len(raw) > 2 && raw[0] == 0x1f && raw[1] == 0x8b
			if zipped != strings.HasSuffix(name, ".gz") {
				t.Fatalf("compression = %v for %s", zipped, name)
			}

			snap, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got, want := snap.Chunks(), s.Chunks(); !reflect.DeepEqual(got, want) {
				t.Fatalf("chunks differ\n got: %s\nwant: %s", spew.Sdump(got), spew.Sdump(want))
			}
			if got, want := snap.SheetRefs(), s.SheetRefs(); !reflect.DeepEqual(got, want) {
				t.Fatalf("sheet refs = %v, want %v", got, want)
			}
		})
	}
}

func TestEncodeWritesCanonicalKeys(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleStore(t).Snapshot()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"version": 1`, `"-1,0"`, `"-3,4"`, `"sheet_refs"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("encoded document lacks %s:\n%s", want, out)
		}
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"malformed_key", `{"version":1,"tile_size":16,"chunk_size":8,"chunks":{"01,0":{}}}`, chunks.ErrMalformedChunkKey},
		{"key_with_space", `{"version":1,"tile_size":16,"chunk_size":8,"chunks":{"0, 0":{}}}`, chunks.ErrMalformedChunkKey},
		{"future_version", `{"version":2,"tile_size":16,"chunk_size":8}`, ErrUnsupportedVersion},
		{"negative_chunk_size", `{"version":1,"tile_size":16,"chunk_size":-8}`, chunks.ErrInvalidGeometry},
		{"unknown_sheet", `{"version":1,"tile_size":16,"chunk_size":8,"chunks":{"0,0":{"tiles":{"0":[{"x":0,"y":0,"sheet":3}]}}}}`, chunks.ErrUnknownSheet},
		{"tile_outside_chunk", `{"version":1,"tile_size":16,"chunk_size":8,"sheet_refs":{"1":"a"},"chunks":{"0,0":{"tiles":{"0":[{"x":9,"y":0,"sheet":1}]}}}}`, chunks.ErrCorruptChunk},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := Decode(strings.NewReader(tc.doc))
			if !errors.Is(err, tc.want) {
				t.Fatalf("Decode err = %v, want %v", err, tc.want)
			}
			if snap != nil {
				t.Fatalf("Decode returned a snapshot alongside an error")
			}
		})
	}

	if _, err := Decode(strings.NewReader("{not json")); err == nil {
		t.Fatalf("Decode accepted broken JSON")
	}
}

func TestDecodeAcceptsUnversionedDocuments(t *testing.T) {
	snap, err := Decode(strings.NewReader(`{"tile_size":16,"chunk_size":8,"sheet_refs":{"1":"a"},"chunks":{"0,0":{"tiles":{"0":[{"x":1,"y":1,"sheet":1}]}}}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !snap.HasTile(chunks.TilePos{X: 1, Y: 1}, "0") {
		t.Fatalf("tile missing from unversioned document")
	}
}

func TestLoadFromEmbeddedFS(t *testing.T) {
	snap, err := LoadFromFS(LevelsFS, "demo.json")
	if err != nil {
		t.Fatalf("LoadFromFS: %v", err)
	}
	tile, ok := snap.Tile(chunks.TilePos{}, "0")
	if !ok || tile.Mask != 14 {
		t.Fatalf("origin tile = %+v, %v", tile, ok)
	}
	if !snap.HasTile(chunks.TilePos{X: -1, Y: 0}, "0") {
		t.Fatalf("tile in negative chunk missing")
	}
	if st := snap.Stats(); st.Decor != 1 || st.Tiles != 4 {
		t.Fatalf("Stats = %+v", st)
	}

	if _, err := LoadFromFS(LevelsFS, "missing.json"); err == nil {
		t.Fatalf("LoadFromFS found a missing document")
	}
}

func TestMatch(t *testing.T) {
	snap := sampleStore(t).Snapshot()
	if err := Match(snap, geo); err != nil {
		t.Fatalf("Match: %v", err)
	}
	if err := Match(snap, chunks.Geometry{TileSize: 32, ChunkSize: 8}); !errors.Is(err, ErrGeometryMismatch) {
		t.Fatalf("Match err = %v, want ErrGeometryMismatch", err)
	}
}
