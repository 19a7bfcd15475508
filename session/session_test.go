package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/milk9111/tilemap/chunks"
	"github.com/milk9111/tilemap/common"
	"github.com/milk9111/tilemap/levels"
	"github.com/milk9111/tilemap/render"
	"github.com/milk9111/tilemap/script"
	"github.com/milk9111/tilemap/task"
)

var (
	geo   = chunks.Geometry{TileSize: 16, ChunkSize: 8}
	grass = chunks.Asset{Sheet: "grass"}
	rock  = chunks.Asset{Sheet: "rock", Row: 1}
)

func newSession(t *testing.T, opts Options) (*Session, *test.Hook) {
	t.Helper()
	store, err := chunks.NewStore(geo)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	log, hook := test.NewNullLogger()
	opts.Log = log
	return New(store, opts), hook
}

func settle(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Settle(ctx); err != nil {
		t.Fatalf("Settle: %v", err)
	}
}

func sameStore(t *testing.T, got, want map[chunks.ChunkKey]*chunks.Chunk) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("store mismatch\n got: %s\nwant: %s", spew.Sdump(got), spew.Sdump(want))
	}
}

func TestUndoRestoresCheckpoint(t *testing.T) {
	s, _ := newSession(t, Options{UndoDepth: DefaultUndoDepth})
	s.Edit(func(st *chunks.Store) {
		st.AddTile(chunks.TilePos{X: 0, Y: 0}, "0", grass, true)
		st.AddTile(chunks.TilePos{X: 1, Y: 0}, "0", grass, true)
		st.AddDecor(100, 100, "deco", rock, 48, 48)
	})
	s.Store().Prune()
	want := s.Store().Chunks()
	wantRefs := s.Store().SheetRefs()

	s.Edit(func(st *chunks.Store) {
		st.RemoveTile(chunks.TilePos{X: 0, Y: 0}, "0", true)
		st.AddTile(chunks.TilePos{X: -9, Y: 4}, "1", chunks.Asset{Sheet: "water"}, false)
		st.RemoveDecor(120, 120, "deco")
	})

	if !s.Undo() {
		t.Fatalf("Undo reported nothing to undo")
	}
	sameStore(t, s.Store().Chunks(), want)
	if got := s.Store().SheetRefs(); !reflect.DeepEqual(got, wantRefs) {
		t.Fatalf("sheet refs = %v, want %v", got, wantRefs)
	}
}

func TestUndoRingEvictsOldest(t *testing.T) {
	s, _ := newSession(t, Options{UndoDepth: 3})
	var states []map[chunks.ChunkKey]*chunks.Chunk
	for i := 0; i < 5; i++ {
		states = append(states, s.Store().Chunks())
		s.Edit(func(st *chunks.Store) {
			st.AddTile(chunks.TilePos{X: i}, "0", grass, false)
		})
	}
	if s.UndoDepth() != 3 {
		t.Fatalf("UndoDepth = %d, want 3", s.UndoDepth())
	}
	for i := 4; i >= 2; i-- {
		if !s.Undo() {
			t.Fatalf("undo %d failed", i)
		}
		sameStore(t, s.Store().Chunks(), states[i])
	}
	if s.Undo() {
		t.Fatalf("undo past the ring depth succeeded")
	}
}

func TestUndoDisabled(t *testing.T) {
	s, _ := newSession(t, Options{})
	s.Edit(func(st *chunks.Store) { st.AddTile(chunks.TilePos{}, "0", grass, false) })
	if s.Undo() {
		t.Fatalf("Undo succeeded with depth 0")
	}
}

func TestFloodTask(t *testing.T) {
	s, hook := newSession(t, Options{UndoDepth: 10})
	s.Edit(func(st *chunks.Store) { st.AddTile(chunks.TilePos{X: 1, Y: 0}, "0", rock, false) })

	bounds := geo.TileBounds(common.Rect{Width: 32, Height: 32})
	s.Flood(context.Background(), chunks.TilePos{}, "0", bounds, grass, false)
	settle(t, s)

	if st := s.Store().Stats(); st.Tiles != 4 {
		t.Fatalf("store holds %d tiles after flood, want 4", st.Tiles)
	}
	last := hook.LastEntry()
	if last == nil || last.Message != "task finished" || last.Data["applied"] != 3 {
		t.Fatalf("last log entry = %+v", last)
	}

	if !s.Undo() {
		t.Fatalf("Undo failed")
	}
	if st := s.Store().Stats(); st.Tiles != 1 {
		t.Fatalf("undo left %d tiles, want 1", st.Tiles)
	}
}

func TestCullAndAutotileTasks(t *testing.T) {
	s, _ := newSession(t, Options{UndoDepth: 10})
	s.Edit(func(st *chunks.Store) {
		for x := 0; x < 4; x++ {
			st.AddTile(chunks.TilePos{X: x}, "0", grass, false)
		}
	})

	s.Autotile(context.Background(), "0", chunks.TileRect{MinX: 0, MaxX: 3})
	settle(t, s)
	tile, _ := s.Store().Tile(chunks.TilePos{X: 1}, "0")
	if tile.Mask != chunks.MaskE|chunks.MaskW {
		t.Fatalf("mask after batch autotile = %d", tile.Mask)
	}

	s.Cull(context.Background(), "0", chunks.TileRect{MinX: 2, MaxX: 9}, false)
	settle(t, s)
	if st := s.Store().Stats(); st.Tiles != 2 {
		t.Fatalf("cull left %d tiles, want 2", st.Tiles)
	}
}

func TestBrushTask(t *testing.T) {
	s, _ := newSession(t, Options{UndoDepth: 10})
	b, err := script.Compile("row", []byte(`
for x := brush.min_x; x <= brush.max_x; x++ {
	brush.paint(x, brush.y)
}
`))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	s.Brush(context.Background(), b, script.Params{
		Layer:  "0",
		Bounds: chunks.TileRect{MinX: -2, MinY: 0, MaxX: 2, MaxY: 0},
		Asset:  grass,
	}, true)
	settle(t, s)

	tile, ok := s.Store().Tile(chunks.TilePos{X: 0}, "0")
	if !ok || tile.Mask != chunks.MaskE|chunks.MaskW {
		t.Fatalf("brush tile = %+v, %v", tile, ok)
	}
	if st := s.Store().Stats(); st.Tiles != 5 {
		t.Fatalf("brush painted %d tiles, want 5", st.Tiles)
	}
}

func TestApplyPerTick(t *testing.T) {
	s, _ := newSession(t, Options{ApplyPerTick: 2})
	flood := s.Flood(context.Background(), chunks.TilePos{}, "0", chunks.TileRect{MaxX: 1, MaxY: 1}, grass, false)
	<-flood.Exited()

	for i, want := range []int{2, 2, 0} {
		if got := s.Tick(); got != want {
			t.Fatalf("tick %d applied %d, want %d", i, got, want)
		}
	}
	if s.Pending() != 0 {
		t.Fatalf("task not retired after its sentinel")
	}
	if st := s.Store().Stats(); st.Tiles != 4 {
		t.Fatalf("store holds %d tiles, want 4", st.Tiles)
	}
}

func TestFailedTaskIsLogged(t *testing.T) {
	s, hook := newSession(t, Options{UndoDepth: 10})
	failing := s.Run(context.Background(), "broken", func(ctx context.Context, snap *chunks.Snapshot, out *task.Emitter) error {
		for x := 0; x < 3; x++ {
			if err := out.Paint(chunks.TilePos{X: x}, "0", grass, false); err != nil {
				return err
			}
		}
		return errors.New("disk on fire")
	})
	<-failing.Exited()
	hook.Reset()

	if n := s.Tick(); n != 0 {
		t.Fatalf("applied %d messages from a failed task", n)
	}
	if s.Pending() != 0 {
		t.Fatalf("failed task not retired")
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("failure not logged at warn: %+v", entry)
	}
	if entry.Data["discarded"] != 3 || entry.Data["task"] != "broken" {
		t.Fatalf("failure entry fields = %v", entry.Data)
	}
	if err, _ := entry.Data[logrus.ErrorKey].(error); !errors.Is(err, task.ErrTaskFailed) {
		t.Fatalf("logged error = %v", entry.Data[logrus.ErrorKey])
	}
	if s.Store().Stats().Tiles != 0 {
		t.Fatalf("failed task changed the store")
	}
}

func TestUndoCancelsRunningTasks(t *testing.T) {
	s, hook := newSession(t, Options{UndoDepth: 10})
	started := make(chan struct{})
	stuck := s.Run(context.Background(), "stuck", func(ctx context.Context, snap *chunks.Snapshot, out *task.Emitter) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	if !s.Undo() {
		t.Fatalf("Undo failed")
	}
	if s.Pending() != 0 || stuck.Status() != task.Cancelled {
		t.Fatalf("task still pending after undo: %v", stuck.Status())
	}
	found := false
	for _, e := range hook.AllEntries() {
		if e.Message == "task cancelled" {
			found = true
		}
	}
	if !found {
		t.Fatalf("cancellation not logged")
	}
	select {
	case <-stuck.Exited():
	case <-time.After(2 * time.Second):
		t.Fatalf("cancelled task kept running")
	}
}

func TestSaveLoad(t *testing.T) {
	s, _ := newSession(t, Options{UndoDepth: 10})
	s.Edit(func(st *chunks.Store) {
		st.AddTile(chunks.TilePos{X: 3, Y: 3}, "0", grass, false)
	})
	path := filepath.Join(t.TempDir(), "map.json.gz")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	saved := s.Store().Chunks()

	s.Edit(func(st *chunks.Store) { st.AddTile(chunks.TilePos{X: 9, Y: 9}, "0", rock, false) })
	if err := s.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sameStore(t, s.Store().Chunks(), saved)

	if !s.Undo() {
		t.Fatalf("load was not undoable")
	}
	if !s.Store().HasTile(chunks.TilePos{X: 9, Y: 9}, "0") {
		t.Fatalf("undo of load lost the pre-load edit")
	}
}

func TestLoadFailureLeavesStoreUntouched(t *testing.T) {
	s, _ := newSession(t, Options{UndoDepth: 10})
	s.Edit(func(st *chunks.Store) { st.AddTile(chunks.TilePos{X: 1, Y: 1}, "0", grass, false) })
	before := s.Store().Chunks()
	depth := s.UndoDepth()

	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte(`{"version":1,"tile_size":16,"chunk_size":8,"chunks":{"0,x":{}}}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := s.Load(corrupt); !errors.Is(err, chunks.ErrMalformedChunkKey) {
		t.Fatalf("Load err = %v, want ErrMalformedChunkKey", err)
	}

	other := filepath.Join(dir, "other.json")
	if err := os.WriteFile(other, []byte(`{"version":1,"tile_size":32,"chunk_size":8}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := s.Load(other); !errors.Is(err, levels.ErrGeometryMismatch) {
		t.Fatalf("Load err = %v, want ErrGeometryMismatch", err)
	}

	sameStore(t, s.Store().Chunks(), before)
	if s.UndoDepth() != depth {
		t.Fatalf("failed load pushed an undo step")
	}
}

func TestFrameTracksEdits(t *testing.T) {
	cache, err := render.New(render.Config{})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	defer cache.Close()
	s, _ := newSession(t, Options{UndoDepth: 10, Cache: cache})
	view := common.Rect{X: 0, Y: 0, Width: 128, Height: 128}

	s.Edit(func(st *chunks.Store) { st.AddTile(chunks.TilePos{X: 1, Y: 1}, "0", grass, false) })
	frame := s.Frame(view)
	if len(frame) != 1 || len(frame[0].Layers[0].Tiles) != 1 {
		t.Fatalf("first frame = %s", spew.Sdump(frame))
	}

	s.Edit(func(st *chunks.Store) { st.AddTile(chunks.TilePos{X: 2, Y: 1}, "0", grass, false) })
	frame = s.Frame(view)
	if len(frame) != 1 || len(frame[0].Layers[0].Tiles) != 2 {
		t.Fatalf("frame after edit = %s", spew.Sdump(frame))
	}

	s.Undo()
	frame = s.Frame(view)
	if len(frame) != 1 || len(frame[0].Layers[0].Tiles) != 1 {
		t.Fatalf("frame after undo = %s", spew.Sdump(frame))
	}
}
