package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.design/x/clipboard"

	"github.com/milk9111/tilemap/chunks"
	"github.com/milk9111/tilemap/common"
	"github.com/milk9111/tilemap/levels"
	"github.com/milk9111/tilemap/region"
	"github.com/milk9111/tilemap/script"
	"github.com/milk9111/tilemap/session"
)

var errUsage = errors.New("usage")

// embedPrefix marks a document bundled into the binary.
const embedPrefix = "embed:"

type command struct {
	usage string
	args  int
	run   func(r *repl, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"layer":    {"layer <name>", 1, (*repl).setLayer},
		"asset":    {"asset <sheet> <row> <col>", 3, (*repl).setAsset},
		"auto":     {"auto on|off", 1, (*repl).setAuto},
		"rect":     {"rect <min_x> <min_y> <max_x> <max_y>", 4, (*repl).setRect},
		"paint":    {"paint <x> <y>", 2, (*repl).paint},
		"erase":    {"erase <x> <y>", 2, (*repl).erase},
		"flood":    {"flood <x> <y>", 2, (*repl).flood},
		"cull":     {"cull", 0, (*repl).cull},
		"autotile": {"autotile", 0, (*repl).autotile},
		"select":   {"select <x> <y>", 2, (*repl).selectMask},
		"copy":     {"copy", 0, (*repl).copySelection},
		"brush":    {"brush <name> <x> <y>", 3, (*repl).brush},
		"brushes":  {"brushes", 0, (*repl).listBrushes},
		"decor":    {"decor <x> <y> <w> <h>", 4, (*repl).addDecor},
		"undecor":  {"undecor <x> <y>", 2, (*repl).removeDecor},
		"nearest":  {"nearest <x> <y>", 2, (*repl).nearest},
		"range":    {"range <x> <y> <w> <h>", 4, (*repl).decorRange},
		"tile":     {"tile <x> <y>", 2, (*repl).tile},
		"undo":     {"undo", 0, (*repl).undo},
		"wait":     {"wait", 0, (*repl).wait},
		"save":     {"save <path>", 1, (*repl).save},
		"load":     {"load <path>|embed:<name>", 1, (*repl).load},
		"stats":    {"stats", 0, (*repl).stats},
		"frame":    {"frame <x> <y> <w> <h>", 4, (*repl).frame},
		"help":     {"help", 0, (*repl).help},
		"quit":     {"quit", 0, (*repl).exit},
	}
}

// repl holds the editing state a command line works against: the active
// layer and asset, the selection rectangle and the last mask selection.
type repl struct {
	ctx     context.Context
	sess    *session.Session
	brushes *script.Library
	out     io.Writer

	layer    chunks.Layer
	asset    chunks.Asset
	auto     bool
	rect     chunks.TileRect
	selected []chunks.TilePos
	quit     bool
}

func newREPL(ctx context.Context, sess *session.Session, brushes *script.Library, out io.Writer) *repl {
	return &repl{
		ctx:     ctx,
		sess:    sess,
		brushes: brushes,
		out:     out,
		layer:   "0",
		asset:   chunks.Asset{Sheet: "tiles"},
		auto:    true,
		rect:    chunks.TileRect{MinX: 0, MinY: 0, MaxX: 15, MaxY: 15},
	}
}

func (r *repl) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// exec runs one command line. Blank lines and # comments are ignored.
func (r *repl) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	cmd, ok := commands[fields[0]]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	if len(fields)-1 != cmd.args {
		return fmt.Errorf("%w: %s", errUsage, cmd.usage)
	}
	return cmd.run(r, fields[1:])
}

func ints(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("bad integer %q", a)
		}
		out[i] = n
	}
	return out, nil
}

func floats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", a)
		}
		out[i] = f
	}
	return out, nil
}

func pos(args []string) (chunks.TilePos, error) {
	n, err := ints(args[:2])
	if err != nil {
		return chunks.TilePos{}, err
	}
	return chunks.TilePos{X: n[0], Y: n[1]}, nil
}

func (r *repl) setLayer(args []string) error {
	r.layer = chunks.Layer(args[0])
	return nil
}

func (r *repl) setAsset(args []string) error {
	n, err := ints(args[1:])
	if err != nil {
		return err
	}
	if n[0] < 0 || n[1] < 0 {
		return fmt.Errorf("sheet coordinates must not be negative")
	}
	r.asset = chunks.Asset{Sheet: args[0], Row: uint32(n[0]), Col: uint32(n[1])}
	return nil
}

func (r *repl) setAuto(args []string) error {
	switch args[0] {
	case "on":
		r.auto = true
	case "off":
		r.auto = false
	default:
		return fmt.Errorf("%w: %s", errUsage, commands["auto"].usage)
	}
	return nil
}

func (r *repl) setRect(args []string) error {
	n, err := ints(args)
	if err != nil {
		return err
	}
	rect := chunks.TileRect{MinX: n[0], MinY: n[1], MaxX: n[2], MaxY: n[3]}
	if rect.Empty() {
		return fmt.Errorf("empty rect")
	}
	r.rect = rect
	return nil
}

func (r *repl) paint(args []string) error {
	p, err := pos(args)
	if err != nil {
		return err
	}
	if r.sess.Store().Holds(p, r.layer, r.asset, r.auto) {
		return nil
	}
	r.sess.Edit(func(s *chunks.Store) { s.AddTile(p, r.layer, r.asset, r.auto) })
	return nil
}

func (r *repl) erase(args []string) error {
	p, err := pos(args)
	if err != nil {
		return err
	}
	if !r.sess.Store().HasTile(p, r.layer) {
		r.printf("nothing at %d,%d\n", p.X, p.Y)
		return nil
	}
	r.sess.Edit(func(s *chunks.Store) { s.RemoveTile(p, r.layer, r.auto) })
	return nil
}

func (r *repl) flood(args []string) error {
	p, err := pos(args)
	if err != nil {
		return err
	}
	t := r.sess.Flood(r.ctx, p, r.layer, r.rect, r.asset, r.auto)
	r.printf("flood %s\n", t.ID)
	return nil
}

func (r *repl) cull([]string) error {
	t := r.sess.Cull(r.ctx, r.layer, r.rect, r.auto)
	r.printf("cull %s\n", t.ID)
	return nil
}

func (r *repl) autotile([]string) error {
	t := r.sess.Autotile(r.ctx, r.layer, r.rect)
	r.printf("autotile %s\n", t.ID)
	return nil
}

func (r *repl) selectMask(args []string) error {
	p, err := pos(args)
	if err != nil {
		return err
	}
	r.selected = region.MaskSelect(r.sess.Store(), p, r.layer, &r.rect)
	r.printf("%d tiles selected\n", len(r.selected))
	return nil
}

// selectionText renders the selection one tile per line.
func (r *repl) selectionText() string {
	var b strings.Builder
	for _, p := range r.selected {
		t, ok := r.sess.Store().Tile(p, r.layer)
		if !ok {
			continue
		}
		name, _ := r.sess.Store().SheetName(t.Sheet)
		fmt.Fprintf(&b, "%d %d %s %d %d %d\n", p.X, p.Y, name, t.Row, t.Col, t.Mask)
	}
	return b.String()
}

func (r *repl) copySelection([]string) error {
	if len(r.selected) == 0 {
		return fmt.Errorf("nothing selected")
	}
	if err := clipboard.Init(); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	<-clipboard.Write(clipboard.FmtText, []byte(r.selectionText()))
	r.printf("copied %d tiles\n", len(r.selected))
	return nil
}

func (r *repl) brush(args []string) error {
	b, ok := r.brushes.Get(args[0])
	if !ok {
		return fmt.Errorf("no brush %q", args[0])
	}
	p, err := pos(args[1:])
	if err != nil {
		return err
	}
	t := r.sess.Brush(r.ctx, b, script.Params{Layer: r.layer, Bounds: r.rect, Origin: p, Asset: r.asset}, r.auto)
	r.printf("%s %s\n", t.Name, t.ID)
	return nil
}

func (r *repl) listBrushes([]string) error {
	r.printf("%s\n", strings.Join(r.brushes.Names(), " "))
	return nil
}

func (r *repl) addDecor(args []string) error {
	f, err := floats(args)
	if err != nil {
		return err
	}
	if f[2] < 0 || f[3] < 0 {
		return fmt.Errorf("decor size must not be negative")
	}
	var key chunks.ChunkKey
	r.sess.Edit(func(s *chunks.Store) { key = s.AddDecor(f[0], f[1], r.layer, r.asset, f[2], f[3]) })
	r.printf("decor in chunk %s\n", key)
	return nil
}

func (r *repl) removeDecor(args []string) error {
	f, err := floats(args)
	if err != nil {
		return err
	}
	if _, ok := r.sess.Store().DecorAt(f[0], f[1], r.layer); !ok {
		r.printf("no decor at %g,%g\n", f[0], f[1])
		return nil
	}
	var p chunks.Placed
	r.sess.Edit(func(s *chunks.Store) { p, _ = s.RemoveDecor(f[0], f[1], r.layer) })
	r.printf("removed %s\n", r.describe(p))
	return nil
}

func (r *repl) nearest(args []string) error {
	f, err := floats(args)
	if err != nil {
		return err
	}
	p, ok := r.sess.Store().NearestDecor(r.layer, f[0], f[1])
	if !ok {
		r.printf("no decor on layer %s\n", r.layer)
		return nil
	}
	r.printf("%s\n", r.describe(p))
	return nil
}

func (r *repl) decorRange(args []string) error {
	f, err := floats(args)
	if err != nil {
		return err
	}
	found := r.sess.Store().DecorInRange(r.layer, common.Rect{X: f[0], Y: f[1], Width: f[2], Height: f[3]})
	sort.Slice(found, func(i, j int) bool {
		if found[i].Bounds.Y != found[j].Bounds.Y {
			return found[i].Bounds.Y < found[j].Bounds.Y
		}
		return found[i].Bounds.X < found[j].Bounds.X
	})
	for _, p := range found {
		r.printf("%s\n", r.describe(p))
	}
	r.printf("%d found\n", len(found))
	return nil
}

func (r *repl) describe(p chunks.Placed) string {
	name, _ := r.sess.Store().SheetName(p.Sheet)
	return fmt.Sprintf("%s@%g,%g %gx%g", name, p.Bounds.X, p.Bounds.Y, p.Bounds.Width, p.Bounds.Height)
}

func (r *repl) tile(args []string) error {
	p, err := pos(args)
	if err != nil {
		return err
	}
	t, ok := r.sess.Store().Tile(p, r.layer)
	if !ok {
		r.printf("empty\n")
		return nil
	}
	name, _ := r.sess.Store().SheetName(t.Sheet)
	r.printf("%s %d %d mask=%d auto=%t\n", name, t.Row, t.Col, t.Mask, t.Auto)
	return nil
}

func (r *repl) undo([]string) error {
	if !r.sess.Undo() {
		r.printf("nothing to undo\n")
	}
	return nil
}

func (r *repl) wait([]string) error {
	return r.sess.Settle(r.ctx)
}

func (r *repl) save(args []string) error {
	if err := r.sess.Settle(r.ctx); err != nil {
		return err
	}
	return r.sess.Save(args[0])
}

func (r *repl) load(args []string) error {
	name, ok := strings.CutPrefix(args[0], embedPrefix)
	if !ok {
		return r.sess.Load(args[0])
	}
	snap, err := levels.LoadFromFS(levels.LevelsFS, name)
	if err != nil {
		return err
	}
	return r.sess.Replace(snap)
}

func (r *repl) stats([]string) error {
	st := r.sess.Store().Stats()
	r.printf("chunks=%d layers=%d tiles=%d decor=%d tasks=%d undo=%d\n",
		st.Chunks, st.Layers, st.Tiles, st.Decor, r.sess.Pending(), r.sess.UndoDepth())
	return nil
}

func (r *repl) frame(args []string) error {
	f, err := floats(args)
	if err != nil {
		return err
	}
	views := r.sess.Frame(common.Rect{X: f[0], Y: f[1], Width: f[2], Height: f[3]})
	for _, v := range views {
		tiles, decor := 0, 0
		for _, l := range v.Layers {
			tiles += len(l.Tiles)
			decor += len(l.Decor)
		}
		r.printf("chunk %s rev=%d tiles=%d decor=%d\n", v.Key, v.Rev, tiles, decor)
	}
	return nil
}

func (r *repl) help([]string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.printf("  %s\n", commands[name].usage)
	}
	return nil
}

func (r *repl) exit([]string) error {
	r.quit = true
	return nil
}
