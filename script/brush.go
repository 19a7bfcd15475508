// Package script runs user brushes written in tengo. A brush sees the
// target area through a read-only view and returns the strokes it wants;
// it never touches a store itself.
package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/milk9111/tilemap/chunks"
)

// maxAllocs caps the objects one brush run may allocate.
const maxAllocs = 1 << 22

// Brush is a compiled brush script. Runs use private clones, so one brush
// can plan on several goroutines at once.
type Brush struct {
	Name     string
	compiled *tengo.Compiled
}

// Params describes what a brush is asked to draw.
type Params struct {
	Layer  chunks.Layer
	Bounds chunks.TileRect
	// Origin is the tile under the cursor.
	Origin chunks.TilePos
	Asset  chunks.Asset
}

// Stroke is one write planned by a brush.
type Stroke struct {
	Pos   chunks.TilePos
	Asset chunks.Asset
	Erase bool
}

func Compile(name string, src []byte) (*Brush, error) {
	script := tengo.NewScript(src)
	_ = script.Add("brush", map[string]any{})
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	script.SetMaxAllocs(maxAllocs)

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile brush %s: %w", name, err)
	}
	return &Brush{Name: name, compiled: compiled}, nil
}

// LoadFile compiles the brush at path, naming it after the file.
func LoadFile(path string) (*Brush, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read brush: %w", err)
	}
	return Compile(NameOf(path), src)
}

// NameOf returns the brush name for a script path.
func NameOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// Plan runs the brush against r and returns its strokes. Strokes outside
// p.Bounds are dropped. Cancelling ctx aborts the script.
func (b *Brush) Plan(ctx context.Context, r chunks.Reader, p Params) ([]Stroke, error) {
	run := b.compiled.Clone()
	var strokes []Stroke

	if err := run.Set("brush", hostAPI(r, p, &strokes)); err != nil {
		return nil, err
	}
	if err := run.RunContext(ctx); err != nil {
		return nil, fmt.Errorf("run brush %s: %w", b.Name, err)
	}
	return strokes, nil
}

func hostAPI(r chunks.Reader, p Params, strokes *[]Stroke) *tengo.ImmutableMap {
	values := map[string]tengo.Object{
		"layer": &tengo.String{Value: string(p.Layer)},
		"x":     &tengo.Int{Value: int64(p.Origin.X)},
		"y":     &tengo.Int{Value: int64(p.Origin.Y)},
		"min_x": &tengo.Int{Value: int64(p.Bounds.MinX)},
		"min_y": &tengo.Int{Value: int64(p.Bounds.MinY)},
		"max_x": &tengo.Int{Value: int64(p.Bounds.MaxX)},
		"max_y": &tengo.Int{Value: int64(p.Bounds.MaxY)},
		"sheet": &tengo.String{Value: p.Asset.Sheet},
		"row":   &tengo.Int{Value: int64(p.Asset.Row)},
		"col":   &tengo.Int{Value: int64(p.Asset.Col)},
	}

	values["has"] = &tengo.UserFunction{Name: "has", Value: func(args ...tengo.Object) (tengo.Object, error) {
		pos, err := posArgs("has", args, 2)
		if err != nil {
			return nil, err
		}
		if r.HasTile(pos, p.Layer) {
			return tengo.TrueValue, nil
		}
		return tengo.FalseValue, nil
	}}

	// paint(x, y) uses the brush asset; paint(x, y, sheet, row, col) picks one.
	values["paint"] = &tengo.UserFunction{Name: "paint", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 2 && len(args) != 5 {
			return nil, tengo.ErrWrongNumArguments
		}
		pos, err := posArgs("paint", args, len(args))
		if err != nil {
			return nil, err
		}
		asset := p.Asset
		if len(args) == 5 {
			sheet, ok := tengo.ToString(args[2])
			if !ok {
				return nil, tengo.ErrInvalidArgumentType{Name: "sheet", Expected: "string", Found: args[2].TypeName()}
			}
			row, ok := tengo.ToInt64(args[3])
			if !ok || row < 0 {
				return nil, tengo.ErrInvalidArgumentType{Name: "row", Expected: "non-negative int", Found: args[3].TypeName()}
			}
			col, ok := tengo.ToInt64(args[4])
			if !ok || col < 0 {
				return nil, tengo.ErrInvalidArgumentType{Name: "col", Expected: "non-negative int", Found: args[4].TypeName()}
			}
			asset = chunks.Asset{Sheet: sheet, Row: uint32(row), Col: uint32(col)}
		}
		if !p.Bounds.Contains(pos) {
			return tengo.FalseValue, nil
		}
		*strokes = append(*strokes, Stroke{Pos: pos, Asset: asset})
		return tengo.TrueValue, nil
	}}

	values["erase"] = &tengo.UserFunction{Name: "erase", Value: func(args ...tengo.Object) (tengo.Object, error) {
		pos, err := posArgs("erase", args, 2)
		if err != nil {
			return nil, err
		}
		if !p.Bounds.Contains(pos) {
			return tengo.FalseValue, nil
		}
		*strokes = append(*strokes, Stroke{Pos: pos, Erase: true})
		return tengo.TrueValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

// posArgs reads the leading x, y pair of a host call taking want arguments.
func posArgs(name string, args []tengo.Object, want int) (chunks.TilePos, error) {
	if len(args) != want {
		return chunks.TilePos{}, tengo.ErrWrongNumArguments
	}
	x, ok := tengo.ToInt(args[0])
	if !ok {
		return chunks.TilePos{}, tengo.ErrInvalidArgumentType{Name: name + " x", Expected: "int", Found: args[0].TypeName()}
	}
	y, ok := tengo.ToInt(args[1])
	if !ok {
		return chunks.TilePos{}, tengo.ErrInvalidArgumentType{Name: name + " y", Expected: "int", Found: args[1].TypeName()}
	}
	return chunks.TilePos{X: x, Y: y}, nil
}
