// Package region implements the bounded tile-space walks of the editor:
// flood fill, cull, mask select and batch autotiling.
//
// Each walk comes in two forms. The *Plan functions only read, so they can
// run in a background task against a snapshot. FloodFill and Cull apply a
// plan to a live store in one go.
package region

import (
	"math"

	"gopkg.in/eapache/queue.v1"

	"github.com/milk9111/tilemap/chunks"
)

var unbounded = chunks.TileRect{MinX: math.MinInt, MinY: math.MinInt, MaxX: math.MaxInt, MaxY: math.MaxInt}

// occupied collects every tile on layer in the chunks ChunksIn reports for
// bounds, including the padding ring.
func occupied(r chunks.Reader, layer chunks.Layer, bounds chunks.TileRect) map[chunks.TilePos]struct{} {
	geo := r.Geometry()
	closed := make(map[chunks.TilePos]struct{})
	for _, key := range r.ChunksIn(bounds, true) {
		for _, t := range r.TileLayer(key, layer) {
			closed[geo.Global(key, t.X, t.Y)] = struct{}{}
		}
	}
	return closed
}

// walk runs a 4-connected breadth-first search from seed. accept decides
// whether a neighbour joins the frontier; visited cells are added to closed.
func walk(seed chunks.TilePos, bounds chunks.TileRect, closed map[chunks.TilePos]struct{}, accept func(chunks.TilePos) bool) []chunks.TilePos {
	var out []chunks.TilePos
	frontier := queue.New()
	closed[seed] = struct{}{}
	frontier.Add(seed)

	for frontier.Length() > 0 {
		pos := frontier.Remove().(chunks.TilePos)
		out = append(out, pos)
		for _, n := range pos.Neighbors() {
			if !bounds.Contains(n) {
				continue
			}
			if _, seen := closed[n]; seen {
				continue
			}
			if !accept(n) {
				continue
			}
			closed[n] = struct{}{}
			frontier.Add(n)
		}
	}
	return out
}

// FloodPlan returns the empty cells reachable from seed inside bounds,
// in visiting order. Existing tiles on layer act as walls; an occupied or
// out-of-bounds seed yields nothing.
func FloodPlan(r chunks.Reader, seed chunks.TilePos, layer chunks.Layer, bounds chunks.TileRect) []chunks.TilePos {
	if !bounds.Contains(seed) {
		return nil
	}
	closed := occupied(r, layer, bounds)
	if _, taken := closed[seed]; taken {
		return nil
	}
	return walk(seed, bounds, closed, func(chunks.TilePos) bool { return true })
}

// CullPlan returns every tile on layer inside bounds.
func CullPlan(r chunks.Reader, layer chunks.Layer, bounds chunks.TileRect) []chunks.TilePos {
	geo := r.Geometry()
	var out []chunks.TilePos
	for _, key := range r.ChunksIn(bounds, true) {
		for _, t := range r.TileLayer(key, layer) {
			pos := geo.Global(key, t.X, t.Y)
			if bounds.Contains(pos) {
				out = append(out, pos)
			}
		}
	}
	return out
}

// MaskSelect returns the connected group of existing tiles on layer that
// contains seed. A nil bounds searches without limit.
func MaskSelect(r chunks.Reader, seed chunks.TilePos, layer chunks.Layer, bounds *chunks.TileRect) []chunks.TilePos {
	limit := unbounded
	if bounds != nil {
		limit = *bounds
	}
	if !limit.Contains(seed) || !r.HasTile(seed, layer) {
		return nil
	}
	closed := make(map[chunks.TilePos]struct{})
	return walk(seed, limit, closed, func(p chunks.TilePos) bool { return r.HasTile(p, layer) })
}

// MaskUpdate is a recomputed autotile mask.
type MaskUpdate struct {
	Pos  chunks.TilePos
	Mask uint8
}

// AutotilePlan recomputes the mask of every tile on layer inside bounds and
// returns the ones that changed.
func AutotilePlan(r chunks.Reader, layer chunks.Layer, bounds chunks.TileRect) []MaskUpdate {
	var out []MaskUpdate
	for _, pos := range CullPlan(r, layer, bounds) {
		t, _ := r.Tile(pos, layer)
		if mask := chunks.Bitsum(r, pos, layer); mask != t.Mask {
			out = append(out, MaskUpdate{Pos: pos, Mask: mask})
		}
	}
	return out
}

// FloodFill paints the cells FloodPlan finds and returns them.
func FloodFill(s *chunks.Store, seed chunks.TilePos, layer chunks.Layer, bounds chunks.TileRect, asset chunks.Asset, autotile bool) []chunks.TilePos {
	plan := FloodPlan(s, seed, layer, bounds)
	for _, pos := range plan {
		s.AddTile(pos, layer, asset, autotile)
	}
	return plan
}

// Cull erases every tile on layer inside bounds and returns their positions.
func Cull(s *chunks.Store, layer chunks.Layer, bounds chunks.TileRect, autotile bool) []chunks.TilePos {
	plan := CullPlan(s, layer, bounds)
	for _, pos := range plan {
		s.RemoveTile(pos, layer, autotile)
	}
	return plan
}
