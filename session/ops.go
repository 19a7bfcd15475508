package session

import (
	"context"

	"github.com/milk9111/tilemap/chunks"
	"github.com/milk9111/tilemap/region"
	"github.com/milk9111/tilemap/script"
	"github.com/milk9111/tilemap/task"
)

// Flood fills the empty cells reachable from seed inside bounds.
func (s *Session) Flood(ctx context.Context, seed chunks.TilePos, layer chunks.Layer, bounds chunks.TileRect, asset chunks.Asset, autotile bool) *task.Task {
	return s.Run(ctx, "flood", func(ctx context.Context, snap *chunks.Snapshot, out *task.Emitter) error {
		for _, pos := range region.FloodPlan(snap, seed, layer, bounds) {
			if err := out.Paint(pos, layer, asset, autotile); err != nil {
				return err
			}
		}
		return nil
	})
}

// Cull erases every tile on layer inside bounds.
func (s *Session) Cull(ctx context.Context, layer chunks.Layer, bounds chunks.TileRect, autotile bool) *task.Task {
	return s.Run(ctx, "cull", func(ctx context.Context, snap *chunks.Snapshot, out *task.Emitter) error {
		for _, pos := range region.CullPlan(snap, layer, bounds) {
			if err := out.Erase(pos, layer, autotile); err != nil {
				return err
			}
		}
		return nil
	})
}

// Autotile recomputes the mask of every tile on layer inside bounds.
func (s *Session) Autotile(ctx context.Context, layer chunks.Layer, bounds chunks.TileRect) *task.Task {
	return s.Run(ctx, "autotile", func(ctx context.Context, snap *chunks.Snapshot, out *task.Emitter) error {
		for _, u := range region.AutotilePlan(snap, layer, bounds) {
			if err := out.SetMask(u.Pos, layer, u.Mask); err != nil {
				return err
			}
		}
		return nil
	})
}

// Brush runs a scripted brush and applies its strokes.
func (s *Session) Brush(ctx context.Context, b *script.Brush, p script.Params, autotile bool) *task.Task {
	return s.Run(ctx, "brush:"+b.Name, func(ctx context.Context, snap *chunks.Snapshot, out *task.Emitter) error {
		strokes, err := b.Plan(ctx, snap, p)
		if err != nil {
			return err
		}
		for _, st := range strokes {
			if st.Erase {
				err = out.Erase(st.Pos, p.Layer, autotile)
			} else {
				err = out.Paint(st.Pos, p.Layer, st.Asset, autotile)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
