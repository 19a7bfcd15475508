package chunks

import (
	"math"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilemap/common"
	"github.com/milk9111/tilemap/kdtree"
	"github.com/milk9111/tilemap/sheets"
)

// Placed is a decoration resolved to world pixels.
type Placed struct {
	Layer  Layer
	Bounds common.Rect
	Sheet  sheets.ID
	Row    uint32
	Col    uint32
}

// Centre is the point the decoration is indexed under.
func (p Placed) Centre() cp.Vector {
	return cp.Vector{X: p.Bounds.X + p.Bounds.Width/2, Y: p.Bounds.Y + p.Bounds.Height/2}
}

// isPrimary reports whether d is the replica stored in the chunk holding the
// decoration's top-left corner. Every other replica sits right of or below
// its origin chunk, so one of its coordinates is negative.
func isPrimary(d Decor) bool { return d.X >= 0 && d.Y >= 0 }

// axisOrigin returns the chunk coordinate holding w along one axis, chosen
// so that w's offset inside it stays in [0, cpx) despite rounding.
func axisOrigin(w, cpx float64) int {
	k := common.FloorToInt(w / cpx)
	if rel := w - float64(k)*cpx; rel < 0 {
		k--
	} else if rel >= cpx {
		k++
	}
	return k
}

// decorSpan returns the chunks a decoration's box overlaps. The origin
// chunk is always included.
func (g Geometry) decorSpan(x, y, w, h float64) (lo, hi ChunkKey) {
	cpx := float64(g.ChunkPixels())
	lo.X = axisOrigin(x, cpx)
	lo.Y = axisOrigin(y, cpx)
	hi.X = max(lo.X, common.CeilToInt((x+w)/cpx)-1)
	hi.Y = max(lo.Y, common.CeilToInt((y+h)/cpx)-1)
	return lo, hi
}

// AddDecor places a w x h decoration with its top-left corner at world
// pixel (x, y), writing one replica into every chunk the box overlaps. It
// returns the origin chunk.
func (s *Store) AddDecor(x, y float64, layer Layer, asset Asset, w, h float64) ChunkKey {
	w, h = max(w, 0), max(h, 0)
	cpx := float64(s.geo.ChunkPixels())
	id := s.refs.ID(asset.Sheet)

	lo, hi := s.geo.decorSpan(x, y, w, h)
	for ky := lo.Y; ky <= hi.Y; ky++ {
		for kx := lo.X; kx <= hi.X; kx++ {
			key := ChunkKey{X: kx, Y: ky}
			c := s.chunkFor(key)
			c.Decor[layer] = append(c.Decor[layer], Decor{
				X:     x - float64(kx)*cpx,
				Y:     y - float64(ky)*cpx,
				Sheet: id,
				Row:   asset.Row,
				Col:   asset.Col,
				W:     w,
				H:     h,
			})
			s.markDirty(key)
		}
	}

	if !s.indexStale && s.index != nil {
		origin := s.chunks[lo].Decor[layer]
		s.indexPut(s.placed(lo, layer, origin[len(origin)-1]))
	}
	return lo
}

// DecorAt returns the first decoration on layer whose box contains world
// pixel (x, y). Boxes are half-open, except that an axis of zero size
// contains its single coordinate.
func (s *Store) DecorAt(x, y float64, layer Layer) (Placed, bool) {
	key, hit, ok := s.decorAt(x, y, layer)
	if !ok {
		return Placed{}, false
	}
	return s.placed(key, layer, hit), true
}

func (s *Store) decorAt(x, y float64, layer Layer) (ChunkKey, Decor, bool) {
	cpx := float64(s.geo.ChunkPixels())
	key := ChunkKey{X: common.FloorToInt(x / cpx), Y: common.FloorToInt(y / cpx)}
	c, ok := s.chunks[key]
	if !ok {
		return key, Decor{}, false
	}
	px, py := x-float64(key.X)*cpx, y-float64(key.Y)*cpx
	for _, d := range c.Decor[layer] {
		if covers(d.X, d.W, px) && covers(d.Y, d.H, py) {
			return key, d, true
		}
	}
	return key, Decor{}, false
}

// covers tests p against the span [lo, lo+size), or the point lo when size
// is zero.
func covers(lo, size, p float64) bool {
	if size == 0 {
		return p == lo
	}
	return p >= lo && p < lo+size
}

// RemoveDecor deletes the decoration DecorAt finds, together with all of its
// replicas.
func (s *Store) RemoveDecor(x, y float64, layer Layer) (Placed, bool) {
	key, hit, found := s.decorAt(x, y, layer)
	if !found {
		return Placed{}, false
	}
	cpx := float64(s.geo.ChunkPixels())

	p := s.placed(key, layer, hit)
	wx, wy := p.Bounds.X, p.Bounds.Y
	lo, hi := s.geo.decorSpan(wx, wy, hit.W, hit.H)
	// one chunk of slack absorbs rounding in the re-derived origin
	for ky := lo.Y - 1; ky <= hi.Y+1; ky++ {
		for kx := lo.X - 1; kx <= hi.X+1; kx++ {
			rk := ChunkKey{X: kx, Y: ky}
			rc, ok := s.chunks[rk]
			if !ok {
				continue
			}
			ex, ey := wx-float64(kx)*cpx, wy-float64(ky)*cpx
			decor := rc.Decor[layer]
			for i, d := range decor {
				if sameDecor(d, hit) && near(d.X, ex) && near(d.Y, ey) {
					rc.Decor[layer] = append(decor[:i], decor[i+1:]...)
					s.markDirty(rk)
					break
				}
			}
		}
	}
	s.indexStale = true
	return p, true
}

func sameDecor(a, b Decor) bool {
	return a.Sheet == b.Sheet && a.Row == b.Row && a.Col == b.Col && a.W == b.W && a.H == b.H
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6*math.Max(1, math.Abs(b))
}

func (s *Store) placed(key ChunkKey, layer Layer, d Decor) Placed {
	cpx := float64(s.geo.ChunkPixels())
	return Placed{
		Layer: layer,
		Bounds: common.Rect{
			X:      float64(key.X)*cpx + d.X,
			Y:      float64(key.Y)*cpx + d.Y,
			Width:  d.W,
			Height: d.H,
		},
		Sheet: d.Sheet,
		Row:   d.Row,
		Col:   d.Col,
	}
}

func (s *Store) indexPut(p Placed) {
	tree, ok := s.index[p.Layer]
	if !ok {
		tree = kdtree.New[Placed](s.geo.itemSize())
		s.index[p.Layer] = tree
	}
	tree.Put(p.Centre(), p)
}

func (s *Store) decorIndex(layer Layer) *kdtree.Tree[Placed] {
	if s.index == nil || s.indexStale {
		s.index = make(map[Layer]*kdtree.Tree[Placed])
		for _, key := range s.Keys() {
			c := s.chunks[key]
			for l, decor := range c.Decor {
				for _, d := range decor {
					if isPrimary(d) {
						s.indexPut(s.placed(key, l, d))
					}
				}
			}
		}
		s.indexStale = false
	}
	return s.index[layer]
}

// DecorInRange returns the decorations on layer whose indexed footprint
// intersects r.
func (s *Store) DecorInRange(layer Layer, r common.Rect) []Placed {
	tree := s.decorIndex(layer)
	if tree == nil {
		return nil
	}
	return tree.Range(cp.BB{L: r.X, B: r.Y, R: r.Right(), T: r.Bottom()})
}

// NearestDecor returns the decoration on layer whose centre is closest to
// world pixel (x, y).
func (s *Store) NearestDecor(layer Layer, x, y float64) (Placed, bool) {
	tree := s.decorIndex(layer)
	if tree == nil {
		return Placed{}, false
	}
	_, p, ok := tree.Nearest(cp.Vector{X: x, Y: y})
	return p, ok
}
