// Package kdtree is a point-indexed 2D tree that splits alternately on the x
// and y axes. It does no rebalancing; shape depends on insertion order.
package kdtree

import (
	"math"

	"github.com/jakecoffman/cp"
)

type node[T any] struct {
	pos   cp.Vector
	value T
	seq   int
	left  *node[T]
	right *node[T]
}

// Tree indexes payloads of type T by position. Each point is treated as an
// itemSize x itemSize footprint centred on it for range queries.
type Tree[T any] struct {
	root     *node[T]
	n        int
	seq      int
	itemSize float64
}

var everywhere = cp.BB{L: math.Inf(-1), B: math.Inf(-1), R: math.Inf(1), T: math.Inf(1)}

func New[T any](itemSize float64) *Tree[T] {
	if itemSize < 0 {
		itemSize = 0
	}
	return &Tree[T]{itemSize: itemSize}
}

func (t *Tree[T]) Len() int { return t.n }

func (t *Tree[T]) ItemSize() float64 { return t.itemSize }

// Clear drops every point but keeps the footprint size.
func (t *Tree[T]) Clear() {
	t.root = nil
	t.n = 0
	t.seq = 0
}

// Footprint returns the box range queries test for a point at pos.
func (t *Tree[T]) Footprint(pos cp.Vector) cp.BB {
	h := t.itemSize / 2
	return cp.NewBBForExtents(pos, h, h)
}

// Put inserts value at pos as a new leaf. Equal positions are kept as
// separate entries.
func (t *Tree[T]) Put(pos cp.Vector, value T) {
	n := &node[T]{pos: pos, value: value, seq: t.seq}
	t.seq++
	t.n++
	if t.root == nil {
		t.root = n
		return
	}

	cur := t.root
	vertical := true
	for {
		if less(pos, cur.pos, vertical) {
			if cur.left == nil {
				cur.left = n
				return
			}
			cur = cur.left
		} else {
			if cur.right == nil {
				cur.right = n
				return
			}
			cur = cur.right
		}
		vertical = !vertical
	}
}

// Get returns the first inserted payload stored exactly at pos.
func (t *Tree[T]) Get(pos cp.Vector) (T, bool) {
	cur := t.root
	vertical := true
	for cur != nil {
		if cur.pos.Equal(pos) {
			return cur.value, true
		}
		if less(pos, cur.pos, vertical) {
			cur = cur.left
		} else {
			cur = cur.right
		}
		vertical = !vertical
	}
	var zero T
	return zero, false
}

// Range returns the payloads whose footprint intersects query.
func (t *Tree[T]) Range(query cp.BB) []T {
	var found []T
	h := t.itemSize / 2
	reach := cp.BB{L: query.L - h, B: query.B - h, R: query.R + h, T: query.T + h}
	t.rangeAt(t.root, query, reach, everywhere, true, &found)
	return found
}

func (t *Tree[T]) rangeAt(n *node[T], query, reach, region cp.BB, vertical bool, found *[]T) {
	if n == nil {
		return
	}
	// every point below n lies inside region; a footprint can only reach the
	// query if its centre lies within half an item of it.
	if !reach.Intersects(region) {
		return
	}
	if query.Intersects(t.Footprint(n.pos)) {
		*found = append(*found, n.value)
	}
	lo, hi := split(region, n.pos, vertical)
	t.rangeAt(n.left, query, reach, lo, !vertical, found)
	t.rangeAt(n.right, query, reach, hi, !vertical, found)
}

// Nearest returns the point closest to pos. Ties go to the earliest insert.
func (t *Tree[T]) Nearest(pos cp.Vector) (cp.Vector, T, bool) {
	if t.root == nil {
		var zero T
		return cp.Vector{}, zero, false
	}
	best := t.root
	bestD := pos.DistanceSq(best.pos)
	nearestAt(t.root, pos, everywhere, true, &best, &bestD)
	return best.pos, best.value, true
}

func nearestAt[T any](n *node[T], pos cp.Vector, region cp.BB, vertical bool, best **node[T], bestD *float64) {
	if n == nil {
		return
	}
	if rectDistSq(region, pos) > *bestD {
		return
	}

	d := pos.DistanceSq(n.pos)
	if d < *bestD || (d == *bestD && n.seq < (*best).seq) {
		*best = n
		*bestD = d
	}

	lo, hi := split(region, n.pos, vertical)
	if less(pos, n.pos, vertical) {
		nearestAt(n.left, pos, lo, !vertical, best, bestD)
		nearestAt(n.right, pos, hi, !vertical, best, bestD)
	} else {
		nearestAt(n.right, pos, hi, !vertical, best, bestD)
		nearestAt(n.left, pos, lo, !vertical, best, bestD)
	}
}

// Each visits every entry in insertion-independent tree order.
func (t *Tree[T]) Each(fn func(pos cp.Vector, value T)) {
	var walk func(n *node[T])
	walk = func(n *node[T]) {
		if n == nil {
			return
		}
		walk(n.left)
		fn(n.pos, n.value)
		walk(n.right)
	}
	walk(t.root)
}

// less compares on x when vertical, else on y.
func less(a, b cp.Vector, vertical bool) bool {
	if vertical {
		return a.X < b.X
	}
	return a.Y < b.Y
}

func split(region cp.BB, p cp.Vector, vertical bool) (lo, hi cp.BB) {
	lo, hi = region, region
	if vertical {
		lo.R = p.X
		hi.L = p.X
	} else {
		lo.T = p.Y
		hi.B = p.Y
	}
	return lo, hi
}

func rectDistSq(r cp.BB, p cp.Vector) float64 {
	return r.ClampVect(&p).DistanceSq(p)
}
