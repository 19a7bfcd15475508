package kdtree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/jakecoffman/cp"
)

type entry struct {
	pos cp.Vector
	id  int
}

func randomEntries(r *rand.Rand, n int) []entry {
	out := make([]entry, n)
	for i := range out {
		// coarse grid so duplicate coordinates and distance ties show up
		out[i] = entry{
			pos: cp.Vector{X: float64(r.Intn(64) - 32), Y: float64(r.Intn(64) - 32)},
			id:  i,
		}
	}
	return out
}

func build(entries []entry, itemSize float64) *Tree[int] {
	tree := New[int](itemSize)
	for _, e := range entries {
		tree.Put(e.pos, e.id)
	}
	return tree
}

func TestPutGet(t *testing.T) {
	tree := New[string](4)
	tree.Put(cp.Vector{X: 5, Y: 5}, "a")
	tree.Put(cp.Vector{X: 2, Y: 9}, "b")
	tree.Put(cp.Vector{X: 8, Y: 1}, "c")
	tree.Put(cp.Vector{X: 5, Y: 5}, "dup")

	tests := []struct {
		name string
		pos  cp.Vector
		want string
		ok   bool
	}{
		{"root", cp.Vector{X: 5, Y: 5}, "a", true},
		{"left", cp.Vector{X: 2, Y: 9}, "b", true},
		{"right", cp.Vector{X: 8, Y: 1}, "c", true},
		{"missing", cp.Vector{X: 3, Y: 3}, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tree.Get(tc.pos)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("Get(%v) = %q, %v; want %q, %v", tc.pos, got, ok, tc.want, tc.ok)
			}
		})
	}
	if tree.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", tree.Len())
	}
}

func TestRangeMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 40; round++ {
		entries := randomEntries(r, 1+r.Intn(120))
		itemSize := float64(r.Intn(12))
		tree := build(entries, itemSize)

		x, y := float64(r.Intn(80)-40), float64(r.Intn(80)-40)
		query := cp.BB{L: x, B: y, R: x + float64(r.Intn(30)), T: y + float64(r.Intn(30))}

		var want []int
		for _, e := range entries {
			if query.Intersects(tree.Footprint(e.pos)) {
				want = append(want, e.id)
			}
		}
		got := tree.Range(query)
		sort.Ints(got)
		sort.Ints(want)

		if len(got) != len(want) {
			t.Fatalf("round %d: Range returned %d ids, brute force %d\n got=%v\nwant=%v", round, len(got), len(want), got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("round %d: mismatch at %d: got=%v want=%v", round, i, got, want)
			}
		}
	}
}

func TestNearestMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for round := 0; round < 60; round++ {
		entries := randomEntries(r, 1+r.Intn(100))
		tree := build(entries, 8)

		q := cp.Vector{X: float64(r.Intn(100) - 50), Y: float64(r.Intn(100) - 50)}
		best := entries[0]
		for _, e := range entries[1:] {
			if q.DistanceSq(e.pos) < q.DistanceSq(best.pos) {
				best = e
			}
		}

		pos, id, ok := tree.Nearest(q)
		if !ok {
			t.Fatalf("round %d: Nearest reported empty tree", round)
		}
		if id != best.id || !pos.Equal(best.pos) {
			t.Fatalf("round %d: Nearest(%v) = #%d %v, want #%d %v", round, q, id, pos, best.id, best.pos)
		}
	}
}

func TestNearestEmptyAndClear(t *testing.T) {
	tree := New[int](1)
	if _, _, ok := tree.Nearest(cp.Vector{}); ok {
		t.Fatalf("empty tree should report no nearest point")
	}
	tree.Put(cp.Vector{X: 1, Y: 1}, 1)
	tree.Clear()
	if tree.Len() != 0 {
		t.Fatalf("Clear should reset length")
	}
	if _, ok := tree.Get(cp.Vector{X: 1, Y: 1}); ok {
		t.Fatalf("Clear should drop entries")
	}
}

func TestEachVisitsAll(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	entries := randomEntries(r, 50)
	tree := build(entries, 2)

	seen := make(map[int]bool)
	tree.Each(func(_ cp.Vector, id int) { seen[id] = true })
	if len(seen) != len(entries) {
		t.Fatalf("Each visited %d entries, want %d", len(seen), len(entries))
	}
}
