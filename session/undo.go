package session

import "github.com/milk9111/tilemap/chunks"

// undoRing keeps the most recent depth snapshots, dropping the oldest.
type undoRing struct {
	depth int
	snaps []*chunks.Snapshot
}

func (r *undoRing) push(snap *chunks.Snapshot) {
	if r.depth <= 0 {
		return
	}
	if len(r.snaps) >= r.depth {
		copy(r.snaps, r.snaps[1:])
		r.snaps[len(r.snaps)-1] = nil
		r.snaps = r.snaps[:len(r.snaps)-1]
	}
	r.snaps = append(r.snaps, snap)
}

func (r *undoRing) pop() (*chunks.Snapshot, bool) {
	n := len(r.snaps)
	if n == 0 {
		return nil, false
	}
	snap := r.snaps[n-1]
	r.snaps[n-1] = nil
	r.snaps = r.snaps[:n-1]
	return snap, true
}

func (r *undoRing) len() int { return len(r.snaps) }
