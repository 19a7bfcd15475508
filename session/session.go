// Package session coordinates a live chunk store with its undo history,
// the background tasks that edit it, and the render cache that mirrors it.
// A Session is driven from one goroutine, one Tick per frame.
package session

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/tilemap/chunks"
	"github.com/milk9111/tilemap/common"
	"github.com/milk9111/tilemap/levels"
	"github.com/milk9111/tilemap/render"
	"github.com/milk9111/tilemap/task"
)

// DefaultUndoDepth matches the editor's historical undo limit.
const DefaultUndoDepth = 100

type Options struct {
	// UndoDepth is the number of undo steps kept. Zero disables undo.
	UndoDepth int
	// ApplyPerTick caps the task messages applied per Tick. Zero means no
	// cap.
	ApplyPerTick int
	// Cache, if set, is kept in sync with the store.
	Cache *render.Cache
	Log   logrus.FieldLogger
}

type Session struct {
	store        *chunks.Store
	undo         undoRing
	tasks        []*task.Task
	applied      map[*task.Task]int
	cache        *render.Cache
	log          logrus.FieldLogger
	applyPerTick int
}

func New(store *chunks.Store, opts Options) *Session {
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Session{
		store:        store,
		undo:         undoRing{depth: opts.UndoDepth},
		applied:      make(map[*task.Task]int),
		cache:        opts.Cache,
		log:          log,
		applyPerTick: opts.ApplyPerTick,
	}
}

// Store returns the live store. Mutations made directly are not undoable
// unless preceded by Checkpoint.
func (s *Session) Store() *chunks.Store { return s.store }

// Checkpoint prunes the store, records it as an undo step and returns the
// snapshot taken.
func (s *Session) Checkpoint() *chunks.Snapshot {
	s.store.Prune()
	snap := s.store.Snapshot()
	s.undo.push(snap)
	return snap
}

// Edit checkpoints and then runs fn against the live store, making fn one
// undo step.
func (s *Session) Edit(fn func(*chunks.Store)) {
	s.Checkpoint()
	fn(s.store)
}

// UndoDepth is the number of steps Undo can currently take.
func (s *Session) UndoDepth() int { return s.undo.len() }

// Undo restores the most recent checkpoint. Running tasks are cancelled
// first. It reports false when there is nothing to undo.
func (s *Session) Undo() bool {
	snap, ok := s.undo.pop()
	if !ok {
		return false
	}
	s.CancelAll()
	s.store.Restore(snap)
	s.invalidate()
	s.log.WithField("remaining", s.undo.len()).Info("undo")
	return true
}

func (s *Session) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

// Run starts fn as a background task on a fresh checkpoint.
func (s *Session) Run(ctx context.Context, kind string, fn task.Func) *task.Task {
	snap := s.Checkpoint()
	t := task.Start(ctx, kind, snap, fn)
	s.tasks = append(s.tasks, t)
	s.log.WithFields(logrus.Fields{"task": kind, "id": t.ID}).Info("task started")
	return t
}

// Pending is the number of tasks not yet retired.
func (s *Session) Pending() int { return len(s.tasks) }

// CancelAll stops every running task and drops its undelivered messages.
func (s *Session) CancelAll() {
	for _, t := range s.tasks {
		t.Cancel()
		s.retire(t)
	}
	s.tasks = s.tasks[:0]
}

// Tick drains each running task once, applying its messages in order, and
// retires tasks that have finished, failed or been cancelled. It returns
// the number of messages applied.
func (s *Session) Tick() int {
	total := 0
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		limit := 0
		if s.applyPerTick > 0 {
			limit = s.applyPerTick - total
			if limit <= 0 {
				kept = append(kept, t)
				continue
			}
		}

		msgs, status := t.Poll(limit)
		for _, m := range msgs {
			s.apply(m)
		}
		s.applied[t] += len(msgs)
		total += len(msgs)

		if status == task.Running {
			kept = append(kept, t)
			continue
		}
		s.retire(t)
	}
	clear(s.tasks[len(kept):])
	s.tasks = kept
	return total
}

func (s *Session) retire(t *task.Task) {
	entry := s.log.WithFields(logrus.Fields{
		"task":    t.Name,
		"id":      t.ID,
		"applied": s.applied[t],
	})
	delete(s.applied, t)

	switch t.Status() {
	case task.Finished:
		entry.Info("task finished")
	case task.Failed:
		entry.WithError(t.Err()).WithField("discarded", t.Discarded()).Warn("task failed")
	case task.Cancelled:
		entry.WithField("discarded", t.Discarded()).Info("task cancelled")
	}
}

func (s *Session) apply(m task.Message) {
	switch m.Kind {
	case task.Paint:
		s.store.AddTile(m.Pos, m.Layer, m.Asset, m.Autotile)
	case task.Erase:
		s.store.RemoveTile(m.Pos, m.Layer, m.Autotile)
	case task.SetMask:
		s.store.SetMask(m.Pos, m.Layer, m.Mask)
	}
}

// Settle ticks until every task has retired or ctx is done.
func (s *Session) Settle(ctx context.Context) error {
	for len(s.tasks) > 0 {
		for _, t := range s.tasks {
			select {
			case <-t.Exited():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		s.Tick()
	}
	return nil
}

// Frame returns the draw lists of every chunk that can contribute pixels
// to view, syncing the render cache with the store first.
func (s *Session) Frame(view common.Rect) []*chunks.ChunkView {
	geo := s.store.Geometry()
	keys := s.store.ChunksIn(geo.TileBounds(view), true)
	if s.cache == nil {
		s.store.DrainDirty()
		out := make([]*chunks.ChunkView, 0, len(keys))
		for _, key := range keys {
			if v, ok := s.store.ChunkView(key); ok {
				out = append(out, v)
			}
		}
		return out
	}
	s.cache.Sync(s.store)
	return s.cache.Frame(s.store, keys)
}

// Save writes the current store to path.
func (s *Session) Save(path string) error {
	if err := levels.Save(path, s.store.Snapshot()); err != nil {
		return err
	}
	s.log.WithField("path", path).Info("saved")
	return nil
}

// Load replaces the store with the document at path. A document that fails
// to decode or was drawn on another grid leaves the store untouched. A
// successful load is undoable.
func (s *Session) Load(path string) error {
	snap, err := levels.Load(path)
	if err != nil {
		return err
	}
	if err := s.Replace(snap); err != nil {
		return err
	}
	s.log.WithField("path", path).Info("loaded")
	return nil
}

// Replace swaps in snap as one undo step.
func (s *Session) Replace(snap *chunks.Snapshot) error {
	if snap == nil {
		return errors.New("session: nil snapshot")
	}
	if err := levels.Match(snap, s.store.Geometry()); err != nil {
		return err
	}
	s.CancelAll()
	s.Checkpoint()
	s.store.Restore(snap)
	s.invalidate()
	return nil
}
