// Package task runs long region operations off the main loop. A task reads
// an immutable snapshot and reports its writes as an ordered stream of
// messages ending in a Done sentinel; the owner of the live store drains
// that stream once per tick and applies it.
package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/milk9111/tilemap/chunks"
)

var (
	// ErrTaskFailed is reported when a task's stream ends without Done.
	ErrTaskFailed = errors.New("task failed")
	// ErrTaskCancelled is reported for tasks stopped through their context.
	ErrTaskCancelled = errors.New("task cancelled")
)

type Kind int

const (
	Paint Kind = iota
	Erase
	SetMask
	Done
)

func (k Kind) String() string {
	switch k {
	case Paint:
		return "paint"
	case Erase:
		return "erase"
	case SetMask:
		return "mask"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is one write a task asks the main loop to perform.
type Message struct {
	Kind     Kind
	Pos      chunks.TilePos
	Layer    chunks.Layer
	Asset    chunks.Asset
	Autotile bool
	Mask     uint8
}

type Status int

const (
	Running Status = iota
	Finished
	Failed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Emitter is the write side a task function sends through. Every method
// fails once the task's context is done.
type Emitter struct {
	ctx context.Context
	box *mailbox
}

func (e *Emitter) Send(msg Message) error {
	if err := e.ctx.Err(); err != nil {
		return err
	}
	if msg.Kind == Done {
		return fmt.Errorf("%w: Done is reserved", ErrTaskFailed)
	}
	if !e.box.push(msg) {
		return ErrTaskCancelled
	}
	return nil
}

func (e *Emitter) Paint(pos chunks.TilePos, layer chunks.Layer, asset chunks.Asset, autotile bool) error {
	return e.Send(Message{Kind: Paint, Pos: pos, Layer: layer, Asset: asset, Autotile: autotile})
}

func (e *Emitter) Erase(pos chunks.TilePos, layer chunks.Layer, autotile bool) error {
	return e.Send(Message{Kind: Erase, Pos: pos, Layer: layer, Autotile: autotile})
}

func (e *Emitter) SetMask(pos chunks.TilePos, layer chunks.Layer, mask uint8) error {
	return e.Send(Message{Kind: SetMask, Pos: pos, Layer: layer, Mask: mask})
}

// Func is the body of a task. It must only read snap and only write
// through out.
type Func func(ctx context.Context, snap *chunks.Snapshot, out *Emitter) error

// Task is a running background operation. Its methods are meant to be
// called from the goroutine that owns the live store.
type Task struct {
	ID   string
	Name string

	box    *mailbox
	cancel context.CancelFunc
	exited chan struct{}

	status    Status
	err       error
	discarded int
}

// Start launches fn on its own goroutine against snap.
func Start(ctx context.Context, name string, snap *chunks.Snapshot, fn Func) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		ID:     uuid.NewString(),
		Name:   name,
		box:    newMailbox(),
		cancel: cancel,
		exited: make(chan struct{}),
	}
	out := &Emitter{ctx: ctx, box: t.box}

	go func() {
		defer close(t.exited)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				t.box.close(fmt.Errorf("%w: panic: %v", ErrTaskFailed, r))
			}
		}()

		err := fn(ctx, snap, out)
		switch {
		case err == nil:
			t.box.push(Message{Kind: Done})
			t.box.close(nil)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			t.box.close(fmt.Errorf("%w: %w", ErrTaskCancelled, err))
		default:
			t.box.close(fmt.Errorf("%w: %w", ErrTaskFailed, err))
		}
	}()
	return t
}

// Poll takes up to max ready messages without blocking (all of them when
// max <= 0) in the order the task produced them. Done is consumed, not
// returned. Once the status leaves Running, Poll returns nothing.
func (t *Task) Poll(max int) ([]Message, Status) {
	if t.status != Running {
		return nil, t.status
	}

	msgs, dropped, closed, err := t.box.take(max)
	if err != nil {
		t.status = Failed
		t.err = err
		t.discarded = dropped
		return nil, t.status
	}
	if n := len(msgs); n > 0 && msgs[n-1].Kind == Done {
		t.status = Finished
		return msgs[:n-1], t.status
	}
	if closed && len(msgs) == 0 {
		// sealed with no error and no sentinel: only a cancelled box looks
		// like this
		t.status = Cancelled
	}
	return msgs, t.status
}

// Cancel stops the task and throws away whatever it had not delivered.
func (t *Task) Cancel() {
	t.cancel()
	if t.status != Running {
		return
	}
	t.discarded = t.box.discard()
	t.status = Cancelled
	t.err = ErrTaskCancelled
}

func (t *Task) Status() Status { return t.status }

// Err explains a Failed or Cancelled status.
func (t *Task) Err() error { return t.err }

// Discarded is the number of messages dropped by failure or cancellation.
func (t *Task) Discarded() int { return t.discarded }

// Exited is closed when the task goroutine has returned.
func (t *Task) Exited() <-chan struct{} { return t.exited }
