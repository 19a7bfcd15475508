// Package sheets assigns compact integer ids to asset-sheet names so tile and
// decoration records only carry a number.
package sheets

import (
	"errors"
	"fmt"
	"sort"
)

// ID identifies a sheet within one session. Zero is never assigned.
type ID uint32

var (
	// ErrInvalidSheetID indicates a zero id in restored sheet references.
	ErrInvalidSheetID = errors.New("invalid sheet id")

	// ErrDuplicateSheet indicates two ids mapping to the same sheet name.
	ErrDuplicateSheet = errors.New("duplicate sheet name")
)

// Table is a bidirectional sheet name <-> id mapping. Ids are handed out
// monotonically from 1 and never reused.
type Table struct {
	byName map[string]ID
	byID   map[ID]string
	last   ID
}

func NewTable() *Table {
	return &Table{
		byName: make(map[string]ID),
		byID:   make(map[ID]string),
	}
}

// ID returns the id for name, assigning the next one on first reference.
func (t *Table) ID(name string) ID {
	if id, ok := t.byName[name]; ok {
		return id
	}
	t.last++
	t.byName[name] = t.last
	t.byID[t.last] = name
	return t.last
}

// Find returns the id for name without assigning one.
func (t *Table) Find(name string) (ID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Name resolves an id back to its sheet name.
func (t *Table) Name(id ID) (string, bool) {
	name, ok := t.byID[id]
	return name, ok
}

func (t *Table) Len() int { return len(t.byID) }

// IDs returns every assigned id in ascending order.
func (t *Table) IDs() []ID {
	ids := make([]ID, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Refs returns a copy of the id -> name mapping.
func (t *Table) Refs() map[ID]string {
	out := make(map[ID]string, len(t.byID))
	for id, name := range t.byID {
		out[id] = name
	}
	return out
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{
		byName: make(map[string]ID, len(t.byName)),
		byID:   make(map[ID]string, len(t.byID)),
		last:   t.last,
	}
	for name, id := range t.byName {
		c.byName[name] = id
	}
	for id, name := range t.byID {
		c.byID[id] = name
	}
	return c
}

// FromRefs builds a table from persisted references. The next assigned id
// continues after the largest restored one.
func FromRefs(refs map[ID]string) (*Table, error) {
	t := NewTable()
	for id, name := range refs {
		if id == 0 {
			return nil, fmt.Errorf("sheet %q: %w", name, ErrInvalidSheetID)
		}
		if other, ok := t.byName[name]; ok {
			return nil, fmt.Errorf("sheet %q has ids %d and %d: %w", name, other, id, ErrDuplicateSheet)
		}
		t.byName[name] = id
		t.byID[id] = name
		if id > t.last {
			t.last = id
		}
	}
	return t, nil
}
