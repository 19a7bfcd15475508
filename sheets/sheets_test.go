package sheets

import (
	"errors"
	"testing"
)

func TestTableAssignsMonotonicIDs(t *testing.T) {
	tbl := NewTable()

	names := []string{"grass.png", "stone.png", "grass.png", "water.png"}
	want := []ID{1, 2, 1, 3}
	for i, name := range names {
		if got := tbl.ID(name); got != want[i] {
			t.Fatalf("ID(%q) = %d, want %d", name, got, want[i])
		}
	}

	if tbl.Len() != 3 {
		t.Fatalf("expected 3 sheets, got %d", tbl.Len())
	}
	if name, ok := tbl.Name(2); !ok || name != "stone.png" {
		t.Fatalf("Name(2) = %q, %v", name, ok)
	}
	if _, ok := tbl.Find("missing.png"); ok {
		t.Fatalf("Find should not assign ids")
	}
	if tbl.Len() != 3 {
		t.Fatalf("Find must not grow the table")
	}
}

func TestTableCloneIsIndependent(t *testing.T) {
	tbl := NewTable()
	tbl.ID("a")

	c := tbl.Clone()
	c.ID("b")

	if _, ok := tbl.Find("b"); ok {
		t.Fatalf("clone leaked into original")
	}
	if got := tbl.ID("c"); got != 2 {
		t.Fatalf("original should continue at 2, got %d", got)
	}
}

func TestFromRefs(t *testing.T) {
	t.Run("continues_after_max", func(t *testing.T) {
		tbl, err := FromRefs(map[ID]string{1: "a", 5: "b"})
		if err != nil {
			t.Fatalf("FromRefs: %v", err)
		}
		if got := tbl.ID("c"); got != 6 {
			t.Fatalf("next id = %d, want 6", got)
		}
		if got := tbl.ID("b"); got != 5 {
			t.Fatalf("restored id = %d, want 5", got)
		}
	})

	t.Run("zero_id", func(t *testing.T) {
		if _, err := FromRefs(map[ID]string{0: "a"}); !errors.Is(err, ErrInvalidSheetID) {
			t.Fatalf("expected ErrInvalidSheetID, got %v", err)
		}
	})

	t.Run("duplicate_name", func(t *testing.T) {
		if _, err := FromRefs(map[ID]string{1: "a", 2: "a"}); !errors.Is(err, ErrDuplicateSheet) {
			t.Fatalf("expected ErrDuplicateSheet, got %v", err)
		}
	})
}
