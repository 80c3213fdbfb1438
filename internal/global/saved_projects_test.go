package global

import (
	"testing"
)

func TestSavedProjectsStore_UpsertListRemove(t *testing.T) {
	store := NewSavedProjectsStore(t.TempDir())

	list, err := store.List()
	if err != nil {
		t.Fatalf("List on empty dir failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d entries", len(list))
	}

	if err := store.Upsert(SavedProject{ProjectID: "p1", Name: "alpha", HistoryID: "h1"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(SavedProject{ProjectID: "p2", Name: "beta", HistoryID: "h2"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	// Re-save p1 under a newer snapshot; the name survives a blank update.
	if err := store.Upsert(SavedProject{ProjectID: "p1", HistoryID: "h9"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	list, err = store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	if list[0].ProjectID != "p1" || list[0].HistoryID != "h9" || list[0].Name != "alpha" {
		t.Fatalf("unexpected p1 entry: %+v", list[0])
	}

	if err := store.Remove("p1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	list, _ = store.List()
	if len(list) != 1 || list[0].ProjectID != "p2" {
		t.Fatalf("remove should leave only p2: %+v", list)
	}

	// Removing an unknown project is a no-op.
	if err := store.Remove("ghost"); err != nil {
		t.Fatalf("Remove unknown failed: %v", err)
	}
}
