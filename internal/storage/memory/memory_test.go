package memory

import (
	"context"
	"testing"
	"time"

	"github.com/scarlet-home/scarletdash/internal/storage"
)

func TestActionStore_OrderAndFilter(t *testing.T) {
	ctx := context.Background()
	actions := New().Actions()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	// Insert out of order
	for _, e := range []storage.ActionEntry{
		{Timestamp: base.Add(2 * time.Minute), Kind: "c", Source: storage.SourceWeb},
		{Timestamp: base, Kind: "a", Source: storage.SourceTUI},
		{Timestamp: base.Add(time.Minute), Kind: "b", Source: storage.SourceWeb},
	} {
		if _, err := actions.Add(ctx, e); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	all, err := actions.Query(ctx, storage.ActionFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	want := []string{"c", "b", "a"}
	for i, k := range want {
		if all[i].Kind != k {
			t.Errorf("Entry %d: expected %s, got %s", i, k, all[i].Kind)
		}
	}

	web, err := actions.Query(ctx, storage.ActionFilter{Source: storage.SourceWeb, Limit: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(web) != 1 || web[0].Kind != "c" {
		t.Errorf("Expected newest web entry, got %+v", web)
	}
}

func TestActionStore_GetAndDeleteBefore(t *testing.T) {
	ctx := context.Background()
	actions := New().Actions()
	now := time.Now().UTC()

	old, _ := actions.Add(ctx, storage.ActionEntry{Timestamp: now.Add(-72 * time.Hour), Kind: "old"})
	fresh, _ := actions.Add(ctx, storage.ActionEntry{Timestamp: now, Kind: "fresh"})

	got, err := actions.Get(ctx, fresh.ID)
	if err != nil || got.Kind != "fresh" {
		t.Fatalf("Expected fresh entry, got %+v (%v)", got, err)
	}

	n, err := actions.DeleteBefore(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 deleted, got %d", n)
	}
	if _, err := actions.Get(ctx, old.ID); err != storage.ErrNotFound {
		t.Errorf("Expected ErrNotFound for pruned entry, got %v", err)
	}
}

func TestActionStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Actions().Add(ctx, storage.ActionEntry{Kind: "x"}); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
