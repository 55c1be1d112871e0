package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/scarlet-home/scarletdash/internal/storage"
	"github.com/scarlet-home/scarletdash/internal/storage/memory"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type failingActions struct {
	storage.ActionStore
}

func (failingActions) Add(ctx context.Context, e storage.ActionEntry) (storage.ActionEntry, error) {
	return storage.ActionEntry{}, errors.New("disk full")
}

func TestRecorder_StampsSource(t *testing.T) {
	store := memory.New()
	rec := NewRecorder(store.Actions(), storage.SourceTUI, zerolog.Nop())

	rec.Record(context.Background(), storage.ActionEntry{Kind: "blinds.command", Outcome: storage.OutcomeOK})

	entries, err := rec.Recent(context.Background(), storage.ActionFilter{})
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Source != storage.SourceTUI {
		t.Errorf("Expected source tui, got %s", entries[0].Source)
	}
}

func TestRecorder_CancelledContextStillRecords(t *testing.T) {
	store := memory.New()
	rec := NewRecorder(store.Actions(), storage.SourceWeb, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Record(ctx, storage.ActionEntry{Kind: "program.delete", Outcome: storage.OutcomeOK})

	entries, _ := rec.Recent(context.Background(), storage.ActionFilter{})
	if len(entries) != 1 {
		t.Errorf("Expected entry despite cancelled request context, got %d", len(entries))
	}
}

func TestRecorder_FailuresAreSwallowed(t *testing.T) {
	rec := NewRecorder(failingActions{}, storage.SourceCLI, zerolog.Nop())
	// Must not panic
	rec.Record(context.Background(), storage.ActionEntry{Kind: "x"})

	var nilRec *Recorder
	nilRec.Record(context.Background(), storage.ActionEntry{Kind: "x"})
}

func TestPruner_CalculateNextPrune(t *testing.T) {
	p, err := NewPruner(memory.New().Actions(), "03:30", 30, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPruner failed: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before slot", time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC), time.Date(2026, 5, 1, 3, 30, 0, 0, time.UTC)},
		{"after slot", time.Date(2026, 5, 1, 4, 0, 0, 0, time.UTC), time.Date(2026, 5, 2, 3, 30, 0, 0, time.UTC)},
		{"month rollover", time.Date(2026, 5, 31, 23, 0, 0, 0, time.UTC), time.Date(2026, 6, 1, 3, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.now
			p.now = func() time.Time { return now }
			if got := p.calculateNextPrune(); !got.Equal(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPruner_InvalidTime(t *testing.T) {
	if _, err := NewPruner(memory.New().Actions(), "3am", 30, zerolog.Nop()); err == nil {
		t.Error("Expected error for invalid prune time")
	}
}

func TestPruner_Prune(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2026, 5, 10, 3, 0, 0, 0, time.UTC)

	for _, age := range []int{1, 5, 40} {
		if _, err := store.Actions().Add(ctx, storage.ActionEntry{
			Timestamp: now.AddDate(0, 0, -age),
			Kind:      "program.update",
		}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	p, err := NewPruner(store.Actions(), "03:00", 30, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPruner failed: %v", err)
	}
	p.now = func() time.Time { return now }

	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted, got %d", deleted)
	}

	p.retentionDays = 0
	if deleted, _ := p.Prune(ctx); deleted != 0 {
		t.Errorf("Expected zero retention to keep everything, deleted %d", deleted)
	}
}

func TestPruner_StartStop(t *testing.T) {
	p, err := NewPruner(memory.New().Actions(), "03:00", 30, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPruner failed: %v", err)
	}
	p.Start()
	p.Stop()
}

func TestPruner_StopIsIdempotent(t *testing.T) {
	p, err := NewPruner(memory.New().Actions(), "03:00", 30, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPruner failed: %v", err)
	}
	p.Start()
	p.Start()
	p.Stop()
	p.Stop()
}

func TestPruner_StopWithoutStart(t *testing.T) {
	p, err := NewPruner(memory.New().Actions(), "03:00", 30, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPruner failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		p.Stop()
		p.Start()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected Stop on an unstarted pruner to return")
	}
}
