package memory

import (
	"context"
	"testing"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage"
)

func TestCards_UpsertAndGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.Cards().Get(ctx, "dpu-01"); err != storage.ErrCardNotFound {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}

	card := &domain.Card{ID: "dpu-01", Model: "AMD Pensando DSC-25", Status: domain.FirmwareInstalled}
	if err := store.Cards().Upsert(ctx, card); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Cards().Get(ctx, "dpu-01")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Model != "AMD Pensando DSC-25" {
		t.Errorf("model = %s", got.Model)
	}

	// Upsert replaces state.
	card.Status = domain.FirmwareFailed
	if err := store.Cards().Upsert(ctx, card); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	got, _ = store.Cards().Get(ctx, "dpu-01")
	if got.Status != domain.FirmwareFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
}

func TestSnapshots_LatestAndPrune(t *testing.T) {
	store := New()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		store.Snapshots().Save(ctx, &domain.HealthSnapshot{
			CardID:      "dpu-01",
			Temperature: float64(50 + i),
			CollectedAt: now.Add(time.Duration(i) * time.Minute),
		})
	}

	latest, err := store.Snapshots().GetLatest(ctx, "dpu-01")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.Temperature != 52 {
		t.Errorf("latest temperature = %v, want 52", latest.Temperature)
	}

	// Prune everything before the last snapshot.
	if err := store.Snapshots().DeleteOlderThan(ctx, "dpu-01", now.Add(2*time.Minute)); err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	latest, _ = store.Snapshots().GetLatest(ctx, "dpu-01")
	if latest == nil || latest.Temperature != 52 {
		t.Error("newest snapshot should survive pruning")
	}
}

func TestQueue_OrdersByRetryCount(t *testing.T) {
	store := New()
	ctx := context.Background()

	store.Queue().Enqueue(ctx, &domain.PendingRecovery{
		ID: "a", CardID: "dpu-01", FailureType: domain.FailureBootFailure,
		RetryCount: 2, Status: domain.PendingRecoveryPending, CreatedAt: time.Now(),
	})
	store.Queue().Enqueue(ctx, &domain.PendingRecovery{
		ID: "b", CardID: "dpu-02", FailureType: domain.FailureCoreDump,
		RetryCount: 0, Status: domain.PendingRecoveryPending, CreatedAt: time.Now(),
	})

	next, err := store.Queue().Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if next.ID != "b" {
		t.Errorf("expected least-retried entry b, got %s", next.ID)
	}

	if err := store.Queue().MarkResolved(ctx, "b"); err != nil {
		t.Fatalf("MarkResolved failed: %v", err)
	}
	next, _ = store.Queue().Next(ctx)
	if next == nil || next.ID != "a" {
		t.Errorf("expected a after resolving b, got %v", next)
	}

	if err := store.Queue().MarkExhausted(ctx, "a"); err != nil {
		t.Fatalf("MarkExhausted failed: %v", err)
	}
	next, _ = store.Queue().Next(ctx)
	if next != nil {
		t.Errorf("queue should be empty, got %v", next)
	}

	depth, _ := store.Queue().Depth(ctx)
	if depth != 0 {
		t.Errorf("depth = %d, want 0", depth)
	}
}

func TestQueue_IncrementRetry(t *testing.T) {
	store := New()
	ctx := context.Background()

	store.Queue().Enqueue(ctx, &domain.PendingRecovery{
		ID: "a", CardID: "dpu-01", FailureType: domain.FailureBootFailure,
		Status: domain.PendingRecoveryPending, CreatedAt: time.Now(),
	})

	if err := store.Queue().IncrementRetry(ctx, "a"); err != nil {
		t.Fatalf("IncrementRetry failed: %v", err)
	}

	next, _ := store.Queue().Next(ctx)
	if next.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", next.RetryCount)
	}
	if next.LastAttempt.IsZero() {
		t.Error("LastAttempt should be set")
	}
}

func TestAttempts_GetRecent(t *testing.T) {
	store := New()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		store.Attempts().Save(ctx, &domain.RecoveryAttempt{
			ID:         string(rune('a' + i)),
			CardID:     "dpu-01",
			FinishedAt: now.Add(time.Duration(i) * time.Minute),
		})
	}

	recent, err := store.Attempts().GetRecent(ctx, "dpu-01", 2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(recent))
	}
	if recent[0].ID != "e" {
		t.Errorf("newest first: got %s", recent[0].ID)
	}
}
