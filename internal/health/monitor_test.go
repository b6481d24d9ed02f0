package health

import (
	"context"
	"testing"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage/memory"
)

func TestMonitor_FleetAggregation(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now()

	store.Snapshots().Save(ctx, &domain.HealthSnapshot{
		CardID: "dpu-01", Temperature: 55, PowerWatts: 25, LinkUp: true, CollectedAt: now,
	})
	store.Verdicts().Save(ctx, &domain.HealthVerdict{
		CardID: "dpu-01", Status: domain.StatusNormal, EvaluatedAt: now,
	})
	store.Snapshots().Save(ctx, &domain.HealthSnapshot{
		CardID: "dpu-02", Temperature: 97, PowerWatts: 25, LinkUp: true, CollectedAt: now,
	})
	store.Verdicts().Save(ctx, &domain.HealthVerdict{
		CardID:      "dpu-02",
		Status:      domain.StatusCritical,
		Anomalies:   []domain.Anomaly{domain.AnomalyHighTemperature},
		EvaluatedAt: now,
	})
	store.Queue().Enqueue(ctx, &domain.PendingRecovery{
		ID: "rec-1", CardID: "dpu-02", FailureType: domain.FailureHardwareFault,
		Status: domain.PendingRecoveryPending, CreatedAt: now,
	})

	mon := NewMonitor([]domain.CardID{"dpu-01", "dpu-02"}, store.Verdicts(), store.Snapshots(), store.Queue())
	report := mon.CheckFleet(ctx)

	if report.Status != domain.StatusCritical {
		t.Errorf("fleet status = %s, want critical", report.Status)
	}
	if len(report.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(report.Cards))
	}
	if report.Cards["dpu-01"].Status != domain.StatusNormal {
		t.Errorf("dpu-01 status = %s", report.Cards["dpu-01"].Status)
	}
	if report.Cards["dpu-02"].Temperature != 97 {
		t.Errorf("dpu-02 temperature = %v", report.Cards["dpu-02"].Temperature)
	}
	if report.PendingRecoveries != 1 {
		t.Errorf("pending recoveries = %d, want 1", report.PendingRecoveries)
	}
}

func TestMonitor_CachesReport(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	mon := NewMonitor([]domain.CardID{"dpu-01"}, store.Verdicts(), store.Snapshots(), store.Queue())
	first := mon.CheckFleet(ctx)

	// New data written after the first check is not visible within the
	// cache window.
	store.Verdicts().Save(ctx, &domain.HealthVerdict{
		CardID: "dpu-01", Status: domain.StatusCritical, EvaluatedAt: time.Now(),
	})
	second := mon.CheckFleet(ctx)
	if second != first {
		t.Error("expected cached report within the rate-limit window")
	}
}

func TestMonitor_NoDataDefaultsNormal(t *testing.T) {
	store := memory.New()
	mon := NewMonitor([]domain.CardID{"dpu-01"}, store.Verdicts(), store.Snapshots(), store.Queue())

	report := mon.CheckFleet(context.Background())
	if report.Status != domain.StatusNormal {
		t.Errorf("fleet status = %s, want normal", report.Status)
	}
	if report.Cards["dpu-01"].Status != domain.StatusNormal {
		t.Errorf("card status = %s, want normal", report.Cards["dpu-01"].Status)
	}
}
