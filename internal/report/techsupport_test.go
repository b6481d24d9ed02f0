package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage/memory"
)

func TestTechSupport_Generate(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	store.Cards().Upsert(ctx, &domain.Card{
		ID:              "dpu-01",
		Model:           "AMD Pensando DSC-25",
		FirmwareVersion: "1.58.0-30",
		TargetFirmware:  "1.60.0-73",
		Status:          domain.FirmwareFailed,
	})
	store.Snapshots().Save(ctx, &domain.HealthSnapshot{
		CardID:         "dpu-01",
		Temperature:    88.5,
		PowerWatts:     27.0,
		LinkUp:         false,
		ErrorCount:     15,
		FirmwareStatus: domain.FirmwareFailed,
		CollectedAt:    now,
	})
	store.Verdicts().Save(ctx, &domain.HealthVerdict{
		CardID:      "dpu-01",
		Status:      domain.StatusCritical,
		Anomalies:   []domain.Anomaly{domain.AnomalyHighTemperature, domain.AnomalyLinkDown},
		EvaluatedAt: now,
	})
	store.Attempts().Save(ctx, &domain.RecoveryAttempt{
		ID:          "att-1",
		CardID:      "dpu-01",
		FailureType: domain.FailureBootFailure,
		Success:     true,
		StartedAt:   now,
		FinishedAt:  now,
	})

	ts := NewTechSupport(store.Cards(), store.Snapshots(), store.Verdicts(), store.Attempts())
	bundle, err := ts.Generate(ctx, "dpu-01")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, want := range []string{
		"Card ID: dpu-01",
		"Model: AMD Pensando DSC-25",
		"Temperature: 88.5°C",
		"Link Status: DOWN",
		"high_temperature",
		"link_down",
		"boot_failure",
		"Consider firmware recovery",
		"Check cooling system",
		"Investigate network connectivity",
		"Monitor error patterns",
	} {
		if !strings.Contains(bundle, want) {
			t.Errorf("bundle missing %q", want)
		}
	}
}

func TestTechSupport_Generate_UnknownCard(t *testing.T) {
	store := memory.New()
	ts := NewTechSupport(store.Cards(), store.Snapshots(), store.Verdicts(), store.Attempts())

	if _, err := ts.Generate(context.Background(), "ghost"); err == nil {
		t.Fatal("expected error for unknown card")
	}
}

func TestTechSupport_Generate_NoTelemetry(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	store.Cards().Upsert(ctx, &domain.Card{
		ID:     "dpu-02",
		Model:  "AMD Pensando DSC-25",
		Status: domain.FirmwareInstalled,
	})

	ts := NewTechSupport(store.Cards(), store.Snapshots(), store.Verdicts(), store.Attempts())
	bundle, err := ts.Generate(ctx, "dpu-02")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(bundle, "No snapshots collected yet") {
		t.Error("bundle should note missing telemetry")
	}
}
