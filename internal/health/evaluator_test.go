package health

import (
	"reflect"
	"testing"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

func baseSnapshot() domain.HealthSnapshot {
	return domain.HealthSnapshot{
		CardID:          "dpu-00",
		Temperature:     45,
		PowerWatts:      25,
		LinkUp:          true,
		InterruptCount:  10,
		ErrorCount:      5,
		FirmwareVersion: "1.100.2-T-8",
		FirmwareStatus:  domain.FirmwareInstalled,
		CollectedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEvaluate_Normal(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())
	v := e.Evaluate(baseSnapshot())

	if v.Status != domain.StatusNormal {
		t.Errorf("expected normal, got %s", v.Status)
	}
	if len(v.Anomalies) != 0 {
		t.Errorf("expected no anomalies, got %v", v.Anomalies)
	}
}

func TestEvaluate_HighTemperatureWarning(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())
	s := baseSnapshot()
	s.Temperature = 85

	v := e.Evaluate(s)

	if v.Status != domain.StatusWarning {
		t.Errorf("expected warning, got %s", v.Status)
	}
	want := []domain.Anomaly{domain.AnomalyHighTemperature}
	if !reflect.DeepEqual(v.Anomalies, want) {
		t.Errorf("expected anomalies %v, got %v", want, v.Anomalies)
	}
}

func TestEvaluate_LinkDownCritical(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())
	s := baseSnapshot()
	s.Temperature = 60
	s.LinkUp = false

	v := e.Evaluate(s)

	if v.Status != domain.StatusCritical {
		t.Errorf("expected critical, got %s", v.Status)
	}
	want := []domain.Anomaly{domain.AnomalyLinkDown}
	if !reflect.DeepEqual(v.Anomalies, want) {
		t.Errorf("expected anomalies %v, got %v", want, v.Anomalies)
	}
}

func TestEvaluate_CriticalTemperature(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())
	s := baseSnapshot()
	s.Temperature = 95

	v := e.Evaluate(s)
	if v.Status != domain.StatusCritical {
		t.Errorf("expected critical at 95C, got %s", v.Status)
	}
}

func TestEvaluate_FirmwareStateForcesCritical(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())
	for _, fw := range []domain.FirmwareStatus{domain.FirmwareFailed, domain.FirmwareCorrupted} {
		s := baseSnapshot()
		s.FirmwareStatus = fw
		if v := e.Evaluate(s); v.Status != domain.StatusCritical {
			t.Errorf("firmware %s: expected critical, got %s", fw, v.Status)
		}
	}
}

func TestEvaluate_AnomalySetIsExact(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())
	s := baseSnapshot()
	s.Temperature = 90
	s.PowerWatts = 33
	s.ErrorCount = 25
	s.InterruptCount = 150
	s.LinkUp = false

	v := e.Evaluate(s)

	want := []domain.Anomaly{
		domain.AnomalyHighTemperature,
		domain.AnomalyExcessiveErrors,
		domain.AnomalyHighInterrupts,
		domain.AnomalyLinkDown,
		domain.AnomalyHighPower,
	}
	if !reflect.DeepEqual(v.Anomalies, want) {
		t.Errorf("expected all five anomalies %v, got %v", want, v.Anomalies)
	}
	if v.Status != domain.StatusCritical {
		t.Errorf("expected critical, got %s", v.Status)
	}
}

func TestEvaluate_BoundaryValuesDoNotTrigger(t *testing.T) {
	// Thresholds are strict: exactly-at-threshold values are healthy.
	e := NewEvaluator(DefaultPolicy())
	s := baseSnapshot()
	s.Temperature = 80
	s.PowerWatts = 30
	s.ErrorCount = 20
	s.InterruptCount = 100

	v := e.Evaluate(s)
	if v.Status != domain.StatusNormal || len(v.Anomalies) != 0 {
		t.Errorf("boundary values should be normal, got %s %v", v.Status, v.Anomalies)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())
	s := baseSnapshot()
	s.Temperature = 88
	s.ErrorCount = 30

	first := e.Evaluate(s)
	second := e.Evaluate(s)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("evaluation is not idempotent: %+v vs %+v", first, second)
	}
}

func TestEvaluate_Monotonic(t *testing.T) {
	// If s1 is critical, any snapshot at least as severe stays critical.
	e := NewEvaluator(DefaultPolicy())

	s1 := baseSnapshot()
	s1.LinkUp = false
	if e.Evaluate(s1).Status != domain.StatusCritical {
		t.Fatal("s1 should be critical")
	}

	s2 := s1
	s2.Temperature = 99
	s2.ErrorCount = 500
	s2.InterruptCount = 10000
	s2.PowerWatts = 45
	if e.Evaluate(s2).Status != domain.StatusCritical {
		t.Error("more severe snapshot regressed below critical")
	}
}

func TestValidateSnapshot(t *testing.T) {
	if err := domain.ValidateSnapshot(baseSnapshot()); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}

	s := baseSnapshot()
	s.CardID = ""
	if err := domain.ValidateSnapshot(s); err == nil {
		t.Error("empty card id accepted")
	}

	s = baseSnapshot()
	s.ErrorCount = -1
	if err := domain.ValidateSnapshot(s); err == nil {
		t.Error("negative error count accepted")
	}
}
