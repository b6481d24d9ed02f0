package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

func criticalVerdict(cardID domain.CardID) (domain.HealthSnapshot, domain.HealthVerdict) {
	now := time.Now()
	snap := domain.HealthSnapshot{
		CardID:          cardID,
		Temperature:     96.2,
		PowerWatts:      28.0,
		LinkUp:          false,
		FirmwareVersion: "1.60.0-73",
		FirmwareStatus:  domain.FirmwareInstalled,
		CollectedAt:     now,
	}
	verdict := domain.HealthVerdict{
		CardID:      cardID,
		Status:      domain.StatusCritical,
		Anomalies:   []domain.Anomaly{domain.AnomalyHighTemperature, domain.AnomalyLinkDown},
		EvaluatedAt: now,
	}
	return snap, verdict
}

func TestSlackNotifier_NotifyCritical(t *testing.T) {
	var received SlackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier, err := NewSlackNotifier(srv.URL, "#dpu-alerts", time.Minute)
	if err != nil {
		t.Fatalf("NewSlackNotifier failed: %v", err)
	}

	snap, verdict := criticalVerdict("dpu-01")
	if err := notifier.NotifyCritical(context.Background(), snap, verdict); err != nil {
		t.Fatalf("NotifyCritical failed: %v", err)
	}

	if received.Channel != "#dpu-alerts" {
		t.Errorf("channel = %s", received.Channel)
	}
	if len(received.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(received.Attachments))
	}
	if received.Attachments[0].Color != "#FF0000" {
		t.Errorf("color = %s", received.Attachments[0].Color)
	}
}

func TestSlackNotifier_Cooldown(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier, err := NewSlackNotifier(srv.URL, "", time.Hour)
	if err != nil {
		t.Fatalf("NewSlackNotifier failed: %v", err)
	}

	snap, verdict := criticalVerdict("dpu-01")
	for i := 0; i < 3; i++ {
		if err := notifier.NotifyCritical(context.Background(), snap, verdict); err != nil {
			t.Fatalf("NotifyCritical failed: %v", err)
		}
	}

	if calls != 1 {
		t.Errorf("expected 1 webhook call within cooldown, got %d", calls)
	}

	// A different card is not suppressed.
	snap2, verdict2 := criticalVerdict("dpu-02")
	if err := notifier.NotifyCritical(context.Background(), snap2, verdict2); err != nil {
		t.Fatalf("NotifyCritical failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 webhook calls, got %d", calls)
	}
}

func TestSlackNotifier_EmptyWebhook(t *testing.T) {
	if _, err := NewSlackNotifier("", "", 0); err == nil {
		t.Fatal("expected error for empty webhook URL")
	}
}

type fakeCooldownStore struct {
	grant bool
	err   error
	keys  []string
}

func (s *fakeCooldownStore) AcquireCooldown(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.grant, s.err
}

func TestSlackNotifier_SharedCooldownStore(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier, err := NewSlackNotifier(srv.URL, "", time.Hour)
	if err != nil {
		t.Fatalf("NewSlackNotifier failed: %v", err)
	}

	// Another replica holds the cooldown: no webhook call.
	store := &fakeCooldownStore{grant: false}
	notifier.SetCooldownStore(store)

	snap, verdict := criticalVerdict("dpu-01")
	if err := notifier.NotifyCritical(context.Background(), snap, verdict); err != nil {
		t.Fatalf("NotifyCritical failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("store denied the cooldown but %d webhook calls were made", calls)
	}
	if len(store.keys) != 1 || store.keys[0] != "slack:dpu-01" {
		t.Errorf("store keys = %v", store.keys)
	}

	store.grant = true
	if err := notifier.NotifyCritical(context.Background(), snap, verdict); err != nil {
		t.Fatalf("NotifyCritical failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 webhook call after grant, got %d", calls)
	}
}

func TestSlackNotifier_CooldownStoreOutageFallsBack(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier, err := NewSlackNotifier(srv.URL, "", time.Hour)
	if err != nil {
		t.Fatalf("NewSlackNotifier failed: %v", err)
	}
	notifier.SetCooldownStore(&fakeCooldownStore{err: context.DeadlineExceeded})

	snap, verdict := criticalVerdict("dpu-01")
	for i := 0; i < 2; i++ {
		if err := notifier.NotifyCritical(context.Background(), snap, verdict); err != nil {
			t.Fatalf("NotifyCritical failed: %v", err)
		}
	}

	// Local map takes over: one alert, then suppression.
	if calls != 1 {
		t.Errorf("expected local cooldown to apply during store outage, got %d calls", calls)
	}
}
