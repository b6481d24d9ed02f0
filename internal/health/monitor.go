package health

import (
	"context"
	"sync"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage"
)

// CardReport contains the health view for one card.
type CardReport struct {
	CardID          domain.CardID       `json:"card_id"`
	Status          domain.HealthStatus `json:"status"`
	Anomalies       []domain.Anomaly    `json:"anomalies,omitempty"`
	Temperature     float64             `json:"temperature"`
	PowerWatts      float64             `json:"power_watts"`
	LinkUp          bool                `json:"link_up"`
	InterruptCount  int                 `json:"interrupt_count"`
	ErrorCount      int                 `json:"error_count"`
	FirmwareVersion string              `json:"firmware_version"`
	LastSeen        time.Time           `json:"last_seen"`
}

// FleetReport contains the full fleet health report. PendingRecoveries is the
// queue depth across the whole fleet.
type FleetReport struct {
	Status            domain.HealthStatus          `json:"status"`
	PendingRecoveries int                          `json:"pending_recoveries"`
	Cards             map[domain.CardID]CardReport `json:"cards"`
}

// Monitor aggregates the latest stored verdicts and snapshots into a fleet
// report. Checks are rate limited so HTTP probes do not hammer storage.
type Monitor struct {
	cards      []domain.CardID
	verdicts   storage.VerdictRepository
	snapshots  storage.SnapshotRepository
	queue      storage.RecoveryQueue
	lastCheck  time.Time
	lastReport *FleetReport
	mu         sync.Mutex
}

// NewMonitor creates a new fleet health monitor.
func NewMonitor(
	cards []domain.CardID,
	verdicts storage.VerdictRepository,
	snapshots storage.SnapshotRepository,
	queue storage.RecoveryQueue,
) *Monitor {
	return &Monitor{
		cards:     cards,
		verdicts:  verdicts,
		snapshots: snapshots,
		queue:     queue,
	}
}

// CheckFleet builds the fleet report, serving a cached copy for up to 10s.
func (m *Monitor) CheckFleet(ctx context.Context) *FleetReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport != nil {
		return m.lastReport
	}

	report := &FleetReport{
		Status: domain.StatusNormal,
		Cards:  make(map[domain.CardID]CardReport, len(m.cards)),
	}

	if m.queue != nil {
		if d, err := m.queue.Depth(ctx); err == nil {
			report.PendingRecoveries = d
		}
	}

	for _, cardID := range m.cards {
		cr := CardReport{
			CardID: cardID,
			Status: domain.StatusNormal,
		}

		if v, err := m.verdicts.GetLatest(ctx, cardID); err == nil && v != nil {
			cr.Status = v.Status
			cr.Anomalies = v.Anomalies
			cr.LastSeen = v.EvaluatedAt
		}

		if s, err := m.snapshots.GetLatest(ctx, cardID); err == nil && s != nil {
			cr.Temperature = s.Temperature
			cr.PowerWatts = s.PowerWatts
			cr.LinkUp = s.LinkUp
			cr.InterruptCount = s.InterruptCount
			cr.ErrorCount = s.ErrorCount
			cr.FirmwareVersion = s.FirmwareVersion
			if cr.LastSeen.IsZero() {
				cr.LastSeen = s.CollectedAt
			}
		}

		report.Status = domain.Worse(report.Status, cr.Status)
		report.Cards[cardID] = cr
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
