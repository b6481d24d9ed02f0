// Package emit publishes health events to downstream consumers.
package emit

import (
	"context"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

// Event types published on the health stream.
const (
	EventVerdict           = "verdict"
	EventRecoveryQueued    = "recovery_queued"
	EventRecoveryFinished  = "recovery_finished"
	EventFirmwareInstalled = "firmware_installed"
)

// HealthEvent is the wire record for one fleet event.
type HealthEvent struct {
	Type        string              `json:"type"`
	CardID      domain.CardID       `json:"card_id"`
	Status      domain.HealthStatus `json:"status,omitempty"`
	Anomalies   []domain.Anomaly    `json:"anomalies,omitempty"`
	FailureType domain.FailureType  `json:"failure_type,omitempty"`
	Success     *bool               `json:"success,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// Emitter publishes health events. Implementations must be safe for
// concurrent use.
type Emitter interface {
	Emit(ctx context.Context, event HealthEvent) error
	Close()
}
