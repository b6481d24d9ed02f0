package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidSnapshot marks a snapshot that must be rejected before evaluation.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// HealthSnapshot is a point-in-time set of card metrics. Immutable once produced;
// the producer may be a simulator or a real telemetry agent, the evaluator does
// not know which.
type HealthSnapshot struct {
	CardID          CardID         `json:"card_id"`
	Temperature     float64        `json:"temperature"`
	PowerWatts      float64        `json:"power_watts"`
	LinkUp          bool           `json:"link_up"`
	InterruptCount  int            `json:"interrupt_count"`
	ErrorCount      int            `json:"error_count"`
	FirmwareVersion string         `json:"firmware_version"`
	FirmwareStatus  FirmwareStatus `json:"firmware_status"`
	CollectedAt     time.Time      `json:"collected_at"`
}

// ValidateSnapshot rejects malformed snapshots at the boundary. A snapshot that
// passes here can always be evaluated.
func ValidateSnapshot(s HealthSnapshot) error {
	if s.CardID == "" {
		return fmt.Errorf("%w: empty card id", ErrInvalidSnapshot)
	}
	if math.IsNaN(s.Temperature) || math.IsInf(s.Temperature, 0) {
		return fmt.Errorf("%w: temperature %v", ErrInvalidSnapshot, s.Temperature)
	}
	if math.IsNaN(s.PowerWatts) || math.IsInf(s.PowerWatts, 0) {
		return fmt.Errorf("%w: power %v", ErrInvalidSnapshot, s.PowerWatts)
	}
	if s.InterruptCount < 0 {
		return fmt.Errorf("%w: negative interrupt count %d", ErrInvalidSnapshot, s.InterruptCount)
	}
	if s.ErrorCount < 0 {
		return fmt.Errorf("%w: negative error count %d", ErrInvalidSnapshot, s.ErrorCount)
	}
	return nil
}

// UnreachableSnapshot translates a collector failure into the snapshot the core
// consumes: the card is treated as link-down with unknown firmware state.
func UnreachableSnapshot(cardID CardID, at time.Time) HealthSnapshot {
	return HealthSnapshot{
		CardID:         cardID,
		LinkUp:         false,
		FirmwareStatus: FirmwareUnknown,
		CollectedAt:    at,
	}
}
