package domain

import "time"

// HealthStatus is the overall classification of a snapshot.
type HealthStatus string

const (
	StatusNormal   HealthStatus = "normal"
	StatusWarning  HealthStatus = "warning"
	StatusCritical HealthStatus = "critical"
)

// Anomaly names one threshold breach.
type Anomaly string

const (
	AnomalyHighTemperature Anomaly = "high_temperature"
	AnomalyExcessiveErrors Anomaly = "excessive_errors"
	AnomalyHighInterrupts  Anomaly = "high_interrupt_count"
	AnomalyLinkDown        Anomaly = "link_down"
	AnomalyHighPower       Anomaly = "high_power_consumption"
)

// HealthVerdict is the classification derived from one snapshot. Never mutated
// after creation.
type HealthVerdict struct {
	CardID      CardID       `json:"card_id"`
	Status      HealthStatus `json:"status"`
	Anomalies   []Anomaly    `json:"anomalies"`
	EvaluatedAt time.Time    `json:"evaluated_at"`
}

// HasAnomaly reports whether the verdict carries the given anomaly.
func (v HealthVerdict) HasAnomaly(a Anomaly) bool {
	for _, got := range v.Anomalies {
		if got == a {
			return true
		}
	}
	return false
}

// Worse returns the more severe of two statuses (critical > warning > normal).
func Worse(a, b HealthStatus) HealthStatus {
	rank := map[HealthStatus]int{StatusNormal: 0, StatusWarning: 1, StatusCritical: 2}
	if rank[a] >= rank[b] {
		return a
	}
	return b
}
