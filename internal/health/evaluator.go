// Package health classifies card snapshots and reports fleet status.
package health

import (
	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

// Policy holds the anomaly thresholds the evaluator applies.
type Policy struct {
	TemperatureWarning  float64
	TemperatureCritical float64
	MaxErrors           int
	MaxInterrupts       int
	MaxPowerWatts       float64
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		TemperatureWarning:  80,
		TemperatureCritical: 95,
		MaxErrors:           20,
		MaxInterrupts:       100,
		MaxPowerWatts:       30,
	}
}

// Evaluator turns a snapshot into a verdict. Pure classification: the same
// snapshot always yields the same verdict, and nothing is mutated.
type Evaluator struct {
	policy Policy
}

// NewEvaluator creates an evaluator with the given threshold policy.
func NewEvaluator(policy Policy) *Evaluator {
	return &Evaluator{policy: policy}
}

// Evaluate classifies a snapshot. The anomaly set is exactly the set of
// breached thresholds; status is critical if the link is down, temperature
// reached the critical line, or firmware state is failed/corrupted, warning if
// any other anomaly fired, normal otherwise.
func (e *Evaluator) Evaluate(s domain.HealthSnapshot) domain.HealthVerdict {
	var anomalies []domain.Anomaly

	if s.Temperature > e.policy.TemperatureWarning {
		anomalies = append(anomalies, domain.AnomalyHighTemperature)
	}
	if s.ErrorCount > e.policy.MaxErrors {
		anomalies = append(anomalies, domain.AnomalyExcessiveErrors)
	}
	if s.InterruptCount > e.policy.MaxInterrupts {
		anomalies = append(anomalies, domain.AnomalyHighInterrupts)
	}
	if !s.LinkUp {
		anomalies = append(anomalies, domain.AnomalyLinkDown)
	}
	if s.PowerWatts > e.policy.MaxPowerWatts {
		anomalies = append(anomalies, domain.AnomalyHighPower)
	}

	status := domain.StatusNormal
	switch {
	case !s.LinkUp,
		s.Temperature >= e.policy.TemperatureCritical,
		s.FirmwareStatus == domain.FirmwareFailed,
		s.FirmwareStatus == domain.FirmwareCorrupted:
		status = domain.StatusCritical
	case len(anomalies) > 0:
		status = domain.StatusWarning
	}

	return domain.HealthVerdict{
		CardID:      s.CardID,
		Status:      status,
		Anomalies:   anomalies,
		EvaluatedAt: s.CollectedAt,
	}
}
