package emit

import (
	"context"
	"log/slog"
)

// LogEmitter writes events to the structured log. Used when no brokers are
// configured.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates a log-backed emitter.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger.With("component", "emitter")}
}

// Emit logs the event.
func (e *LogEmitter) Emit(ctx context.Context, event HealthEvent) error {
	e.logger.Info("health event",
		"type", event.Type,
		"card", event.CardID,
		"status", event.Status,
		"anomalies", event.Anomalies,
		"failure_type", event.FailureType)
	return nil
}

// Close is a no-op.
func (e *LogEmitter) Close() {}
