// Package monitor runs the per-card collect/evaluate/persist loop and the
// recovery drain worker.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
	"github.com/dpuwatch/dpuwatch/internal/emit"
	"github.com/dpuwatch/dpuwatch/internal/health"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage"
	"github.com/dpuwatch/dpuwatch/internal/metrics"
	"github.com/dpuwatch/dpuwatch/internal/recovery"
	"github.com/dpuwatch/dpuwatch/internal/telemetry"
)

// Notifier alerts operators about critical verdicts. Optional.
type Notifier interface {
	NotifyCritical(ctx context.Context, snap domain.HealthSnapshot, verdict domain.HealthVerdict) error
}

// Config wires one card's monitoring pipeline.
type Config struct {
	CardID       domain.CardID
	PollInterval time.Duration

	Source    telemetry.Source
	Evaluator *health.Evaluator
	Snapshots storage.SnapshotRepository
	Verdicts  storage.VerdictRepository
	Recovery  *recovery.Handler
	Emitter   emit.Emitter
	Notifier  Notifier
	Logger    *slog.Logger
}

// Pipeline polls one card, evaluates each snapshot, persists the results, and
// queues recovery when the card goes critical.
type Pipeline struct {
	cfg     Config
	running atomic.Bool
	stop    chan struct{}

	// lastStatus gates recovery enqueueing to the transition into critical,
	// so a card sitting at critical does not flood the queue every tick.
	lastStatus domain.HealthStatus
}

// NewPipeline creates a monitoring pipeline for one card.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Logger = cfg.Logger.With("card", cfg.CardID)
	return &Pipeline{
		cfg:        cfg,
		stop:       make(chan struct{}),
		lastStatus: domain.StatusNormal,
	}
}

// Start begins the monitoring loop.
func (p *Pipeline) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("pipeline already running")
	}
	defer p.running.Store(false)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.stop:
			return nil
		case <-ticker.C:
			if err := p.tick(ctx); err != nil {
				p.cfg.Logger.Error("monitor tick failed", "error", err)
			}
		}
	}
}

// Stop stops the pipeline.
func (p *Pipeline) Stop() error {
	if p.running.Load() {
		close(p.stop)
	}
	return nil
}

// Running reports whether the loop is active.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// tick executes one collect/evaluate/persist cycle.
func (p *Pipeline) tick(ctx context.Context) error {
	started := time.Now()
	snap, err := p.cfg.Source.Collect(ctx, p.cfg.CardID)
	metrics.CollectLatency.WithLabelValues(string(p.cfg.CardID)).Observe(time.Since(started).Seconds())

	if err != nil {
		// An unreachable card is still a data point: treat it as link-down
		// so the evaluator flags it instead of the fleet silently losing it.
		metrics.CollectErrorsTotal.WithLabelValues(string(p.cfg.CardID)).Inc()
		p.cfg.Logger.Warn("collection failed, treating card as unreachable", "error", err)
		unreachable := domain.UnreachableSnapshot(p.cfg.CardID, time.Now().UTC())
		snap = &unreachable
	}
	metrics.SnapshotsCollected.WithLabelValues(string(p.cfg.CardID)).Inc()

	if err := domain.ValidateSnapshot(*snap); err != nil {
		return fmt.Errorf("rejecting snapshot: %w", err)
	}

	verdict := p.cfg.Evaluator.Evaluate(*snap)

	if err := p.cfg.Snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	if err := p.cfg.Verdicts.Save(ctx, &verdict); err != nil {
		return fmt.Errorf("failed to save verdict: %w", err)
	}

	metrics.CardHealthStatus.WithLabelValues(string(p.cfg.CardID)).Set(metrics.StatusValue(string(verdict.Status)))
	for _, a := range verdict.Anomalies {
		metrics.AnomaliesDetected.WithLabelValues(string(p.cfg.CardID), string(a)).Inc()
	}

	if p.cfg.Emitter != nil {
		event := emit.HealthEvent{
			Type:      emit.EventVerdict,
			CardID:    verdict.CardID,
			Status:    verdict.Status,
			Anomalies: verdict.Anomalies,
			Timestamp: verdict.EvaluatedAt,
		}
		if err := p.cfg.Emitter.Emit(ctx, event); err != nil {
			p.cfg.Logger.Error("failed to emit verdict", "error", err)
		}
	}

	if verdict.Status == domain.StatusCritical {
		p.handleCritical(ctx, *snap, verdict)
	}
	p.lastStatus = verdict.Status

	return nil
}

// handleCritical alerts operators and queues recovery on the transition into
// critical.
func (p *Pipeline) handleCritical(ctx context.Context, snap domain.HealthSnapshot, verdict domain.HealthVerdict) {
	p.cfg.Logger.Error("card is critical", "anomalies", verdict.Anomalies)

	if p.cfg.Notifier != nil {
		if err := p.cfg.Notifier.NotifyCritical(ctx, snap, verdict); err != nil {
			p.cfg.Logger.Error("failed to notify", "error", err)
		}
	}

	if p.cfg.Recovery == nil || p.lastStatus == domain.StatusCritical {
		return
	}

	ft := recovery.ClassifyVerdict(snap, verdict)
	reason := fmt.Sprintf("verdict critical: %v", verdict.Anomalies)
	if err := p.cfg.Recovery.Enqueue(ctx, p.cfg.CardID, ft, reason); err != nil {
		p.cfg.Logger.Error("failed to enqueue recovery", "failure_type", ft, "error", err)
		return
	}

	if p.cfg.Emitter != nil {
		event := emit.HealthEvent{
			Type:        emit.EventRecoveryQueued,
			CardID:      p.cfg.CardID,
			FailureType: ft,
			Timestamp:   time.Now().UTC(),
		}
		if err := p.cfg.Emitter.Emit(ctx, event); err != nil {
			p.cfg.Logger.Error("failed to emit recovery event", "error", err)
		}
	}
}
