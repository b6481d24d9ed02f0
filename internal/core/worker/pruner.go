package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/config"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage"
)

// Pruner deletes old data based on retention policy.
type Pruner struct {
	cfg       config.CardConfig
	snapshots storage.SnapshotRepository
	attempts  storage.AttemptRepository
	logger    *slog.Logger
}

// NewPruner creates a new Pruner worker.
func NewPruner(
	cfg config.CardConfig,
	snapshots storage.SnapshotRepository,
	attempts storage.AttemptRepository,
	logger *slog.Logger,
) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		cfg:       cfg,
		snapshots: snapshots,
		attempts:  attempts,
		logger:    logger.With("component", "pruner", "card", cfg.ID),
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.cfg.RetentionPeriod <= 0 {
		return // Retention disabled
	}

	// Check interval: 10% of retention period, clamped to [1m, 1h]
	interval := min(p.cfg.RetentionPeriod/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	threshold := time.Now().Add(-p.cfg.RetentionPeriod)

	if err := p.snapshots.DeleteOlderThan(ctx, p.cfg.ID, threshold); err != nil {
		p.logger.Error("failed to prune snapshots", "error", err)
	}

	if err := p.attempts.DeleteOlderThan(ctx, p.cfg.ID, threshold); err != nil {
		p.logger.Error("failed to prune attempts", "error", err)
	}
}
