package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
	"github.com/dpuwatch/dpuwatch/internal/emit"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage"
	"github.com/dpuwatch/dpuwatch/internal/metrics"
	"github.com/dpuwatch/dpuwatch/internal/recovery"
)

// AttemptNotifier reports recovery outcomes to operators. Optional.
type AttemptNotifier interface {
	NotifyRecovery(ctx context.Context, attempt *domain.RecoveryAttempt) error
}

// RecoveryWorker drains the pending recovery queue on a fixed interval and
// publishes each finished attempt.
type RecoveryWorker struct {
	handler  *recovery.Handler
	queue    storage.RecoveryQueue
	interval time.Duration
	emitter  emit.Emitter
	notifier AttemptNotifier
	logger   *slog.Logger

	running atomic.Bool
	stop    chan struct{}
}

// NewRecoveryWorker creates a queue drain worker. Emitter and notifier may be
// nil.
func NewRecoveryWorker(
	handler *recovery.Handler,
	queue storage.RecoveryQueue,
	interval time.Duration,
	emitter emit.Emitter,
	notifier AttemptNotifier,
	logger *slog.Logger,
) *RecoveryWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryWorker{
		handler:  handler,
		queue:    queue,
		interval: interval,
		emitter:  emitter,
		notifier: notifier,
		logger:   logger.With("component", "recovery_worker"),
		stop:     make(chan struct{}),
	}
}

// Start begins the drain loop.
func (w *RecoveryWorker) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return fmt.Errorf("recovery worker already running")
	}
	defer w.running.Store(false)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stop:
			return nil
		case <-ticker.C:
			attempt, err := w.handler.ProcessNext(ctx)
			if err != nil {
				w.logger.Error("failed to process recovery", "error", err)
			}
			if attempt != nil {
				w.publish(ctx, attempt)
			}
			if depth, err := w.queue.Depth(ctx); err == nil {
				metrics.RecoveryQueueDepth.Set(float64(depth))
			}
		}
	}
}

// publish emits a recovery_finished event and alerts operators.
func (w *RecoveryWorker) publish(ctx context.Context, attempt *domain.RecoveryAttempt) {
	if w.emitter != nil {
		success := attempt.Success
		event := emit.HealthEvent{
			Type:        emit.EventRecoveryFinished,
			CardID:      attempt.CardID,
			FailureType: attempt.FailureType,
			Success:     &success,
			Timestamp:   attempt.FinishedAt,
		}
		if err := w.emitter.Emit(ctx, event); err != nil {
			w.logger.Error("failed to emit recovery event", "card", attempt.CardID, "error", err)
		}
	}
	if w.notifier != nil {
		if err := w.notifier.NotifyRecovery(ctx, attempt); err != nil {
			w.logger.Error("failed to notify recovery outcome", "card", attempt.CardID, "error", err)
		}
	}
}

// Stop stops the worker.
func (w *RecoveryWorker) Stop() error {
	if w.running.Load() {
		close(w.stop)
	}
	return nil
}
