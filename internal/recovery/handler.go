package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage"
	"github.com/dpuwatch/dpuwatch/internal/metrics"
)

// Handler drains the pending recovery queue and records finished attempts.
type Handler struct {
	queue    storage.RecoveryQueue
	attempts storage.AttemptRepository
	cards    storage.CardRepository
	runner   *Runner
	strategy RetryStrategy
}

// NewHandler creates a new recovery queue handler. The card repository may be
// nil; it is only used to mirror recovery-mode status onto the inventory.
func NewHandler(
	queue storage.RecoveryQueue,
	attempts storage.AttemptRepository,
	cards storage.CardRepository,
	runner *Runner,
	strategy RetryStrategy,
) *Handler {
	return &Handler{
		queue:    queue,
		attempts: attempts,
		cards:    cards,
		runner:   runner,
		strategy: strategy,
	}
}

// Enqueue registers a failure for recovery. Called when a verdict goes
// critical.
func (h *Handler) Enqueue(ctx context.Context, cardID domain.CardID, ft domain.FailureType, reason string) error {
	if _, err := RecipeFor(ft); err != nil {
		return err
	}

	pr := &domain.PendingRecovery{
		ID:          uuid.New().String(),
		CardID:      cardID,
		FailureType: ft,
		Reason:      reason,
		RetryCount:  0,
		Status:      domain.PendingRecoveryPending,
		LastAttempt: time.Time{},
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.queue.Enqueue(ctx, pr); err != nil {
		return fmt.Errorf("failed to enqueue recovery: %w", err)
	}
	return nil
}

// ProcessNext picks the next pending recovery and runs its recipe if backoff
// allows. The whole recipe restarts from the first step on every retry. The
// finished attempt is returned so callers can publish it; nil means nothing
// ran this round.
func (h *Handler) ProcessNext(ctx context.Context) (*domain.RecoveryAttempt, error) {
	pr, err := h.queue.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get next pending recovery: %w", err)
	}
	if pr == nil {
		return nil, nil
	}

	if !h.strategy.ShouldRetry(pr.RetryCount) {
		if err := h.queue.MarkExhausted(ctx, pr.ID); err != nil {
			return nil, fmt.Errorf("failed to mark recovery exhausted: %w", err)
		}
		return nil, nil
	}

	if pr.RetryCount > 0 {
		delay := h.strategy.GetDelay(pr.RetryCount - 1)
		if time.Now().Before(pr.LastAttempt.Add(delay)) {
			return nil, nil
		}
	}

	// The card stays in recovery mode while the recipe runs.
	h.setCardStatus(ctx, pr.CardID, domain.FirmwareRecoveryMode)

	attempt, err := h.runner.Run(ctx, pr.CardID, pr.FailureType)
	if attempt != nil {
		recordAttempt(attempt)
		if attempt.Success {
			h.setCardStatus(ctx, pr.CardID, domain.FirmwareInstalled)
		} else {
			h.setCardStatus(ctx, pr.CardID, domain.FirmwareFailed)
		}
		if h.attempts != nil {
			if saveErr := h.attempts.Save(ctx, attempt); saveErr != nil {
				return attempt, fmt.Errorf("failed to save attempt %s: %w", attempt.ID, saveErr)
			}
		}
	}
	if err != nil {
		if attempt == nil {
			// Nothing ran; do not leave the card stuck in recovery mode.
			h.setCardStatus(ctx, pr.CardID, domain.FirmwareFailed)
		}
		return attempt, err
	}

	if attempt.Success {
		if err := h.queue.MarkResolved(ctx, pr.ID); err != nil {
			return attempt, fmt.Errorf("failed to resolve recovery %s: %w", pr.ID, err)
		}
		return attempt, nil
	}

	if err := h.queue.IncrementRetry(ctx, pr.ID); err != nil {
		return attempt, fmt.Errorf("failed to increment retry: %w", err)
	}
	return attempt, nil
}

// setCardStatus mirrors the recovery lifecycle into the card inventory.
func (h *Handler) setCardStatus(ctx context.Context, cardID domain.CardID, status domain.FirmwareStatus) {
	if h.cards == nil {
		return
	}
	card, err := h.cards.Get(ctx, cardID)
	if err != nil {
		return
	}
	card.Status = status
	_ = h.cards.Upsert(ctx, card)
}

func recordAttempt(attempt *domain.RecoveryAttempt) {
	outcome := "failure"
	if attempt.Success {
		outcome = "success"
	}
	metrics.RecoveryAttemptsTotal.WithLabelValues(string(attempt.CardID), string(attempt.FailureType), outcome).Inc()
	for _, step := range attempt.Steps {
		stepOutcome := "failure"
		if step.OK {
			stepOutcome = "success"
		}
		metrics.RecoveryStepsTotal.WithLabelValues(string(attempt.CardID), stepOutcome).Inc()
	}
}
