package control

import (
	"context"
	"fmt"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
	"github.com/dpuwatch/dpuwatch/internal/emit"
	"github.com/dpuwatch/dpuwatch/internal/recovery"
)

// CheckResult pairs a snapshot with its verdict for one-shot health checks.
type CheckResult struct {
	Snapshot domain.HealthSnapshot `json:"snapshot"`
	Verdict  domain.HealthVerdict  `json:"verdict"`
}

// CheckCard collects one snapshot, evaluates it, and persists both.
func (s *Service) CheckCard(ctx context.Context, cardID domain.CardID) (*CheckResult, error) {
	source, ok := s.sources[cardID]
	if !ok {
		return nil, fmt.Errorf("card %s not configured", cardID)
	}

	snap, err := source.Collect(ctx, cardID)
	if err != nil {
		unreachable := domain.UnreachableSnapshot(cardID, time.Now().UTC())
		snap = &unreachable
	}
	if err := domain.ValidateSnapshot(*snap); err != nil {
		return nil, err
	}

	verdict := s.evaluator.Evaluate(*snap)

	if err := s.snapshots.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	if err := s.verdicts.Save(ctx, &verdict); err != nil {
		return nil, fmt.Errorf("failed to save verdict: %w", err)
	}

	return &CheckResult{Snapshot: *snap, Verdict: verdict}, nil
}

// Recover runs the recipe for the failure type once and records the attempt.
// The card sits in recovery mode while the recipe runs.
func (s *Service) Recover(ctx context.Context, cardID domain.CardID, ft domain.FailureType) (*domain.RecoveryAttempt, error) {
	if _, err := s.cards.Get(ctx, cardID); err != nil {
		return nil, err
	}
	if _, err := recovery.RecipeFor(ft); err != nil {
		return nil, err
	}

	s.syncCardStatus(ctx, cardID, domain.FirmwareRecoveryMode, "")

	attempt, err := s.runner.Run(ctx, cardID, ft)
	if err != nil {
		s.syncCardStatus(ctx, cardID, domain.FirmwareFailed, "")
		return nil, err
	}
	if err := s.attempts.Save(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to save attempt: %w", err)
	}

	if attempt.Success {
		// Clears the simulated fault state; errors for agent-backed cards,
		// which have nothing to clear.
		_ = s.simulator.Reset(cardID)
		s.syncCardStatus(ctx, cardID, domain.FirmwareInstalled, "")
	} else {
		s.syncCardStatus(ctx, cardID, domain.FirmwareFailed, "")
	}

	success := attempt.Success
	s.emit(ctx, emit.HealthEvent{
		Type:        emit.EventRecoveryFinished,
		CardID:      cardID,
		FailureType: ft,
		Success:     &success,
		Timestamp:   attempt.FinishedAt,
	})
	return attempt, nil
}

// ClassifyCard maps the latest stored verdict to a failure type. Used when the
// operator asks for recovery without naming the failure.
func (s *Service) ClassifyCard(ctx context.Context, cardID domain.CardID) (domain.FailureType, error) {
	snap, err := s.snapshots.GetLatest(ctx, cardID)
	if err != nil {
		return "", err
	}
	verdict, err := s.verdicts.GetLatest(ctx, cardID)
	if err != nil {
		return "", err
	}
	if snap == nil || verdict == nil {
		return "", fmt.Errorf("no telemetry stored for card %s, run a check first", cardID)
	}
	return recovery.ClassifyVerdict(*snap, *verdict), nil
}

// Install runs the firmware installation workflow on a simulated card.
func (s *Service) Install(ctx context.Context, cardID domain.CardID) error {
	card, err := s.cards.Get(ctx, cardID)
	if err != nil {
		return err
	}

	s.syncCardStatus(ctx, cardID, domain.FirmwareInstalling, "")

	if err := s.simulator.Install(ctx, cardID); err != nil {
		s.syncCardStatus(ctx, cardID, domain.FirmwareFailed, "")
		return err
	}

	s.syncCardStatus(ctx, cardID, domain.FirmwareInstalled, card.TargetFirmware)
	s.emit(ctx, emit.HealthEvent{
		Type:      emit.EventFirmwareInstalled,
		CardID:    cardID,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// Reset restores a simulated card to a clean baseline.
func (s *Service) Reset(ctx context.Context, cardID domain.CardID) error {
	if _, err := s.cards.Get(ctx, cardID); err != nil {
		return err
	}
	if err := s.simulator.Reset(cardID); err != nil {
		return err
	}
	s.syncCardStatus(ctx, cardID, domain.FirmwareInstalled, "")
	return nil
}

// TechSupport renders the diagnostic bundle for a card.
func (s *Service) TechSupport(ctx context.Context, cardID domain.CardID) (string, error) {
	return s.techsupport.Generate(ctx, cardID)
}

// emit publishes an event, logging instead of failing the operation.
func (s *Service) emit(ctx context.Context, event emit.HealthEvent) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.log.Warn("failed to emit event", "type", event.Type, "card", event.CardID, "error", err)
	}
}

// syncCardStatus mirrors a firmware state change into the card inventory.
func (s *Service) syncCardStatus(ctx context.Context, cardID domain.CardID, status domain.FirmwareStatus, version string) {
	card, err := s.cards.Get(ctx, cardID)
	if err != nil {
		return
	}
	card.Status = status
	if version != "" {
		card.FirmwareVersion = version
	}
	if err := s.cards.Upsert(ctx, card); err != nil {
		s.log.Warn("failed to sync card status", "card", cardID, "error", err)
	}
}
