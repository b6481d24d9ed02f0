package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

// AttemptRepo implements storage.AttemptRepository using PostgreSQL.
type AttemptRepo struct {
	db *DB
}

// NewAttemptRepo creates a new PostgreSQL recovery attempt repository.
func NewAttemptRepo(db *DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

type attemptRow struct {
	ID                string    `db:"id"`
	CardID            string    `db:"card_id"`
	FailureType       string    `db:"failure_type"`
	Steps             []byte    `db:"steps"`
	Success           bool      `db:"success"`
	LastCompletedStep string    `db:"last_completed_step"`
	StartedAt         time.Time `db:"started_at"`
	FinishedAt        time.Time `db:"finished_at"`
}

func (r attemptRow) toDomain() (*domain.RecoveryAttempt, error) {
	var steps []domain.StepResult
	if len(r.Steps) > 0 {
		if err := json.Unmarshal(r.Steps, &steps); err != nil {
			return nil, fmt.Errorf("failed to decode steps: %w", err)
		}
	}
	return &domain.RecoveryAttempt{
		ID:                r.ID,
		CardID:            r.CardID,
		FailureType:       domain.FailureType(r.FailureType),
		Steps:             steps,
		Success:           r.Success,
		LastCompletedStep: r.LastCompletedStep,
		StartedAt:         r.StartedAt,
		FinishedAt:        r.FinishedAt,
	}, nil
}

// Save persists a finished attempt. Step results are stored as a JSON array.
func (r *AttemptRepo) Save(ctx context.Context, attempt *domain.RecoveryAttempt) error {
	steps, err := json.Marshal(attempt.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}

	query := `
		INSERT INTO recovery_attempts (id, card_id, failure_type, steps, success, last_completed_step, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(
		ctx,
		query,
		attempt.ID,
		attempt.CardID,
		string(attempt.FailureType),
		steps,
		attempt.Success,
		attempt.LastCompletedStep,
		attempt.StartedAt,
		attempt.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save attempt: %w", err)
	}
	return nil
}

// GetRecent retrieves the most recent attempts for a card, newest first.
func (r *AttemptRepo) GetRecent(ctx context.Context, cardID domain.CardID, limit int) ([]*domain.RecoveryAttempt, error) {
	query := `
		SELECT id, card_id, failure_type, steps, success, last_completed_step, started_at, finished_at
		FROM recovery_attempts
		WHERE card_id = $1
		ORDER BY finished_at DESC
		LIMIT $2
	`

	var rows []attemptRow
	if err := r.db.SelectContext(ctx, &rows, query, cardID, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent attempts: %w", err)
	}

	attempts := make([]*domain.RecoveryAttempt, 0, len(rows))
	for _, row := range rows {
		attempt, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// DeleteOlderThan prunes attempts finished before the threshold.
func (r *AttemptRepo) DeleteOlderThan(ctx context.Context, cardID domain.CardID, before time.Time) error {
	query := `
		DELETE FROM recovery_attempts
		WHERE card_id = $1 AND finished_at < $2
	`
	_, err := r.db.ExecContext(ctx, query, cardID, before)
	if err != nil {
		return fmt.Errorf("failed to prune attempts: %w", err)
	}
	return nil
}
