package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

var (
	// ErrCardNotFound is returned when a card doesn't exist
	ErrCardNotFound = errors.New("card not found")
)

// CardRepository handles card inventory operations
type CardRepository interface {
	// Upsert registers a card or updates its firmware state
	Upsert(ctx context.Context, card *domain.Card) error

	// Get retrieves a card by id
	Get(ctx context.Context, cardID domain.CardID) (*domain.Card, error)

	// GetAll retrieves the whole fleet
	GetAll(ctx context.Context) ([]*domain.Card, error)
}

// SnapshotRepository handles health snapshot storage
type SnapshotRepository interface {
	// Save persists a snapshot
	Save(ctx context.Context, snap *domain.HealthSnapshot) error

	// GetLatest retrieves the most recent snapshot for a card
	GetLatest(ctx context.Context, cardID domain.CardID) (*domain.HealthSnapshot, error)

	// DeleteOlderThan prunes snapshots collected before the threshold
	DeleteOlderThan(ctx context.Context, cardID domain.CardID, before time.Time) error
}

// VerdictRepository handles health verdict storage
type VerdictRepository interface {
	// Save persists a verdict
	Save(ctx context.Context, v *domain.HealthVerdict) error

	// GetLatest retrieves the most recent verdict for a card
	GetLatest(ctx context.Context, cardID domain.CardID) (*domain.HealthVerdict, error)
}

// AttemptRepository handles recovery attempt records
type AttemptRepository interface {
	// Save persists a finished attempt
	Save(ctx context.Context, attempt *domain.RecoveryAttempt) error

	// GetRecent retrieves the most recent attempts for a card, newest first
	GetRecent(ctx context.Context, cardID domain.CardID, limit int) ([]*domain.RecoveryAttempt, error)

	// DeleteOlderThan prunes attempts finished before the threshold
	DeleteOlderThan(ctx context.Context, cardID domain.CardID, before time.Time) error
}

// RecoveryQueue holds pending recoveries awaiting execution. Entries with the
// lowest retry count are served first.
type RecoveryQueue interface {
	// Enqueue adds a pending recovery
	Enqueue(ctx context.Context, pr *domain.PendingRecovery) error

	// Next returns the next pending recovery, or nil when the queue is empty
	Next(ctx context.Context) (*domain.PendingRecovery, error)

	// IncrementRetry bumps the retry count and last-attempt timestamp
	IncrementRetry(ctx context.Context, id string) error

	// MarkResolved removes a pending recovery after success
	MarkResolved(ctx context.Context, id string) error

	// MarkExhausted removes a pending recovery after the retry budget ran out
	MarkExhausted(ctx context.Context, id string) error

	// Depth returns the number of pending entries
	Depth(ctx context.Context) (int, error)
}
