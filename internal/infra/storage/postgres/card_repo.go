package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage"
)

// CardRepo implements storage.CardRepository using PostgreSQL.
type CardRepo struct {
	db *DB
}

// NewCardRepo creates a new PostgreSQL card repository.
func NewCardRepo(db *DB) *CardRepo {
	return &CardRepo{db: db}
}

type cardRow struct {
	ID              string    `db:"id"`
	Model           string    `db:"model"`
	FirmwareVersion string    `db:"firmware_version"`
	TargetFirmware  string    `db:"target_firmware"`
	Status          string    `db:"status"`
	RegisteredAt    time.Time `db:"registered_at"`
}

func (r cardRow) toDomain() *domain.Card {
	return &domain.Card{
		ID:              r.ID,
		Model:           r.Model,
		FirmwareVersion: r.FirmwareVersion,
		TargetFirmware:  r.TargetFirmware,
		Status:          domain.FirmwareStatus(r.Status),
		RegisteredAt:    r.RegisteredAt,
	}
}

// Upsert registers a card or updates its firmware state.
func (r *CardRepo) Upsert(ctx context.Context, card *domain.Card) error {
	query := `
		INSERT INTO cards (id, model, firmware_version, target_firmware, status, registered_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			model = EXCLUDED.model,
			firmware_version = EXCLUDED.firmware_version,
			target_firmware = EXCLUDED.target_firmware,
			status = EXCLUDED.status
	`
	_, err := r.db.ExecContext(
		ctx,
		query,
		card.ID,
		card.Model,
		card.FirmwareVersion,
		card.TargetFirmware,
		string(card.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert card: %w", err)
	}
	return nil
}

// Get retrieves a card by id.
func (r *CardRepo) Get(ctx context.Context, cardID domain.CardID) (*domain.Card, error) {
	query := `
		SELECT id, model, firmware_version, target_firmware, status, registered_at
		FROM cards
		WHERE id = $1
	`

	var row cardRow
	err := r.db.GetContext(ctx, &row, query, cardID)
	if err == sql.ErrNoRows {
		return nil, storage.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return row.toDomain(), nil
}

// GetAll retrieves the whole fleet.
func (r *CardRepo) GetAll(ctx context.Context) ([]*domain.Card, error) {
	query := `
		SELECT id, model, firmware_version, target_firmware, status, registered_at
		FROM cards
		ORDER BY id
	`

	var rows []cardRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get all cards: %w", err)
	}

	cards := make([]*domain.Card, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, row.toDomain())
	}
	return cards, nil
}
