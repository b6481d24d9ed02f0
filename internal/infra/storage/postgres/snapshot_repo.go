package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

// SnapshotRepo implements storage.SnapshotRepository using PostgreSQL.
type SnapshotRepo struct {
	db *DB
}

// NewSnapshotRepo creates a new PostgreSQL snapshot repository.
func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

type snapshotRow struct {
	CardID          string    `db:"card_id"`
	Temperature     float64   `db:"temperature"`
	PowerWatts      float64   `db:"power_watts"`
	LinkUp          bool      `db:"link_up"`
	InterruptCount  int       `db:"interrupt_count"`
	ErrorCount      int       `db:"error_count"`
	FirmwareVersion string    `db:"firmware_version"`
	FirmwareStatus  string    `db:"firmware_status"`
	CollectedAt     time.Time `db:"collected_at"`
}

// Save persists a snapshot.
func (r *SnapshotRepo) Save(ctx context.Context, snap *domain.HealthSnapshot) error {
	query := `
		INSERT INTO snapshots (card_id, temperature, power_watts, link_up, interrupt_count, error_count, firmware_version, firmware_status, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(
		ctx,
		query,
		snap.CardID,
		snap.Temperature,
		snap.PowerWatts,
		snap.LinkUp,
		snap.InterruptCount,
		snap.ErrorCount,
		snap.FirmwareVersion,
		string(snap.FirmwareStatus),
		snap.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent snapshot for a card.
func (r *SnapshotRepo) GetLatest(ctx context.Context, cardID domain.CardID) (*domain.HealthSnapshot, error) {
	query := `
		SELECT card_id, temperature, power_watts, link_up, interrupt_count, error_count, firmware_version, firmware_status, collected_at
		FROM snapshots
		WHERE card_id = $1
		ORDER BY collected_at DESC
		LIMIT 1
	`

	var row snapshotRow
	err := r.db.GetContext(ctx, &row, query, cardID)
	if err == sql.ErrNoRows {
		return nil, nil // No snapshots yet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return &domain.HealthSnapshot{
		CardID:          row.CardID,
		Temperature:     row.Temperature,
		PowerWatts:      row.PowerWatts,
		LinkUp:          row.LinkUp,
		InterruptCount:  row.InterruptCount,
		ErrorCount:      row.ErrorCount,
		FirmwareVersion: row.FirmwareVersion,
		FirmwareStatus:  domain.FirmwareStatus(row.FirmwareStatus),
		CollectedAt:     row.CollectedAt,
	}, nil
}

// DeleteOlderThan prunes snapshots collected before the threshold.
func (r *SnapshotRepo) DeleteOlderThan(ctx context.Context, cardID domain.CardID, before time.Time) error {
	query := `
		DELETE FROM snapshots
		WHERE card_id = $1 AND collected_at < $2
	`
	_, err := r.db.ExecContext(ctx, query, cardID, before)
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return nil
}

// VerdictRepo implements storage.VerdictRepository using PostgreSQL.
type VerdictRepo struct {
	db *DB
}

// NewVerdictRepo creates a new PostgreSQL verdict repository.
func NewVerdictRepo(db *DB) *VerdictRepo {
	return &VerdictRepo{db: db}
}

// Save persists a verdict. Anomalies are stored as a JSON array.
func (r *VerdictRepo) Save(ctx context.Context, v *domain.HealthVerdict) error {
	anomalies, err := json.Marshal(v.Anomalies)
	if err != nil {
		return fmt.Errorf("failed to encode anomalies: %w", err)
	}

	query := `
		INSERT INTO verdicts (card_id, status, anomalies, evaluated_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = r.db.ExecContext(ctx, query, v.CardID, string(v.Status), anomalies, v.EvaluatedAt)
	if err != nil {
		return fmt.Errorf("failed to save verdict: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent verdict for a card.
func (r *VerdictRepo) GetLatest(ctx context.Context, cardID domain.CardID) (*domain.HealthVerdict, error) {
	query := `
		SELECT card_id, status, anomalies, evaluated_at
		FROM verdicts
		WHERE card_id = $1
		ORDER BY evaluated_at DESC
		LIMIT 1
	`

	var row struct {
		CardID      string    `db:"card_id"`
		Status      string    `db:"status"`
		Anomalies   []byte    `db:"anomalies"`
		EvaluatedAt time.Time `db:"evaluated_at"`
	}

	err := r.db.GetContext(ctx, &row, query, cardID)
	if err == sql.ErrNoRows {
		return nil, nil // No verdicts yet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest verdict: %w", err)
	}

	var anomalies []domain.Anomaly
	if len(row.Anomalies) > 0 {
		if err := json.Unmarshal(row.Anomalies, &anomalies); err != nil {
			return nil, fmt.Errorf("failed to decode anomalies: %w", err)
		}
	}

	return &domain.HealthVerdict{
		CardID:      row.CardID,
		Status:      domain.HealthStatus(row.Status),
		Anomalies:   anomalies,
		EvaluatedAt: row.EvaluatedAt,
	}, nil
}
