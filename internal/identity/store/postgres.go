package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"crest/internal/identity/models"
	pgplatform "crest/internal/platform/postgres"
	id "crest/pkg/domain"
	"crest/pkg/platform/sentinel"
)

// Postgres persists identity records and identifier counters.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// NextSequence atomically increments and returns the per-prefix counter.
// The upsert makes concurrent allocations for the same prefix serialize at the
// row level, so no two callers can observe the same sequence number.
func (s *Postgres) NextSequence(ctx context.Context, prefix string) (int, error) {
	query := `
		INSERT INTO identifier_counters (prefix, last_seq)
		VALUES ($1, 1)
		ON CONFLICT (prefix) DO UPDATE SET
			last_seq = identifier_counters.last_seq + 1
		RETURNING last_seq
	`
	var seq int
	if err := s.db.QueryRowContext(ctx, query, prefix).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence for prefix %s: %w", prefix, err)
	}
	return seq, nil
}

func (s *Postgres) Create(ctx context.Context, record models.IdentityRecord) error {
	query := `
		INSERT INTO identities (institutional_id, owner_id, ledger_tx_ref, assigned_at)
		VALUES ($1, $2, NULLIF($3, ''), $4)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.InstitutionalID, uuid.UUID(record.Owner), record.LedgerTxRef, record.AssignedAt)
	if err != nil {
		if pgplatform.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (s *Postgres) FindByOwner(ctx context.Context, owner id.UserID) (models.IdentityRecord, error) {
	query := `
		SELECT institutional_id, owner_id, COALESCE(ledger_tx_ref, ''), assigned_at
		FROM identities WHERE owner_id = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(owner)))
}

func (s *Postgres) FindByInstitutionalID(ctx context.Context, institutionalID string) (models.IdentityRecord, error) {
	query := `
		SELECT institutional_id, owner_id, COALESCE(ledger_tx_ref, ''), assigned_at
		FROM identities WHERE institutional_id = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, institutionalID))
}

func (s *Postgres) AttachLedgerRef(ctx context.Context, owner id.UserID, txRef string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE identities SET ledger_tx_ref = $2 WHERE owner_id = $1`,
		uuid.UUID(owner), txRef)
	if err != nil {
		return fmt.Errorf("attach identity ledger ref: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach identity ledger ref: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) scanOne(row *sql.Row) (models.IdentityRecord, error) {
	var record models.IdentityRecord
	var owner uuid.UUID
	err := row.Scan(&record.InstitutionalID, &owner, &record.LedgerTxRef, &record.AssignedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.IdentityRecord{}, sentinel.ErrNotFound
		}
		return models.IdentityRecord{}, fmt.Errorf("find identity: %w", err)
	}
	record.Owner = id.UserID(owner)
	return record, nil
}
