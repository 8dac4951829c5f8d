package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"crest/internal/credential/models"
	pgplatform "crest/internal/platform/postgres"
	id "crest/pkg/domain"
	"crest/pkg/platform/sentinel"
)

// Postgres persists credential records.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const credentialColumns = `
	id, kind, title, description, category, image_ref,
	recipient_id, issuer_id, related_event_id,
	COALESCE(ledger_tx_ref, ''), COALESCE(ledger_record_id, 0),
	issued_at, claimed, COALESCE(claim_token_hash, '')
`

func (s *Postgres) Create(ctx context.Context, credential models.Credential) error {
	query := `
		INSERT INTO credentials (
			id, kind, title, description, category, image_ref,
			recipient_id, issuer_id, related_event_id,
			issued_at, claimed, claim_token_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''))
	`
	var relatedEvent interface{}
	if !credential.RelatedEvent.IsZero() {
		relatedEvent = uuid.UUID(credential.RelatedEvent)
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(credential.ID), string(credential.Kind),
		credential.Title, credential.Description, credential.Category, credential.ImageRef,
		uuid.UUID(credential.Recipient), uuid.UUID(credential.Issuer), relatedEvent,
		credential.IssuedAt, credential.Claimed, credential.ClaimTokenHash)
	if err != nil {
		if pgplatform.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, credentialID id.CredentialID) (models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(credentialID)))
}

func (s *Postgres) ListByRecipient(ctx context.Context, recipient id.UserID) ([]models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE recipient_id = $1 ORDER BY issued_at`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(recipient))
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()
	return s.scanAll(rows)
}

// AttachLedgerRefs records the mint outcome. Both refs land in one statement
// so a credential is never observed with half an anchor.
func (s *Postgres) AttachLedgerRefs(ctx context.Context, credentialID id.CredentialID, txRef string, recordID int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE credentials SET ledger_tx_ref = $2, ledger_record_id = $3 WHERE id = $1`,
		uuid.UUID(credentialID), txRef, recordID)
	if err != nil {
		return fmt.Errorf("attach credential ledger refs: %w", err)
	}
	return requireRow(result, "attach credential ledger refs")
}

func (s *Postgres) SetClaimed(ctx context.Context, credentialID id.CredentialID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE credentials SET claimed = TRUE WHERE id = $1`,
		uuid.UUID(credentialID))
	if err != nil {
		return fmt.Errorf("set credential claimed: %w", err)
	}
	return requireRow(result, "set credential claimed")
}

// ListUnanchored returns up to limit credentials missing their ledger refs,
// least recently attempted first so retries rotate through the backlog.
func (s *Postgres) ListUnanchored(ctx context.Context, limit int) ([]models.Credential, error) {
	query := `
		SELECT ` + credentialColumns + `
		FROM credentials
		WHERE ledger_tx_ref IS NULL OR ledger_record_id IS NULL
		ORDER BY anchor_attempted_at ASC NULLS FIRST, issued_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unanchored credentials: %w", err)
	}
	defer rows.Close()
	return s.scanAll(rows)
}

// MarkAnchorAttempts stamps the whole batch in one round trip.
func (s *Postgres) MarkAnchorAttempts(ctx context.Context, ids []id.CredentialID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]uuid.UUID, len(ids))
	for i, credentialID := range ids {
		raw[i] = uuid.UUID(credentialID)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE credentials SET anchor_attempted_at = $2 WHERE id = ANY($1)`,
		pq.Array(raw), at)
	if err != nil {
		return fmt.Errorf("mark anchor attempts: %w", err)
	}
	return nil
}

func (s *Postgres) scanOne(row *sql.Row) (models.Credential, error) {
	credential, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Credential{}, sentinel.ErrNotFound
		}
		return models.Credential{}, fmt.Errorf("find credential: %w", err)
	}
	return credential, nil
}

func (s *Postgres) scanAll(rows *sql.Rows) ([]models.Credential, error) {
	var out []models.Credential
	for rows.Next() {
		credential, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(row scanner) (models.Credential, error) {
	var credential models.Credential
	var credentialID, recipient, issuer uuid.UUID
	var relatedEvent uuid.NullUUID
	var kind string
	err := row.Scan(
		&credentialID, &kind, &credential.Title, &credential.Description,
		&credential.Category, &credential.ImageRef,
		&recipient, &issuer, &relatedEvent,
		&credential.LedgerTxRef, &credential.LedgerRecordID,
		&credential.IssuedAt, &credential.Claimed, &credential.ClaimTokenHash)
	if err != nil {
		return models.Credential{}, err
	}
	credential.ID = id.CredentialID(credentialID)
	credential.Kind = models.Kind(kind)
	credential.Recipient = id.UserID(recipient)
	credential.Issuer = id.UserID(issuer)
	if relatedEvent.Valid {
		credential.RelatedEvent = id.EventID(relatedEvent.UUID)
	}
	return credential, nil
}

func requireRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
