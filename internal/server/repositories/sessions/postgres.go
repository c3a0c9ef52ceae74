// Package sessions provides the PostgreSQL-backed implementation of the
// session repository used by the rotation engine and the sweeper.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/forkful/authcore/internal/common"
	"github.com/forkful/authcore/internal/dbx"
	"github.com/forkful/authcore/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (token_hash, family_id, subject_id, state, issued_at, expires_at, last_used_at, device_label)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := r.db.ExecContext(ctx, query,
		s.TokenHash, s.FamilyID, s.SubjectID, s.State, s.IssuedAt, s.ExpiresAt, s.LastUsedAt, s.DeviceLabel); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// TryRotate is a single conditional UPDATE, not a read-then-write: the
// WHERE clause only matches an unexpired active row, so under concurrent
// presentation of the same token the database serializes the updates and
// exactly one caller sees a row come back.
func (r *PostgresRepository) TryRotate(ctx context.Context, tokenHash string, now time.Time) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET state = 'rotated', last_used_at = $2
		WHERE token_hash = $1 AND state = 'active' AND expires_at > $2
		RETURNING family_id, subject_id, issued_at, expires_at, device_label
	`
	s := &models.Session{TokenHash: tokenHash, State: models.SessionRotated, LastUsedAt: now}
	err := r.db.QueryRowContext(ctx, query, tokenHash, now).
		Scan(&s.FamilyID, &s.SubjectID, &s.IssuedAt, &s.ExpiresAt, &s.DeviceLabel)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	// Zero rows affected. Classify for the caller: a consumed row is the
	// reuse signal, anything else is unknown/expired. The read cannot race
	// the update because rows never return to 'active'.
	classify := `SELECT family_id, subject_id, state, expires_at FROM sessions WHERE token_hash = $1`
	err = r.db.QueryRowContext(ctx, classify, tokenHash).
		Scan(&s.FamilyID, &s.SubjectID, &s.State, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if s.State == models.SessionRotated || s.State == models.SessionRevoked {
		return s, common.ErrSessionConsumed
	}
	return nil, common.ErrorNotFound
}

func (r *PostgresRepository) Revoke(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE sessions
		SET state = 'revoked'
		WHERE token_hash = $1 AND state <> 'revoked'
	`
	if _, err := r.db.ExecContext(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RevokeFamily(ctx context.Context, familyID string) error {
	query := `
		UPDATE sessions
		SET state = 'revoked'
		WHERE family_id = $1 AND state <> 'revoked'
	`
	if _, err := r.db.ExecContext(ctx, query, familyID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RevokeAllForSubject(ctx context.Context, subjectID string) error {
	query := `
		UPDATE sessions
		SET state = 'revoked'
		WHERE subject_id = $1 AND state <> 'revoked'
	`
	if _, err := r.db.ExecContext(ctx, query, subjectID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListActive(ctx context.Context, subjectID string) ([]*models.Session, error) {
	query := `
		SELECT token_hash, family_id, subject_id, state, issued_at, expires_at, last_used_at, device_label
		FROM sessions
		WHERE subject_id = $1 AND state = 'active' AND expires_at > now()
		ORDER BY issued_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Session
	for rows.Next() {
		s := &models.Session{}
		if err := rows.Scan(&s.TokenHash, &s.FamilyID, &s.SubjectID, &s.State,
			&s.IssuedAt, &s.ExpiresAt, &s.LastUsedAt, &s.DeviceLabel); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) PurgeExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
		DELETE FROM sessions
		WHERE expires_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

var _ Repository = (*PostgresRepository)(nil)
