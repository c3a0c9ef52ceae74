// Package sessions declares the repository contract for the refresh-session
// table. All mutation of session rows goes through this interface so the
// "one ACTIVE row per family" invariant is enforced in a single place.
package sessions

import (
	"context"
	"time"

	"github.com/forkful/authcore/internal/server/models"
)

// Repository stores refresh-session rows keyed by token hash.
type Repository interface {
	// Create inserts a new session row. The caller fills every field.
	Create(ctx context.Context, session *models.Session) error

	// TryRotate atomically transitions the row identified by tokenHash from
	// active to rotated, provided it has not expired, and returns the row as
	// it was before the transition.
	//
	// Outcomes:
	//   - nil error: the caller won the rotation and may insert the successor.
	//   - common.ErrSessionConsumed: the row exists but is rotated/revoked,
	//     the replay/reuse signal. The returned session carries the family
	//     so the caller can revoke it.
	//   - common.ErrorNotFound: no such row, or the row is expired.
	//
	// The conditional update is the single ordering authority: under N
	// concurrent calls with the same tokenHash exactly one returns nil.
	TryRotate(ctx context.Context, tokenHash string, now time.Time) (*models.Session, error)

	// Revoke marks one session revoked. Revoking an absent or already
	// revoked session is not an error.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeFamily marks every non-revoked row of a family revoked.
	// Idempotent.
	RevokeFamily(ctx context.Context, familyID string) error

	// RevokeAllForSubject marks every non-revoked row belonging to a subject
	// revoked, across all families. Idempotent.
	RevokeAllForSubject(ctx context.Context, subjectID string) error

	// ListActive returns the active sessions of a subject, newest first.
	ListActive(ctx context.Context, subjectID string) ([]*models.Session, error)

	// PurgeExpired deletes rows that are non-active and expired before the
	// olderThan cutoff, plus active rows expired before the same cutoff
	// (unreachable leftovers). Returns the number of rows removed.
	PurgeExpired(ctx context.Context, olderThan time.Time) (int64, error)
}
