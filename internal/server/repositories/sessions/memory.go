package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/forkful/authcore/internal/common"
	"github.com/forkful/authcore/internal/server/models"
)

// InMemoryRepository is a mutex-serialized implementation of Repository with
// the same rotation semantics as the Postgres one. Used by tests and by
// single-node development setups without a database.
type InMemoryRepository struct {
	mu   sync.Mutex
	rows map[string]*models.Session
}

// NewInMemoryRepository returns an empty in-memory session repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[string]*models.Session)}
}

func cloneSession(s *models.Session) *models.Session {
	c := *s
	return &c
}

func (r *InMemoryRepository) Create(ctx context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.TokenHash] = cloneSession(s)
	return nil
}

// TryRotate holds the lock across check and transition, mirroring the
// row-level atomicity of the SQL conditional update.
func (r *InMemoryRepository) TryRotate(ctx context.Context, tokenHash string, now time.Time) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[tokenHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if row.State == models.SessionRotated || row.State == models.SessionRevoked {
		return cloneSession(row), common.ErrSessionConsumed
	}
	if !row.ExpiresAt.After(now) {
		return nil, common.ErrorNotFound
	}

	row.State = models.SessionRotated
	row.LastUsedAt = now
	return cloneSession(row), nil
}

func (r *InMemoryRepository) Revoke(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[tokenHash]; ok {
		row.State = models.SessionRevoked
	}
	return nil
}

func (r *InMemoryRepository) RevokeFamily(ctx context.Context, familyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.FamilyID == familyID {
			row.State = models.SessionRevoked
		}
	}
	return nil
}

func (r *InMemoryRepository) RevokeAllForSubject(ctx context.Context, subjectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.SubjectID == subjectID {
			row.State = models.SessionRevoked
		}
	}
	return nil
}

func (r *InMemoryRepository) ListActive(ctx context.Context, subjectID string) ([]*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var result []*models.Session
	for _, row := range r.rows {
		if row.SubjectID == subjectID && row.State == models.SessionActive && row.ExpiresAt.After(now) {
			result = append(result, cloneSession(row))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].IssuedAt.After(result[j].IssuedAt)
	})
	return result, nil
}

func (r *InMemoryRepository) PurgeExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, row := range r.rows {
		if row.ExpiresAt.Before(olderThan) {
			delete(r.rows, hash)
			n++
		}
	}
	return n, nil
}

// Get returns a snapshot of one row; test helper.
func (r *InMemoryRepository) Get(tokenHash string) (*models.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[tokenHash]
	if !ok {
		return nil, false
	}
	return cloneSession(row), true
}

// Len returns the number of stored rows; test helper.
func (r *InMemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

var _ Repository = (*InMemoryRepository)(nil)
