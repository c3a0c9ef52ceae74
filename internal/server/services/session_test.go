package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/forkful/authcore/internal/common"
	"github.com/forkful/authcore/internal/dbx"
	"github.com/forkful/authcore/internal/logging"
	"github.com/forkful/authcore/internal/server/auth"
	"github.com/forkful/authcore/internal/server/config"
	"github.com/forkful/authcore/internal/server/models"
	sessionsrepo "github.com/forkful/authcore/internal/server/repositories/sessions"
	usersrepo "github.com/forkful/authcore/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type fakeUsersRepo struct {
	byID    map[string]*models.User
	byEmail map[string]*models.User
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{byID: map[string]*models.User{}, byEmail: map[string]*models.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
		f.byEmail[u.Email] = u
	}
	return f
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

// flakySessionsRepo fails TryRotate a set number of times before delegating.
type flakySessionsRepo struct {
	sessionsrepo.Repository
	failures int
}

func (f *flakySessionsRepo) TryRotate(ctx context.Context, tokenHash string, now time.Time) (*models.Session, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	return f.Repository.TryRotate(ctx, tokenHash, now)
}

type fakeRepoManager struct {
	u usersrepo.Repository
	s sessionsrepo.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessionsrepo.Repository { return m.s }

func testUser() *models.User {
	return &models.User{ID: "u1", Email: "ann@example.com", Role: "customer", PasswordHash: "x"}
}

func newSessionService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *SessionService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewSessionService(db, rm, cfg, logging.NewNopLogger())
}

func seedSession(t *testing.T, repo sessionsrepo.Repository, token, family, subject string) {
	t.Helper()
	now := time.Now()
	err := repo.Create(context.Background(), &models.Session{
		TokenHash:   hashToken(token),
		FamilyID:    family,
		SubjectID:   subject,
		State:       models.SessionActive,
		IssuedAt:    now,
		ExpiresAt:   now.Add(time.Hour),
		LastUsedAt:  now,
		DeviceLabel: "cli",
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

// --- tests ---

func TestIssueSession(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	mem := sessionsrepo.NewInMemoryRepository()
	rm := &fakeRepoManager{u: newFakeUsersRepo(testUser()), s: mem}
	s := newSessionService(t, db, rm)

	pair, err := s.IssueSession(context.Background(), testUser(), "phone")
	if err != nil {
		t.Fatalf("IssueSession error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}

	claims, err := auth.ParseToken(pair.AccessToken, []byte("k"))
	if err != nil {
		t.Fatalf("access token must parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "ann@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	row, ok := mem.Get(hashToken(pair.RefreshToken))
	if !ok {
		t.Fatal("session row must be stored under the token hash")
	}
	if row.State != models.SessionActive || row.DeviceLabel != "phone" {
		t.Fatalf("unexpected session row: %+v", row)
	}
	if row.TokenHash == pair.RefreshToken {
		t.Fatal("raw refresh token must never be persisted")
	}
}

func TestRefresh_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	mem := sessionsrepo.NewInMemoryRepository()
	rm := &fakeRepoManager{u: newFakeUsersRepo(testUser()), s: mem}
	s := newSessionService(t, db, rm)

	seedSession(t, mem, "tok1", "f1", "u1")

	pair, err := s.Refresh(context.Background(), "tok1")
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if pair.RefreshToken == "tok1" {
		t.Fatal("refresh must return a new token")
	}

	old, _ := mem.Get(hashToken("tok1"))
	if old.State != models.SessionRotated {
		t.Fatalf("old row must be rotated, got %s", old.State)
	}
	successor, ok := mem.Get(hashToken(pair.RefreshToken))
	if !ok {
		t.Fatal("successor row must exist")
	}
	if successor.FamilyID != "f1" || successor.State != models.SessionActive {
		t.Fatalf("successor must stay in the family and be active: %+v", successor)
	}
	if successor.DeviceLabel != "cli" {
		t.Fatalf("device label must carry over, got %q", successor.DeviceLabel)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRefresh_ReuseRevokesFamily(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	mem := sessionsrepo.NewInMemoryRepository()
	rm := &fakeRepoManager{u: newFakeUsersRepo(testUser()), s: mem}
	s := newSessionService(t, db, rm)

	seedSession(t, mem, "tok1", "f1", "u1")

	pair, err := s.Refresh(context.Background(), "tok1")
	if err != nil {
		t.Fatalf("first Refresh error: %v", err)
	}

	// Replaying the consumed token burns the family, successor included.
	_, err = s.Refresh(context.Background(), "tok1")
	if !errors.Is(err, common.ErrReuseDetected) {
		t.Fatalf("want ErrReuseDetected, got %v", err)
	}

	successor, _ := mem.Get(hashToken(pair.RefreshToken))
	if successor.State != models.SessionRevoked {
		t.Fatalf("successor must be revoked after reuse, got %s", successor.State)
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	mem := sessionsrepo.NewInMemoryRepository()
	rm := &fakeRepoManager{u: newFakeUsersRepo(testUser()), s: mem}
	s := newSessionService(t, db, rm)

	_, err := s.Refresh(context.Background(), "never-issued")
	if !errors.Is(err, common.ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_RetriesTransientStoreErrors(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	// Two failed attempts roll back, the third commits.
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	mem := sessionsrepo.NewInMemoryRepository()
	flaky := &flakySessionsRepo{Repository: mem, failures: 2}
	rm := &fakeRepoManager{u: newFakeUsersRepo(testUser()), s: flaky}
	s := newSessionService(t, db, rm)

	seedSession(t, mem, "tok1", "f1", "u1")

	pair, err := s.Refresh(context.Background(), "tok1")
	if err != nil {
		t.Fatalf("Refresh must survive transient failures: %v", err)
	}
	if pair.RefreshToken == "" {
		t.Fatal("expected a new refresh token")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRefresh_StoreDownAfterRetries(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	mem := sessionsrepo.NewInMemoryRepository()
	flaky := &flakySessionsRepo{Repository: mem, failures: 10}
	rm := &fakeRepoManager{u: newFakeUsersRepo(testUser()), s: flaky}
	s := newSessionService(t, db, rm)

	seedSession(t, mem, "tok1", "f1", "u1")

	_, err := s.Refresh(context.Background(), "tok1")
	if !errors.Is(err, common.ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}

	// The token must not be consumed by a storage failure.
	row, _ := mem.Get(hashToken("tok1"))
	if row.State != models.SessionActive {
		t.Fatalf("token must stay active after store failure, got %s", row.State)
	}
}

func TestRevoke_UnknownTokenIsNoop(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	mem := sessionsrepo.NewInMemoryRepository()
	rm := &fakeRepoManager{u: newFakeUsersRepo(), s: mem}
	s := newSessionService(t, db, rm)

	if err := s.Revoke(context.Background(), "unknown"); err != nil {
		t.Fatalf("revoking an unknown token must not fail: %v", err)
	}
}

func TestRevokeAll(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	mem := sessionsrepo.NewInMemoryRepository()
	rm := &fakeRepoManager{u: newFakeUsersRepo(testUser()), s: mem}
	s := newSessionService(t, db, rm)

	seedSession(t, mem, "tok1", "f1", "u1")
	seedSession(t, mem, "tok2", "f2", "u1")

	if err := s.RevokeAll(context.Background(), "u1"); err != nil {
		t.Fatalf("RevokeAll error: %v", err)
	}

	list, err := s.ListActive(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListActive error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no active sessions, got %d", len(list))
	}
}
