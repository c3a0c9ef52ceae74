// Package services contains server-side business logic. This file implements
// SessionService, the rotation engine: issuing session families, rotating
// refresh tokens with reuse detection, and revoking sessions.
package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/forkful/authcore/internal/common"
	"github.com/forkful/authcore/internal/dbx"
	"github.com/forkful/authcore/internal/logging"
	"github.com/forkful/authcore/internal/server/auth"
	"github.com/forkful/authcore/internal/server/config"
	"github.com/forkful/authcore/internal/server/metrics"
	"github.com/forkful/authcore/internal/server/models"
	"github.com/forkful/authcore/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService owns the refresh-session lifecycle:
//   - IssueSession: start a new session family at login
//   - Refresh: rotate a refresh token, detecting and punishing reuse
//   - Revoke / RevokeAll: explicit logout paths
//   - ListActive: device overview for a subject
type SessionService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewSessionService constructs a SessionService using repositories and server config.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *SessionService {
	return &SessionService{
		db:                           db,
		repomanager:                  m,
		logger:                       logger,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// hashToken returns the hex SHA-256 of an opaque refresh token. Only hashes
// are persisted; the raw token exists client-side and in transit.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IssueSession starts a new session family for an authenticated user and
// returns the first token pair.
func (s *SessionService) IssueSession(ctx context.Context, user *models.User, deviceLabel string) (*TokenPair, error) {
	refresh, err := common.MakeRandTokenString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	now := time.Now()
	session := &models.Session{
		TokenHash:   hashToken(refresh),
		FamilyID:    uuid.NewString(),
		SubjectID:   user.ID,
		State:       models.SessionActive,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.refreshTokenValidityDuration),
		LastUsedAt:  now,
		DeviceLabel: deviceLabel,
	}

	repo := s.repomanager.Sessions(s.db)
	if err := repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	access, err := auth.GenerateToken(user.ID, user.Email, user.Role, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	metrics.SessionsIssued.Inc()
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh rotates the presented refresh token and returns a fresh pair.
//
// Outcomes:
//   - common.ErrInvalidRefreshToken: unknown or expired token.
//   - common.ErrReuseDetected: the token was already consumed; the whole
//     family has been revoked.
//   - common.ErrStoreUnavailable: storage failed after retries. The token was
//     not necessarily consumed, so the caller may retry later.
//
// Transient storage failures are retried with a short fibonacci backoff so a
// blip does not strand the client with a half-rotated session.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	tokenHash := hashToken(refreshToken)

	var pair *TokenPair
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := s.refreshOnce(ctx, tokenHash, time.Now())
		if err != nil {
			if errors.Is(err, common.ErrStoreUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// refreshOnce performs one rotation attempt: the conditional state transition
// and the successor insert share a transaction, so either the family advances
// by exactly one link or nothing changes.
func (s *SessionService) refreshOnce(ctx context.Context, tokenHash string, now time.Time) (*TokenPair, error) {
	var pair *TokenPair
	var consumedFamily string

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Sessions(tx)

		rotated, err := repo.TryRotate(ctx, tokenHash, now)
		if err != nil {
			if errors.Is(err, common.ErrSessionConsumed) && rotated != nil {
				consumedFamily = rotated.FamilyID
			}
			return err
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, rotated.SubjectID)
		if err != nil {
			return err
		}

		refresh, err := common.MakeRandTokenString(32)
		if err != nil {
			return common.ErrorInternal
		}

		successor := &models.Session{
			TokenHash:   hashToken(refresh),
			FamilyID:    rotated.FamilyID,
			SubjectID:   rotated.SubjectID,
			State:       models.SessionActive,
			IssuedAt:    now,
			ExpiresAt:   now.Add(s.refreshTokenValidityDuration),
			LastUsedAt:  now,
			DeviceLabel: rotated.DeviceLabel,
		}
		if err := repo.Create(ctx, successor); err != nil {
			return err
		}

		access, err := auth.GenerateToken(user.ID, user.Email, user.Role, s.jwtSecret, s.accessTokenValidityDuration)
		if err != nil {
			return common.ErrorInternal
		}

		pair = &TokenPair{AccessToken: access, RefreshToken: refresh}
		return nil
	})
	if err == nil {
		metrics.Rotations.Inc()
		return pair, nil
	}

	switch {
	case errors.Is(err, common.ErrSessionConsumed):
		// A consumed token came back. Someone holds a stale copy, so the
		// whole family is burned.
		s.logger.Warn(ctx, "refresh token reuse detected, revoking family", "family_id", consumedFamily)
		if consumedFamily != "" {
			if revokeErr := s.repomanager.Sessions(s.db).RevokeFamily(ctx, consumedFamily); revokeErr != nil {
				s.logger.Error(ctx, "family revocation failed", "family_id", consumedFamily, "error", revokeErr)
			}
		}
		metrics.ReuseDetections.Inc()
		metrics.Revocations.Inc()
		return nil, common.ErrReuseDetected
	case errors.Is(err, common.ErrorNotFound):
		return nil, common.ErrInvalidRefreshToken
	case errors.Is(err, common.ErrorInternal):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
}

// Revoke marks the session holding the presented refresh token revoked.
// Revoking an unknown token is not an error; logout must be idempotent.
func (s *SessionService) Revoke(ctx context.Context, refreshToken string) error {
	repo := s.repomanager.Sessions(s.db)
	if err := repo.Revoke(ctx, hashToken(refreshToken)); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	metrics.Revocations.Inc()
	return nil
}

// RevokeAll revokes every session of a subject across all devices.
func (s *SessionService) RevokeAll(ctx context.Context, subjectID string) error {
	repo := s.repomanager.Sessions(s.db)
	if err := repo.RevokeAllForSubject(ctx, subjectID); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	metrics.Revocations.Inc()
	return nil
}

// ListActive returns the subject's active sessions, newest first.
func (s *SessionService) ListActive(ctx context.Context, subjectID string) ([]*models.Session, error) {
	repo := s.repomanager.Sessions(s.db)
	list, err := repo.ListActive(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return list, nil
}
