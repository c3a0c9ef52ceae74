package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/forkful/authcore/internal/common"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type registerResponse struct {
	ID string `json:"id"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type revokeRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionInfo struct {
	FamilyID    string    `json:"familyId"`
	DeviceLabel string    `json:"deviceLabel"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	LastUsedAt  time.Time `json:"lastUsedAt"`
}

type activeSessionsResponse struct {
	Sessions []sessionInfo `json:"sessions"`
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.Register(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusBadRequest, "bad_request")
			return
		}
		s.logger.Error(r.Context(), "registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, common.CodeInternal)
		return
	}

	s.logger.Info(r.Context(), "user registered", "email", user.Email)
	writeJSON(w, http.StatusOK, registerResponse{ID: user.ID})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, common.CodeUnauthorized)
			return
		}
		writeError(w, http.StatusInternalServerError, common.CodeInternal)
		return
	}

	pair, err := s.sessions.IssueSession(r.Context(), user, r.UserAgent())
	if err != nil {
		if errors.Is(err, common.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, common.CodeStoreUnavailable)
			return
		}
		writeError(w, http.StatusInternalServerError, common.CodeInternal)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusUnauthorized, common.CodeInvalidRefreshToken)
		return
	}

	// Detach from the request context: if the client goes away mid-rotation,
	// an aborted transition would strand the family with no active token.
	ctx := context.WithoutCancel(r.Context())

	pair, err := s.sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrReuseDetected):
			writeError(w, http.StatusUnauthorized, common.CodeReuseDetected)
		case errors.Is(err, common.ErrInvalidRefreshToken):
			writeError(w, http.StatusUnauthorized, common.CodeInvalidRefreshToken)
		case errors.Is(err, common.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, common.CodeStoreUnavailable)
		default:
			s.logger.Error(ctx, "refresh failed", "error", err)
			writeError(w, http.StatusInternalServerError, common.CodeInternal)
		}
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *HTTPServer) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.sessions.Revoke(r.Context(), req.RefreshToken); err != nil {
		writeError(w, http.StatusServiceUnavailable, common.CodeStoreUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleRevokeAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, common.CodeUnauthorized)
		return
	}

	if err := s.sessions.RevokeAll(r.Context(), claims.UserID); err != nil {
		writeError(w, http.StatusServiceUnavailable, common.CodeStoreUnavailable)
		return
	}

	s.logger.Info(r.Context(), "all sessions revoked", "user_id", claims.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, common.CodeUnauthorized)
		return
	}

	list, err := s.sessions.ListActive(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, common.CodeStoreUnavailable)
		return
	}

	resp := activeSessionsResponse{Sessions: make([]sessionInfo, 0, len(list))}
	for _, sess := range list {
		resp.Sessions = append(resp.Sessions, sessionInfo{
			FamilyID:    sess.FamilyID,
			DeviceLabel: sess.DeviceLabel,
			IssuedAt:    sess.IssuedAt,
			ExpiresAt:   sess.ExpiresAt,
			LastUsedAt:  sess.LastUsedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
