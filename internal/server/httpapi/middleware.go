package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/forkful/authcore/internal/common"
	"github.com/forkful/authcore/internal/server/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// ClaimsFromContext returns the verified access-token claims stored by the
// auth middleware.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// extractAccessToken looks for a Bearer token first and falls back to the
// access_token cookie for browser clients.
func extractAccessToken(r *http.Request) string {
	header := r.Header.Get(common.AuthorizationHeaderName)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return token
	}
	if cookie, err := r.Cookie(common.AccessTokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// withAuth verifies the access token and stores the claims in the request
// context.
//
// The two 401 bodies are part of the contract: "token_expired" tells the
// client to refresh and retry, "invalid_token" tells it to re-authenticate.
// A forged token must never receive "token_expired".
func (s *HTTPServer) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractAccessToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, common.CodeUnauthorized)
			return
		}

		claims, err := auth.ParseToken(token, s.jwtSecret)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, common.CodeTokenExpired)
				return
			}
			writeError(w, http.StatusUnauthorized, common.CodeInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
