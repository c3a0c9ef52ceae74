// Package common defines shared constants and sentinel errors used across
// client and server layers of the Forkful auth core. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Access token errors. ErrTokenExpired is recoverable via refresh;
	// ErrInvalidToken forces re-authentication.
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")

	// Refresh token lifecycle errors.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrReuseDetected       = errors.New("refresh token reuse detected")

	// ErrSessionConsumed is the repository-level signal that a rotation
	// target was already rotated or revoked. The service layer maps it to
	// ErrReuseDetected after revoking the session family.
	ErrSessionConsumed = errors.New("session already consumed")

	// ErrStoreUnavailable marks transient storage failures. It must never be
	// surfaced as an authentication failure.
	ErrStoreUnavailable = errors.New("session store unavailable")
)
