package models

import "time"

// SessionState is the lifecycle state of one refresh-token row.
type SessionState string

const (
	// SessionActive marks the single usable token of a family.
	SessionActive SessionState = "active"
	// SessionRotated marks a token consumed by a successful rotation.
	// The row is retained so that replaying it can be recognized as reuse.
	SessionRotated SessionState = "rotated"
	// SessionRevoked marks a token killed by logout or reuse detection.
	SessionRevoked SessionState = "revoked"
)

// Session is one persisted refresh-token row. TokenHash is the SHA-256 hex
// of the opaque token held by the client; the raw token is never stored.
// FamilyID groups every token descended from one login and is stable across
// rotations.
type Session struct {
	TokenHash   string
	FamilyID    string
	SubjectID   string
	State       SessionState
	IssuedAt    time.Time
	ExpiresAt   time.Time
	LastUsedAt  time.Time
	DeviceLabel string
}
