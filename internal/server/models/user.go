package models

import "time"

// User is the identity-store row the session core references by SubjectID.
// Credential verification lives in the users service; the session core only
// ever reads ID, Email and Role.
type User struct {
	ID           string
	Email        string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}
