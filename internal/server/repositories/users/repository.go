// Package users declares the repository contract for the identity store the
// session core reads its subjects from.
package users

import (
	"context"

	"github.com/forkful/authcore/internal/server/models"
)

// Repository defines operations over user rows.
type Repository interface {
	// Create inserts a new user. The caller provides ID and password hash.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns the user with the given email, or
	// common.ErrorNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns the user with the given ID, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)
}
