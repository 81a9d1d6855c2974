// Package users provides persistence for user accounts.
package users

import (
	"context"

	"github.com/dkovalenko/contactbook/internal/server/models"
)

// Repository is the persistence contract for user accounts.
type Repository interface {
	// Create inserts a new user. A duplicate email yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns the user with the given email or
	// common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
