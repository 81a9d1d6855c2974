// Package contacts provides persistence for address-book entries.
// Every query is scoped to the owning user; a contact owned by another
// user behaves exactly like a missing row.
package contacts

import (
	"context"

	"github.com/dkovalenko/contactbook/internal/server/models"
)

// Repository is the persistence contract for contacts.
type Repository interface {
	// Create inserts a new contact owned by contact.UserID.
	Create(ctx context.Context, contact *models.Contact) (*models.Contact, error)

	// GetByID returns the contact with the given id if it is owned by
	// userID, common.ErrorNotFound otherwise.
	GetByID(ctx context.Context, userID string, id string) (*models.Contact, error)

	// List returns a page of the user's contacts ordered by last name.
	List(ctx context.Context, userID string, offset int, limit int) ([]*models.Contact, error)

	// Update rewrites the mutable fields of an owned contact,
	// common.ErrorNotFound when absent or foreign-owned.
	Update(ctx context.Context, contact *models.Contact) (*models.Contact, error)

	// Delete removes an owned contact, common.ErrorNotFound when absent
	// or foreign-owned.
	Delete(ctx context.Context, userID string, id string) error

	// Search returns the user's contacts whose first name, last name or
	// email contains query (case-insensitive).
	Search(ctx context.Context, userID string, query string) ([]*models.Contact, error)

	// WithBirthdayOn returns the user's contacts whose birthday falls on
	// one of the given month-day values ("MM-DD", year ignored).
	WithBirthdayOn(ctx context.Context, userID string, monthDays []string) ([]*models.Contact, error)

	// SetAvatarKey records the object-storage key of the contact's avatar.
	SetAvatarKey(ctx context.Context, userID string, id string, key string) error
}
