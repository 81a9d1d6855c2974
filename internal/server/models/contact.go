package models

import "time"

// Contact is a single address-book entry. Every contact has exactly one
// owning user; only the owner can see or mutate it.
type Contact struct {
	ID        string
	UserID    string
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	Birthday  *time.Time
	Notes     *string
	AvatarKey *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
