// Package models defines the persistent entities of the contactbook server.
package models

import "time"

// User is an account holder. Created on registration; immutable afterwards
// except for the IsActive flag.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}
