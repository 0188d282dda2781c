package models

import "time"

// User is the account record backing authentication. Goal and task data live
// in their own services; this core only needs what the security path touches.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string // "user" or "admin"
	Status       string // "active", "suspended", "disabled"
	TOTPSecret   *string
	TOTPEnabled  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
