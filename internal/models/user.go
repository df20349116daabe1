package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// UserDB represents a row of the users table.
type UserDB struct {
	UserID       uuid.UUID `db:"user_id"`
	Username     string    `db:"username"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Identity is the authenticated caller supplied by the auth layer on
// every call that requires ownership checks.
type Identity struct {
	UserID uuid.UUID
	Name   string
	Role   string
}
