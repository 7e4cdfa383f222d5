// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account. Users are never updated after
// creation, so there is no UpdatedAt.
//
// PasswordHash is tagged json:"-" so a User can never leak its hash
// through an API response by accident.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// PublicUser is the user shape returned by register and login.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Public strips the credential fields from u.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email}
}

// UserSummary is the denormalized owner embedded in problems, solutions
// and comments in place of the bare owner id.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
