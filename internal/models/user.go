// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

// FederatedPasswordHash marks accounts created through a federated login.
// It is not a bcrypt digest, so password verification against it always fails.
const FederatedPasswordHash = "!federated"

type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Username     *string   `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	IsVerified   bool      `db:"is_verified" json:"is_verified"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != "" && u.PasswordHash != FederatedPasswordHash
}

// DisplayName returns the username, falling back to the email address.
func (u *User) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return u.Email
}

// UserDetail is the caller's own profile with everything they own.
type UserDetail struct {
	*User
	Posts     []Post     `json:"posts"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

// UserProfile is the publicly visible profile of a user.
type UserProfile struct { //nolint:govet // fieldalignment: readability over optimization
	ID       int64   `json:"id"`
	Username *string `json:"username"`
	Email    string  `json:"email"`
	Posts    []Post  `json:"posts"`
}

// UserCreate is the registration payload.
type UserCreate struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Username *string `json:"username"`
}

// UsernameUpdate is the payload for changing the caller's username.
type UsernameUpdate struct {
	Username *string `json:"username"`
}
