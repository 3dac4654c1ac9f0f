package models

import "time"

// User is an artist account. DisplayName is the unique artist name.
type User struct {
	ID           int64
	DisplayName  string
	Email        *string
	PasswordHash *string
	Bio          *string
	AvatarURL    *string
	IsActive     bool
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// HasPassword reports whether the account can log in with a password.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
