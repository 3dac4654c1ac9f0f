package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrArtworkNotFound      = errors.New("artwork not found")
	ErrDuplicateDisplayName = errors.New("artist name already taken")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrDuplicateToken       = errors.New("session token already recorded")
)

const uniqueViolation = "23505"

// Constraint names from the init migration.
const (
	constraintArtistName   = "users_artist_name_key"
	constraintEmail        = "users_email_key"
	constraintSessionToken = "sessions_session_token_key"
)

// mapUniqueViolation turns a unique-constraint failure into the matching
// sentinel. Other errors pass through untouched.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintArtistName:
		return ErrDuplicateDisplayName
	case constraintEmail:
		return ErrDuplicateEmail
	case constraintSessionToken:
		return ErrDuplicateToken
	}
	return err
}
