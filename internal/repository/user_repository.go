package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"canvasquest/internal/database"
	"canvasquest/internal/models"
)

const userColumns = `id, artist_name, email, hashed_password, bio, avatar_url, is_active, is_verified, created_at, updated_at`

type UserRepository struct {
	db database.DBTX
}

func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user and returns it with the generated id and timestamps.
func (r *UserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (artist_name, email, hashed_password, bio, avatar_url, is_active, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		user.DisplayName,
		user.Email,
		user.PasswordHash,
		user.Bio,
		user.AvatarURL,
		user.IsActive,
		user.IsVerified,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return models.User{}, mapUniqueViolation(err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByDisplayName(ctx context.Context, displayName string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE artist_name = $1`
	return scanUser(r.db.QueryRow(ctx, query, displayName))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetPasswordHash replaces the stored hash, used to upgrade legacy bcrypt
// hashes after a successful login.
func (r *UserRepository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	const query = `UPDATE users SET hashed_password = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id, hash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM users WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.DisplayName,
		&user.Email,
		&user.PasswordHash,
		&user.Bio,
		&user.AvatarURL,
		&user.IsActive,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
