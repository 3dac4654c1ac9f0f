package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"canvasquest/internal/database"
	"canvasquest/internal/models"
)

const sessionColumns = `id, session_token, user_id, ip_address, user_agent, is_active, created_at, expires_at, last_activity`

// SessionRepository is the session ledger: a durable record of issued
// tokens. Rows are only ever flipped to inactive, never deleted, except when
// the owning user is removed.
type SessionRepository struct {
	db database.DBTX
}

func NewSessionRepository(db database.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Record(ctx context.Context, session models.Session) (models.Session, error) {
	const query = `
		INSERT INTO sessions (session_token, user_id, ip_address, user_agent, is_active, expires_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING id, created_at, last_activity
	`

	err := r.db.QueryRow(ctx, query,
		session.Token,
		session.UserID,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt, &session.LastActivity)
	if err != nil {
		return models.Session{}, mapUniqueViolation(err)
	}
	session.IsActive = true
	return session, nil
}

func (r *SessionRepository) FindByToken(ctx context.Context, token string) (models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE session_token = $1`
	return scanSession(r.db.QueryRow(ctx, query, token))
}

// Revoke deactivates the session for token. It reports true only when an
// active session was flipped. An already revoked session yields (false, nil);
// an unknown token yields (false, ErrSessionNotFound).
func (r *SessionRepository) Revoke(ctx context.Context, token string) (bool, error) {
	const revoke = `
		UPDATE sessions
		SET is_active = FALSE,
		    last_activity = NOW()
		WHERE session_token = $1 AND is_active
	`
	cmd, err := r.db.Exec(ctx, revoke, token)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() > 0 {
		return true, nil
	}

	const exists = `SELECT EXISTS (SELECT 1 FROM sessions WHERE session_token = $1)`
	var found bool
	if err := r.db.QueryRow(ctx, exists, token).Scan(&found); err != nil {
		return false, err
	}
	if !found {
		return false, ErrSessionNotFound
	}
	return false, nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID int64) ([]models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeleteByUser removes every session of a user. Only account deletion uses it.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	const query = `DELETE FROM sessions WHERE user_id = $1`
	cmd, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanSession(row pgx.Row) (models.Session, error) {
	var session models.Session
	if err := row.Scan(
		&session.ID,
		&session.Token,
		&session.UserID,
		&session.IPAddress,
		&session.UserAgent,
		&session.IsActive,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.LastActivity,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}
