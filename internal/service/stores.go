package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"canvasquest/internal/database"
	"canvasquest/internal/models"
	"canvasquest/internal/repository"
)

// UserStore is the credential store.
type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	FindByDisplayName(ctx context.Context, displayName string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	Delete(ctx context.Context, id int64) error
}

// SessionLedger records issued tokens so they can be revoked before expiry.
type SessionLedger interface {
	Record(ctx context.Context, session models.Session) (models.Session, error)
	FindByToken(ctx context.Context, token string) (models.Session, error)
	Revoke(ctx context.Context, token string) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Session, error)
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}

type ArtworkStore interface {
	Create(ctx context.Context, artwork models.Artwork) (models.Artwork, error)
	GetByID(ctx context.Context, id int64) (models.Artwork, error)
	IncrementViews(ctx context.Context, id int64) error
	IncrementHearts(ctx context.Context, id int64) error
	ListByArtist(ctx context.Context, artistID int64, includePrivate bool, skip, limit int) ([]models.Artwork, error)
	ListPublic(ctx context.Context, featuredOnly bool, skip, limit int) ([]models.Artwork, error)
	SetFeatured(ctx context.Context, id int64, featured bool) error
	Delete(ctx context.Context, id int64) (models.Artwork, error)
	DeleteByArtist(ctx context.Context, artistID int64) ([]models.Artwork, error)
}

// Stores groups the repositories bound to one connection or transaction.
type Stores struct {
	Users    UserStore
	Sessions SessionLedger
	Artworks ArtworkStore
}

// TxRunner runs fn with stores bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Stores) error) error
}

func PostgresStores(db database.DBTX) Stores {
	return Stores{
		Users:    repository.NewUserRepository(db),
		Sessions: repository.NewSessionRepository(db),
		Artworks: repository.NewArtworkRepository(db),
	}
}

type PgTxRunner struct {
	pool *pgxpool.Pool
}

func NewPgTxRunner(pool *pgxpool.Pool) *PgTxRunner {
	return &PgTxRunner{pool: pool}
}

func (r *PgTxRunner) InTx(ctx context.Context, fn func(Stores) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(PostgresStores(tx))
	})
}
