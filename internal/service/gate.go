package service

import (
	"context"

	"github.com/rs/zerolog"

	"canvasquest/internal/models"
)

type Resolver interface {
	Resolve(ctx context.Context, token string) (models.User, bool, error)
}

// Gate turns bearer tokens into users for request handlers.
type Gate struct {
	resolver Resolver
	log      zerolog.Logger
}

func NewGate(resolver Resolver, log zerolog.Logger) *Gate {
	return &Gate{resolver: resolver, log: log}
}

// RequireAuth returns ErrUnauthenticated for a missing or unresolvable token
// and ErrForbidden for a deactivated account.
func (g *Gate) RequireAuth(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrUnauthenticated
	}
	user, ok, err := g.resolver.Resolve(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrUnauthenticated
	}
	if !user.IsActive {
		return models.User{}, ErrForbidden
	}
	return user, nil
}

// OptionalAuth never fails: anything short of an active user is anonymous.
func (g *Gate) OptionalAuth(ctx context.Context, token string) *models.User {
	if token == "" {
		return nil
	}
	user, ok, err := g.resolver.Resolve(ctx, token)
	if err != nil {
		g.log.Warn().Err(err).Msg("optional auth treated as anonymous")
		return nil
	}
	if !ok || !user.IsActive {
		return nil
	}
	return &user
}

// AuthorizeOwner reports whether user owns a resource owned by ownerID.
func AuthorizeOwner(user models.User, ownerID int64) bool {
	return user.ID == ownerID
}
