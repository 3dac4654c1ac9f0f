package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"canvasquest/internal/models"
	"canvasquest/internal/repository"
	"canvasquest/internal/security"
	"canvasquest/internal/storage"
)

const (
	minDisplayNameLen = 3
	maxDisplayNameLen = 100
)

type AuthOption func(*AuthService)

// WithClock sets the clock used to judge session expiry. It should match the
// clock of the token codec.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		s.now = now
	}
}

func WithPasswordHasher(hash func(string) (string, error)) AuthOption {
	return func(s *AuthService) {
		s.hash = hash
	}
}

type AuthService struct {
	stores Stores
	tx     TxRunner
	codec  *security.TokenCodec
	blobs  storage.Store
	log    zerolog.Logger
	now    func() time.Time
	hash   func(string) (string, error)
}

func NewAuthService(
	stores Stores,
	tx TxRunner,
	codec *security.TokenCodec,
	blobs storage.Store,
	log zerolog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		stores: stores,
		tx:     tx,
		codec:  codec,
		blobs:  blobs,
		log:    log,
		now:    time.Now,
		hash:   security.HashPassword,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateUserInput struct {
	DisplayName string
	Email       *string
	Password    *string
}

// ClientInfo is best-effort request metadata recorded with a session.
type ClientInfo struct {
	IP        *string
	UserAgent *string
}

type AuthResult struct {
	Token   string
	Session models.Session
	User    models.User
}

// CreateUser registers an artist. The password, when given, is stored only
// as an argon2id hash.
func (s *AuthService) CreateUser(ctx context.Context, input CreateUserInput) (models.User, error) {
	return s.createUser(ctx, s.stores.Users, input)
}

func (s *AuthService) createUser(ctx context.Context, users UserStore, input CreateUserInput) (models.User, error) {
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if n := utf8.RuneCountInString(input.DisplayName); n < minDisplayNameLen || n > maxDisplayNameLen {
		return models.User{}, fmt.Errorf("%w: artist name must be %d-%d characters", ErrInvalidInput, minDisplayNameLen, maxDisplayNameLen)
	}
	input.Email = normalizeEmail(input.Email)

	if _, err := users.FindByDisplayName(ctx, input.DisplayName); err == nil {
		return models.User{}, ErrDuplicateIdentity
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, storageFailure(err)
	}

	if input.Email != nil {
		if _, err := users.FindByEmail(ctx, *input.Email); err == nil {
			return models.User{}, ErrDuplicateEmail
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, storageFailure(err)
		}
	}

	user := models.User{
		DisplayName: input.DisplayName,
		Email:       input.Email,
		IsActive:    true,
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := s.hash(*input.Password)
		if err != nil {
			return models.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = &hash
	}

	created, err := users.Create(ctx, user)
	switch {
	case errors.Is(err, repository.ErrDuplicateDisplayName):
		return models.User{}, ErrDuplicateIdentity
	case errors.Is(err, repository.ErrDuplicateEmail):
		return models.User{}, ErrDuplicateEmail
	case err != nil:
		return models.User{}, storageFailure(err)
	}
	return created, nil
}

// Authenticate reports whether password matches the named account. Unknown
// names, accounts without a password and wrong passwords all yield false.
func (s *AuthService) Authenticate(ctx context.Context, displayName, password string) (models.User, bool, error) {
	user, err := s.stores.Users.FindByDisplayName(ctx, strings.TrimSpace(displayName))
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, storageFailure(err)
	}
	if !user.HasPassword() {
		return models.User{}, false, nil
	}

	ok, err := security.VerifyPassword(password, *user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("stored password hash unreadable")
		return models.User{}, false, nil
	}
	if !ok {
		return models.User{}, false, nil
	}

	if security.NeedsRehash(*user.PasswordHash) {
		s.upgradeHash(ctx, &user, password)
	}
	return user, true, nil
}

func (s *AuthService) upgradeHash(ctx context.Context, user *models.User, password string) {
	hash, err := s.hash(password)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("rehash password")
		return
	}
	if err := s.stores.Users.SetPasswordHash(ctx, user.ID, hash); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("store upgraded password hash")
		return
	}
	user.PasswordHash = &hash
}

// IssueSession mints a token for userID and records it in the ledger with
// the same expiry the token carries.
func (s *AuthService) IssueSession(ctx context.Context, userID int64, client ClientInfo) (string, models.Session, error) {
	return s.issueSession(ctx, s.stores.Sessions, userID, client)
}

func (s *AuthService) issueSession(ctx context.Context, sessions SessionLedger, userID int64, client ClientInfo) (string, models.Session, error) {
	token, expiresAt, err := s.codec.Mint(userID)
	if err != nil {
		return "", models.Session{}, err
	}

	session, err := sessions.Record(ctx, models.Session{
		Token:     token,
		UserID:    userID,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", models.Session{}, storageFailure(err)
	}
	return token, session, nil
}

// Resolve maps a bearer token to its user. The token must verify and its
// ledger entry must be active, unexpired and owned by the token subject.
func (s *AuthService) Resolve(ctx context.Context, token string) (models.User, bool, error) {
	if token == "" {
		return models.User{}, false, nil
	}

	subjectID, err := s.codec.Verify(token)
	if err != nil {
		return models.User{}, false, nil
	}

	session, err := s.stores.Sessions.FindByToken(ctx, token)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, storageFailure(err)
	}
	if session.UserID != subjectID || session.StateAt(s.now()) != models.SessionStateActive {
		return models.User{}, false, nil
	}

	user, err := s.stores.Users.GetByID(ctx, subjectID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, storageFailure(err)
	}
	return user, true, nil
}

// Logout revokes the session of token. It returns false when the token is
// unknown or already revoked.
func (s *AuthService) Logout(ctx context.Context, token string) (bool, error) {
	revoked, err := s.stores.Sessions.Revoke(ctx, token)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageFailure(err)
	}
	return revoked, nil
}

// Signup creates the user and its first session in one transaction.
func (s *AuthService) Signup(ctx context.Context, input CreateUserInput, client ClientInfo) (AuthResult, error) {
	var result AuthResult
	err := s.tx.InTx(ctx, func(st Stores) error {
		user, err := s.createUser(ctx, st.Users, input)
		if err != nil {
			return err
		}
		token, session, err := s.issueSession(ctx, st.Sessions, user.ID, client)
		if err != nil {
			return err
		}
		result = AuthResult{Token: token, Session: session, User: user}
		return nil
	})
	if err != nil {
		if !isServiceError(err) {
			err = storageFailure(err)
		}
		return AuthResult{}, err
	}

	s.log.Info().Int64("user_id", result.User.ID).Str("artist_name", result.User.DisplayName).Msg("artist claimed")
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, displayName, password string, client ClientInfo) (AuthResult, error) {
	user, ok, err := s.Authenticate(ctx, displayName, password)
	if err != nil {
		return AuthResult{}, err
	}
	if !ok {
		return AuthResult{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return AuthResult{}, ErrForbidden
	}

	token, session, err := s.IssueSession(ctx, user.ID, client)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, Session: session, User: user}, nil
}

func (s *AuthService) Sessions(ctx context.Context, userID int64) ([]models.Session, error) {
	sessions, err := s.stores.Sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageFailure(err)
	}
	return sessions, nil
}

// DeleteAccount removes the user with all sessions and artworks, then the
// stored files. Blob removal failures are logged, not returned.
func (s *AuthService) DeleteAccount(ctx context.Context, userID int64) error {
	var removed []models.Artwork
	err := s.tx.InTx(ctx, func(st Stores) error {
		var err error
		if removed, err = st.Artworks.DeleteByArtist(ctx, userID); err != nil {
			return err
		}
		if _, err := st.Sessions.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		return st.Users.Delete(ctx, userID)
	})
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return storageFailure(err)
	}

	removeBlobs(ctx, s.blobs, s.log, removed...)
	s.log.Info().Int64("user_id", userID).Int("artworks", len(removed)).Msg("account deleted")
	return nil
}

// SetActive toggles the account flag by artist name.
func (s *AuthService) SetActive(ctx context.Context, displayName string, active bool) (models.User, error) {
	user, err := s.stores.Users.FindByDisplayName(ctx, displayName)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, storageFailure(err)
	}
	if err := s.stores.Users.SetActive(ctx, user.ID, active); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, storageFailure(err)
	}
	user.IsActive = active
	return user, nil
}

// Now is the service clock, used to report session state.
func (s *AuthService) Now() time.Time {
	return s.now()
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(*email))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isServiceError(err error) bool {
	for _, target := range []error{
		ErrDuplicateIdentity, ErrDuplicateEmail, ErrInvalidInput, ErrStorageFailure,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func removeBlobs(ctx context.Context, blobs storage.Store, log zerolog.Logger, artworks ...models.Artwork) {
	for _, artwork := range artworks {
		keys := []string{artwork.FilePath}
		if artwork.ThumbnailPath != nil {
			keys = append(keys, *artwork.ThumbnailPath)
		}
		for _, key := range keys {
			if err := blobs.Delete(ctx, key); err != nil {
				log.Warn().Err(err).Str("key", key).Int64("artwork_id", artwork.ID).Msg("remove blob")
			}
		}
	}
}
