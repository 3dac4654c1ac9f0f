package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"canvasquest/internal/models"
	"canvasquest/internal/repository"
	"canvasquest/internal/security"
	"canvasquest/internal/service"
	"canvasquest/internal/service/servicetest"
)

func strPtr(s string) *string { return &s }

func TestScenarioNova(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	user, err := env.Auth.CreateUser(ctx, service.CreateUserInput{
		DisplayName: "nova",
		Password:    strPtr("p@ss1234"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	require.NotNil(t, user.PasswordHash)
	assert.NotContains(t, *user.PasswordHash, "p@ss1234")

	authed, ok, err := env.Auth.Authenticate(ctx, "nova", "p@ss1234")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, user.ID, authed.ID)

	token, session, err := env.Auth.IssueSession(ctx, 1, service.ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, token, session.Token)
	assert.Equal(t, env.Clock.Now().Add(7*24*time.Hour), session.ExpiresAt)

	resolved, ok, err := env.Auth.Resolve(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), resolved.ID)

	revoked, err := env.Auth.Logout(ctx, token)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, ok, err = env.Auth.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthorizeOwner(t *testing.T) {
	assert.True(t, service.AuthorizeOwner(models.User{ID: 5}, 5))
	assert.False(t, service.AuthorizeOwner(models.User{ID: 5}, 6))
}

func TestCreateUserDuplicates(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	_, err := env.Auth.CreateUser(ctx, service.CreateUserInput{DisplayName: "nova", Email: strPtr("Nova@Example.com")})
	require.NoError(t, err)

	_, err = env.Auth.CreateUser(ctx, service.CreateUserInput{DisplayName: "nova"})
	assert.ErrorIs(t, err, service.ErrDuplicateIdentity)

	_, err = env.Auth.CreateUser(ctx, service.CreateUserInput{DisplayName: "vega", Email: strPtr(" nova@example.com ")})
	assert.ErrorIs(t, err, service.ErrDuplicateEmail)

	users, _, _ := env.Memory.Counts()
	assert.Equal(t, 1, users, "a rejected signup writes nothing")
}

func TestCreateUserValidation(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	for _, name := range []string{"", "ab", "   x  "} {
		_, err := env.Auth.CreateUser(ctx, service.CreateUserInput{DisplayName: name})
		assert.ErrorIs(t, err, service.ErrInvalidInput, name)
	}

	user, err := env.Auth.CreateUser(ctx, service.CreateUserInput{DisplayName: "  orion  ", Email: strPtr("  ")})
	require.NoError(t, err)
	assert.Equal(t, "orion", user.DisplayName)
	assert.Nil(t, user.Email)
	assert.Nil(t, user.PasswordHash)
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	_, err := env.Auth.CreateUser(ctx, service.CreateUserInput{DisplayName: "nova", Password: strPtr("p@ss1234")})
	require.NoError(t, err)
	_, err = env.Auth.CreateUser(ctx, service.CreateUserInput{DisplayName: "quasar"})
	require.NoError(t, err)

	cases := map[string][2]string{
		"unknown user":   {"nobody", "p@ss1234"},
		"wrong password": {"nova", "nope"},
		"no password":    {"quasar", ""},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok, err := env.Auth.Authenticate(ctx, c[0], c[1])
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = env.Auth.Login(ctx, c[0], c[1], service.ClientInfo{})
			assert.ErrorIs(t, err, service.ErrInvalidCredentials)
		})
	}
}

func TestAuthenticateStorageFailure(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)
	boom := errors.New("connection refused")
	env.Memory.Fail(boom)

	_, ok, err := env.Auth.Authenticate(ctx, "nova", "x")
	assert.False(t, ok)
	assert.ErrorIs(t, err, service.ErrStorageFailure)
	assert.ErrorIs(t, err, boom)
}

func TestAuthenticateUpgradesBcrypt(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	user, err := env.Auth.CreateUser(ctx, service.CreateUserInput{DisplayName: "legacy"})
	require.NoError(t, err)
	raw, err := bcrypt.GenerateFromPassword([]byte("old-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, env.Memory.Stores().Users.SetPasswordHash(ctx, user.ID, string(raw)))

	authed, ok, err := env.Auth.Authenticate(ctx, "legacy", "old-secret")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, authed.PasswordHash)
	assert.False(t, security.NeedsRehash(*authed.PasswordHash))

	_, ok, err = env.Auth.Authenticate(ctx, "legacy", "old-secret")
	require.NoError(t, err)
	assert.True(t, ok, "upgraded hash still verifies")
}

func TestAuthenticateCorruptHash(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	user, err := env.Auth.CreateUser(ctx, service.CreateUserInput{DisplayName: "broken"})
	require.NoError(t, err)

	for _, stored := range []string{
		"$argon2id$v=19$t=1,m=64,p=1$c2FsdHNhbHQ$",
		"$argon2id$v=19$t=1,m=64,p=0$c2FsdHNhbHQ$c2FsdHNhbHQ",
		"not-a-hash",
	} {
		require.NoError(t, env.Memory.Stores().Users.SetPasswordHash(ctx, user.ID, stored))

		_, ok, err := env.Auth.Authenticate(ctx, "broken", "anything")
		require.NoError(t, err, stored)
		assert.False(t, ok, stored)

		_, err = env.Auth.Login(ctx, "broken", "anything", service.ClientInfo{})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials, stored)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	_, err := env.Auth.CreateUser(ctx, service.CreateUserInput{DisplayName: "nova", Password: strPtr("p@ss1234")})
	require.NoError(t, err)
	_, err = env.Auth.SetActive(ctx, "nova", false)
	require.NoError(t, err)

	_, err = env.Auth.Login(ctx, "nova", "wrong", service.ClientInfo{})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials, "wrong password never reveals the account state")

	_, err = env.Auth.Login(ctx, "nova", "p@ss1234", service.ClientInfo{})
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = env.Auth.SetActive(ctx, "ghost", true)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestLogoutOnlyOnce(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	result, err := env.Auth.Signup(ctx, service.CreateUserInput{DisplayName: "nova"}, service.ClientInfo{})
	require.NoError(t, err)

	ok, err := env.Auth.Logout(ctx, result.Token)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.Auth.Logout(ctx, result.Token)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = env.Auth.Logout(ctx, "never-issued")
	require.NoError(t, err)
	assert.False(t, ok)

	session, found := env.Memory.Session(result.Token)
	require.True(t, found, "revocation keeps the ledger row")
	assert.Equal(t, models.SessionStateRevoked, session.StateAt(env.Clock.Now()))
}

func TestResolveAfterExpiry(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	result, err := env.Auth.Signup(ctx, service.CreateUserInput{DisplayName: "nova"}, service.ClientInfo{})
	require.NoError(t, err)

	env.Clock.Advance(servicetest.SessionTTL - time.Second)
	_, ok, err := env.Auth.Resolve(ctx, result.Token)
	require.NoError(t, err)
	assert.True(t, ok)

	env.Clock.Advance(time.Second)
	_, ok, err = env.Auth.Resolve(ctx, result.Token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveRequiresLedgerEntry(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	user, err := env.Auth.CreateUser(ctx, service.CreateUserInput{DisplayName: "nova"})
	require.NoError(t, err)

	// Validly signed but never recorded.
	token, _, err := env.Codec.Mint(user.ID)
	require.NoError(t, err)
	_, ok, err := env.Auth.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveRejectsGarbageAndForeignTokens(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	_, err := env.Auth.Signup(ctx, service.CreateUserInput{DisplayName: "nova"}, service.ClientInfo{})
	require.NoError(t, err)

	foreign := security.NewTokenCodec("another-secret", servicetest.Issuer, time.Hour, security.WithClock(env.Clock.Now))
	forged, _, err := foreign.Mint(1)
	require.NoError(t, err)

	for _, token := range []string{"", "garbage", forged} {
		_, ok, err := env.Auth.Resolve(ctx, token)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestResolveRejectsSubjectMismatch(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	first, err := env.Auth.Signup(ctx, service.CreateUserInput{DisplayName: "nova"}, service.ClientInfo{})
	require.NoError(t, err)
	second, err := env.Auth.CreateUser(ctx, service.CreateUserInput{DisplayName: "vega"})
	require.NoError(t, err)

	// A token for vega recorded against nova's account.
	token, expiresAt, err := env.Codec.Mint(second.ID)
	require.NoError(t, err)
	_, err = env.Memory.Stores().Sessions.Record(ctx, models.Session{Token: token, UserID: first.User.ID, ExpiresAt: expiresAt})
	require.NoError(t, err)

	_, ok, err := env.Auth.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignupRollsBackOnSessionFailure(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	// The user insert succeeds, the session insert fails.
	failing := &failingLedgerTx{Memory: env.Memory, err: errors.New("disk full")}
	auth := service.NewAuthService(env.Memory.Stores(), failing, env.Codec, env.Blobs, zerolog.Nop(),
		service.WithClock(env.Clock.Now), service.WithPasswordHasher(servicetest.FastHash))

	_, err := auth.Signup(ctx, service.CreateUserInput{DisplayName: "nova"}, service.ClientInfo{})
	assert.ErrorIs(t, err, service.ErrStorageFailure)

	users, sessions, _ := env.Memory.Counts()
	assert.Zero(t, users)
	assert.Zero(t, sessions)
}

func TestSignupDuplicateLeavesNoSession(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	_, err := env.Auth.Signup(ctx, service.CreateUserInput{DisplayName: "nova"}, service.ClientInfo{})
	require.NoError(t, err)

	_, err = env.Auth.Signup(ctx, service.CreateUserInput{DisplayName: "nova"}, service.ClientInfo{})
	assert.ErrorIs(t, err, service.ErrDuplicateIdentity)

	users, sessions, _ := env.Memory.Counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, sessions)
}

func TestCreateUserLosesUniqueRace(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		input service.CreateUserInput
		want  error
	}{
		{"artist name", service.CreateUserInput{DisplayName: "nova"}, service.ErrDuplicateIdentity},
		{"email", service.CreateUserInput{DisplayName: "vega", Email: strPtr("Nova@Example.com")}, service.ErrDuplicateEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := servicetest.NewEnv(t)
			_, err := env.Auth.CreateUser(ctx, service.CreateUserInput{DisplayName: "nova", Email: strPtr("nova@example.com")})
			require.NoError(t, err)

			stores := env.Memory.Stores()
			stores.Users = blindUsers{stores.Users}
			tx := &blindUsersTx{Memory: env.Memory}
			auth := service.NewAuthService(stores, tx, env.Codec, env.Blobs, zerolog.Nop(),
				service.WithClock(env.Clock.Now), service.WithPasswordHasher(servicetest.FastHash))

			_, err = auth.CreateUser(ctx, tt.input)
			assert.ErrorIs(t, err, tt.want)
			assert.NotErrorIs(t, err, service.ErrStorageFailure)

			_, err = auth.Signup(ctx, tt.input, service.ClientInfo{})
			assert.ErrorIs(t, err, tt.want)
			assert.NotErrorIs(t, err, service.ErrStorageFailure)

			users, sessions, _ := env.Memory.Counts()
			assert.Equal(t, 1, users)
			assert.Zero(t, sessions)
		})
	}
}

func TestSessionsListing(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	ip := "203.0.113.9"
	result, err := env.Auth.Signup(ctx, service.CreateUserInput{DisplayName: "nova", Password: strPtr("p@ss1234")},
		service.ClientInfo{IP: &ip, UserAgent: strPtr("firefox")})
	require.NoError(t, err)
	env.Clock.Advance(time.Minute)
	_, err = env.Auth.Login(ctx, "nova", "p@ss1234", service.ClientInfo{})
	require.NoError(t, err)

	sessions, err := env.Auth.Sessions(ctx, result.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Nil(t, sessions[0].IPAddress, "newest first")
	require.NotNil(t, sessions[1].IPAddress)
	assert.Equal(t, ip, *sessions[1].IPAddress)
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	env := servicetest.NewEnv(t)

	result, err := env.Auth.Signup(ctx, service.CreateUserInput{DisplayName: "nova"}, service.ClientInfo{})
	require.NoError(t, err)
	thumb := "thumbnails/thumb_a.jpg"
	env.Memory.PutArtwork(models.Artwork{ArtistID: result.User.ID, FilePath: "artworks/a.png", ThumbnailPath: &thumb, IsPublic: true})
	env.Memory.PutArtwork(models.Artwork{ArtistID: result.User.ID, FilePath: "artworks/b.svg"})

	require.NoError(t, env.Auth.DeleteAccount(ctx, result.User.ID))

	users, sessions, artworks := env.Memory.Counts()
	assert.Zero(t, users)
	assert.Zero(t, sessions)
	assert.Zero(t, artworks)
	assert.ElementsMatch(t, []string{"artworks/a.png", thumb, "artworks/b.svg"}, env.Blobs.Deleted)

	_, ok, err := env.Auth.Resolve(ctx, result.Token)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, env.Auth.DeleteAccount(ctx, result.User.ID), service.ErrNotFound)
}

type failingLedgerTx struct {
	*servicetest.Memory
	err error
}

func (f *failingLedgerTx) InTx(ctx context.Context, fn func(service.Stores) error) error {
	return f.Memory.InTx(ctx, func(st service.Stores) error {
		st.Sessions = failingLedger{SessionLedger: st.Sessions, err: f.err}
		return fn(st)
	})
}

type failingLedger struct {
	service.SessionLedger
	err error
}

func (l failingLedger) Record(context.Context, models.Session) (models.Session, error) {
	return models.Session{}, l.err
}

// blindUsers never sees an existing row in the pre-check, as when a
// concurrent signup commits between the lookup and the insert.
type blindUsers struct {
	service.UserStore
}

func (blindUsers) FindByDisplayName(context.Context, string) (models.User, error) {
	return models.User{}, repository.ErrUserNotFound
}

func (blindUsers) FindByEmail(context.Context, string) (models.User, error) {
	return models.User{}, repository.ErrUserNotFound
}

type blindUsersTx struct {
	*servicetest.Memory
}

func (b *blindUsersTx) InTx(ctx context.Context, fn func(service.Stores) error) error {
	return b.Memory.InTx(ctx, func(st service.Stores) error {
		st.Users = blindUsers{st.Users}
		return fn(st)
	})
}
