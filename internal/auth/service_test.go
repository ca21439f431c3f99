package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube-accounts/internal/account"
	"videotube-accounts/internal/apperr"
)

var testConfig = Config{
	AccessSecret:  "access-secret",
	RefreshSecret: "refresh-secret",
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    24 * time.Hour,
}

type fixture struct {
	service *Service
	store   *account.MemoryStore
	alice   account.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWithStore(t, account.NewMemoryStore())
}

func newFixtureWithStore(t *testing.T, store *account.MemoryStore) fixture {
	t.Helper()
	hasher := NewBcryptHasher(4)

	hash, err := hasher.Hash("correct")
	require.NoError(t, err)
	alice, err := store.Create(context.Background(), account.NewUser{
		Username:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice Liddell",
		PasswordHash: hash,
		Avatar:       "https://res.cloudinary.com/demo/alice.png",
	})
	require.NoError(t, err)

	service, err := NewService(store, hasher, testConfig, nil)
	require.NoError(t, err)

	return fixture{service: service, store: store, alice: alice}
}

func (f fixture) storedRefresh(t *testing.T) *string {
	t.Helper()
	user, err := f.store.FindByID(context.Background(), f.alice.ID)
	require.NoError(t, err)
	return user.RefreshToken
}

func assertKind(t *testing.T, err error, kind apperr.Kind, message string) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %T", err)
	assert.Equal(t, kind, appErr.Kind)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

// rejectingStore fails refresh token writes.
type rejectingStore struct {
	*account.MemoryStore
}

func (rejectingStore) SetRefreshToken(context.Context, string, string, time.Time) error {
	return errors.New("connection reset")
}

func TestNewService_ValidatesConfig(t *testing.T) {
	store := account.NewMemoryStore()
	hasher := NewBcryptHasher(4)

	cases := map[string]func(c *Config){
		"missing access secret":  func(c *Config) { c.AccessSecret = "" },
		"missing refresh secret": func(c *Config) { c.RefreshSecret = "" },
		"shared secret":          func(c *Config) { c.RefreshSecret = c.AccessSecret },
		"zero access ttl":        func(c *Config) { c.AccessTTL = 0 },
		"negative refresh ttl":   func(c *Config) { c.RefreshTTL = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig
			mutate(&cfg)
			_, err := NewService(store, hasher, cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestLogin_PersistsReturnedRefreshToken(t *testing.T) {
	f := newFixture(t)

	inputs := []LoginInput{
		{Identifier: "alice", Password: "correct"},
		{Identifier: "  ALICE@example.com ", Password: "correct"},
		{Username: "alice", Password: "correct"},
		{Email: "alice@example.com", Password: "correct"},
	}
	for _, input := range inputs {
		session, err := f.service.Login(context.Background(), input)
		require.NoError(t, err)

		assert.NotEmpty(t, session.AccessToken)
		assert.NotEmpty(t, session.RefreshToken)
		assert.Equal(t, "alice", session.User.Username)

		stored := f.storedRefresh(t)
		require.NotNil(t, stored)
		assert.Equal(t, session.RefreshToken, *stored)
	}
}

func TestLogin_WrongPasswordPersistsNothing(t *testing.T) {
	f := newFixture(t)

	session, err := f.service.Login(context.Background(), LoginInput{Identifier: "alice", Password: "wrong"})
	assertKind(t, err, apperr.KindUnauthorized, "invalid credentials")
	assert.Empty(t, session.AccessToken)
	assert.Nil(t, f.storedRefresh(t))
}

func TestLogin_UnknownUserLooksLikeWrongPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Login(context.Background(), LoginInput{Identifier: "mallory", Password: "correct"})
	assertKind(t, err, apperr.KindUnauthorized, "invalid credentials")
}

func TestLogin_MissingFields(t *testing.T) {
	f := newFixture(t)

	for _, input := range []LoginInput{
		{Password: "correct"},
		{Identifier: "alice"},
		{Identifier: "   ", Password: "correct"},
	} {
		_, err := f.service.Login(context.Background(), input)
		assertKind(t, err, apperr.KindBadRequest, "")
	}
}

func TestLogin_PersistenceFailureReturnsNoTokens(t *testing.T) {
	memory := account.NewMemoryStore()
	f := newFixtureWithStore(t, memory)
	service, err := NewService(rejectingStore{memory}, NewBcryptHasher(4), testConfig, nil)
	require.NoError(t, err)

	session, err := service.Login(context.Background(), LoginInput{Identifier: "alice", Password: "correct"})
	assertKind(t, err, apperr.KindInternal, "")
	assert.Equal(t, Session{}, session)
	assert.Nil(t, f.storedRefresh(t))
}

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.service.Login(ctx, LoginInput{Identifier: "alice", Password: "correct"})
	require.NoError(t, err)

	tokens, err := f.service.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, tokens.RefreshToken)
	assert.NotEqual(t, session.AccessToken, tokens.AccessToken)

	stored := f.storedRefresh(t)
	require.NotNil(t, stored)
	assert.Equal(t, tokens.RefreshToken, *stored)

	_, err = f.service.Refresh(ctx, session.RefreshToken)
	assertKind(t, err, apperr.KindUnauthorized, "refresh token is invalid or expired")

	_, err = f.service.Refresh(ctx, tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.service.Login(ctx, LoginInput{Identifier: "alice", Password: "correct"})
	require.NoError(t, err)

	_, err = f.service.Refresh(ctx, "  ")
	assertKind(t, err, apperr.KindUnauthorized, "refresh token is missing")

	_, err = f.service.Refresh(ctx, "garbage")
	assertKind(t, err, apperr.KindUnauthorized, "invalid refresh token")

	_, err = f.service.Refresh(ctx, session.AccessToken)
	assertKind(t, err, apperr.KindUnauthorized, "invalid refresh token")

	require.NoError(t, f.service.Logout(ctx, f.alice.ID))
	_, err = f.service.Refresh(ctx, session.RefreshToken)
	assertKind(t, err, apperr.KindUnauthorized, "refresh token is invalid or expired")
}

func TestRefresh_ConcurrentUseHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.service.Login(ctx, LoginInput{Identifier: "alice", Password: "correct"})
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.Refresh(ctx, session.RefreshToken); err == nil {
				wins.Add(1)
			} else {
				assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Login(ctx, LoginInput{Identifier: "alice", Password: "correct"})
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, f.alice.ID))
	require.NoError(t, f.service.Logout(ctx, f.alice.ID))
	assert.Nil(t, f.storedRefresh(t))
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.service.ChangePassword(ctx, f.alice.ID, "", "new")
	assertKind(t, err, apperr.KindBadRequest, "")

	err = f.service.ChangePassword(ctx, f.alice.ID, "wrong", "new-password")
	assertKind(t, err, apperr.KindUnauthorized, "old password is incorrect")

	require.NoError(t, f.service.ChangePassword(ctx, f.alice.ID, "correct", "new-password"))

	_, err = f.service.Login(ctx, LoginInput{Identifier: "alice", Password: "correct"})
	assertKind(t, err, apperr.KindUnauthorized, "invalid credentials")
	_, err = f.service.Login(ctx, LoginInput{Identifier: "alice", Password: "new-password"})
	assert.NoError(t, err)

	err = f.service.ChangePassword(ctx, "missing-user", "correct", "new")
	assertKind(t, err, apperr.KindNotFound, "")
}

func TestChangePassword_RejectsOverlongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.service.ChangePassword(ctx, f.alice.ID, "correct", strings.Repeat("a", MaxPasswordBytes+1))
	assertKind(t, err, apperr.KindBadRequest, "password must be at most 72 bytes")

	require.NoError(t, f.service.ChangePassword(ctx, f.alice.ID, "correct", strings.Repeat("a", MaxPasswordBytes)))
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.service.Login(ctx, LoginInput{Identifier: "alice", Password: "correct"})
	require.NoError(t, err)

	profile, err := f.service.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, profile.ID)
	assert.Equal(t, "alice@example.com", profile.Email)

	_, err = f.service.Authenticate(ctx, session.RefreshToken)
	assertKind(t, err, apperr.KindUnauthorized, "")

	elsewhere, err := NewService(account.NewMemoryStore(), NewBcryptHasher(4), testConfig, nil)
	require.NoError(t, err)
	_, err = elsewhere.Authenticate(ctx, session.AccessToken)
	assertKind(t, err, apperr.KindUnauthorized, "user not found")

	f.service.access.now = fixedClock(time.Now().Add(testConfig.AccessTTL + time.Minute))
	_, err = f.service.Authenticate(ctx, session.AccessToken)
	assertKind(t, err, apperr.KindUnauthorized, "")
}
