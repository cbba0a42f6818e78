// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidora/vidora/internal/auth"
	"github.com/vidora/vidora/internal/platform/apperr"
	"github.com/vidora/vidora/internal/platform/sec"
)

// # In-Memory Fakes

// fakeUserRepository is a mutex-guarded in-memory UserRepository. The mutex
// makes RotateRefreshTokenID a true compare-and-set, which the concurrency
// tests below rely on.
type fakeUserRepository struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[string]*auth.User)}
}

func (f *fakeUserRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepository) FindByLogin(_ context.Context, login string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == login || user.Email == login {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUserRepository) ExistsByIdentity(_ context.Context, username, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username || user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepository) Create(_ context.Context, user *auth.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepository) UpdatePassword(_ context.Context, userID, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[userID]; ok {
		user.PasswordHash = newHash
	}
	return nil
}

func (f *fakeUserRepository) MarkVerified(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[userID]; ok {
		user.IsVerified = true
	}
	return nil
}

func (f *fakeUserRepository) SetRefreshTokenID(_ context.Context, userID, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.CurrentRefreshTokenID = tokenID
	return nil
}

func (f *fakeUserRepository) RotateRefreshTokenID(_ context.Context, userID, currentTokenID, nextTokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok || user.CurrentRefreshTokenID != currentTokenID {
		return apperr.TokenStale("Refresh token is expired or already used")
	}
	user.CurrentRefreshTokenID = nextTokenID
	return nil
}

func (f *fakeUserRepository) ClearRefreshTokenID(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[userID]; ok {
		user.CurrentRefreshTokenID = ""
	}
	return nil
}

// slot returns the current session slot value, for assertions.
func (f *fakeUserRepository) slot(userID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[userID]; ok {
		return user.CurrentRefreshTokenID
	}
	return ""
}

// fakeTokenStore is an in-memory token->userID map serving both the reset and
// verification repository contracts. TTLs are recorded but not enforced.
type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]string)}
}

func (f *fakeTokenStore) Set(_ context.Context, token, userID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = userID
	return nil
}

func (f *fakeTokenStore) Get(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.tokens[token]
	if !ok {
		return "", apperr.NotFound("Token")
	}
	return userID, nil
}

func (f *fakeTokenStore) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

// one returns the only stored token, for tests that need to consume it.
func (f *fakeTokenStore) one(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.tokens, 1)
	for token := range f.tokens {
		return token
	}
	return ""
}

// # Test Harness

type serviceFixture struct {
	service      *auth.Service
	users        *fakeUserRepository
	resetTokens  *fakeTokenStore
	verifyTokens *fakeTokenStore
	codec        *sec.TokenCodec
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	codec, err := sec.NewTokenCodec(sec.TokenConfig{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    720 * time.Hour,
		Issuer:        "vidora.app",
	})
	require.NoError(t, err)

	users := newFakeUserRepository()
	resetTokens := newFakeTokenStore()
	verifyTokens := newFakeTokenStore()

	return &serviceFixture{
		service:      auth.NewService(users, resetTokens, verifyTokens, codec),
		users:        users,
		resetTokens:  resetTokens,
		verifyTokens: verifyTokens,
		codec:        codec,
	}
}

// register creates a standard test account.
func (fx *serviceFixture) register(t *testing.T) *auth.User {
	t.Helper()
	user, err := fx.service.Register(context.Background(), auth.RegisterInput{
		Username:    "Mia",
		Email:       "Mia@Vidora.app",
		Password:    "hunter2-hunter2",
		DisplayName: "Mia",
	})
	require.NoError(t, err)
	return user
}

// # Registration

/*
TestService_Register verifies account creation with identifier normalization.
*/
func TestService_Register(t *testing.T) {
	fx := newServiceFixture(t)

	user := fx.register(t)

	// Identifiers are stored canonicalized.
	assert.Equal(t, "mia", user.Username)
	assert.Equal(t, "mia@vidora.app", user.Email)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.IsVerified)

	// Password is stored hashed, never verbatim.
	assert.NotEqual(t, "hunter2-hunter2", user.PasswordHash)
	assert.True(t, sec.CheckPasswordHash("hunter2-hunter2", user.PasswordHash))

	// A verification token was issued for the new account.
	token := fx.verifyTokens.one(t)
	assert.NotEmpty(t, token)
}

/*
TestService_Register_Duplicate verifies conflicts are case-insensitive across
both identifiers.
*/
func TestService_Register_Duplicate(t *testing.T) {
	fx := newServiceFixture(t)
	fx.register(t)

	tests := []struct {
		name     string
		username string
		email    string
	}{
		{"same_username_different_case", "MIA", "other@vidora.app"},
		{"same_email_different_case", "other", "MIA@vidora.app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.service.Register(context.Background(), auth.RegisterInput{
				Username: tt.username,
				Email:    tt.email,
				Password: "hunter2-hunter2",
			})
			require.Error(t, err)
			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, apperr.CodeConflict, ae.Code)
		})
	}
}

// # Login

/*
TestService_Login verifies credential checking and session issuance for both
identifier kinds.
*/
func TestService_Login(t *testing.T) {
	fx := newServiceFixture(t)
	user := fx.register(t)

	tests := []struct {
		name  string
		login string
	}{
		{"by_username", "mia"},
		{"by_username_uppercase", "MIA"},
		{"by_email", "mia@vidora.app"},
		{"by_email_mixed_case", "Mia@Vidora.APP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := fx.service.Login(context.Background(), auth.LoginInput{
				Login:    tt.login,
				Password: "hunter2-hunter2",
			})
			require.NoError(t, err)
			require.NotNil(t, session)

			// Both tokens verify and agree on the subject.
			accessClaims, err := fx.codec.VerifyAccessToken(session.TokenPair.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, user.ID, accessClaims.UserID)

			refreshClaims, err := fx.codec.VerifyRefreshToken(session.TokenPair.RefreshToken)
			require.NoError(t, err)
			assert.Equal(t, user.ID, refreshClaims.Subject)

			// The store slot holds exactly the issued token id.
			assert.Equal(t, refreshClaims.TokenID, fx.users.slot(user.ID))
		})
	}
}

/*
TestService_Login_Invalid verifies the unified 401 for unknown identifiers
and wrong passwords.
*/
func TestService_Login_Invalid(t *testing.T) {
	fx := newServiceFixture(t)
	fx.register(t)

	tests := []struct {
		name     string
		login    string
		password string
	}{
		{"unknown_user", "nobody", "hunter2-hunter2"},
		{"wrong_password", "mia", "wrong-password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.service.Login(context.Background(), auth.LoginInput{
				Login:    tt.login,
				Password: tt.password,
			})
			require.Error(t, err)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, apperr.CodeUnauthorized, ae.Code)

			// Externally indistinguishable: same message either way.
			assert.Equal(t, "Invalid login credentials", ae.Message)
		})
	}
}

/*
TestService_Login_SecondLoginStealsSession verifies that a new login
invalidates the previous session's refresh token.
*/
func TestService_Login_SecondLoginStealsSession(t *testing.T) {
	fx := newServiceFixture(t)
	fx.register(t)
	ctx := context.Background()

	first, err := fx.service.Login(ctx, auth.LoginInput{Login: "mia", Password: "hunter2-hunter2"})
	require.NoError(t, err)
	second, err := fx.service.Login(ctx, auth.LoginInput{Login: "mia", Password: "hunter2-hunter2"})
	require.NoError(t, err)

	// The first session's refresh token lost the slot.
	_, err = fx.service.Refresh(ctx, first.TokenPair.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeTokenStale, apperr.As(err).Code)

	// The second session still works.
	_, err = fx.service.Refresh(ctx, second.TokenPair.RefreshToken)
	assert.NoError(t, err)
}

// # Refresh Rotation

/*
TestService_Refresh verifies a successful rotation retires the presented
token and installs the new one.
*/
func TestService_Refresh(t *testing.T) {
	fx := newServiceFixture(t)
	user := fx.register(t)
	ctx := context.Background()

	session, err := fx.service.Login(ctx, auth.LoginInput{Login: "mia", Password: "hunter2-hunter2"})
	require.NoError(t, err)

	rotated, err := fx.service.Refresh(ctx, session.TokenPair.RefreshToken)
	require.NoError(t, err)

	oldClaims, err := fx.codec.VerifyRefreshToken(session.TokenPair.RefreshToken)
	require.NoError(t, err)
	newClaims, err := fx.codec.VerifyRefreshToken(rotated.TokenPair.RefreshToken)
	require.NoError(t, err)

	assert.NotEqual(t, oldClaims.TokenID, newClaims.TokenID)
	assert.Equal(t, newClaims.TokenID, fx.users.slot(user.ID))

	// Replaying the consumed token fails with TOKEN_STALE and does not
	// disturb the live session.
	_, err = fx.service.Refresh(ctx, session.TokenPair.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeTokenStale, apperr.As(err).Code)
	assert.Equal(t, newClaims.TokenID, fx.users.slot(user.ID))
}

/*
TestService_Refresh_InvalidToken verifies malformed and foreign tokens are
rejected before any store access.
*/
func TestService_Refresh_InvalidToken(t *testing.T) {
	fx := newServiceFixture(t)
	fx.register(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.service.Refresh(ctx, tt.token)
			require.Error(t, err)
			assert.Equal(t, apperr.CodeTokenInvalid, apperr.As(err).Code)
		})
	}

	// An access token presented to the refresh endpoint is a class violation.
	session, err := fx.service.Login(ctx, auth.LoginInput{Login: "mia", Password: "hunter2-hunter2"})
	require.NoError(t, err)

	_, err = fx.service.Refresh(ctx, session.TokenPair.AccessToken)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeTokenInvalid, apperr.As(err).Code)
}

/*
TestService_Refresh_ExpiredToken verifies an expired refresh token is rejected
as invalid and leaves the stored session slot untouched.
*/
func TestService_Refresh_ExpiredToken(t *testing.T) {
	fx := newServiceFixture(t)
	user := fx.register(t)
	ctx := context.Background()

	session, err := fx.service.Login(ctx, auth.LoginInput{Login: "mia", Password: "hunter2-hunter2"})
	require.NoError(t, err)
	liveSlot := fx.users.slot(user.ID)
	require.NotEmpty(t, liveSlot)

	// Sign a token with the real refresh secret but a lifetime that has
	// already elapsed when it is presented. Binding it to the live slot id
	// isolates expiry as the only reason for rejection.
	shortLived, err := sec.NewTokenCodec(sec.TokenConfig{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     time.Nanosecond,
		RefreshTTL:    time.Nanosecond,
		Issuer:        "vidora.app",
	})
	require.NoError(t, err)

	expiredToken, _, err := shortLived.IssueRefreshToken(user.ID, liveSlot)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	_, err = fx.service.Refresh(ctx, expiredToken)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeTokenInvalid, apperr.As(err).Code)

	// Rejection happened before any store write. The live session survives
	// and its refresh token still rotates.
	assert.Equal(t, liveSlot, fx.users.slot(user.ID))
	_, err = fx.service.Refresh(ctx, session.TokenPair.RefreshToken)
	assert.NoError(t, err)
}

/*
TestService_Refresh_Concurrent runs two rotations of the same token in
parallel and verifies exactly one wins and the store ends holding the
winner's token id.
*/
func TestService_Refresh_Concurrent(t *testing.T) {
	fx := newServiceFixture(t)
	user := fx.register(t)
	ctx := context.Background()

	session, err := fx.service.Login(ctx, auth.LoginInput{Login: "mia", Password: "hunter2-hunter2"})
	require.NoError(t, err)

	type outcome struct {
		session *auth.LoginSession
		err     error
	}
	results := make(chan outcome, 2)

	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < 2; i++ {
		go func() {
			start.Wait()
			s, err := fx.service.Refresh(ctx, session.TokenPair.RefreshToken)
			results <- outcome{session: s, err: err}
		}()
	}
	start.Done()

	var winners []*auth.LoginSession
	var losses int
	for i := 0; i < 2; i++ {
		result := <-results
		if result.err == nil {
			winners = append(winners, result.session)
		} else {
			assert.Equal(t, apperr.CodeTokenStale, apperr.As(result.err).Code)
			losses++
		}
	}

	require.Len(t, winners, 1, "exactly one rotation must win")
	assert.Equal(t, 1, losses)

	winnerClaims, err := fx.codec.VerifyRefreshToken(winners[0].TokenPair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, winnerClaims.TokenID, fx.users.slot(user.ID))
}

// # Logout

/*
TestService_Logout verifies revocation and idempotency.
*/
func TestService_Logout(t *testing.T) {
	fx := newServiceFixture(t)
	user := fx.register(t)
	ctx := context.Background()

	session, err := fx.service.Login(ctx, auth.LoginInput{Login: "mia", Password: "hunter2-hunter2"})
	require.NoError(t, err)
	require.NotEmpty(t, fx.users.slot(user.ID))

	require.NoError(t, fx.service.Logout(ctx, user.ID))
	assert.Empty(t, fx.users.slot(user.ID))

	// The revoked refresh token is unusable.
	_, err = fx.service.Refresh(ctx, session.TokenPair.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeTokenStale, apperr.As(err).Code)

	// Logging out again is a successful no-op.
	assert.NoError(t, fx.service.Logout(ctx, user.ID))
}

// # Password Lifecycle

/*
TestService_ChangePassword verifies the current-password gate and that the
new password takes effect.
*/
func TestService_ChangePassword(t *testing.T) {
	fx := newServiceFixture(t)
	user := fx.register(t)
	ctx := context.Background()

	err := fx.service.ChangePassword(ctx, user.ID, "wrong-password", "new-password-123")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.As(err).Code)

	require.NoError(t, fx.service.ChangePassword(ctx, user.ID, "hunter2-hunter2", "new-password-123"))

	_, err = fx.service.Login(ctx, auth.LoginInput{Login: "mia", Password: "hunter2-hunter2"})
	require.Error(t, err)

	_, err = fx.service.Login(ctx, auth.LoginInput{Login: "mia", Password: "new-password-123"})
	assert.NoError(t, err)
}

/*
TestService_PasswordReset verifies the full recovery flow, including session
revocation and single-use token consumption.
*/
func TestService_PasswordReset(t *testing.T) {
	fx := newServiceFixture(t)
	user := fx.register(t)
	ctx := context.Background()

	// Establish a session that the reset must kill.
	_, err := fx.service.Login(ctx, auth.LoginInput{Login: "mia", Password: "hunter2-hunter2"})
	require.NoError(t, err)
	require.NotEmpty(t, fx.users.slot(user.ID))

	// Unknown email does not error and does not issue a token.
	require.NoError(t, fx.service.RequestPasswordReset(ctx, "nobody@vidora.app"))
	assert.Empty(t, fx.resetTokens.tokens)

	require.NoError(t, fx.service.RequestPasswordReset(ctx, "MIA@vidora.app"))
	token := fx.resetTokens.one(t)

	require.NoError(t, fx.service.ResetPassword(ctx, token, "brand-new-password"))

	// New password works, old one does not, session is gone.
	_, err = fx.service.Login(ctx, auth.LoginInput{Login: "mia", Password: "brand-new-password"})
	assert.NoError(t, err)

	// Consuming the token again fails.
	err = fx.service.ResetPassword(ctx, token, "another-password")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeTokenInvalid, apperr.As(err).Code)
}

/*
TestService_VerifyEmail verifies token consumption marks the account verified.
*/
func TestService_VerifyEmail(t *testing.T) {
	fx := newServiceFixture(t)
	user := fx.register(t)
	ctx := context.Background()

	token := fx.verifyTokens.one(t)
	require.NoError(t, fx.service.VerifyEmail(ctx, token))

	refreshed, err := fx.service.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.IsVerified)

	// Token is single-use.
	err = fx.service.VerifyEmail(ctx, token)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeTokenInvalid, apperr.As(err).Code)
}
