// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidora/vidora/internal/auth"
	"github.com/vidora/vidora/internal/platform/apperr"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

/*
TestResetTokenRepository verifies the set/get/delete cycle and TTL expiry.
*/
func TestResetTokenRepository(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := auth.NewResetTokenRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "reset-token-1", "user-1", time.Hour))

	userID, err := repo.Get(ctx, "reset-token-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	// Unknown token maps to NotFound.
	_, err = repo.Get(ctx, "no-such-token")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.As(err).Code)

	// Expired token behaves like an unknown one.
	mr.FastForward(2 * time.Hour)
	_, err = repo.Get(ctx, "reset-token-1")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.As(err).Code)
}

/*
TestResetTokenRepository_Delete verifies single-use consumption.
*/
func TestResetTokenRepository_Delete(t *testing.T) {
	_, client := newTestRedis(t)
	repo := auth.NewResetTokenRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "reset-token-1", "user-1", time.Hour))
	require.NoError(t, repo.Delete(ctx, "reset-token-1"))

	_, err := repo.Get(ctx, "reset-token-1")
	require.Error(t, err)

	// Deleting a missing token is not an error.
	assert.NoError(t, repo.Delete(ctx, "reset-token-1"))
}

/*
TestVerificationTokenRepository verifies the verification token store and
that the two repositories do not share a keyspace.
*/
func TestVerificationTokenRepository(t *testing.T) {
	mr, client := newTestRedis(t)
	verifyRepo := auth.NewVerificationTokenRepository(client)
	resetRepo := auth.NewResetTokenRepository(client)
	ctx := context.Background()

	require.NoError(t, verifyRepo.Set(ctx, "token-1", "user-1", 24*time.Hour))

	userID, err := verifyRepo.Get(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	// Same token string in the reset keyspace is a different key.
	_, err = resetRepo.Get(ctx, "token-1")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.As(err).Code)

	// Verification tokens outlive reset tokens but still expire.
	mr.FastForward(25 * time.Hour)
	_, err = verifyRepo.Get(ctx, "token-1")
	require.Error(t, err)
}
