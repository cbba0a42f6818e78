// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidora/vidora/internal/platform/apperr"
	"github.com/vidora/vidora/internal/platform/constants"
)

// # Password Reset Tokens

// RedisResetTokenRepository stores password reset tokens in Redis with a TTL.
//
// Redis is the natural fit here: the tokens are single-use, short-lived, and
// carry no state worth keeping after expiry, so key-level TTL does the
// cleanup for us.
type RedisResetTokenRepository struct {
	client *redis.Client
}

// NewResetTokenRepository creates a Redis-backed reset token repository.
func NewResetTokenRepository(client *redis.Client) *RedisResetTokenRepository {
	return &RedisResetTokenRepository{client: client}
}

// Set stores token -> userID with the given TTL.
func (repository *RedisResetTokenRepository) Set(ctx context.Context, token string, userID string, ttl time.Duration) error {
	key := constants.RedisPrefixResetToken + token
	if err := repository.client.Set(ctx, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_set_failed: %w", err)
	}
	return nil
}

// Get returns the userID the token was issued for, or [apperr.ErrNotFound]
// when the token is unknown or already expired.
func (repository *RedisResetTokenRepository) Get(ctx context.Context, token string) (string, error) {
	key := constants.RedisPrefixResetToken + token

	userID, err := repository.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Reset token")
		}
		return "", fmt.Errorf("redis_reset_token_get_failed: %w", err)
	}

	return userID, nil
}

// Delete removes the token. Deleting a missing key is not an error.
func (repository *RedisResetTokenRepository) Delete(ctx context.Context, token string) error {
	key := constants.RedisPrefixResetToken + token
	if err := repository.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_delete_failed: %w", err)
	}
	return nil
}

// # Email Verification Tokens

// RedisVerificationTokenRepository stores email verification tokens in Redis.
type RedisVerificationTokenRepository struct {
	client *redis.Client
}

// NewVerificationTokenRepository creates a Redis-backed verification token repository.
func NewVerificationTokenRepository(client *redis.Client) *RedisVerificationTokenRepository {
	return &RedisVerificationTokenRepository{client: client}
}

// Set stores token -> userID with the given TTL.
func (repository *RedisVerificationTokenRepository) Set(ctx context.Context, token string, userID string, ttl time.Duration) error {
	key := constants.RedisPrefixVerifyToken + token
	if err := repository.client.Set(ctx, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_verify_token_set_failed: %w", err)
	}
	return nil
}

// Get returns the userID the token was issued for, or [apperr.ErrNotFound]
// when the token is unknown or already expired.
func (repository *RedisVerificationTokenRepository) Get(ctx context.Context, token string) (string, error) {
	key := constants.RedisPrefixVerifyToken + token

	userID, err := repository.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Verification token")
		}
		return "", fmt.Errorf("redis_verify_token_get_failed: %w", err)
	}

	return userID, nil
}

// Delete removes the token. Deleting a missing key is not an error.
func (repository *RedisVerificationTokenRepository) Delete(ctx context.Context, token string) error {
	key := constants.RedisPrefixVerifyToken + token
	if err := repository.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis_verify_token_delete_failed: %w", err)
	}
	return nil
}
