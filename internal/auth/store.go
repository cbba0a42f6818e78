// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for the credential store.
//
// The store is a durable record per identity holding the password hash and at
// most one currently-valid refresh-token reference. All mutations of that
// reference are single atomic statements; RotateRefreshTokenID is the
// compare-and-set that closes the concurrent-rotation race.
type UserRepository interface {
	// FindByID returns the account with the given ID.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByLogin resolves a single identifier that may be a username or an
	// email, using one query combining both columns with OR. The identifier
	// must already be normalized.
	FindByLogin(ctx context.Context, login string) (*User, error)

	// ExistsByIdentity reports whether any account holds the username OR the
	// email, via a single existence query. Both values must be normalized.
	ExistsByIdentity(ctx context.Context, username, email string) (bool, error)

	// Create persists a brand-new user account.
	Create(ctx context.Context, user *User) error

	// UpdatePassword replaces only the user's password hash.
	UpdatePassword(ctx context.Context, userID, newHash string) error

	// MarkVerified flips the account to verified.
	MarkVerified(ctx context.Context, userID string) error

	// SetRefreshTokenID unconditionally overwrites the session slot with the
	// given token id. This is the single point where a prior session is
	// invalidated on login.
	SetRefreshTokenID(ctx context.Context, userID, tokenID string) error

	// RotateRefreshTokenID atomically replaces the slot with nextTokenID only
	// if it currently equals currentTokenID. When the slot has moved (already
	// rotated, revoked, or logged out) it returns [apperr.TokenStale] and
	// writes nothing.
	RotateRefreshTokenID(ctx context.Context, userID, currentTokenID, nextTokenID string) error

	// ClearRefreshTokenID empties the session slot. Idempotent: clearing an
	// already-empty slot is a successful no-op.
	ClearRefreshTokenID(ctx context.Context, userID string) error
}

// # Volatile Data Access

// ResetTokenRepository defines the contract for storing volatile password reset tokens.
type ResetTokenRepository interface {
	// Set stores a reset token associated with a userID for a limited duration.
	Set(ctx context.Context, token string, userID string, ttl time.Duration) error

	// Get retrieves the userID associated with a given reset token.
	Get(ctx context.Context, token string) (string, error)

	// Delete removes a reset token after successful use.
	Delete(ctx context.Context, token string) error
}

// VerificationTokenRepository defines the contract for storing volatile email
// verification tokens.
type VerificationTokenRepository interface {
	// Set stores a verification token associated with a userID.
	Set(ctx context.Context, token string, userID string, ttl time.Duration) error

	// Get retrieves the userID associated with a given verification token.
	Get(ctx context.Context, token string) (string, error)

	// Delete removes a verification token after successful use.
	Delete(ctx context.Context, token string) error
}
