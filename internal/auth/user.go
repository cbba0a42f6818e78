// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

/*
Package auth implements the credential verification and token-lifecycle core.

It defines the Identity entity and the logic for registration, login,
refresh-token rotation, and logout. Everything else on the platform (video,
playlist, tweet, like, subscription) is an external collaborator that only
needs the verified subject this package attaches to each request.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no
external dependencies and encapsulate all business rules related to identity.
*/
package auth

import "time"

// # Domain Entities

// User represents a registered member of the Vidora platform.
//
// CurrentRefreshTokenID is the single live-session slot: at most one refresh
// token is valid per account at any time, and logging in from a second
// context steals the session from the first. This is a deliberate, stated
// limitation of the single-slot model, not a bug.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string `json:"display_name"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	CoverURL     string `json:"cover_url,omitempty"`
	IsVerified   bool   `json:"is_verified"`

	// CurrentRefreshTokenID is empty when the user has no live session.
	// Never serialized: the slot is server-side state only.
	CurrentRefreshTokenID string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenPair carries one freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// # Field Identifiers

// Field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldDisplayName     = "display_name"
	FieldLogin           = "login"
	FieldToken           = "token"
	FieldRefreshToken    = "refresh_token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldAccessToken     = "access_token"
	FieldTokenType       = "token_type"
	FieldExpiresIn       = "expires_in"
	FieldUser            = "user"
)
