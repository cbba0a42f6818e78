// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via interfaces defined by the consumers.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload embedded inside an access token.
//
// # Why custom claims?
//
// By embedding the UserID and Username directly inside the JWT, the request
// middleware can reconstruct the active user context WITHOUT querying the
// database on every single API request.
type AccessClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID   string `json:"uid"`
	Username string `json:"unm"`
}

// RefreshClaims is the payload embedded inside a refresh token.
//
// TokenID is the rotation handle: it must equal the account's stored
// CurrentRefreshTokenID for the token to be usable, which is the sole
// server-side revocation mechanism for an already-signed token.
type RefreshClaims struct {
	jwt.RegisteredClaims

	TokenID string `json:"tid"`
}

// TokenConfig carries the secrets and lifetimes for both token classes.
//
// It is populated from process configuration and injected at construction,
// never read from ambient state, so tests can substitute short TTLs and
// deterministic secrets.
type TokenConfig struct {
	// AccessSecret signs the short-lived access tokens.
	AccessSecret []byte
	// RefreshSecret signs the long-lived refresh tokens. Must differ from
	// AccessSecret so one token class can never impersonate the other.
	RefreshSecret []byte
	// AccessTTL is the access token lifetime (minutes in production).
	AccessTTL time.Duration
	// RefreshTTL is the refresh token lifetime (days in production).
	RefreshTTL time.Duration
	// Issuer is the 'iss' claim stamped on and required from every token.
	Issuer string
}

// TokenCodec creates and verifies the signed, tamper-evident session tokens.
// Both classes use HMAC-SHA256 with a symmetric secret scoped per class.
type TokenCodec struct {
	config TokenConfig
}

// NewTokenCodec constructs a [TokenCodec] from explicit configuration.
func NewTokenCodec(config TokenConfig) (*TokenCodec, error) {
	if len(config.AccessSecret) == 0 || len(config.RefreshSecret) == 0 {
		return nil, errors.New("sec: token secrets must not be empty")
	}
	if config.AccessTTL <= 0 || config.RefreshTTL <= 0 {
		return nil, errors.New("sec: token TTLs must be positive")
	}
	return &TokenCodec{config: config}, nil
}

// AccessTTL exposes the configured access token lifetime for transport
// concerns (cookie expiry, expires_in hints).
func (codec *TokenCodec) AccessTTL() time.Duration { return codec.config.AccessTTL }

// RefreshTTL exposes the configured refresh token lifetime.
func (codec *TokenCodec) RefreshTTL() time.Duration { return codec.config.RefreshTTL }

// IssueAccessToken mints a signed access token for the given subject.
//
// # Returns
//   - The compact token string.
//   - The exact expiry instant (issuedAt + AccessTTL).
func (codec *TokenCodec) IssueAccessToken(userID, username string) (string, time.Time, error) {
	issuedAt := time.Now()
	expiresAt := issuedAt.Add(codec.config.AccessTTL)

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    codec.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   userID,
		Username: username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(codec.config.AccessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

// IssueRefreshToken mints a signed refresh token binding the subject to the
// given rotation tokenID.
func (codec *TokenCodec) IssueRefreshToken(userID, tokenID string) (string, time.Time, error) {
	issuedAt := time.Now()
	expiresAt := issuedAt.Add(codec.config.RefreshTTL)

	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    codec.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenID: tokenID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(codec.config.RefreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign refresh token: %w", err)
	}

	return signed, expiresAt, nil
}

// VerifyAccessToken checks signature, expiry, and issuer of an access token.
func (codec *TokenCodec) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := codec.verify(tokenString, claims, codec.config.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken checks signature, expiry, and issuer of a refresh token.
//
// A mismatch between the embedded TokenID and the stored session reference is
// NOT checked here: that comparison belongs to the rotation's atomic
// compare-and-set against the credential store.
func (codec *TokenCodec) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := codec.verify(tokenString, claims, codec.config.RefreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// verify parses the compact token with the class-scoped secret, pinning the
// signing algorithm so an attacker cannot downgrade to 'none' or swap classes.
func (codec *TokenCodec) verify(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(codec.config.Issuer), jwt.WithExpirationRequired())

	if err != nil {
		return fmt.Errorf("sec: invalid token: %w", err)
	}
	if !token.Valid {
		return errors.New("sec: invalid token claims")
	}

	return nil
}
