// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vidora/vidora/internal/platform/apperr"
	"github.com/vidora/vidora/internal/platform/ctxutil"
	"github.com/vidora/vidora/internal/platform/sec"
	"github.com/vidora/vidora/pkg/normalize"
	"github.com/vidora/vidora/pkg/uuidv7"
)

// # Service Inputs

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	AvatarURL   string
	CoverURL    string
}

// LoginInput carries a login attempt. Login may be a username or an email.
type LoginInput struct {
	Login    string
	Password string
}

// LoginSession bundles the authenticated user with the issued token pair.
type LoginSession struct {
	User      *User
	TokenPair TokenPair
}

// # Service

// Service implements the authentication and session lifecycle use cases.
//
// All session mutations funnel through the single refresh-token slot on the
// user record: login overwrites it, refresh rotates it with a compare-and-set,
// logout clears it. No other code path touches the slot.
type Service struct {
	users        UserRepository
	resetTokens  ResetTokenRepository
	verifyTokens VerificationTokenRepository
	codec        *sec.TokenCodec
}

// NewService wires the authentication service with its dependencies.
func NewService(
	users UserRepository,
	resetTokens ResetTokenRepository,
	verifyTokens VerificationTokenRepository,
	codec *sec.TokenCodec,
) *Service {
	return &Service{
		users:        users,
		resetTokens:  resetTokens,
		verifyTokens: verifyTokens,
		codec:        codec,
	}
}

// # Registration

// Register creates a new account from already-validated input.
//
// Username and email are canonicalized before any lookup or write so that
// uniqueness and later logins are case-insensitive. The duplicate pre-check
// and the insert race benignly: the unique indexes catch the loser and the
// repository maps that to the same Conflict error.
func (service *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	username := normalize.Identifier(input.Username)
	email := normalize.Identifier(input.Email)

	taken, err := service.users.ExistsByIdentity(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("User with same username or email already exists")
	}

	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &User{
		ID:           uuidv7.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  input.DisplayName,
		AvatarURL:    input.AvatarURL,
		CoverURL:     input.CoverURL,
	}

	if err := service.users.Create(ctx, user); err != nil {
		return nil, err
	}

	service.issueVerificationToken(ctx, user)

	return user, nil
}

// issueVerificationToken creates and stores an email verification token.
//
// Best-effort: registration already succeeded, so a failure here is logged
// and the user can request a fresh token later instead of failing the signup.
func (service *Service) issueVerificationToken(ctx context.Context, user *User) {
	logger := ctxutil.GetLogger(ctx)

	token, err := sec.GenerateSecureToken(VerificationTokenLength)
	if err != nil {
		logger.Error("verification_token_generate_failed", slog.Any("error", err))
		return
	}
	if err := service.verifyTokens.Set(ctx, token, user.ID, VerificationTokenTTL); err != nil {
		logger.Error("verification_token_store_failed", slog.Any("error", err))
		return
	}

	// Delivery is handled by the notification pipeline; here we only record
	// that a token exists for the account.
	logger.Info("verification_token_issued", slog.String("user_id", user.ID))
}

// # Login

// Login verifies credentials and issues a fresh token pair.
//
// Unknown identifier and wrong password both surface as the same 401 so the
// endpoint cannot be used to enumerate accounts; the internal cause stays
// distinguishable in server logs.
func (service *Service) Login(ctx context.Context, input LoginInput) (*LoginSession, error) {
	login := normalize.Identifier(input.Login)

	user, err := service.users.FindByLogin(ctx, login)
	if err != nil {
		appError := apperr.As(err)
		if appError != nil && appError.Code == apperr.CodeNotFound {
			return nil, apperr.Unauthorized("Invalid login credentials").
				WithCause(errors.New("auth: unknown login identifier"))
		}
		return nil, err
	}

	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials").
			WithCause(errors.New("auth: password mismatch"))
	}

	tokenID := uuidv7.New()
	pair, err := service.signTokenPair(user, tokenID)
	if err != nil {
		return nil, err
	}

	// The single store write of the login flow. Overwriting the slot revokes
	// whatever session the account had before.
	if err := service.users.SetRefreshTokenID(ctx, user.ID, tokenID); err != nil {
		return nil, err
	}
	user.CurrentRefreshTokenID = tokenID

	ctxutil.GetLogger(ctx).Info("user_logged_in", slog.String("user_id", user.ID))

	return &LoginSession{User: user, TokenPair: pair}, nil
}

// signTokenPair signs both tokens of a session before any store write, so a
// signing failure leaves the stored session state untouched.
func (service *Service) signTokenPair(user *User, tokenID string) (TokenPair, error) {
	accessToken, accessExpiry, err := service.codec.IssueAccessToken(user.ID, user.Username)
	if err != nil {
		return TokenPair{}, apperr.Internal(err)
	}
	refreshToken, refreshExpiry, err := service.codec.IssueRefreshToken(user.ID, tokenID)
	if err != nil {
		return TokenPair{}, apperr.Internal(err)
	}

	return TokenPair{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExpiry,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: refreshExpiry,
	}, nil
}

// # Refresh Rotation

// Refresh exchanges a valid refresh token for a brand-new token pair and
// atomically retires the presented token.
//
// Order of operations matters:
//
//  1. Verify signature, expiry, and issuer of the presented token.
//  2. Resolve the subject to a live account.
//  3. Sign the replacement pair (no store write yet).
//  4. Compare-and-set the slot from the presented token id to the new one.
//
// Step 4 is the only write. Under concurrent refreshes with the same token,
// exactly one caller wins the compare-and-set; every loser gets
// [apperr.TokenStale] and no partial state is ever persisted.
func (service *Service) Refresh(ctx context.Context, refreshToken string) (*LoginSession, error) {
	logger := ctxutil.GetLogger(ctx)

	claims, err := service.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.TokenInvalid("Invalid refresh token").WithCause(err)
	}

	user, err := service.users.FindByID(ctx, claims.Subject)
	if err != nil {
		appError := apperr.As(err)
		if appError != nil && appError.Code == apperr.CodeNotFound {
			return nil, apperr.TokenInvalid("Invalid refresh token").
				WithCause(errors.New("auth: token subject no longer exists"))
		}
		return nil, err
	}

	nextTokenID := uuidv7.New()
	pair, err := service.signTokenPair(user, nextTokenID)
	if err != nil {
		return nil, err
	}

	if err := service.users.RotateRefreshTokenID(ctx, user.ID, claims.TokenID, nextTokenID); err != nil {
		appError := apperr.As(err)
		if appError != nil && appError.Code == apperr.CodeTokenStale {
			// A structurally valid token that lost the slot was either already
			// rotated (replay or benign race) or revoked by logout. The slot
			// is left alone: it already holds the winner's token id.
			logger.Warn("refresh_token_reuse_detected",
				slog.String("user_id", user.ID),
				slog.String("presented_token_id", claims.TokenID),
			)
		}
		return nil, err
	}
	user.CurrentRefreshTokenID = nextTokenID

	logger.Info("refresh_token_rotated", slog.String("user_id", user.ID))

	return &LoginSession{User: user, TokenPair: pair}, nil
}

// # Logout

// Logout revokes the caller's live session by clearing the slot.
//
// Idempotent: logging out twice, or with no live session, still succeeds.
// The access token stays cryptographically valid until its short expiry; only
// the refresh path is cut off immediately.
func (service *Service) Logout(ctx context.Context, userID string) error {
	if err := service.users.ClearRefreshTokenID(ctx, userID); err != nil {
		return err
	}

	ctxutil.GetLogger(ctx).Info("user_logged_out", slog.String("user_id", userID))
	return nil
}

// # Account Operations

// Me returns the profile of the authenticated user.
func (service *Service) Me(ctx context.Context, userID string) (*User, error) {
	return service.users.FindByID(ctx, userID)
}

// ChangePassword replaces the password after verifying the current one.
func (service *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := service.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return err
	}

	ctxutil.GetLogger(ctx).Info("password_changed", slog.String("user_id", userID))
	return nil
}

// RequestPasswordReset issues a short-lived reset token for the account
// holding the given email.
//
// Always succeeds from the caller's perspective, whether or not the email is
// registered, so the endpoint cannot be used to enumerate accounts.
func (service *Service) RequestPasswordReset(ctx context.Context, email string) error {
	logger := ctxutil.GetLogger(ctx)

	user, err := service.users.FindByLogin(ctx, normalize.Identifier(email))
	if err != nil {
		appError := apperr.As(err)
		if appError != nil && appError.Code == apperr.CodeNotFound {
			logger.Info("password_reset_requested_for_unknown_email")
			return nil
		}
		return err
	}

	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return apperr.Internal(fmt.Errorf("auth: failed to generate reset token: %w", err))
	}
	if err := service.resetTokens.Set(ctx, token, user.ID, ResetTokenTTL); err != nil {
		return err
	}

	logger.Info("password_reset_token_issued", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
//
// The session slot is cleared as well: whoever requested the reset wants any
// existing session (possibly an attacker's) gone.
func (service *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := service.resetTokens.Get(ctx, token)
	if err != nil {
		appError := apperr.As(err)
		if appError != nil && appError.Code == apperr.CodeNotFound {
			return apperr.TokenInvalid("Invalid or expired reset token")
		}
		return err
	}

	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := service.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return err
	}
	if err := service.users.ClearRefreshTokenID(ctx, userID); err != nil {
		return err
	}

	// Single use. A delete failure only means the token lives until its TTL.
	if err := service.resetTokens.Delete(ctx, token); err != nil {
		ctxutil.GetLogger(ctx).Warn("reset_token_delete_failed", slog.Any("error", err))
	}

	ctxutil.GetLogger(ctx).Info("password_reset_completed", slog.String("user_id", userID))
	return nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (service *Service) VerifyEmail(ctx context.Context, token string) error {
	userID, err := service.verifyTokens.Get(ctx, token)
	if err != nil {
		appError := apperr.As(err)
		if appError != nil && appError.Code == apperr.CodeNotFound {
			return apperr.TokenInvalid("Invalid or expired verification token")
		}
		return err
	}

	if err := service.users.MarkVerified(ctx, userID); err != nil {
		return err
	}
	if err := service.verifyTokens.Delete(ctx, token); err != nil {
		ctxutil.GetLogger(ctx).Warn("verification_token_delete_failed", slog.Any("error", err))
	}

	ctxutil.GetLogger(ctx).Info("email_verified", slog.String("user_id", userID))
	return nil
}
