// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidora/vidora/internal/platform/apperr"
	"github.com/vidora/vidora/internal/platform/dberr"
)

// DB is the narrow slice of [pgxpool.Pool] the repository needs.
//
// Accepting an interface instead of the concrete pool lets tests substitute a
// pgxmock pool without touching a real database.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresUserRepository implements the UserRepository interface using pgx.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
type PostgresUserRepository struct {
	db DB
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(db DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// userColumns is the canonical select list for hydrating a [User].
const userColumns = `id, username, email, passwordhash, displayname, avatarurl, coverurl,
		isverified, currentrefreshtokenid, createdat, updatedat`

// scanUser hydrates a User from a row produced with userColumns.
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	var refreshTokenID *string

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.AvatarURL,
		&user.CoverURL,
		&user.IsVerified,
		&refreshTokenID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if refreshTokenID != nil {
		user.CurrentRefreshTokenID = *refreshTokenID
	}

	return user, nil
}

// Create persists a new user record into the users.account table.
//
// The unique indexes on folded username/email are the authoritative guard
// against duplicates; the service's existence pre-check only produces a
// friendlier error in the common case.
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, username, email, passwordhash, displayname, avatarurl, coverurl, isverified, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.db.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.AvatarURL,
		user.CoverURL,
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return apperr.Conflict("User with same username or email already exists")
		}
		return dberr.Wrap(err)
	}

	return nil
}

// FindByID retrieves a user record by primary key.
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE id = $1 AND deletedat IS NULL`

	user, err := scanUser(repository.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err)
	}

	return user, nil
}

// FindByLogin retrieves a user by a normalized identifier that may be either
// the username or the email, in one OR query.
func (repository *PostgresUserRepository) FindByLogin(ctx context.Context, login string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE (username = $1 OR email = $1) AND deletedat IS NULL`

	user, err := scanUser(repository.db.QueryRow(ctx, query, login))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err)
	}

	return user, nil
}

// ExistsByIdentity reports whether the normalized username OR email is taken,
// via a single existence query.
func (repository *PostgresUserRepository) ExistsByIdentity(ctx context.Context, username, email string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM users.account
			WHERE (username = $1 OR email = $2) AND deletedat IS NULL
		)`

	var exists bool
	if err := repository.db.QueryRow(ctx, query, username, email).Scan(&exists); err != nil {
		return false, dberr.Wrap(err)
	}

	return exists, nil
}

// UpdatePassword updates only the password hash for a specific user.
func (repository *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1 AND deletedat IS NULL`

	_, err := repository.db.Exec(ctx, query, userID, newHash, time.Now())
	if err != nil {
		return dberr.Wrap(err)
	}

	return nil
}

// MarkVerified updates the user's status to isverified = true.
func (repository *PostgresUserRepository) MarkVerified(ctx context.Context, userID string) error {
	const query = "UPDATE users.account SET isverified = TRUE, updatedat = $2 WHERE id = $1"
	_, err := repository.db.Exec(ctx, query, userID, time.Now())
	if err != nil {
		return dberr.Wrap(err)
	}
	return nil
}

// # Session Slot Operations

// SetRefreshTokenID unconditionally overwrites the session slot.
//
// Exactly one write per issuance; overwriting implicitly revokes whatever
// refresh token occupied the slot before.
func (repository *PostgresUserRepository) SetRefreshTokenID(ctx context.Context, userID, tokenID string) error {
	const query = `
		UPDATE users.account
		SET currentrefreshtokenid = $2, updatedat = $3
		WHERE id = $1 AND deletedat IS NULL`

	tag, err := repository.db.Exec(ctx, query, userID, tokenID, time.Now())
	if err != nil {
		return dberr.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// RotateRefreshTokenID performs the compare-and-set at the heart of refresh
// rotation: the slot moves to nextTokenID only if it still holds
// currentTokenID, in one atomic UPDATE.
//
// Of two concurrent rotations of the same token, exactly one matches; the
// loser observes zero affected rows and gets [apperr.TokenStale].
func (repository *PostgresUserRepository) RotateRefreshTokenID(ctx context.Context, userID, currentTokenID, nextTokenID string) error {
	const query = `
		UPDATE users.account
		SET currentrefreshtokenid = $3, updatedat = $4
		WHERE id = $1 AND currentrefreshtokenid = $2 AND deletedat IS NULL`

	tag, err := repository.db.Exec(ctx, query, userID, currentTokenID, nextTokenID, time.Now())
	if err != nil {
		return dberr.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.TokenStale("Refresh token is expired or already used")
	}

	return nil
}

// ClearRefreshTokenID empties the session slot. Clearing an already-empty
// slot affects zero rows and is still a success (idempotent logout).
func (repository *PostgresUserRepository) ClearRefreshTokenID(ctx context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET currentrefreshtokenid = NULL, updatedat = $2
		WHERE id = $1 AND deletedat IS NULL`

	_, err := repository.db.Exec(ctx, query, userID, time.Now())
	if err != nil {
		return dberr.Wrap(err)
	}

	return nil
}
