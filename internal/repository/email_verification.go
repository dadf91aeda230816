// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"errors"
	"time"

	"codeberg.org/collegeblog/backend/internal/models"
	"github.com/vinovest/sqlx"
)

// ErrTokenExpired is returned when a verification token is past its expiry.
var ErrTokenExpired = errors.New("token expired")

const emailVerificationColumns = `id, user_id, token_hash, expires_at, created_at`

// CreateEmailVerificationToken creates a new email verification token.
func (r *Repository) CreateEmailVerificationToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	_, err := exec(ctx, r.db,
		`INSERT INTO email_verification_tokens (user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		userID, tokenHash, expiresAt.UTC(), r.now())
	return err
}

// ConsumeEmailVerificationToken redeems a single-use token and marks the
// owning user verified. Returns the user ID, ErrNotFound for unknown tokens
// and ErrTokenExpired for stale ones. The token row is deleted either way.
func (r *Repository) ConsumeEmailVerificationToken(ctx context.Context, tokenHash string) (int64, error) {
	var (
		userID  int64
		expired bool
	)
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var token models.EmailVerificationToken
		if err := get(ctx, tx, &token,
			`SELECT `+emailVerificationColumns+` FROM email_verification_tokens WHERE token_hash = ?`, tokenHash); err != nil {
			return err
		}

		if _, err := exec(ctx, tx, `DELETE FROM email_verification_tokens WHERE id = ?`, token.ID); err != nil {
			return err
		}

		// Commit the delete; the expiry is reported after the transaction.
		if token.IsExpired(r.now()) {
			expired = true
			return nil
		}

		if err := execAffecting(ctx, tx,
			`UPDATE users SET is_verified = ?, updated_at = ? WHERE id = ?`, true, r.now(), token.UserID); err != nil {
			return err
		}

		userID = token.UserID
		return nil
	})
	if err != nil {
		return 0, err
	}
	if expired {
		return 0, ErrTokenExpired
	}
	return userID, nil
}

// DeleteUserEmailVerificationTokens deletes all tokens for a user.
func (r *Repository) DeleteUserEmailVerificationTokens(ctx context.Context, userID int64) error {
	_, err := exec(ctx, r.db, `DELETE FROM email_verification_tokens WHERE user_id = ?`, userID)
	return err
}

// DeleteExpiredEmailVerificationTokens deletes expired tokens and returns how
// many were removed.
func (r *Repository) DeleteExpiredEmailVerificationTokens(ctx context.Context) (int64, error) {
	res, err := exec(ctx, r.db, `DELETE FROM email_verification_tokens WHERE expires_at <= ?`, r.now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
