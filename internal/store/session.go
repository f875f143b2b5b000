package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/apiserver/types"
)

// SessionRepository handles persistence for login sessions.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session types.Session) (types.Session, error) {
	now := time.Now()
	session.ID = uuid.NewString()
	session.CreatedAt = now
	session.UpdatedAt = now

	const query = `
		INSERT INTO sessions (id, user_id, refresh_token, token, user_agent, ip_address,
			expires_at, is_revoked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, FALSE, $8, $9)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		session.ID,
		session.UserID,
		session.RefreshTokenHash,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return types.Session{}, err
	}
	return session, nil
}

// RotateRefreshToken swaps the stored refresh-token digest in a single
// statement keyed on the old digest. The old digest stops matching the
// instant the new one becomes valid, so a stolen token can be redeemed
// at most once. Returns ErrNotFound when no usable session matches.
func (r *SessionRepository) RotateRefreshToken(ctx context.Context, oldHash, newHash string) (types.Session, error) {
	const query = `
		UPDATE sessions
		SET refresh_token = $2,
			updated_at = now()
		WHERE refresh_token = $1
			AND is_revoked = FALSE
			AND expires_at > now()
		RETURNING id, user_id, refresh_token, token, COALESCE(user_agent, ''), COALESCE(ip_address, ''),
			expires_at, is_revoked, created_at, updated_at`
	var session types.Session
	err := r.db.QueryRowContext(ctx, query, oldHash, newHash).Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshTokenHash,
		&session.TokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.ExpiresAt,
		&session.IsRevoked,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Session{}, ErrNotFound
		}
		return types.Session{}, err
	}
	return session, nil
}

// RevokeByRefreshToken marks every session holding the digest revoked.
// Matching zero rows is a success: logout is idempotent.
func (r *SessionRepository) RevokeByRefreshToken(ctx context.Context, refreshTokenHash string) error {
	const query = `
		UPDATE sessions
		SET is_revoked = TRUE,
			updated_at = now()
		WHERE refresh_token = $1`
	_, err := r.db.ExecContext(ctx, query, refreshTokenHash)
	return err
}

// RevokeAllForUser terminates every session owned by the user.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	const query = `
		UPDATE sessions
		SET is_revoked = TRUE,
			updated_at = now()
		WHERE user_id = $1
			AND is_revoked = FALSE`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// ListByUser returns the user's sessions, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]types.Session, error) {
	const query = `
		SELECT id, user_id, refresh_token, token, COALESCE(user_agent, ''), COALESCE(ip_address, ''),
			expires_at, is_revoked, created_at, updated_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []types.Session
	for rows.Next() {
		var session types.Session
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.RefreshTokenHash,
			&session.TokenHash,
			&session.UserAgent,
			&session.IPAddress,
			&session.ExpiresAt,
			&session.IsRevoked,
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
