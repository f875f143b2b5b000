package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/apiserver/types"
)

// OtpRepository handles persistence for one-time codes.
type OtpRepository struct {
	db *sql.DB
}

func NewOtpRepository(db *sql.DB) *OtpRepository {
	return &OtpRepository{db: db}
}

func (r *OtpRepository) Create(ctx context.Context, otp types.OTP) (types.OTP, error) {
	otp.ID = uuid.NewString()
	otp.CreatedAt = time.Now()

	const query = `
		INSERT INTO otps (id, email, code, type, expires_at, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		otp.ID,
		otp.Email,
		otp.CodeHash,
		otp.Type,
		otp.ExpiresAt,
		otp.CreatedAt,
	)
	if err != nil {
		return types.OTP{}, err
	}
	return otp, nil
}

// InvalidateAll marks every unused code for (email, type) as used, so at
// most one valid code can exist after a re-issue.
func (r *OtpRepository) InvalidateAll(ctx context.Context, email string, otpType types.OtpType) error {
	const query = `
		UPDATE otps
		SET is_used = TRUE
		WHERE email = $1
			AND type = $2
			AND is_used = FALSE`
	_, err := r.db.ExecContext(ctx, query, email, otpType)
	return err
}

// GetLatestValid returns the most recently created unused, unexpired
// code for (email, type).
func (r *OtpRepository) GetLatestValid(ctx context.Context, email string, otpType types.OtpType) (types.OTP, error) {
	const query = `
		SELECT id, email, code, type, expires_at, is_used, created_at
		FROM otps
		WHERE email = $1
			AND type = $2
			AND is_used = FALSE
			AND expires_at > now()
		ORDER BY created_at DESC
		LIMIT 1`
	var otp types.OTP
	err := r.db.QueryRowContext(ctx, query, email, otpType).Scan(
		&otp.ID,
		&otp.Email,
		&otp.CodeHash,
		&otp.Type,
		&otp.ExpiresAt,
		&otp.IsUsed,
		&otp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.OTP{}, ErrNotFound
		}
		return types.OTP{}, err
	}
	return otp, nil
}

func (r *OtpRepository) MarkUsed(ctx context.Context, id string) error {
	const query = `
		UPDATE otps
		SET is_used = TRUE
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
