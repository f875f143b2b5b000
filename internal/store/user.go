package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, name, COALESCE(phone, ''), COALESCE(password_hash, ''), role, provider,
	COALESCE(provider_id, ''), is_email_verified, is_blocked, failed_login_attempts, lock_until,
	COALESCE(avatar, ''), created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Phone,
		&user.PasswordHash,
		&user.Role,
		&user.Provider,
		&user.ProviderID,
		&user.IsEmailVerified,
		&user.IsBlocked,
		&user.FailedLoginAttempts,
		&user.LockUntil,
		&user.Avatar,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (id, email, name, phone, password_hash, role, provider, provider_id,
			is_email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, NULLIF($8, ''), $9, $10, $11)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.Name,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.Provider,
		user.ProviderID,
		user.IsEmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}
	return user, nil
}

// SetEmailVerified flips the verification flag for the given email.
func (r *UserRepository) SetEmailVerified(ctx context.Context, email string) error {
	const query = `
		UPDATE users
		SET is_email_verified = TRUE,
			updated_at = now()
		WHERE email = $1`
	return r.exec(ctx, query, email)
}

// RecordLoginFailure bumps the consecutive-failure counter and, when the
// counter reaches maxAttempts, sets the lock deadline. The whole
// read-modify-write happens in one statement so concurrent failed logins
// never lose an increment.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id string, maxAttempts, lockMinutes int) error {
	const query = `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
			lock_until = CASE
				WHEN failed_login_attempts + 1 >= $2 THEN now() + make_interval(mins => $3)
				ELSE lock_until
			END,
			updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, query, id, maxAttempts, lockMinutes)
}

// ResetLoginFailures clears lockout bookkeeping after a successful
// password check.
func (r *UserRepository) ResetLoginFailures(ctx context.Context, id string) error {
	const query = `
		UPDATE users
		SET failed_login_attempts = 0,
			lock_until = NULL,
			updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, query, id)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, phone string) error {
	const query = `
		UPDATE users
		SET name = $2,
			phone = NULLIF($3, ''),
			updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, query, id, name, phone)
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatar string) error {
	const query = `
		UPDATE users
		SET avatar = NULLIF($2, ''),
			updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, query, id, avatar)
}

// UpdatePassword replaces the stored password digest for the given email.
func (r *UserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $2,
			updated_at = now()
		WHERE email = $1`
	return r.exec(ctx, query, email, passwordHash)
}

// SetBlocked toggles the administrative block flag.
func (r *UserRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	const query = `
		UPDATE users
		SET is_blocked = $2,
			updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, query, id, blocked)
}

// SetRole changes the authorization level of a user.
func (r *UserRepository) SetRole(ctx context.Context, id string, role types.Role) error {
	const query = `
		UPDATE users
		SET role = $2,
			updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, query, id, role)
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
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
