package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/apiserver/types"
)

// AccountRepository handles provider account links and the federated
// login write sequence.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FederatedLoginParams carries everything the federated write sequence
// persists. Token digests are computed by the caller; raw secrets never
// reach this layer.
type FederatedLoginParams struct {
	Provider         types.AuthProvider
	ProviderKey      string // e.g. "google"
	ExternalID       string
	Email            string
	Name             string
	Avatar           string
	RefreshTokenHash string
	SessionTokenHash string
	UserAgent        string
	IPAddress        string
	SessionTTL       time.Duration
}

// FederatedLogin reconciles an identity-provider profile with a local
// user and opens a session, all in one transaction: user upsert, blocked
// guard, account-link upsert, session insert. A partial state (user
// without session, link without session) can never commit.
func (r *AccountRepository) FederatedLogin(ctx context.Context, p FederatedLoginParams) (types.User, types.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.User{}, types.Session{}, err
	}
	defer tx.Rollback()

	now := time.Now()

	// Upsert the user in one statement. A first-time federated login
	// creates the account with the email already verified (the provider
	// vouched for it); a returning or locally-registered user keeps
	// their role and credentials and only gets the avatar refreshed and
	// verification forced on.
	const upsertUser = `
		INSERT INTO users (id, email, name, role, provider, provider_id, is_email_verified,
			avatar, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NULLIF($7, ''), $8, $8)
		ON CONFLICT (email) DO UPDATE
		SET is_email_verified = TRUE,
			avatar = COALESCE(NULLIF(EXCLUDED.avatar, ''), users.avatar),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns
	user, err := scanUser(tx.QueryRowContext(
		ctx,
		upsertUser,
		uuid.NewString(),
		p.Email,
		p.Name,
		types.RoleCustomer,
		p.Provider,
		p.ExternalID,
		p.Avatar,
		now,
	))
	if err != nil {
		return types.User{}, types.Session{}, err
	}

	// The blocked guard lives inside the transaction so a blocked user
	// can never acquire a session, even under races with an admin
	// blocking concurrently.
	if user.IsBlocked {
		return types.User{}, types.Session{}, ErrBlocked
	}

	const upsertAccount = `
		INSERT INTO accounts (id, user_id, account_id, provider_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, provider_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, upsertAccount, uuid.NewString(), user.ID, p.ExternalID, p.ProviderKey, now); err != nil {
		return types.User{}, types.Session{}, err
	}

	session := types.Session{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		RefreshTokenHash: p.RefreshTokenHash,
		TokenHash:        p.SessionTokenHash,
		UserAgent:        p.UserAgent,
		IPAddress:        p.IPAddress,
		ExpiresAt:        now.Add(p.SessionTTL),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	const insertSession = `
		INSERT INTO sessions (id, user_id, refresh_token, token, user_agent, ip_address,
			expires_at, is_revoked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, FALSE, $8, $9)`
	if _, err := tx.ExecContext(
		ctx,
		insertSession,
		session.ID,
		session.UserID,
		session.RefreshTokenHash,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	); err != nil {
		return types.User{}, types.Session{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.User{}, types.Session{}, err
	}
	return user, session, nil
}

// GetByUserAndProvider returns the account link for (userID, providerKey).
func (r *AccountRepository) GetByUserAndProvider(ctx context.Context, userID, providerKey string) (types.Account, error) {
	const query = `
		SELECT id, user_id, account_id, provider_id, created_at
		FROM accounts
		WHERE user_id = $1
			AND provider_id = $2`
	var account types.Account
	err := r.db.QueryRowContext(ctx, query, userID, providerKey).Scan(
		&account.ID,
		&account.UserID,
		&account.AccountID,
		&account.ProviderID,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return account, nil
}
