package types

import "time"

// Role is the authorization level of a user account.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleSeller   Role = "SELLER"
	RoleAdmin    Role = "ADMIN"
)

// AuthProvider identifies how an account authenticates.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "LOCAL"
	ProviderGoogle AuthProvider = "GOOGLE"
)

// User represents an account in the system.
// It contains identity, role, credential, and lockout metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id" db:"id"`

	// Email is the unique address used as the primary lookup key.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Phone is an optional contact number.
	Phone string `json:"phone,omitempty" db:"phone"`

	// PasswordHash stores the bcrypt digest of the user's password.
	// It is empty for federation-only accounts and is never exposed
	// in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Role indicates the user's authorization level
	// (CUSTOMER, SELLER, or ADMIN).
	Role Role `json:"role" db:"role"`

	// Provider records which identity provider created the account.
	Provider AuthProvider `json:"provider" db:"provider"`

	// ProviderID is the external identity id for federated accounts.
	ProviderID string `json:"-" db:"provider_id"`

	// IsEmailVerified reports whether the email address has been
	// confirmed, either by OTP or by a trusted identity provider.
	IsEmailVerified bool `json:"is_email_verified" db:"is_email_verified"`

	// IsBlocked marks an account disabled by an administrator.
	IsBlocked bool `json:"is_blocked" db:"is_blocked"`

	// FailedLoginAttempts counts consecutive failed password checks.
	FailedLoginAttempts int `json:"-" db:"failed_login_attempts"`

	// LockUntil, when set and in the future, suspends password login.
	LockUntil *time.Time `json:"-" db:"lock_until"`

	// Avatar is the URL of the user's profile image, if any.
	Avatar string `json:"avatar,omitempty" db:"avatar"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Summary returns the subset of user fields safe to embed in auth responses.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

// UserSummary is the public view of a user returned by auth endpoints.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
