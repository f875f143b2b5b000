package types

import "time"

// Session represents one authenticated client context. Multiple
// concurrent sessions per user are permitted, one per login/device.
type Session struct {
	// ID is the unique identifier of the session.
	ID string `json:"id" db:"id"`

	// UserID is the owning user.
	UserID string `json:"user_id" db:"user_id"`

	// RefreshTokenHash is the SHA-256 digest of the refresh-token
	// secret. The raw value is never persisted.
	RefreshTokenHash string `json:"-" db:"refresh_token"`

	// TokenHash is the digest of an internal session token used for
	// uniqueness and tracking. It is never returned to clients.
	TokenHash string `json:"-" db:"token"`

	// UserAgent and IPAddress describe the client that opened the
	// session, when known.
	UserAgent string `json:"user_agent,omitempty" db:"user_agent"`
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// ExpiresAt is when the session stops being usable regardless of
	// revocation state.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`

	// IsRevoked marks a session terminated by logout.
	IsRevoked bool `json:"is_revoked" db:"is_revoked"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Usable reports whether the session can still mint access tokens.
func (s Session) Usable(now time.Time) bool {
	return !s.IsRevoked && s.ExpiresAt.After(now)
}
