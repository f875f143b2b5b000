package types

import "time"

// OtpType is the purpose an OTP code was issued for.
type OtpType string

const (
	OtpVerifyEmail   OtpType = "VERIFY_EMAIL"
	OtpLogin         OtpType = "LOGIN"
	OtpResetPassword OtpType = "RESET_PASSWORD"
)

// OTP is a short-lived one-time code bound to an email and a purpose.
// The code column stores a bcrypt digest, never the raw value.
type OTP struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	CodeHash  string    `json:"-" db:"code"`
	Type      OtpType   `json:"type" db:"type"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	IsUsed    bool      `json:"is_used" db:"is_used"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ValidOtpType reports whether the given string names a known OTP purpose.
func ValidOtpType(s string) bool {
	switch OtpType(s) {
	case OtpVerifyEmail, OtpLogin, OtpResetPassword:
		return true
	}
	return false
}
