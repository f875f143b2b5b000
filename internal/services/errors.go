package services

import "net/http"

// Error is a domain failure with an HTTP-like severity. Handlers map it
// onto the response status; anything else that escapes a service is an
// internal error and must surface as a generic 500.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrEmailTaken is returned when registering an email that exists.
	ErrEmailTaken = &Error{Status: http.StatusConflict, Message: "user already exists"}

	// ErrUserNotFound is returned when an operation targets an unknown email.
	ErrUserNotFound = &Error{Status: http.StatusNotFound, Message: "user not found"}

	// ErrInvalidCredentials covers bad passwords, unknown accounts, and
	// refresh tokens with no matching session. The cases are deliberately
	// indistinguishable to prevent account enumeration.
	ErrInvalidCredentials = &Error{Status: http.StatusUnauthorized, Message: "invalid credentials"}

	// ErrAccountLocked is returned while a lockout window is active.
	ErrAccountLocked = &Error{Status: http.StatusLocked, Message: "account is temporarily locked, try again later"}

	// ErrAccountBlocked is returned for administratively disabled accounts.
	ErrAccountBlocked = &Error{Status: http.StatusForbidden, Message: "account is blocked"}

	// ErrEmailNotVerified is returned on login with valid credentials but
	// an unconfirmed email. A fresh verification OTP has been sent as a
	// side effect.
	ErrEmailNotVerified = &Error{Status: http.StatusForbidden, Message: "please verify your email address, a new verification code has been sent"}

	// ErrInvalidOtp covers both a missing and a mismatched code, for the
	// same anti-enumeration reason as ErrInvalidCredentials.
	ErrInvalidOtp = &Error{Status: http.StatusBadRequest, Message: "invalid or expired OTP"}

	// ErrForbidden is returned when the caller lacks permission for the
	// target resource.
	ErrForbidden = &Error{Status: http.StatusForbidden, Message: "forbidden"}
)
