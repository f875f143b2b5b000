package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/storefront/apiserver/internal/auth"
	"github.com/storefront/apiserver/internal/store"
	"github.com/storefront/apiserver/types"
)

const (
	otpTTL            = 5 * time.Minute
	maxLoginFails     = 5
	lockoutMinutes    = 15
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// UserStore defines persistence operations for user credentials.
type UserStore interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	SetEmailVerified(ctx context.Context, email string) error
	RecordLoginFailure(ctx context.Context, id string, maxAttempts, lockMinutes int) error
	ResetLoginFailures(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	UpdateProfile(ctx context.Context, id, name, phone string) error
	UpdateAvatar(ctx context.Context, id, avatar string) error
}

// SessionStore defines persistence operations for login sessions.
type SessionStore interface {
	Create(ctx context.Context, session types.Session) (types.Session, error)
	RotateRefreshToken(ctx context.Context, oldHash, newHash string) (types.Session, error)
	RevokeByRefreshToken(ctx context.Context, refreshTokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	ListByUser(ctx context.Context, userID string) ([]types.Session, error)
}

// OtpStore defines persistence operations for one-time codes.
type OtpStore interface {
	Create(ctx context.Context, otp types.OTP) (types.OTP, error)
	InvalidateAll(ctx context.Context, email string, otpType types.OtpType) error
	GetLatestValid(ctx context.Context, email string, otpType types.OtpType) (types.OTP, error)
	MarkUsed(ctx context.Context, id string) error
}

// OtpMailer delivers an issued code out of band. The OTP row is the
// source of truth and is committed before delivery is attempted; a
// delivery failure is the mailer's to log and retry, never a reason to
// roll the code back.
type OtpMailer interface {
	SendOtp(ctx context.Context, email, code string, otpType types.OtpType) error
}

// AuthService orchestrates registration, OTP verification, password
// login with lockout, refresh rotation, and logout.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	otps     OtpStore
	mailer   OtpMailer

	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(users UserStore, sessions SessionStore, otps OtpStore, mailer OtpMailer, jwtSecret string) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		otps:       otps,
		mailer:     mailer,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
}

// SetTokenTTLs overrides the default access/refresh lifetimes.
func (s *AuthService) SetTokenTTLs(accessTTL, refreshTTL time.Duration) {
	if accessTTL > 0 {
		s.accessTTL = accessTTL
	}
	if refreshTTL > 0 {
		s.refreshTTL = refreshTTL
	}
}

// LoginParams carries the credentials and client metadata for Login.
type LoginParams struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// AuthResult is the outcome of a successful login, refresh, or
// federated callback.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         types.UserSummary
}

// Register creates a CUSTOMER account in the unverified state and
// issues a verification OTP. The role is always server-assigned; public
// registration never trusts a role from the request.
func (s *AuthService) Register(ctx context.Context, name, email, password, phone string) (types.UserSummary, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return types.UserSummary{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.UserSummary{}, err
	}

	passwordHash, err := auth.HashSecret(password)
	if err != nil {
		return types.UserSummary{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Email:        email,
		Name:         name,
		Phone:        phone,
		PasswordHash: passwordHash,
		Role:         types.RoleCustomer,
		Provider:     types.ProviderLocal,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.UserSummary{}, ErrEmailTaken
		}
		return types.UserSummary{}, err
	}

	if err := s.issueOtp(ctx, user.Email, types.OtpVerifyEmail); err != nil {
		return types.UserSummary{}, err
	}
	return user.Summary(), nil
}

// ResendOTP invalidates prior codes and issues a fresh one.
func (s *AuthService) ResendOTP(ctx context.Context, email string, otpType types.OtpType) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.IsBlocked {
		return ErrAccountBlocked
	}
	return s.issueOtp(ctx, email, otpType)
}

// VerifyOTP consumes the most recent valid code for (email, type). On a
// VERIFY_EMAIL match the user's email is marked verified.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string, otpType types.OtpType) error {
	otp, err := s.otps.GetLatestValid(ctx, email, otpType)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOtp
		}
		return err
	}
	if !auth.VerifySecret(code, otp.CodeHash) {
		return ErrInvalidOtp
	}
	if err := s.otps.MarkUsed(ctx, otp.ID); err != nil {
		return err
	}
	if otpType == types.OtpVerifyEmail {
		return s.users.SetEmailVerified(ctx, email)
	}
	return nil
}

// Login authenticates a password and opens a session. Five consecutive
// failures lock the account for fifteen minutes. A correct password
// against an unverified email re-issues the verification OTP and fails
// without counting as a login failure. Multiple concurrent sessions per
// user are allowed; login never rejects on an existing active session.
func (s *AuthService) Login(ctx context.Context, p LoginParams) (AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, p.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	// A federation-only account has no password to check.
	if user.PasswordHash == "" {
		return AuthResult{}, ErrInvalidCredentials
	}
	if user.IsBlocked {
		return AuthResult{}, ErrAccountBlocked
	}
	if user.LockUntil != nil && user.LockUntil.After(time.Now()) {
		return AuthResult{}, ErrAccountLocked
	}

	if !auth.VerifySecret(p.Password, user.PasswordHash) {
		// Same message on every failure so the lockout threshold is not
		// directly observable.
		if err := s.users.RecordLoginFailure(ctx, user.ID, maxLoginFails, lockoutMinutes); err != nil {
			return AuthResult{}, err
		}
		return AuthResult{}, ErrInvalidCredentials
	}

	if err := s.users.ResetLoginFailures(ctx, user.ID); err != nil {
		return AuthResult{}, err
	}

	if !user.IsEmailVerified {
		if err := s.issueOtp(ctx, user.Email, types.OtpVerifyEmail); err != nil {
			return AuthResult{}, err
		}
		return AuthResult{}, ErrEmailNotVerified
	}

	return s.openSession(ctx, user, p.UserAgent, p.IPAddress)
}

// Refresh rotates the refresh token: the old digest stops matching
// atomically with the new one taking effect, so each raw token is
// redeemable at most once.
func (s *AuthService) Refresh(ctx context.Context, rawRefreshToken string) (AuthResult, error) {
	newRefreshToken, err := auth.NewOpaqueToken()
	if err != nil {
		return AuthResult{}, err
	}

	session, err := s.sessions.RotateRefreshToken(ctx, auth.HashToken(rawRefreshToken), auth.HashToken(newRefreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return AuthResult{}, err
	}

	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		User:         user.Summary(),
	}, nil
}

// Logout revokes every session holding the refresh token. It is
// idempotent: an unknown or already-revoked token is a no-op, not an
// error.
func (s *AuthService) Logout(ctx context.Context, rawRefreshToken string) error {
	return s.sessions.RevokeByRefreshToken(ctx, auth.HashToken(rawRefreshToken))
}

// ForgotPassword issues a RESET_PASSWORD code for the account.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.ResendOTP(ctx, email, types.OtpResetPassword)
}

// ResetPassword consumes a RESET_PASSWORD code, replaces the password
// digest, and revokes every open session for the account.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := s.VerifyOTP(ctx, email, code, types.OtpResetPassword); err != nil {
		return err
	}

	passwordHash, err := auth.HashSecret(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, email, passwordHash); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.sessions.RevokeAllForUser(ctx, user.ID)
}

// GetUser loads a user by id for authenticated profile reads.
func (s *AuthService) GetUser(ctx context.Context, id string) (types.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile edits the caller's name and phone.
func (s *AuthService) UpdateProfile(ctx context.Context, id, name, phone string) (types.User, error) {
	if err := s.users.UpdateProfile(ctx, id, name, phone); err != nil {
		return types.User{}, err
	}
	return s.users.GetByID(ctx, id)
}

// UpdateAvatar records the caller's new avatar URL.
func (s *AuthService) UpdateAvatar(ctx context.Context, id, avatar string) (types.User, error) {
	if err := s.users.UpdateAvatar(ctx, id, avatar); err != nil {
		return types.User{}, err
	}
	return s.users.GetByID(ctx, id)
}

// ListSessions returns the user's sessions for device management.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]types.Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// VerifyAccess validates a bearer access token.
func (s *AuthService) VerifyAccess(tokenString string) (auth.Claims, error) {
	return auth.VerifyAccessToken(tokenString, s.jwtSecret)
}

// issueOtp makes (email, type) hold exactly one valid code: all prior
// unused codes are invalidated, the new code's digest is committed, and
// only then is delivery attempted.
func (s *AuthService) issueOtp(ctx context.Context, email string, otpType types.OtpType) error {
	if err := s.otps.InvalidateAll(ctx, email, otpType); err != nil {
		return err
	}

	code, err := auth.NewNumericCode()
	if err != nil {
		return err
	}
	codeHash, err := auth.HashSecret(code)
	if err != nil {
		return err
	}

	if _, err := s.otps.Create(ctx, types.OTP{
		Email:     email,
		CodeHash:  codeHash,
		Type:      otpType,
		ExpiresAt: time.Now().Add(otpTTL),
	}); err != nil {
		return err
	}

	if err := s.mailer.SendOtp(ctx, email, code, otpType); err != nil {
		log.Printf("otp delivery for %s failed: %v", email, err)
	}
	return nil
}

func (s *AuthService) openSession(ctx context.Context, user types.User, userAgent, ipAddress string) (AuthResult, error) {
	refreshToken, err := auth.NewOpaqueToken()
	if err != nil {
		return AuthResult{}, err
	}
	sessionToken, err := auth.NewOpaqueToken()
	if err != nil {
		return AuthResult{}, err
	}

	if _, err := s.sessions.Create(ctx, types.Session{
		UserID:           user.ID,
		RefreshTokenHash: auth.HashToken(refreshToken),
		TokenHash:        auth.HashToken(sessionToken),
		UserAgent:        userAgent,
		IPAddress:        ipAddress,
		ExpiresAt:        time.Now().Add(s.refreshTTL),
	}); err != nil {
		return AuthResult{}, err
	}

	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Summary(),
	}, nil
}

func (s *AuthService) signAccessToken(user types.User) (string, error) {
	return auth.SignAccessToken(auth.Claims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
	}, s.jwtSecret, s.accessTTL)
}
