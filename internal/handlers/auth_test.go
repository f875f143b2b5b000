package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/storefront/apiserver/internal/services"
	"github.com/storefront/apiserver/internal/store"
	"github.com/storefront/apiserver/types"
)

type memUsers struct {
	byEmail map[string]*types.User
	nextID  int
}

func (m *memUsers) GetByID(ctx context.Context, id string) (types.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return *u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (types.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return *u, nil
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, ok := m.byEmail[user.Email]; ok {
		return types.User{}, store.ErrConflict
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	m.byEmail[user.Email] = &user
	return user, nil
}

func (m *memUsers) SetEmailVerified(ctx context.Context, email string) error {
	u, ok := m.byEmail[email]
	if !ok {
		return store.ErrNotFound
	}
	u.IsEmailVerified = true
	return nil
}

func (m *memUsers) RecordLoginFailure(ctx context.Context, id string, maxAttempts, lockMinutes int) error {
	for _, u := range m.byEmail {
		if u.ID == id {
			u.FailedLoginAttempts++
			if u.FailedLoginAttempts >= maxAttempts {
				until := time.Now().Add(time.Duration(lockMinutes) * time.Minute)
				u.LockUntil = &until
			}
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memUsers) ResetLoginFailures(ctx context.Context, id string) error {
	for _, u := range m.byEmail {
		if u.ID == id {
			u.FailedLoginAttempts = 0
			u.LockUntil = nil
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memUsers) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	u, ok := m.byEmail[email]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memUsers) UpdateProfile(ctx context.Context, id, name, phone string) error {
	for _, u := range m.byEmail {
		if u.ID == id {
			u.Name = name
			u.Phone = phone
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memUsers) UpdateAvatar(ctx context.Context, id, avatar string) error {
	for _, u := range m.byEmail {
		if u.ID == id {
			u.Avatar = avatar
			return nil
		}
	}
	return store.ErrNotFound
}

type memSessions struct {
	sessions []*types.Session
	nextID   int
}

func (m *memSessions) Create(ctx context.Context, session types.Session) (types.Session, error) {
	m.nextID++
	session.ID = fmt.Sprintf("session-%d", m.nextID)
	m.sessions = append(m.sessions, &session)
	return session, nil
}

func (m *memSessions) RotateRefreshToken(ctx context.Context, oldHash, newHash string) (types.Session, error) {
	for _, s := range m.sessions {
		if s.RefreshTokenHash == oldHash && s.Usable(time.Now()) {
			s.RefreshTokenHash = newHash
			return *s, nil
		}
	}
	return types.Session{}, store.ErrNotFound
}

func (m *memSessions) RevokeByRefreshToken(ctx context.Context, refreshTokenHash string) error {
	for _, s := range m.sessions {
		if s.RefreshTokenHash == refreshTokenHash {
			s.IsRevoked = true
		}
	}
	return nil
}

func (m *memSessions) RevokeAllForUser(ctx context.Context, userID string) error {
	for _, s := range m.sessions {
		if s.UserID == userID {
			s.IsRevoked = true
		}
	}
	return nil
}

func (m *memSessions) ListByUser(ctx context.Context, userID string) ([]types.Session, error) {
	var out []types.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type memOtps struct {
	otps   []*types.OTP
	nextID int
}

func (m *memOtps) Create(ctx context.Context, otp types.OTP) (types.OTP, error) {
	m.nextID++
	otp.ID = fmt.Sprintf("otp-%d", m.nextID)
	otp.CreatedAt = time.Now()
	m.otps = append(m.otps, &otp)
	return otp, nil
}

func (m *memOtps) InvalidateAll(ctx context.Context, email string, otpType types.OtpType) error {
	for _, o := range m.otps {
		if o.Email == email && o.Type == otpType {
			o.IsUsed = true
		}
	}
	return nil
}

func (m *memOtps) GetLatestValid(ctx context.Context, email string, otpType types.OtpType) (types.OTP, error) {
	for i := len(m.otps) - 1; i >= 0; i-- {
		o := m.otps[i]
		if o.Email == email && o.Type == otpType && !o.IsUsed && o.ExpiresAt.After(time.Now()) {
			return *o, nil
		}
	}
	return types.OTP{}, store.ErrNotFound
}

func (m *memOtps) MarkUsed(ctx context.Context, id string) error {
	for _, o := range m.otps {
		if o.ID == id {
			o.IsUsed = true
			return nil
		}
	}
	return store.ErrNotFound
}

type memMailer struct {
	codes []string
}

func (m *memMailer) SendOtp(ctx context.Context, email, code string, otpType types.OtpType) error {
	m.codes = append(m.codes, code)
	return nil
}

type authTestEnv struct {
	router  *chi.Mux
	service *services.AuthService
	mailer  *memMailer
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()

	mailer := &memMailer{}
	service := services.NewAuthService(
		&memUsers{byEmail: map[string]*types.User{}},
		&memSessions{},
		&memOtps{},
		mailer,
		"handler-test-secret",
	)

	handler := NewAuthHandler(service, nil, 15*time.Minute, 7*24*time.Hour, false)
	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, handler)
	})
	return &authTestEnv{router: router, service: service, mailer: mailer}
}

func (env *authTestEnv) postJSON(t *testing.T, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *authTestEnv) registerVerified(t *testing.T, email, password string) {
	t.Helper()
	if _, err := env.service.Register(context.Background(), "Test User", email, password, ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	code := env.mailer.codes[len(env.mailer.codes)-1]
	if err := env.service.VerifyOTP(context.Background(), email, code, types.OtpVerifyEmail); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSetsCookiesAndKeepsTokensOutOfBody(t *testing.T) {
	env := newAuthTestEnv(t)
	env.registerVerified(t, "a@example.com", "password123")

	rec := env.postJSON(t, "/auth/login", LoginRequest{Email: "a@example.com", Password: "password123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	access := cookieByName(rec, accessCookieName)
	refresh := cookieByName(rec, refreshCookieName)
	if access == nil || refresh == nil {
		t.Fatalf("expected both auth cookies to be set")
	}
	if !access.HttpOnly || !refresh.HttpOnly {
		t.Fatalf("auth cookies must be httpOnly")
	}
	if access.SameSite != http.SameSiteStrictMode || refresh.SameSite != http.SameSiteStrictMode {
		t.Fatalf("auth cookies must be SameSite=Strict")
	}

	body := rec.Body.String()
	if strings.Contains(body, access.Value) || strings.Contains(body, refresh.Value) {
		t.Fatalf("tokens must never appear in the response body")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newAuthTestEnv(t)
	env.registerVerified(t, "a@example.com", "password123")

	rec := env.postJSON(t, "/auth/login", LoginRequest{Email: "a@example.com", Password: "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoginLockoutReturns423(t *testing.T) {
	env := newAuthTestEnv(t)
	env.registerVerified(t, "a@example.com", "password123")

	for i := 0; i < 5; i++ {
		env.postJSON(t, "/auth/login", LoginRequest{Email: "a@example.com", Password: "nope"})
	}

	rec := env.postJSON(t, "/auth/login", LoginRequest{Email: "a@example.com", Password: "password123"})
	if rec.Code != http.StatusLocked {
		t.Fatalf("expected 423, got %d", rec.Code)
	}
}

func TestLoginUnverifiedReturns403(t *testing.T) {
	env := newAuthTestEnv(t)
	if _, err := env.service.Register(context.Background(), "Test", "a@example.com", "password123", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	rec := env.postJSON(t, "/auth/login", LoginRequest{Email: "a@example.com", Password: "password123"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unverified email, got %d", rec.Code)
	}
}

func TestRefreshRotatesCookie(t *testing.T) {
	env := newAuthTestEnv(t)
	env.registerVerified(t, "a@example.com", "password123")

	login := env.postJSON(t, "/auth/login", LoginRequest{Email: "a@example.com", Password: "password123"})
	oldRefresh := cookieByName(login, refreshCookieName)

	refreshed := env.postJSON(t, "/auth/refresh", struct{}{}, oldRefresh)
	if refreshed.Code != http.StatusOK {
		t.Fatalf("refresh failed: %d", refreshed.Code)
	}
	newRefresh := cookieByName(refreshed, refreshCookieName)
	if newRefresh == nil || newRefresh.Value == oldRefresh.Value {
		t.Fatalf("refresh must rotate the cookie value")
	}

	replay := env.postJSON(t, "/auth/refresh", struct{}{}, oldRefresh)
	if replay.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh token must be rejected, got %d", replay.Code)
	}
}

func TestLogoutEndpointIsIdempotent(t *testing.T) {
	env := newAuthTestEnv(t)
	env.registerVerified(t, "a@example.com", "password123")

	login := env.postJSON(t, "/auth/login", LoginRequest{Email: "a@example.com", Password: "password123"})
	refresh := cookieByName(login, refreshCookieName)

	first := env.postJSON(t, "/auth/logout", struct{}{}, refresh)
	if first.Code != http.StatusOK {
		t.Fatalf("logout failed: %d", first.Code)
	}
	second := env.postJSON(t, "/auth/logout", struct{}{}, refresh)
	if second.Code != http.StatusOK {
		t.Fatalf("repeated logout should succeed, got %d", second.Code)
	}
	bare := env.postJSON(t, "/auth/logout", struct{}{})
	if bare.Code != http.StatusOK {
		t.Fatalf("logout without a cookie should succeed, got %d", bare.Code)
	}

	cleared := cookieByName(first, refreshCookieName)
	if cleared == nil || cleared.MaxAge != -1 {
		t.Fatalf("logout must clear the refresh cookie")
	}
}

func TestMeRequiresAuth(t *testing.T) {
	env := newAuthTestEnv(t)
	env.registerVerified(t, "a@example.com", "password123")

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}

	login := env.postJSON(t, "/auth/login", LoginRequest{Email: "a@example.com", Password: "password123"})
	access := cookieByName(login, accessCookieName)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(access)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with a valid cookie, got %d: %s", rec.Code, rec.Body.String())
	}

	var user types.User
	if err := json.NewDecoder(rec.Body).Decode(&user); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if user.Email != "a@example.com" {
		t.Fatalf("unexpected user %q", user.Email)
	}
}

func TestBearerHeaderAlsoAccepted(t *testing.T) {
	env := newAuthTestEnv(t)
	env.registerVerified(t, "a@example.com", "password123")

	login := env.postJSON(t, "/auth/login", LoginRequest{Email: "a@example.com", Password: "password123"})
	access := cookieByName(login, accessCookieName)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access.Value)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with a bearer token, got %d", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newAuthTestEnv(t)

	rec := env.postJSON(t, "/auth/register", RegisterRequest{Name: "X", Email: "a@example.com", Password: "short"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a short password, got %d", rec.Code)
	}

	rec = env.postJSON(t, "/auth/register", RegisterRequest{Name: "X", Email: "a@example.com", Password: "password123"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.postJSON(t, "/auth/register", RegisterRequest{Name: "X", Email: "a@example.com", Password: "password123"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a duplicate email, got %d", rec.Code)
	}
}
