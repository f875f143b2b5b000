package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/storefront/apiserver/internal/store"
	"github.com/storefront/apiserver/types"
)

type fakeVerifier struct {
	profiles map[string]GoogleProfile
}

func (f *fakeVerifier) Verify(ctx context.Context, idToken string) (GoogleProfile, error) {
	if p, ok := f.profiles[idToken]; ok {
		return p, nil
	}
	return GoogleProfile{}, errors.New("invalid token")
}

// fakeFederatedStore mimics the transactional upsert: one user per
// email, one link per (user, provider), all-or-nothing.
type fakeFederatedStore struct {
	users    map[string]*types.User
	links    map[string]types.Account
	sessions []types.Session
	nextID   int
}

func newFakeFederatedStore() *fakeFederatedStore {
	return &fakeFederatedStore{
		users: map[string]*types.User{},
		links: map[string]types.Account{},
	}
}

func (f *fakeFederatedStore) FederatedLogin(ctx context.Context, p store.FederatedLoginParams) (types.User, types.Session, error) {
	user, ok := f.users[p.Email]
	if !ok {
		f.nextID++
		user = &types.User{
			ID:       fmt.Sprintf("user-%d", f.nextID),
			Email:    p.Email,
			Name:     p.Name,
			Role:     types.RoleCustomer,
			Provider: p.Provider,
			Avatar:   p.Avatar,
		}
		f.users[p.Email] = user
	}
	user.IsEmailVerified = true
	if p.Avatar != "" {
		user.Avatar = p.Avatar
	}

	if user.IsBlocked {
		return types.User{}, types.Session{}, store.ErrBlocked
	}

	linkKey := user.ID + "/" + p.ProviderKey
	if _, ok := f.links[linkKey]; !ok {
		f.links[linkKey] = types.Account{
			ID:         fmt.Sprintf("account-%d", len(f.links)+1),
			UserID:     user.ID,
			AccountID:  p.ExternalID,
			ProviderID: p.ProviderKey,
		}
	}

	session := types.Session{
		ID:               fmt.Sprintf("session-%d", len(f.sessions)+1),
		UserID:           user.ID,
		RefreshTokenHash: p.RefreshTokenHash,
		TokenHash:        p.SessionTokenHash,
		ExpiresAt:        time.Now().Add(p.SessionTTL),
	}
	f.sessions = append(f.sessions, session)
	return *user, session, nil
}

func newGoogleFixture() (*GoogleAuthService, *fakeFederatedStore, *fakeVerifier) {
	accounts := newFakeFederatedStore()
	verifier := &fakeVerifier{profiles: map[string]GoogleProfile{
		"good-token": {Subject: "google-sub-1", Email: "g@example.com", Name: "G User", Picture: "https://img.example/p.png"},
	}}
	return NewGoogleAuthService(accounts, verifier, "test-secret"), accounts, verifier
}

func TestGoogleCallbackCreatesVerifiedUser(t *testing.T) {
	service, accounts, _ := newGoogleFixture()

	result, err := service.HandleCallback(context.Background(), "good-token", "agent", "127.0.0.1")
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("expected both tokens to be issued")
	}

	user := accounts.users["g@example.com"]
	if user == nil {
		t.Fatalf("expected user to be created")
	}
	if !user.IsEmailVerified {
		t.Fatalf("federated user must be email-verified")
	}
	if user.Role != types.RoleCustomer {
		t.Fatalf("expected CUSTOMER role, got %s", user.Role)
	}
}

func TestGoogleCallbackIsIdempotent(t *testing.T) {
	service, accounts, _ := newGoogleFixture()

	first, err := service.HandleCallback(context.Background(), "good-token", "agent", "127.0.0.1")
	if err != nil {
		t.Fatalf("first callback failed: %v", err)
	}
	second, err := service.HandleCallback(context.Background(), "good-token", "agent", "127.0.0.1")
	if err != nil {
		t.Fatalf("second callback failed: %v", err)
	}

	if len(accounts.users) != 1 {
		t.Fatalf("expected one user, got %d", len(accounts.users))
	}
	if len(accounts.links) != 1 {
		t.Fatalf("expected one account link, got %d", len(accounts.links))
	}
	if first.User.ID != second.User.ID {
		t.Fatalf("both callbacks must resolve the same user")
	}
	// Each callback still opens its own session.
	if len(accounts.sessions) != 2 {
		t.Fatalf("expected two sessions, got %d", len(accounts.sessions))
	}
}

func TestGoogleCallbackBlockedUser(t *testing.T) {
	service, accounts, _ := newGoogleFixture()

	if _, err := service.HandleCallback(context.Background(), "good-token", "agent", "127.0.0.1"); err != nil {
		t.Fatalf("setup callback failed: %v", err)
	}
	accounts.users["g@example.com"].IsBlocked = true

	_, err := service.HandleCallback(context.Background(), "good-token", "agent", "127.0.0.1")
	if !errors.Is(err, ErrAccountBlocked) {
		t.Fatalf("expected ErrAccountBlocked, got %v", err)
	}
}

func TestGoogleCallbackBadToken(t *testing.T) {
	service, _, _ := newGoogleFixture()

	_, err := service.HandleCallback(context.Background(), "forged", "agent", "127.0.0.1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestGoogleCallbackMissingEmail(t *testing.T) {
	service, _, verifier := newGoogleFixture()
	verifier.profiles["no-email"] = GoogleProfile{Subject: "sub-2"}

	_, err := service.HandleCallback(context.Background(), "no-email", "agent", "127.0.0.1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
