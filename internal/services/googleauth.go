package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/storefront/apiserver/internal/auth"
	"github.com/storefront/apiserver/internal/store"
	"github.com/storefront/apiserver/types"
)

const googleProviderKey = "google"

// GoogleProfile is the subset of the verified ID token the login flow
// needs.
type GoogleProfile struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// TokenVerifier validates a Google ID token and extracts the profile.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (GoogleProfile, error)
}

// FederatedStore persists a federated login as a single atomic write.
type FederatedStore interface {
	FederatedLogin(ctx context.Context, p store.FederatedLoginParams) (types.User, types.Session, error)
}

// GoogleAuthService bridges Google sign-in onto local users and
// sessions.
type GoogleAuthService struct {
	accounts FederatedStore
	verifier TokenVerifier

	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewGoogleAuthService(accounts FederatedStore, verifier TokenVerifier, jwtSecret string) *GoogleAuthService {
	return &GoogleAuthService{
		accounts:   accounts,
		verifier:   verifier,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
}

// SetTokenTTLs overrides the default access/refresh lifetimes.
func (s *GoogleAuthService) SetTokenTTLs(accessTTL, refreshTTL time.Duration) {
	if accessTTL > 0 {
		s.accessTTL = accessTTL
	}
	if refreshTTL > 0 {
		s.refreshTTL = refreshTTL
	}
}

// HandleCallback verifies the ID token and reconciles the Google
// identity with a local account. The database work is one transaction;
// only the access-token signing happens outside it, so a signing
// failure can strand a session row but never a partial user or link.
// Running the same callback twice yields one user and one account link.
func (s *GoogleAuthService) HandleCallback(ctx context.Context, idToken, userAgent, ipAddress string) (AuthResult, error) {
	profile, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if profile.Email == "" || profile.Subject == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	refreshToken, err := auth.NewOpaqueToken()
	if err != nil {
		return AuthResult{}, err
	}
	sessionToken, err := auth.NewOpaqueToken()
	if err != nil {
		return AuthResult{}, err
	}

	user, _, err := s.accounts.FederatedLogin(ctx, store.FederatedLoginParams{
		Provider:         types.ProviderGoogle,
		ProviderKey:      googleProviderKey,
		ExternalID:       profile.Subject,
		Email:            profile.Email,
		Name:             profile.Name,
		Avatar:           profile.Picture,
		RefreshTokenHash: auth.HashToken(refreshToken),
		SessionTokenHash: auth.HashToken(sessionToken),
		UserAgent:        userAgent,
		IPAddress:        ipAddress,
		SessionTTL:       s.refreshTTL,
	})
	if err != nil {
		if errors.Is(err, store.ErrBlocked) {
			return AuthResult{}, ErrAccountBlocked
		}
		return AuthResult{}, err
	}

	accessToken, err := auth.SignAccessToken(auth.Claims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
	}, s.jwtSecret, s.accessTTL)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Summary(),
	}, nil
}

// GoogleTokenVerifier validates ID tokens against Google's public keys.
type GoogleTokenVerifier struct {
	clientID string
}

func NewGoogleTokenVerifier(clientID string) *GoogleTokenVerifier {
	return &GoogleTokenVerifier{clientID: clientID}
}

func (v *GoogleTokenVerifier) Verify(ctx context.Context, idToken string) (GoogleProfile, error) {
	payload, err := idtoken.Validate(ctx, idToken, v.clientID)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("validate id token: %w", err)
	}

	profile := GoogleProfile{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		profile.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		profile.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		profile.Picture = picture
	}
	return profile, nil
}
