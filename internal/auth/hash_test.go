package auth

import "testing"

func TestHashSecretRoundTrip(t *testing.T) {
	digest, err := HashSecret("Secret1!")
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	if digest == "Secret1!" {
		t.Fatalf("digest must not equal plaintext")
	}
	if !VerifySecret("Secret1!", digest) {
		t.Fatalf("expected digest to verify against original secret")
	}
	if VerifySecret("Secret2!", digest) {
		t.Fatalf("expected wrong secret to fail verification")
	}
}

func TestHashSecretSalted(t *testing.T) {
	first, err := HashSecret("same-input")
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	second, err := HashSecret("same-input")
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	if first == second {
		t.Fatalf("bcrypt digests of the same input must differ (salt)")
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	raw, err := NewOpaqueToken()
	if err != nil {
		t.Fatalf("new opaque token: %v", err)
	}
	if HashToken(raw) != HashToken(raw) {
		t.Fatalf("token digest must be deterministic")
	}
	if len(HashToken(raw)) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(HashToken(raw)))
	}

	other, err := NewOpaqueToken()
	if err != nil {
		t.Fatalf("new opaque token: %v", err)
	}
	if HashToken(raw) == HashToken(other) {
		t.Fatalf("distinct tokens produced colliding digests")
	}
}
