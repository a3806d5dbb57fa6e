package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"
)

func newTestService(t *testing.T, accessTTL, refreshTTL time.Duration) *AuthService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	svc, err := NewAuthService(privPEM, pubPEM, accessTTL, refreshTTL)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

func TestTokenPairRoundTrip(t *testing.T) {
	svc := newTestService(t, 15*time.Minute, 24*time.Hour)

	pair, err := svc.GenerateTokenPair(42)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	access, err := svc.ValidateToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if access.AccountID != 42 || access.TokenType != "access" {
		t.Fatalf("access claims: %+v", access)
	}

	refresh, err := svc.ValidateToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
	if refresh.AccountID != 42 || refresh.TokenType != "refresh" {
		t.Fatalf("refresh claims: %+v", refresh)
	}
	if refresh.ID == "" {
		t.Fatal("refresh token needs a jti for revocation")
	}
	if access.ID != "" {
		t.Fatal("access token must not carry a jti")
	}
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	svc := newTestService(t, -time.Minute, -time.Minute)
	pair, err := svc.GenerateTokenPair(1)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if _, err := svc.ValidateToken(pair.AccessToken); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestValidateToken_RejectsForeignKey(t *testing.T) {
	issuer := newTestService(t, time.Minute, time.Hour)
	verifier := newTestService(t, time.Minute, time.Hour)

	pair, err := issuer.GenerateTokenPair(1)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if _, err := verifier.ValidateToken(pair.AccessToken); err == nil {
		t.Fatal("token signed by a different key must be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPasswordHash("correct horse battery staple", hash) {
		t.Fatal("matching password rejected")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}
