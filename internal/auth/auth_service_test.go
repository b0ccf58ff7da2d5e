package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"
)

func newTestService(t *testing.T) *AuthService {
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

	svc, err := NewAuthService(privPEM, pubPEM, 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)

	pair, err := svc.GenerateTokenPair(42, "alice")
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	claims, err := svc.ValidateToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if claims.UserID != 42 || claims.Handle != "alice" || claims.TokenType != "access" {
		t.Fatalf("unexpected access claims: %+v", claims)
	}

	claims, err = svc.ValidateToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
	if claims.TokenType != "refresh" || claims.ID == "" {
		t.Fatalf("unexpected refresh claims: %+v", claims)
	}
}

func TestValidateToken_Rejections(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.ValidateToken(""); err == nil {
		t.Fatal("empty token must fail")
	}
	if _, err := svc.ValidateToken("not.a.jwt"); err == nil {
		t.Fatal("garbage token must fail")
	}

	// A token signed with a different key is rejected.
	other := newTestService(t)
	pair, err := other.GenerateTokenPair(1, "bob")
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if _, err := svc.ValidateToken(pair.AccessToken); err == nil {
		t.Fatal("foreign signature must fail")
	}
}

func TestPasswordHashing(t *testing.T) {
	svc := newTestService(t)

	hash, err := svc.HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret-password" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !svc.CheckPasswordHash("s3cret-password", hash) {
		t.Fatal("correct password rejected")
	}
	if svc.CheckPasswordHash("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}
