package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/finwise/dataguard/internal/common"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	tok, err := GenerateToken("u-1", "user", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	actorID, actorType, err := ParseToken(tok, secret)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if actorID != "u-1" || actorType != "user" {
		t.Fatalf("claims mismatch: %q %q", actorID, actorType)
	}
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateToken("u-1", "user", secret, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	if _, _, err := ParseToken(tok, secret); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want common.ErrInvalidToken, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u-1", "admin", []byte("secret-a"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	if _, _, err := ParseToken(tok, []byte("secret-b")); err == nil {
		t.Fatalf("expected verification failure with wrong secret")
	}
}

func TestParseToken_Garbage(t *testing.T) {
	t.Parallel()

	if _, _, err := ParseToken("not.a.token", []byte("secret")); err == nil {
		t.Fatalf("expected parse failure")
	}
}
