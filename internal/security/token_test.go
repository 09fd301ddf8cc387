package security

import (
	"errors"
	"testing"
	"time"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	token, errGen := GenerateAdminToken("secret", 7, "root", time.Minute)
	if errGen != nil {
		t.Fatalf("GenerateAdminToken: %v", errGen)
	}

	claims, errParse := ParseAdminToken("secret", token)
	if errParse != nil {
		t.Fatalf("ParseAdminToken: %v", errParse)
	}
	if claims.AdminID != 7 || claims.Username != "root" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseAdminTokenWrongSecret(t *testing.T) {
	token, errGen := GenerateAdminToken("secret", 7, "root", time.Minute)
	if errGen != nil {
		t.Fatalf("GenerateAdminToken: %v", errGen)
	}
	if _, err := ParseAdminToken("other", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseAdminTokenExpired(t *testing.T) {
	token, errGen := GenerateAdminToken("secret", 7, "root", -time.Minute)
	if errGen != nil {
		t.Fatalf("GenerateAdminToken: %v", errGen)
	}
	if _, err := ParseAdminToken("secret", token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestPasswordHashAndCheck(t *testing.T) {
	hash, errHash := HashPassword("hunter2!")
	if errHash != nil {
		t.Fatalf("HashPassword: %v", errHash)
	}
	if !CheckPassword(hash, "hunter2!") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "hunter3!") {
		t.Fatal("wrong password accepted")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestGenerateSigningSecret(t *testing.T) {
	first, errFirst := GenerateSigningSecret()
	if errFirst != nil {
		t.Fatalf("GenerateSigningSecret: %v", errFirst)
	}
	second, errSecond := GenerateSigningSecret()
	if errSecond != nil {
		t.Fatalf("GenerateSigningSecret: %v", errSecond)
	}
	if len(first) != 64 {
		t.Fatalf("secret length %d, want 64 hex chars", len(first))
	}
	if first == second {
		t.Fatal("two generated secrets are identical")
	}
}
