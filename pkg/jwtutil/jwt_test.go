package jwtutil

import (
	"testing"

	"github.com/Aik0o1/cashback-system/pkg/config"
)

func TestGenerateAndValidateToken(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	token, err := GenerateToken("maria@store.test", 7, KindMerchant)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a signed token")
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Email != "maria@store.test" {
		t.Errorf("expected email maria@store.test, got %s", claims.Email)
	}
	if claims.AccountID != 7 {
		t.Errorf("expected account id 7, got %d", claims.AccountID)
	}
	if claims.AccountKind != KindMerchant {
		t.Errorf("expected kind merchant, got %s", claims.AccountKind)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Error("expected an error for a malformed token")
	}
}

func TestValidateToken_WrongKey(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "first-key", ExpirationHours: 1})
	token, err := GenerateToken("joao@user.test", 1, KindUser)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	Initialize(&config.JWTConfig{SigningKey: "second-key", ExpirationHours: 1})
	if _, err := ValidateToken(token); err == nil {
		t.Error("expected an error for a token signed with another key")
	}
}
