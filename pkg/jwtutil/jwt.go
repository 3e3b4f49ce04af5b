package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/Aik0o1/cashback-system/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

// Account kinds carried in session tokens.
const (
	KindUser     = "user"
	KindMerchant = "merchant"
	KindAdmin    = "admin"
)

var (
	signingKey      []byte
	expirationHours = 1

	errNotInitialized = errors.New("jwt utility not initialized")
)

// AccountClaims represents the JWT claims for an authenticated account
type AccountClaims struct {
	Email       string `json:"email"`
	AccountID   uint   `json:"account_id"`
	AccountKind string `json:"account_kind"`
	jwt.RegisteredClaims
}

// Initialize configures the signing key and token lifetime
func Initialize(cfg *config.JWTConfig) {
	signingKey = []byte(cfg.SigningKey)
	if cfg.ExpirationHours > 0 {
		expirationHours = cfg.ExpirationHours
	}
}

// GenerateToken creates a signed session token for an account
func GenerateToken(email string, accountID uint, accountKind string) (string, error) {
	if len(signingKey) == 0 {
		return "", errNotInitialized
	}

	claims := AccountClaims{
		Email:       email,
		AccountID:   accountID,
		AccountKind: accountKind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey)
}

// ValidateToken validates and parses a session token
func ValidateToken(tokenString string) (*AccountClaims, error) {
	if len(signingKey) == 0 {
		return nil, errNotInitialized
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&AccountClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return signingKey, nil
		},
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AccountClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
