package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
	ErrUnknownRole  = errors.New("unknown role")
	ErrNoSecret     = errors.New("token signing secret is not configured")
)

// JWTManager handles JWT token generation and validation.
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// Claims represents the custom JWT claims for a caller.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewJWTManager creates a new JWT manager with the given secret and token duration.
// secretKey should be a strong random string (e.g., 32 bytes).
// tokenDuration is how long tokens remain valid (e.g., 24 hours).
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// Generate creates a new JWT token for the given principal.
func (m *JWTManager) Generate(p Principal) (string, time.Time, error) {
	if len(m.secretKey) == 0 {
		return "", time.Time{}, ErrNoSecret
	}
	if p.Role != RoleAdmin && p.Role != RoleCollaborator {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrUnknownRole, p.Role)
	}

	now := time.Now()
	expires := now.Add(m.tokenDuration)
	claims := &Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expires, nil
}

// Validate parses and validates a JWT token, returning the caller if valid.
// With no secret configured every token is rejected.
func (m *JWTManager) Validate(tokenString string) (*Principal, error) {
	if len(m.secretKey) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrNoSecret)
	}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Principal{Subject: claims.Subject, Role: claims.Role}, nil
}
