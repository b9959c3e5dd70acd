package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"volunteerhub/internal/models"
)

const tokenIssuer = "volunteerhub"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenClaims represents the claims in the JWT token. The subject is the
// account id.
type TokenClaims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier issues and verifies HS256 tokens carrying an account id and role
type JWTVerifier struct {
	secret []byte
	expiry time.Duration
}

func NewJWTVerifier(secret string, expiry time.Duration) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is empty")
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &JWTVerifier{secret: []byte(secret), expiry: expiry}, nil
}

// GenerateToken creates a signed token for the actor
func (v *JWTVerifier) GenerateToken(actor models.Actor) (string, error) {
	if actor.ID == "" || !actor.Role.Valid() {
		return "", fmt.Errorf("cannot issue token for %q with role %q", actor.ID, actor.Role)
	}

	now := time.Now()
	claims := TokenClaims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(v.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   actor.ID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates the token and returns the actor it was issued for
func (v *JWTVerifier) Verify(ctx context.Context, raw string) (models.Actor, error) {
	token, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Actor{}, ErrExpiredToken
		}
		return models.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.Subject == "" || !claims.Role.Valid() {
		return models.Actor{}, ErrInvalidToken
	}
	return models.Actor{ID: claims.Subject, Role: claims.Role}, nil
}
