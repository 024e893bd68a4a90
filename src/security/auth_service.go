package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService signs and validates the JWT access/refresh token pair.
type AuthService struct {
	jwtSecret []byte
}

func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{jwtSecret: []byte(jwtSecret)}
}

func (s *AuthService) generateToken(userID int64, tokenType string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        uuid.New().String(),
		Audience:  jwt.ClaimStrings{tokenType},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *AuthService) GenerateAccessToken(userID int64, expiry time.Duration) (string, error) {
	return s.generateToken(userID, "access", expiry)
}

func (s *AuthService) GenerateRefreshToken(userID int64, expiry time.Duration) (string, error) {
	return s.generateToken(userID, "refresh", expiry)
}

// ValidateAccessToken verifies an access token and returns the user ID
// subject as a string. A refresh token is rejected here.
func (s *AuthService) ValidateAccessToken(tokenString string) (string, error) {
	return s.validateToken(tokenString, "access")
}

// ValidateRefreshToken verifies a refresh token and returns the user ID
// subject as a string. An access token is rejected here.
func (s *AuthService) ValidateRefreshToken(tokenString string) (string, error) {
	return s.validateToken(tokenString, "refresh")
}

// The audience claim carries the token type, so the two token kinds are not
// interchangeable even before any session lookup.
func (s *AuthService) validateToken(tokenString, tokenType string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithAudience(tokenType))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
