package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/xuniversity/auth-service/internal/domain"
)

// jwtClaims is the wire shape of both token kinds. kind keeps access and
// refresh tokens from standing in for each other; sid binds every token to
// the session that minted it.
type jwtClaims struct {
	Kind string `json:"kind"`
	Role string `json:"role,omitempty"`
	Sid  string `json:"sid"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies the service's tokens
type JWTManager struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	leeway             time.Duration
}

// NewJWTManager creates a new JWT manager. leeway widens expiry checks to
// absorb clock skew between instances.
func NewJWTManager(secret string, accessTokenExpiry, refreshTokenExpiry, leeway time.Duration) *JWTManager {
	return &JWTManager{
		secret:             []byte(secret),
		accessTokenExpiry:  accessTokenExpiry,
		refreshTokenExpiry: refreshTokenExpiry,
		leeway:             leeway,
	}
}

// GenerateAccessToken generates a new access token for the user and session
func (j *JWTManager) GenerateAccessToken(userID string, role domain.Role, sessionID string) (string, error) {
	return j.generate(domain.TokenKindAccess, userID, string(role), sessionID, j.accessTokenExpiry)
}

// GenerateRefreshToken generates a new refresh token bound to the session
func (j *JWTManager) GenerateRefreshToken(userID, sessionID string) (string, error) {
	return j.generate(domain.TokenKindRefresh, userID, "", sessionID, j.refreshTokenExpiry)
}

func (j *JWTManager) generate(kind domain.TokenKind, userID, role, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		Kind: string(kind),
		Role: role,
		Sid:  sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

// ParseToken verifies the token and requires it to be of the given kind.
// Failures map onto exactly one of domain.ErrTokenExpired,
// domain.ErrTokenKindMismatch and domain.ErrTokenInvalid; parser internals
// never reach the caller.
func (j *JWTManager) ParseToken(tokenString string, kind domain.TokenKind) (*domain.TokenClaims, error) {
	var claims jwtClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithLeeway(j.leeway), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	if claims.Kind != string(kind) {
		return nil, domain.ErrTokenKindMismatch
	}
	if claims.Subject == "" || claims.Sid == "" {
		return nil, domain.ErrTokenInvalid
	}

	out := &domain.TokenClaims{
		UserID:    claims.Subject,
		Role:      domain.Role(claims.Role),
		SessionID: claims.Sid,
		Kind:      kind,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// GetAccessTokenExpiry returns the access token expiry duration in seconds
func (j *JWTManager) GetAccessTokenExpiry() int {
	return int(j.accessTokenExpiry.Seconds())
}

// GetRefreshTokenExpiry returns the refresh token lifetime; sessions are
// created with the same horizon
func (j *JWTManager) GetRefreshTokenExpiry() time.Duration {
	return j.refreshTokenExpiry
}
