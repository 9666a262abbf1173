package domain

import "time"

// TokenKind distinguishes the two token flavors. An access token is the
// short-lived bearer credential; a refresh token only ever buys new access
// tokens and is bound to a session row.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims is the codec-agnostic view of a verified token
type TokenClaims struct {
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	SessionID string    `json:"session_id"`
	Kind      TokenKind `json:"kind"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}
