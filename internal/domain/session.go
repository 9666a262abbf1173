package domain

import "time"

// Session represents one refresh-token lifetime for a user on one device.
// Only a SHA-256 hash of the refresh token is stored; the raw token exists
// solely on the client.
type Session struct {
	ID               string     `json:"id" db:"id"`
	UserID           string     `json:"user_id" db:"user_id"`
	RefreshTokenHash string     `json:"-" db:"refresh_token_hash"`
	UserAgent        *string    `json:"user_agent" db:"user_agent"`
	IPAddress        *string    `json:"ip_address" db:"ip_address"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	LastAccessedAt   time.Time  `json:"last_accessed_at" db:"last_accessed_at"`
	ExpiresAt        time.Time  `json:"expires_at" db:"expires_at"`
	IsActive         bool       `json:"is_active" db:"is_active"`
	RevokedAt        *time.Time `json:"-" db:"revoked_at"`
}

// Usable reports whether the session can still authenticate a refresh at
// the given instant. Persistence-level lookups apply the same condition in
// SQL; this mirrors it for in-memory checks.
func (s Session) Usable(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}
