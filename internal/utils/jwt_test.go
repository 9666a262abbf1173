package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuniversity/auth-service/internal/domain"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func newTestManager(accessTTL, refreshTTL, leeway time.Duration) *JWTManager {
	return NewJWTManager(testSecret, accessTTL, refreshTTL, leeway)
}

func TestParseTokenRoundTrip(t *testing.T) {
	mgr := newTestManager(15*time.Minute, 7*24*time.Hour, 0)

	token, err := mgr.GenerateAccessToken("user-1", domain.RoleInstructor, "session-1")
	require.NoError(t, err)

	claims, err := mgr.ParseToken(token, domain.TokenKindAccess)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, domain.RoleInstructor, claims.Role)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, domain.TokenKindAccess, claims.Kind)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestParseTokenIsIdempotent(t *testing.T) {
	mgr := newTestManager(15*time.Minute, 7*24*time.Hour, 0)

	token, err := mgr.GenerateAccessToken("user-1", domain.RoleStudent, "session-1")
	require.NoError(t, err)

	first, err := mgr.ParseToken(token, domain.TokenKindAccess)
	require.NoError(t, err)
	second, err := mgr.ParseToken(token, domain.TokenKindAccess)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParseTokenKindMismatch(t *testing.T) {
	mgr := newTestManager(15*time.Minute, 7*24*time.Hour, 0)

	refresh, err := mgr.GenerateRefreshToken("user-1", "session-1")
	require.NoError(t, err)
	access, err := mgr.GenerateAccessToken("user-1", domain.RoleStudent, "session-1")
	require.NoError(t, err)

	_, err = mgr.ParseToken(refresh, domain.TokenKindAccess)
	assert.ErrorIs(t, err, domain.ErrTokenKindMismatch)

	_, err = mgr.ParseToken(access, domain.TokenKindRefresh)
	assert.ErrorIs(t, err, domain.ErrTokenKindMismatch)
}

func TestParseTokenExpired(t *testing.T) {
	// Negative TTL puts expires_at in the past at issue time
	mgr := newTestManager(-time.Second, -time.Second, 0)

	token, err := mgr.GenerateAccessToken("user-1", domain.RoleStudent, "session-1")
	require.NoError(t, err)

	_, err = mgr.ParseToken(token, domain.TokenKindAccess)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestParseTokenLeewayAbsorbsSkew(t *testing.T) {
	// Expired one second ago, but inside the five second leeway
	mgr := newTestManager(-time.Second, -time.Second, 5*time.Second)

	token, err := mgr.GenerateAccessToken("user-1", domain.RoleStudent, "session-1")
	require.NoError(t, err)

	claims, err := mgr.ParseToken(token, domain.TokenKindAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestParseTokenTampered(t *testing.T) {
	mgr := newTestManager(15*time.Minute, 7*24*time.Hour, 0)

	token, err := mgr.GenerateAccessToken("user-1", domain.RoleStudent, "session-1")
	require.NoError(t, err)

	// Flip a character in the payload segment
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = mgr.ParseToken(tampered, domain.TokenKindAccess)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestParseTokenWrongSecret(t *testing.T) {
	mgr := newTestManager(15*time.Minute, 7*24*time.Hour, 0)
	other := NewJWTManager("another-secret-key-that-is-32-characters!!", 15*time.Minute, 7*24*time.Hour, 0)

	token, err := other.GenerateAccessToken("user-1", domain.RoleStudent, "session-1")
	require.NoError(t, err)

	_, err = mgr.ParseToken(token, domain.TokenKindAccess)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestParseTokenGarbage(t *testing.T) {
	mgr := newTestManager(15*time.Minute, 7*24*time.Hour, 0)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := mgr.ParseToken(token, domain.TokenKindAccess)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid, "token %q", token)
	}
}
