package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("Str0ngPass!", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, CheckPasswordHash("Str0ngPass!", hash))
	assert.False(t, CheckPasswordHash("Str0ngPass?", hash))
	assert.False(t, CheckPasswordHash("", hash))
}

func TestHashPasswordSaltsIndependently(t *testing.T) {
	first, err := HashPassword("Str0ngPass!", bcrypt.MinCost)
	require.NoError(t, err)
	second, err := HashPassword("Str0ngPass!", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, CheckPasswordHash("Str0ngPass!", first))
	assert.True(t, CheckPasswordHash("Str0ngPass!", second))
}

func TestCheckPasswordHashMalformedHash(t *testing.T) {
	for _, hash := range []string{"", "not-a-bcrypt-hash", "$2a$xx$garbage"} {
		assert.False(t, CheckPasswordHash("Str0ngPass!", hash), "hash %q", hash)
	}
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("alice@example.com"))
	assert.True(t, ValidateEmail("alice+tag@sub.example.co.uk"))
	assert.False(t, ValidateEmail("alice"))
	assert.False(t, ValidateEmail("alice@"))
	assert.False(t, ValidateEmail("@example.com"))
}

func TestSanitizeEmail(t *testing.T) {
	assert.Equal(t, "bob@example.com", SanitizeEmail("  BOB@Example.com "))
	assert.Equal(t, "bob@example.com", SanitizeEmail("bob@example.com"))
}
