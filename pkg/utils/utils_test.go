package utils

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$"))

	ok, err := VerifyPassword("correct horse battery", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong horse battery", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	a, err := HashPassword("same-password")
	require.NoError(t, err)
	b, err := HashPassword("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	for _, h := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$aa$bb", "$argon2id$v=19$m=x$aa$bb"} {
		_, err := VerifyPassword("pw", h)
		assert.ErrorIs(t, err, ErrInvalidHash, h)
	}
}

func TestValidateUsername(t *testing.T) {
	valid := []string{"sam", "night_owl_22", "A1b2C3", "  padded  "}
	for _, u := range valid {
		assert.NoError(t, ValidateUsername(u), u)
	}

	invalid := []string{"ab", "_hidden", "has space", "dash-name", "waytoolongusername_12345"}
	for _, u := range invalid {
		err := ValidateUsername(u)
		require.Error(t, err, u)
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
		assert.Equal(t, "username", ve.Field)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword("short"))
	assert.NoError(t, ValidatePassword("longenough"))
	assert.Error(t, ValidatePassword(strings.Repeat("x", 129)))
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "nightowl", NormalizeUsername("  NightOwl "))
}

func TestTrimToLength(t *testing.T) {
	assert.Equal(t, "héllo", TrimToLength("  héllo  ", 10))
	assert.Equal(t, "hé", TrimToLength("héllo", 2))
}
