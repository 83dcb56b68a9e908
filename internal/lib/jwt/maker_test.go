package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMaker_GenerateAndParseToken(t *testing.T) {
	maker := NewJWTMaker("test_secret_key_1234567890", time.Minute)

	token, err := maker.GenerateToken("admin", "admin", "uid-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := maker.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "uid-123", claims.UserUID)
}

func TestJWTMaker_ParseToken_Expired(t *testing.T) {
	maker := NewJWTMaker("test_secret_key_1234567890", -time.Minute)

	token, err := maker.GenerateToken("user", "user", "uid-456")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	assert.Error(t, err)
}

func TestJWTMaker_ParseToken_WrongSecret(t *testing.T) {
	maker := NewJWTMaker("secret-a", time.Minute)
	other := NewJWTMaker("secret-b", time.Minute)

	token, err := maker.GenerateToken("user", "user", "uid-789")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}
