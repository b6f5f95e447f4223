package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.GenerateAccessToken("user-001", "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user-001", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "user-001", claims.Subject)
	assert.Equal(t, "readrate-server", claims.Issuer)
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)

	token, err := m.GenerateAccessToken("user-001", "alice@example.com")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	m := NewJWTManager("secret-a", time.Hour)
	other := NewJWTManager("secret-b", time.Hour)

	token, err := m.GenerateAccessToken("user-001", "alice@example.com")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTManager_GarbageToken(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	_, err := m.ValidateAccessToken("not.a.token")
	require.Error(t, err)
}
