package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := generateToken("secret", "admin", time.Minute)
	require.NoError(t, err)

	claims, err := parseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
}

func TestToken_WrongSecretRejected(t *testing.T) {
	token, err := generateToken("secret", "admin", time.Minute)
	require.NoError(t, err)

	_, err = parseToken("other", token)
	assert.Error(t, err)
}

func TestToken_ExpiredRejected(t *testing.T) {
	token, err := generateToken("secret", "admin", -time.Minute)
	require.NoError(t, err)

	_, err = parseToken("secret", token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	assert.True(t, checkPassword(hash, "hunter2"))
	assert.False(t, checkPassword(hash, "hunter3"))
}
