package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	userID := uuid.NewString()

	token, err := SignJWT("topsecret", userID, "homeowner", 60)
	require.NoError(t, err)

	claims, err := ParseJWT("topsecret", token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "homeowner", claims.Role)
}

func TestParseJWTRejectsBadTokens(t *testing.T) {
	token, err := SignJWT("topsecret", uuid.NewString(), "contractor", 60)
	require.NoError(t, err)

	_, err = ParseJWT("othersecret", token)
	assert.Error(t, err)

	_, err = ParseJWT("topsecret", "not-a-token")
	assert.Error(t, err)

	expired, err := SignJWT("topsecret", uuid.NewString(), "contractor", -1)
	require.NoError(t, err)
	_, err = ParseJWT("topsecret", expired)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword("", "hunter22"))
}
