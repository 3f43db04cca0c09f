package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmarkapp/docmark-server/internal/domain"
)

const testKeyHex = "707172737475767778797a7b7c7d7e7f808182838485868788898a8b8c8d8e8f"

func TestNewTokenServiceKeyValidation(t *testing.T) {
	_, err := NewTokenService("short", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService(strings.Repeat("zz", 32), time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService(testKeyHex, time.Hour)
	assert.NoError(t, err)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)

	user := &domain.User{ID: "usr-123", Email: "writer@example.com"}
	token, err := svc.GenerateSessionToken(user)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))

	claims, err := svc.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "usr-123", claims.UserID)
	assert.Equal(t, "writer@example.com", claims.Email)
	assert.Equal(t, "usr-123", claims.Subject)
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc, err := NewTokenService(testKeyHex, -time.Minute)
	require.NoError(t, err)

	token, err := svc.GenerateSessionToken(&domain.User{ID: "usr-123"})
	require.NoError(t, err)

	_, err = svc.VerifySessionToken(token)
	assert.Error(t, err)
}

func TestStateTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)

	state, err := svc.GenerateStateToken()
	require.NoError(t, err)
	assert.NoError(t, svc.VerifyStateToken(state))

	// A session token is not a valid state: wrong audience.
	session, err := svc.GenerateSessionToken(&domain.User{ID: "usr-123"})
	require.NoError(t, err)
	assert.Error(t, svc.VerifyStateToken(session))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc, err := NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)

	_, err = svc.VerifySessionToken("v4.local.not-a-real-token")
	assert.Error(t, err)
}
