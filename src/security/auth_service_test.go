package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewAuthService("test-secret-at-least-32-bytes-long!!")

	access, err := svc.GenerateAccessToken(42, time.Minute)
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken(42, time.Minute)
	require.NoError(t, err)

	sub, err := svc.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "42", sub)

	sub, err = svc.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "42", sub)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	svc := NewAuthService("test-secret-at-least-32-bytes-long!!")

	access, err := svc.GenerateAccessToken(42, time.Minute)
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken(42, time.Minute)
	require.NoError(t, err)

	// A refresh token must not pass where an access token is expected,
	// and the other way around.
	_, err = svc.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredAndForeignTokens(t *testing.T) {
	svc := NewAuthService("test-secret-at-least-32-bytes-long!!")

	expired, err := svc.GenerateAccessToken(42, -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewAuthService("another-secret-also-32-bytes-long!!!")
	foreign, err := other.GenerateAccessToken(42, time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
