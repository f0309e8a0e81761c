package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/green-session-service/internal/models"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	clock := newFakeClock()
	m := NewAccessTokenManager(testJWTSecret, "issuer", time.Hour, clock.Now)

	token, expiresAt, err := m.Issue("user-1")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour), expiresAt)

	info, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", info.UserID)
	assert.NotEmpty(t, info.TokenID)
	assert.True(t, info.ExpiresAt.Equal(expiresAt))
}

func TestAccessTokenRejections(t *testing.T) {
	clock := newFakeClock()
	m := NewAccessTokenManager(testJWTSecret, "issuer", time.Hour, clock.Now)
	good, _, err := m.Issue("user-1")
	require.NoError(t, err)

	other := NewAccessTokenManager("another-secret-that-is-long-enough!!", "issuer", time.Hour, clock.Now)
	forged, _, err := other.Issue("user-1")
	require.NoError(t, err)

	wrongIssuer := NewAccessTokenManager(testJWTSecret, "someone-else", time.Hour, clock.Now)
	foreign, _, err := wrongIssuer.Issue("user-1")
	require.NoError(t, err)

	refreshTyped := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID: "user-1",
		Type:   "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "issuer",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	})
	wrongType, err := refreshTyped.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "issuer",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	})
	none, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-jwt",
		"forged":       forged,
		"wrong issuer": foreign,
		"wrong type":   wrongType,
		"alg none":     none,
	} {
		_, err := m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidAccessToken, name)
	}

	clock.Advance(time.Hour + time.Second)
	_, err = m.Validate(good)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}
