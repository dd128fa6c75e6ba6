package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	before := time.Now()
	token, err := IssueAccessToken("42", "deckard", "access-secret", 10*time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, "access-secret")
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "deckard", claims.Username)
	require.False(t, claims.ExpiresAt.Before(before))
	require.True(t, claims.ExpiresAt.Before(before.Add(11*time.Minute)))
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	token, err := IssueRefreshToken("42", "rot-abc", "refresh-secret", 7*24*time.Hour)
	require.NoError(t, err)

	claims, err := ParseRefreshToken(token, "refresh-secret")
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "rot-abc", claims.ID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := IssueAccessToken("42", "deckard", "access-secret", time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "other-secret")
	require.Error(t, err)

	// an access token must never verify as a refresh token
	_, err = ParseRefreshToken(token, "refresh-secret")
	require.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := IssueAccessToken("42", "deckard", "access-secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "access-secret")
	require.Error(t, err)
}

func TestParseRejectsUnexpectedSigningMethod(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "42"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAccessToken(raw, "access-secret")
	require.Error(t, err)
}
