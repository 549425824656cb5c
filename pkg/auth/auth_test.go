package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken(7, "admin")
	require.NoError(t, err)

	c, err := ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), c.UserID)
	assert.Equal(t, "admin", c.Role)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	ref, err := GenerateRefreshToken(3, "customer")
	require.NoError(t, err)

	_, err = ValidateToken(ref)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	access, err := Refresh(ref)
	require.NoError(t, err)
	c, err := ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(3), c.UserID)

	_, err = Refresh(access)
	assert.Error(t, err)
}

func TestTamperedTokenRejected(t *testing.T) {
	tok, err := GenerateToken(1, "customer")
	require.NoError(t, err)
	_, err = ValidateToken(tok + "x")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "secret123"))
	assert.False(t, CheckPassword(h, "secret124"))
	assert.False(t, CheckPassword("plain-text", "plain-text"))
}

func TestClaimsContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{UserID: 9, Role: "admin"})
	c, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(9), c.UserID)
}
