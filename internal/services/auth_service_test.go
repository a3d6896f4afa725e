package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateDefaultAdmin(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(newTestDB(t))

	user, err := svc.Authenticate(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)

	_, err = svc.Authenticate(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "admin")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(newTestDB(t))
	secret := []byte("test-secret")

	user, err := svc.Authenticate(ctx, "admin", "admin")
	require.NoError(t, err)
	token, err := svc.GenerateToken(user, secret)
	require.NoError(t, err)

	claims, err := svc.ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "admin", claims.Username)

	_, err = svc.ParseToken(token, []byte("other"))
	assert.Error(t, err)
}
