package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/models"
)

func TestCreateUserRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	users := NewUserService(gdb)
	auth := NewAuthService(gdb)

	admin, err := auth.Authenticate(ctx, "admin", "admin")
	require.NoError(t, err)

	op, err := users.CreateUser(ctx, admin.ID, models.UserRequest{Username: "trader", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "operator", op.Role)

	_, err = users.CreateUser(ctx, op.ID, models.UserRequest{Username: "other", Password: "secret1"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = users.CreateUser(ctx, admin.ID, models.UserRequest{Username: "short", Password: "x"})
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)

	_, err = auth.Authenticate(ctx, "trader", "secret1")
	assert.NoError(t, err)

	list, err := users.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	users := NewUserService(gdb)
	auth := NewAuthService(gdb)
	admin, err := auth.Authenticate(ctx, "admin", "admin")
	require.NoError(t, err)

	err = users.ChangePassword(ctx, admin.ID, models.PasswordRequest{CurrentPassword: "nope", NewPassword: "changed1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, users.ChangePassword(ctx, admin.ID, models.PasswordRequest{CurrentPassword: "admin", NewPassword: "changed1"}))
	_, err = auth.Authenticate(ctx, "admin", "changed1")
	assert.NoError(t, err)

	_, err = users.GetUser(ctx, 999)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
