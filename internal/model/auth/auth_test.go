package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense-tracker/internal/model/customerr"
	"expense-tracker/internal/model/storage"
)

func Test_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemStorage())

	rec, err := svc.Register(ctx, "alice", "s3cret-pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Username)
	assert.NotEqual(t, "s3cret-pw", rec.PasswordHash)

	got, err := svc.Login(ctx, "alice", "s3cret-pw")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func Test_Login_WrongPassword(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemStorage())

	_, err := svc.Register(ctx, "alice", "s3cret-pw")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "not-the-password")
	assert.True(t, customerr.IsValidation(err))

	_, err = svc.Login(ctx, "nobody", "s3cret-pw")
	assert.True(t, customerr.IsValidation(err))
}

func Test_Register_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemStorage())

	_, err := svc.Register(ctx, "  ", "s3cret-pw")
	assert.True(t, customerr.IsValidation(err))

	_, err = svc.Register(ctx, "alice", "short")
	assert.True(t, customerr.IsValidation(err))

	_, err = svc.Register(ctx, "alice", "s3cret-pw")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "another-pw")
	assert.True(t, customerr.IsValidation(err))
}
