package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buscador-gpt/internal/pkg/jwtutil"
	"buscador-gpt/internal/repository"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	svc := NewAuthService(repository.NewUserRepository(newTestDB(t)), AuthOptions{
		JWTSecret:     "test-secret",
		JWTExpiration: time.Hour,
		EmailDomain:   "@iespecialidades.com",
		AdminEmails:   []string{"Admin@iespecialidades.com"},
	})
	svc.now = fixedNow(clock)
	return svc
}

func TestRegisterRestrictsEmailDomain(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "ana", Email: "ana@gmail.com", Password: "secreto123"})
	assert.ErrorIs(t, err, ErrEmailDomainNotAllowed)

	res, err := svc.Register(ctx, RegisterInput{Username: "ana", Email: " Ana@IESPECIALIDADES.com ", Password: "secreto123"})
	require.NoError(t, err)
	assert.Equal(t, "ana@iespecialidades.com", res.User.Email)
	assert.False(t, res.User.IsAdmin)

	claims, err := jwtutil.ParseToken("test-secret", res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, "ana@iespecialidades.com", claims.Email)

	_, err = svc.Register(ctx, RegisterInput{Username: "ana", Email: "otra@iespecialidades.com", Password: "secreto123"})
	assert.ErrorIs(t, err, ErrUsernameExists)
	_, err = svc.Register(ctx, RegisterInput{Username: "otra", Email: "ana@iespecialidades.com", Password: "secreto123"})
	assert.ErrorIs(t, err, ErrEmailExists)
	_, err = svc.Register(ctx, RegisterInput{Username: "corta", Email: "corta@iespecialidades.com", Password: "123"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginByEmailOrUsernameAppliesAdminList(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Username: "jefa", Email: "admin@iespecialidades.com", Password: "secreto123"})
	require.NoError(t, err)

	byEmail, err := svc.Login(ctx, LoginInput{Login: "ADMIN@iespecialidades.com", Password: "secreto123"})
	require.NoError(t, err)
	assert.True(t, byEmail.User.IsAdmin)

	claims, err := jwtutil.ParseToken("test-secret", byEmail.Token)
	require.NoError(t, err)
	assert.True(t, claims.Admin)

	byName, err := svc.Login(ctx, LoginInput{Login: "jefa", Password: "secreto123"})
	require.NoError(t, err)
	require.NotNil(t, byName.User.LastLoginAt)
	assert.True(t, byName.User.LastLoginAt.Equal(clock))

	_, err = svc.Login(ctx, LoginInput{Login: "jefa", Password: "incorrecta"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
	_, err = svc.Login(ctx, LoginInput{Login: "nadie", Password: "secreto123"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	stored, err := svc.GetUserByID(ctx, byName.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin)
}
