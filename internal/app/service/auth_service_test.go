package service

import (
	"context"
	"testing"
	"time"

	"cparena/internal/common"
	"cparena/internal/common/security"
	"cparena/internal/domain/model"
	"cparena/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestJWT(t *testing.T) {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour}
	security.InitJWT()
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	initTestJWT(t)

	t.Run("signup then login by email or username", func(t *testing.T) {
		svc := NewAuthService(newFakeMemberRepo())

		res, err := svc.Signup(ctx, SignupRequest{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, model.RoleMember, res.Member.Role)
		assert.Empty(t, res.Member.HashedPassword)

		for _, login := range []string{"alice@example.com", "alice"} {
			res, err := svc.Login(ctx, LoginRequest{LoginField: login, Password: "hunter22"})
			require.NoError(t, err, "login with %q", login)
			assert.Equal(t, "alice", res.Member.Username)
			assert.NotEmpty(t, res.Token)
		}
	})

	t.Run("rejects duplicate usernames", func(t *testing.T) {
		svc := NewAuthService(newFakeMemberRepo())
		_, err := svc.Signup(ctx, SignupRequest{Username: "alice", Email: "alice@example.com", Password: "pw"})
		require.NoError(t, err)
		_, err = svc.Signup(ctx, SignupRequest{Username: "alice", Email: "other@example.com", Password: "pw"})
		assert.ErrorIs(t, err, common.ErrConflict)
	})

	t.Run("rejects a wrong password without detail", func(t *testing.T) {
		svc := NewAuthService(newFakeMemberRepo())
		_, err := svc.Signup(ctx, SignupRequest{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
		require.NoError(t, err)

		_, err = svc.Login(ctx, LoginRequest{LoginField: "alice", Password: "wrong"})
		assert.ErrorIs(t, err, common.ErrUnauthorized)
		_, err = svc.Login(ctx, LoginRequest{LoginField: "nobody", Password: "wrong"})
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})

	t.Run("rejects incomplete requests", func(t *testing.T) {
		svc := NewAuthService(newFakeMemberRepo())
		_, err := svc.Signup(ctx, SignupRequest{Username: "alice"})
		assert.ErrorIs(t, err, common.ErrBadRequest)
		_, err = svc.Login(ctx, LoginRequest{LoginField: "alice"})
		assert.ErrorIs(t, err, common.ErrBadRequest)
	})
}

func TestAssignRole(t *testing.T) {
	ctx := context.Background()
	initTestJWT(t)

	repo := newFakeMemberRepo()
	svc := NewAuthService(repo)
	res, err := svc.Signup(ctx, SignupRequest{Username: "olga", Email: "olga@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(ctx, res.Member.ID, model.RoleOrganizer))
	m, err := repo.FindByID(ctx, res.Member.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOrganizer, m.Role)

	assert.ErrorIs(t, svc.AssignRole(ctx, res.Member.ID, "superuser"), common.ErrValidation)
}
