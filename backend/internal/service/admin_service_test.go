package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tech-visit/backend/internal/dto"
	"tech-visit/backend/internal/model"
	"tech-visit/backend/internal/policy"
)

func TestAdminService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.admins.Create(ctx, env.rootP(), &dto.CreateAdminRequest{
		Username: "newvol",
		Password: "password123",
		Role:     model.RoleVolunteer,
	})
	require.NoError(t, err)
	assert.Equal(t, "newvol", resp.DisplayName, "未填显示名时使用用户名")
	assert.True(t, resp.IsActive)

	stored, err := env.repo.Admin.GetByUsername(ctx, "newvol")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")))

	_, err = env.admins.Create(ctx, env.rootP(), &dto.CreateAdminRequest{Username: "newvol", Password: "password123", Role: model.RoleVolunteer})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = env.admins.Create(ctx, env.volP(), &dto.CreateAdminRequest{Username: "x1", Password: "password123", Role: model.RoleVolunteer})
	assert.ErrorIs(t, err, ErrAdminForbidden)

	_, err = env.admins.Create(ctx, env.rootP(), &dto.CreateAdminRequest{Username: "x2", Password: "password123", Role: "OWNER"})
	assert.ErrorIs(t, err, ErrAdminInvalidInput)
}

func TestAdminService_DeleteRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := seedRequest(t, env.repo, "Ann")
	_, err := env.requests.Take(ctx, req.ID, env.volP(), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, env.admins.Delete(ctx, env.rootP(), env.volunteer.ID), ErrAdminHasRequests)
	assert.ErrorIs(t, env.admins.Delete(ctx, env.rootP(), env.root.ID), ErrAdminSelfDelete)
	assert.ErrorIs(t, env.admins.Delete(ctx, env.rootP(), 9999), ErrAdminNotFound)
	assert.ErrorIs(t, env.admins.Delete(ctx, env.volP(), env.other.ID), ErrAdminForbidden)

	require.NoError(t, env.admins.Delete(ctx, env.rootP(), env.other.ID))
	got, err := env.admins.GetByID(ctx, env.rootP(), env.other.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive, "软删除只停用账号")
}

func TestAdminService_CompletedRequestsStillBlockDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := seedRequest(t, env.repo, "Ann")
	_, err := env.requests.Take(ctx, req.ID, env.volP(), nil)
	require.NoError(t, err)
	_, err = env.requests.UpdateStatus(ctx, req.ID, env.volP(), model.StatusCompleted)
	require.NoError(t, err)

	assert.ErrorIs(t, env.admins.Delete(ctx, env.rootP(), env.volunteer.ID), ErrAdminHasRequests)
}

func TestAdminService_UpdateAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	name := "Vera V."
	role := model.RoleSystemAdmin
	resp, err := env.admins.Update(ctx, env.rootP(), env.volunteer.ID, &dto.UpdateAdminRequest{DisplayName: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "Vera V.", resp.DisplayName)
	assert.Equal(t, model.RoleSystemAdmin, resp.Role)

	inactive := false
	_, err = env.admins.Update(ctx, env.rootP(), env.root.ID, &dto.UpdateAdminRequest{IsActive: &inactive})
	assert.ErrorIs(t, err, ErrAdminSelfDelete, "停用走同一套检查")

	list, total, err := env.admins.List(ctx, env.rootP(), &dto.AdminListRequest{Role: model.RoleVolunteer})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "otto", list[0].Username)

	_, _, err = env.admins.List(ctx, policy.Principal{AdminID: env.other.ID, Role: model.RoleVolunteer}, &dto.AdminListRequest{})
	assert.ErrorIs(t, err, ErrAdminForbidden)
}
