package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tech-visit/backend/config"
	"tech-visit/backend/internal/dto"
	"tech-visit/backend/internal/model"
	"tech-visit/backend/internal/repository"
	"tech-visit/backend/internal/testutil"
	"tech-visit/backend/pkg/jwt"
)

// ── Mock 黑名单 ──

type mockBlacklist struct {
	mu   sync.Mutex
	jtis map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{jtis: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl > 0 {
		m.jtis[jti] = ttl
	}
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jtis[jti]
	return ok, nil
}

// ── 测试辅助 ──

func setupTestAuthService(t *testing.T) (AuthService, *repository.Repository, *jwt.Manager, *mockBlacklist) {
	t.Helper()
	repo, _ := testutil.NewRepository(t)
	jwtMgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:               "test-secret-0123456789",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTLDefault:  time.Hour,
		RefreshTokenTTLRemember: 24 * time.Hour,
	})
	bl := newMockBlacklist()
	return NewAuthService(repo, jwtMgr, bl, zap.NewNop()), repo, jwtMgr, bl
}

func createTestAdmin(t *testing.T, repo *repository.Repository, username, password string, active bool) *model.Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash 失败: %v", err)
	}
	admin := &model.Admin{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  username,
		Role:         model.RoleVolunteer,
		IsActive:     true,
	}
	if err := repo.Admin.Create(context.Background(), admin); err != nil {
		t.Fatalf("创建管理员失败: %v", err)
	}
	if !active {
		if err := repo.Admin.Deactivate(context.Background(), admin.ID, admin.ID); err != nil {
			t.Fatalf("停用管理员失败: %v", err)
		}
	}
	return admin
}

// ── Login 测试 ──

func TestAuthService_Login_Success(t *testing.T) {
	svc, repo, jwtMgr, _ := setupTestAuthService(t)
	admin := createTestAdmin(t, repo, "vera", "password123", true)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "vera", Password: "password123"})
	if err != nil {
		t.Fatalf("期望登录成功，实际错误: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("Token 不应为空")
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("ExpiresIn 错误: %d", resp.ExpiresIn)
	}
	if resp.Admin.ID != admin.ID || resp.Admin.LastLoginAt == nil {
		t.Errorf("管理员信息错误: %+v", resp.Admin)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 解析失败: %v", err)
	}
	if claims.AdminID != admin.ID || claims.Role != model.RoleVolunteer || claims.TokenType != jwt.TokenTypeAccess {
		t.Errorf("Claims 错误: %+v", claims)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, repo, _, _ := setupTestAuthService(t)
	createTestAdmin(t, repo, "vera", "password123", true)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "vera", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}

	_, err = svc.Login(context.Background(), &dto.LoginRequest{Username: "nobody", Password: "password123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("用户不存在时期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_Disabled(t *testing.T) {
	svc, repo, _, _ := setupTestAuthService(t)
	createTestAdmin(t, repo, "gone", "password123", false)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "gone", Password: "password123"})
	if !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("期望 ErrAccountDisabled，实际: %v", err)
	}
}

// ── Refresh / Logout 测试 ──

func TestAuthService_RefreshRotates(t *testing.T) {
	svc, repo, _, _ := setupTestAuthService(t)
	createTestAdmin(t, repo, "vera", "password123", true)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{Username: "vera", Password: "password123"})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("刷新失败: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("刷新后应签发新的 RefreshToken")
	}

	// 旧 Refresh Token 已被注销
	if _, err := svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("重复使用旧 RefreshToken 期望 ErrInvalidToken，实际: %v", err)
	}

	// Access Token 不能用于刷新
	if _, err := svc.Refresh(ctx, login.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("期望 ErrInvalidToken，实际: %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	svc, repo, jwtMgr, bl := setupTestAuthService(t)
	createTestAdmin(t, repo, "vera", "password123", true)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{Username: "vera", Password: "password123"})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	access, _ := jwtMgr.ParseToken(login.AccessToken)

	if err := svc.Logout(ctx, access.ID, access.Remaining(), login.RefreshToken); err != nil {
		t.Fatalf("注销失败: %v", err)
	}
	if ok, _ := bl.IsBlacklisted(ctx, access.ID); !ok {
		t.Error("AccessToken 应进入黑名单")
	}
	if _, err := svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("注销后 RefreshToken 应失效，实际: %v", err)
	}
}

// ── Me / ChangePassword 测试 ──

func TestAuthService_ChangePassword(t *testing.T) {
	svc, repo, _, _ := setupTestAuthService(t)
	admin := createTestAdmin(t, repo, "vera", "password123", true)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, admin.ID, &dto.ChangePasswordRequest{OldPassword: "nope", NewPassword: "newpassword1"})
	if !errors.Is(err, ErrOldPasswordWrong) {
		t.Errorf("期望 ErrOldPasswordWrong，实际: %v", err)
	}

	if err := svc.ChangePassword(ctx, admin.ID, &dto.ChangePasswordRequest{OldPassword: "password123", NewPassword: "newpassword1"}); err != nil {
		t.Fatalf("修改密码失败: %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Username: "vera", Password: "newpassword1"}); err != nil {
		t.Errorf("新密码应可登录: %v", err)
	}

	me, err := svc.Me(ctx, admin.ID)
	if err != nil || me.Username != "vera" {
		t.Errorf("Me 返回错误: %+v, %v", me, err)
	}
	if _, err := svc.Me(ctx, 9999); !errors.Is(err, ErrAdminNotFound) {
		t.Errorf("期望 ErrAdminNotFound，实际: %v", err)
	}
}
