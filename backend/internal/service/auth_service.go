package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tech-visit/backend/internal/dto"
	"tech-visit/backend/internal/model"
	"tech-visit/backend/internal/repository"
	"tech-visit/backend/pkg/jwt"
)

// TokenBlacklist Token 黑名单（*redis.Client 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Refresh 刷新 Token 对；旧 Refresh Token 加入黑名单
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout 注销当前 Access Token，可选一并注销 Refresh Token
	Logout(ctx context.Context, accessJTI string, accessTTL time.Duration, refreshToken string) error
	Me(ctx context.Context, adminID int64) (*dto.AdminResponse, error)
	ChangePassword(ctx context.Context, adminID int64, req *dto.ChangePasswordRequest) error
}

type authService struct {
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例；blacklist 为 nil 时注销只在客户端生效
func NewAuthService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询管理员
	admin, err := s.repo.Admin.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询管理员失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !admin.IsActive {
		return nil, ErrAccountDisabled
	}

	// 3. 记录登录时间，失败不影响登录
	now := time.Now()
	if err := s.repo.Admin.TouchLogin(ctx, admin.ID, now); err != nil {
		s.logger.Warn("更新最后登录时间失败", zap.Int64("admin_id", admin.ID), zap.Error(err))
	} else {
		admin.LastLoginAt = &now
	}

	// 4. 生成 Token 对
	return s.issueTokens(admin, req.RememberMe)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Error("查询 Token 黑名单失败", zap.Error(err))
			return nil, err
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}

	admin, err := s.repo.Admin.GetByID(ctx, claims.AdminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		s.logger.Error("查询管理员失败", zap.Error(err))
		return nil, err
	}
	if !admin.IsActive {
		return nil, ErrAccountDisabled
	}

	if s.blacklist != nil {
		if err := s.blacklist.BlacklistToken(ctx, claims.ID, claims.Remaining()); err != nil {
			s.logger.Error("注销旧 RefreshToken 失败", zap.Error(err))
			return nil, err
		}
	}

	return s.issueTokens(admin, claims.RememberMe)
}

func (s *authService) Logout(ctx context.Context, accessJTI string, accessTTL time.Duration, refreshToken string) error {
	if s.blacklist == nil {
		return nil
	}

	if err := s.blacklist.BlacklistToken(ctx, accessJTI, accessTTL); err != nil {
		s.logger.Error("注销 AccessToken 失败", zap.Error(err))
		return err
	}

	if refreshToken == "" {
		return nil
	}
	// 无效的 Refresh Token 直接忽略
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, claims.Remaining()); err != nil {
		s.logger.Error("注销 RefreshToken 失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) Me(ctx context.Context, adminID int64) (*dto.AdminResponse, error) {
	admin, err := s.repo.Admin.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		s.logger.Error("查询管理员失败", zap.Int64("admin_id", adminID), zap.Error(err))
		return nil, err
	}
	return toAdminResponse(admin), nil
}

func (s *authService) ChangePassword(ctx context.Context, adminID int64, req *dto.ChangePasswordRequest) error {
	admin, err := s.repo.Admin.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdminNotFound
		}
		s.logger.Error("查询管理员失败", zap.Int64("admin_id", adminID), zap.Error(err))
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrOldPasswordWrong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}

	return s.repo.Admin.Update(ctx, adminID, map[string]interface{}{
		"password_hash": string(hash),
		"updated_by":    adminID,
		"updated_at":    time.Now(),
	})
}

// ── 内部辅助方法 ──

func (s *authService) issueTokens(admin *model.Admin, rememberMe bool) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(admin.ID, admin.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(admin.ID, admin.Role, rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		Admin:        *toAdminResponse(admin),
	}, nil
}
