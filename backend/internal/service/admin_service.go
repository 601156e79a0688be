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
	"tech-visit/backend/internal/policy"
	"tech-visit/backend/internal/repository"
)

// AdminService 管理员账号业务接口（仅系统管理员可调用）
type AdminService interface {
	Create(ctx context.Context, p policy.Principal, req *dto.CreateAdminRequest) (*dto.AdminResponse, error)
	GetByID(ctx context.Context, p policy.Principal, id int64) (*dto.AdminResponse, error)
	List(ctx context.Context, p policy.Principal, req *dto.AdminListRequest) ([]dto.AdminResponse, int64, error)
	Update(ctx context.Context, p policy.Principal, id int64, req *dto.UpdateAdminRequest) (*dto.AdminResponse, error)
	// Delete 软删除；仍有已分配请求或删除自己时拒绝
	Delete(ctx context.Context, p policy.Principal, id int64) error
}

type adminService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAdminService 创建 AdminService 实例
func NewAdminService(repo *repository.Repository, logger *zap.Logger) AdminService {
	return &adminService{repo: repo, logger: logger}
}

func (s *adminService) Create(ctx context.Context, p policy.Principal, req *dto.CreateAdminRequest) (*dto.AdminResponse, error) {
	if !policy.CanManageAdmins(p.Role) {
		return nil, ErrAdminForbidden
	}
	if !model.IsValidRole(req.Role) || req.Username == "" || len(req.Password) < 8 {
		return nil, ErrAdminInvalidInput
	}

	if _, err := s.repo.Admin.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询管理员失败", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}
	admin := &model.Admin{
		Username:     req.Username,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Email:        req.Email,
		Role:         req.Role,
		IsActive:     true,
	}
	if p.AdminID != 0 {
		admin.CreatedBy = &p.AdminID
		admin.UpdatedBy = &p.AdminID
	}

	if err := s.repo.Admin.Create(ctx, admin); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		s.logger.Error("创建管理员失败", zap.Error(err))
		return nil, err
	}

	return toAdminResponse(admin), nil
}

func (s *adminService) GetByID(ctx context.Context, p policy.Principal, id int64) (*dto.AdminResponse, error) {
	if !policy.CanManageAdmins(p.Role) {
		return nil, ErrAdminForbidden
	}
	admin, err := s.getAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAdminResponse(admin), nil
}

func (s *adminService) List(ctx context.Context, p policy.Principal, req *dto.AdminListRequest) ([]dto.AdminResponse, int64, error) {
	if !policy.CanManageAdmins(p.Role) {
		return nil, 0, ErrAdminForbidden
	}

	admins, total, err := s.repo.Admin.List(ctx, repository.AdminFilter{
		Role:       req.Role,
		ActiveOnly: req.ActiveOnly,
		Keyword:    req.Keyword,
	}, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询管理员列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.AdminResponse, 0, len(admins))
	for i := range admins {
		result = append(result, *toAdminResponse(&admins[i]))
	}
	return result, total, nil
}

func (s *adminService) Update(ctx context.Context, p policy.Principal, id int64, req *dto.UpdateAdminRequest) (*dto.AdminResponse, error) {
	if !policy.CanManageAdmins(p.Role) {
		return nil, ErrAdminForbidden
	}
	if req.Role != nil && !model.IsValidRole(*req.Role) {
		return nil, ErrAdminInvalidInput
	}

	if _, err := s.getAdmin(ctx, id); err != nil {
		return nil, err
	}

	// 停用与删除走同一套检查
	if req.IsActive != nil && !*req.IsActive {
		if err := s.checkDeactivate(ctx, p, id); err != nil {
			return nil, err
		}
	}

	fields := map[string]interface{}{
		"updated_by": p.AdminID,
		"updated_at": time.Now(),
	}
	if req.DisplayName != nil {
		fields["display_name"] = *req.DisplayName
	}
	if req.Email != nil {
		fields["email"] = *req.Email
	}
	if req.Role != nil {
		fields["role"] = *req.Role
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	if err := s.repo.Admin.Update(ctx, id, fields); err != nil {
		s.logger.Error("更新管理员失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	updated, err := s.getAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAdminResponse(updated), nil
}

func (s *adminService) Delete(ctx context.Context, p policy.Principal, id int64) error {
	if !policy.CanManageAdmins(p.Role) {
		return ErrAdminForbidden
	}
	if _, err := s.getAdmin(ctx, id); err != nil {
		return err
	}
	if err := s.checkDeactivate(ctx, p, id); err != nil {
		return err
	}

	if err := s.repo.Admin.Deactivate(ctx, id, p.AdminID); err != nil {
		s.logger.Error("停用管理员失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *adminService) getAdmin(ctx context.Context, id int64) (*model.Admin, error) {
	admin, err := s.repo.Admin.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		s.logger.Error("查询管理员失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return admin, nil
}

// checkDeactivate 不能停用自己；名下有任何请求（含已完成）时不能停用
func (s *adminService) checkDeactivate(ctx context.Context, p policy.Principal, id int64) error {
	if id == p.AdminID {
		return ErrAdminSelfDelete
	}
	n, err := s.repo.Request.CountByAssignee(ctx, id)
	if err != nil {
		s.logger.Error("统计已分配请求失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if n > 0 {
		return ErrAdminHasRequests
	}
	return nil
}

func toAdminResponse(admin *model.Admin) *dto.AdminResponse {
	resp := &dto.AdminResponse{
		ID:          admin.ID,
		Username:    admin.Username,
		DisplayName: admin.DisplayName,
		Email:       admin.Email,
		Role:        admin.Role,
		IsActive:    admin.IsActive,
		CreatedAt:   admin.CreatedAt.Format(timeLayout),
	}
	if admin.LastLoginAt != nil {
		at := admin.LastLoginAt.Format(timeLayout)
		resp.LastLoginAt = &at
	}
	return resp
}
