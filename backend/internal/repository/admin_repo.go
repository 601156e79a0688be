package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tech-visit/backend/internal/model"
)

// AdminFilter 管理员列表筛选条件
type AdminFilter struct {
	Role       string
	ActiveOnly bool
	Keyword    string
}

// AdminRepository 管理员数据访问接口
type AdminRepository interface {
	Create(ctx context.Context, admin *model.Admin) error
	GetByID(ctx context.Context, id int64) (*model.Admin, error)
	GetByUsername(ctx context.Context, username string) (*model.Admin, error)
	List(ctx context.Context, filter AdminFilter, offset, limit int) ([]model.Admin, int64, error)
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	Deactivate(ctx context.Context, id int64, operatorID int64) error
	TouchLogin(ctx context.Context, id int64, at time.Time) error
}

// adminRepo AdminRepository 的 GORM 实现
type adminRepo struct {
	db *gorm.DB
}

// NewAdminRepo 创建 AdminRepository 实例
func NewAdminRepo(db *gorm.DB) AdminRepository {
	return &adminRepo{db: db}
}

func (r *adminRepo) Create(ctx context.Context, admin *model.Admin) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

func (r *adminRepo) GetByID(ctx context.Context, id int64) (*model.Admin, error) {
	var admin model.Admin
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *adminRepo) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	var admin model.Admin
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *adminRepo) List(ctx context.Context, filter AdminFilter, offset, limit int) ([]model.Admin, int64, error) {
	var admins []model.Admin
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Admin{})
	if filter.Role != "" {
		db = db.Where("role = ?", filter.Role)
	}
	if filter.ActiveOnly {
		db = db.Where("is_active = ?", true)
	}
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		db = db.Where("(username LIKE ? OR display_name LIKE ?)", like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("id ASC").
		Find(&admins).Error; err != nil {
		return nil, 0, err
	}

	return admins, total, nil
}

func (r *adminRepo) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.Admin{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Deactivate 软删除：is_active=false
func (r *adminRepo) Deactivate(ctx context.Context, id int64, operatorID int64) error {
	return r.Update(ctx, id, map[string]interface{}{
		"is_active":  false,
		"updated_by": operatorID,
		"updated_at": time.Now(),
	})
}

func (r *adminRepo) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Admin{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}
