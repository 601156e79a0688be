package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tech-visit/backend/internal/model"
)

// TechRequestFilter 请求列表筛选条件
type TechRequestFilter struct {
	Status          string
	UrgencyLevel    string
	AssignedAdminID *int64
	Unassigned      bool
	Keyword         string // 匹配姓名/电话/邮箱
}

// TechRequestRepository 技术支持请求数据访问接口
type TechRequestRepository interface {
	Create(ctx context.Context, req *model.TechRequest) error
	GetByID(ctx context.Context, id int64) (*model.TechRequest, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 行级锁读取，须在事务内调用
	GetByIDForUpdate(ctx context.Context, id int64) (*model.TechRequest, error)
	List(ctx context.Context, filter TechRequestFilter, offset, limit int) ([]model.TechRequest, int64, error)
	// ListBySlot 查询所有 booked_slot_id = slotID 的请求
	ListBySlot(ctx context.Context, slotID int64) ([]model.TechRequest, error)
	// ListBySlotForUpdate 同 ListBySlot，并对命中的请求行加 FOR UPDATE 锁
	ListBySlotForUpdate(ctx context.Context, slotID int64) ([]model.TechRequest, error)
	// ListScheduled 已排期且未取消的请求；assignedAdminID 非空时只返回该管理员的
	ListScheduled(ctx context.Context, assignedAdminID *int64) ([]model.TechRequest, error)
	Updates(ctx context.Context, id int64, fields map[string]interface{}) error
	// ClearBooking 清空所有引用该时间段的请求的 booked_slot_id/scheduled_date/scheduled_time
	ClearBooking(ctx context.Context, slotID int64) (int64, error)
	// DetachSlot 仅清空 booked_slot_id，保留排期信息（完成后作为上门记录）
	DetachSlot(ctx context.Context, slotID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
	CountByAssignee(ctx context.Context, adminID int64) (int64, error)
}

type techRequestRepo struct {
	db *gorm.DB
}

// NewTechRequestRepo 创建 TechRequestRepository 实例
func NewTechRequestRepo(db *gorm.DB) TechRequestRepository {
	return &techRequestRepo{db: db}
}

func (r *techRequestRepo) Create(ctx context.Context, req *model.TechRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(req).Error
}

func (r *techRequestRepo) GetByID(ctx context.Context, id int64) (*model.TechRequest, error) {
	var req model.TechRequest
	err := r.db.WithContext(ctx).
		Preload("AssignedAdmin").
		Preload("BookedSlot").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *techRequestRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.TechRequest, error) {
	var req model.TechRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *techRequestRepo) List(ctx context.Context, filter TechRequestFilter, offset, limit int) ([]model.TechRequest, int64, error) {
	var reqs []model.TechRequest
	var total int64

	db := r.db.WithContext(ctx).Model(&model.TechRequest{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.UrgencyLevel != "" {
		db = db.Where("urgency_level = ?", filter.UrgencyLevel)
	}
	if filter.AssignedAdminID != nil {
		db = db.Where("assigned_admin_id = ?", *filter.AssignedAdminID)
	} else if filter.Unassigned {
		db = db.Where("assigned_admin_id IS NULL")
	}
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		db = db.Where("(full_name LIKE ? OR phone LIKE ? OR email LIKE ?)", like, like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Preload("AssignedAdmin").Order("created_at DESC, id DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&reqs).Error; err != nil {
		return nil, 0, err
	}

	return reqs, total, nil
}

func (r *techRequestRepo) ListBySlot(ctx context.Context, slotID int64) ([]model.TechRequest, error) {
	var reqs []model.TechRequest
	err := r.db.WithContext(ctx).
		Where("booked_slot_id = ?", slotID).
		Find(&reqs).Error
	return reqs, err
}

func (r *techRequestRepo) ListBySlotForUpdate(ctx context.Context, slotID int64) ([]model.TechRequest, error) {
	var reqs []model.TechRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("booked_slot_id = ?", slotID).
		Order("id ASC").
		Find(&reqs).Error
	return reqs, err
}

func (r *techRequestRepo) ListScheduled(ctx context.Context, assignedAdminID *int64) ([]model.TechRequest, error) {
	var reqs []model.TechRequest
	db := r.db.WithContext(ctx).
		Preload("AssignedAdmin").
		Preload("BookedSlot").
		Where("scheduled_date IS NOT NULL AND scheduled_time IS NOT NULL").
		Where("status <> ?", model.StatusCancelled)
	if assignedAdminID != nil {
		db = db.Where("assigned_admin_id = ?", *assignedAdminID)
	}
	err := db.Order("scheduled_date ASC, scheduled_time ASC").Find(&reqs).Error
	return reqs, err
}

func (r *techRequestRepo) Updates(ctx context.Context, id int64, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.TechRequest{}).
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

func (r *techRequestRepo) ClearBooking(ctx context.Context, slotID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.TechRequest{}).
		Where("booked_slot_id = ?", slotID).
		Updates(map[string]interface{}{
			"booked_slot_id": nil,
			"scheduled_date": nil,
			"scheduled_time": nil,
		})
	return result.RowsAffected, result.Error
}

func (r *techRequestRepo) DetachSlot(ctx context.Context, slotID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.TechRequest{}).
		Where("booked_slot_id = ?", slotID).
		Update("booked_slot_id", nil)
	return result.RowsAffected, result.Error
}

func (r *techRequestRepo) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.TechRequest{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *techRequestRepo) CountByAssignee(ctx context.Context, adminID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.TechRequest{}).
		Where("assigned_admin_id = ?", adminID).
		Count(&n).Error
	return n, err
}
