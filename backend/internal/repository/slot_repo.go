package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tech-visit/backend/internal/model"
	pkgerrors "tech-visit/backend/pkg/errors"
)

// SlotFilter 时间段列表筛选条件（日期为 YYYY-MM-DD，闭区间）
type SlotFilter struct {
	DateFrom      string
	DateTo        string
	AvailableOnly bool
}

// SlotRepository 可预约时间段数据访问接口
type SlotRepository interface {
	Create(ctx context.Context, slot *model.AvailableSlot) error
	BatchCreate(ctx context.Context, slots []model.AvailableSlot) error
	GetByID(ctx context.Context, id int64) (*model.AvailableSlot, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 行级锁读取，须在事务内调用
	GetByIDForUpdate(ctx context.Context, id int64) (*model.AvailableSlot, error)
	FindByTriple(ctx context.Context, date, startTime, endTime string) (*model.AvailableSlot, error)
	// ExistingDates 返回 dates 中已存在相同 (start_time, end_time) 时间段的日期
	ExistingDates(ctx context.Context, dates []string, startTime, endTime string) (map[string]bool, error)
	List(ctx context.Context, filter SlotFilter) ([]model.AvailableSlot, error)
	// SetBooked 条件更新 is_booked；当前值已等于目标值时返回 ErrOptimisticLock
	SetBooked(ctx context.Context, id int64, booked bool) error
	Delete(ctx context.Context, id int64) error
}

type slotRepo struct {
	db *gorm.DB
}

// NewSlotRepo 创建 SlotRepository 实例
func NewSlotRepo(db *gorm.DB) SlotRepository {
	return &slotRepo{db: db}
}

func (r *slotRepo) Create(ctx context.Context, slot *model.AvailableSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *slotRepo) BatchCreate(ctx context.Context, slots []model.AvailableSlot) error {
	if len(slots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&slots, 100).Error
}

func (r *slotRepo) GetByID(ctx context.Context, id int64) (*model.AvailableSlot, error) {
	var slot model.AvailableSlot
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// GetByIDForUpdate SQLite 方言会忽略 FOR UPDATE，由 BEGIN IMMEDIATE 保证串行
func (r *slotRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.AvailableSlot, error) {
	var slot model.AvailableSlot
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepo) FindByTriple(ctx context.Context, date, startTime, endTime string) (*model.AvailableSlot, error) {
	var slot model.AvailableSlot
	err := r.db.WithContext(ctx).
		Where("date = ? AND start_time = ? AND end_time = ?", date, startTime, endTime).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepo) ExistingDates(ctx context.Context, dates []string, startTime, endTime string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(dates) == 0 {
		return existing, nil
	}

	var found []string
	err := r.db.WithContext(ctx).
		Model(&model.AvailableSlot{}).
		Where("date IN ? AND start_time = ? AND end_time = ?", dates, startTime, endTime).
		Pluck("date", &found).Error
	if err != nil {
		return nil, err
	}
	for _, d := range found {
		existing[d] = true
	}
	return existing, nil
}

func (r *slotRepo) List(ctx context.Context, filter SlotFilter) ([]model.AvailableSlot, error) {
	var slots []model.AvailableSlot
	db := r.db.WithContext(ctx)

	if filter.DateFrom != "" {
		db = db.Where("date >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		db = db.Where("date <= ?", filter.DateTo)
	}
	if filter.AvailableOnly {
		db = db.Where("is_booked = ?", false)
	}

	err := db.Order("date ASC, start_time ASC").Find(&slots).Error
	return slots, err
}

func (r *slotRepo) SetBooked(ctx context.Context, id int64, booked bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.AvailableSlot{}).
		Where("id = ? AND is_booked = ?", id, !booked).
		Update("is_booked", booked)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *slotRepo) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.AvailableSlot{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
