package repository

import (
	"context"

	"gorm.io/gorm"

	"tech-visit/backend/internal/model"
)

// NotificationRepository 通知投递记录数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, log *model.NotificationLog) error
	ListByRequest(ctx context.Context, requestID int64) ([]model.NotificationLog, error)
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, log *model.NotificationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *notificationRepo) ListByRequest(ctx context.Context, requestID int64) ([]model.NotificationLog, error) {
	var logs []model.NotificationLog
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}
