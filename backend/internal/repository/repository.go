package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tech-visit/backend/internal/model"
	"tech-visit/backend/pkg/database"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Admin        AdminRepository
	Request      TechRequestRepository
	Slot         SlotRepository
	Notification NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Admin:        NewAdminRepo(db),
		Request:      NewTechRequestRepo(db),
		Slot:         NewSlotRepo(db),
		Notification: NewNotificationRepo(db),
	}
}

// WithTx 返回绑定到指定事务连接的 Repository 副本
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个事务内执行 fn，fn 返回错误时整体回滚
// 在事务内的 Repository 上再次调用时使用 SAVEPOINT 嵌套，内层失败只回滚到保存点
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// AutoMigrate 按模型建表（SQLite 本地模式与测试使用；PostgreSQL 使用 SQL 迁移）
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Admin{},
		&model.AvailableSlot{},
		&model.TechRequest{},
		&model.NotificationLog{},
	)
}

// Migrate 按驱动初始化表结构：sqlite 走 AutoMigrate，postgres 走 SQL 迁移
func Migrate(db *gorm.DB, driver string, logger *zap.Logger) error {
	if driver == "sqlite" {
		if err := AutoMigrate(db); err != nil {
			return fmt.Errorf("自动建表失败: %w", err)
		}
		logger.Info("SQLite 表结构已同步")
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return database.RunMigrations(sqlDB, logger)
}
