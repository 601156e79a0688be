// Package testutil 测试辅助：基于内存 SQLite 的真实存储。
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tech-visit/backend/internal/repository"
)

var dbSeq atomic.Int64

// NewDB 为当前测试创建独立的内存 SQLite 数据库并建表
// 连接池固定为 1：事务之间按获取连接的顺序串行执行
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on&_txlock=immediate",
		name, dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取 sql.DB 失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate 失败: %v", err)
	}
	return db
}

// NewRepository 基于 NewDB 创建 Repository 聚合
func NewRepository(t testing.TB) (*repository.Repository, *gorm.DB) {
	t.Helper()
	db := NewDB(t)
	return repository.NewRepository(db), db
}
