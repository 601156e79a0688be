package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tech-visit/backend/internal/repository"
	"tech-visit/backend/pkg/database"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "初始化或升级数据库表结构",
	Long: `postgres 执行内嵌 SQL 迁移（--down 回滚最近一次）；
sqlite 按模型自动建表，不支持回滚。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDB(db)
		defer logger.Sync()

		if !migrateDown {
			return repository.Migrate(db, cfg.Database.Driver, logger)
		}

		if cfg.Database.Driver == "sqlite" {
			return errors.New("sqlite 模式不支持回滚")
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
		}
		return database.RollbackMigration(sqlDB, logger)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "回滚最近一次迁移（仅 postgres）")
}
