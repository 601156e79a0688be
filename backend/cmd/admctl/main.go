// admctl 运维命令行：数据库迁移与初始管理员创建
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tech-visit/backend/config"
	"tech-visit/backend/pkg/database"
	applogger "tech-visit/backend/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "admctl",
	Short:         "tech-visit 运维工具",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")
	rootCmd.AddCommand(migrateCmd, createAdminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

// bootstrap 加载配置、日志并连接数据库
func bootstrap() (*config.Config, *gorm.DB, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, db, logger, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, _ := db.DB(); sqlDB != nil {
		sqlDB.Close()
	}
}
