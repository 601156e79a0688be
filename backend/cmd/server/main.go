package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tech-visit/backend/config"
	"tech-visit/backend/internal/api/handler"
	"tech-visit/backend/internal/api/router"
	"tech-visit/backend/internal/notify"
	"tech-visit/backend/internal/repository"
	"tech-visit/backend/internal/service"
	"tech-visit/backend/pkg/database"
	"tech-visit/backend/pkg/jwt"
	applogger "tech-visit/backend/pkg/logger"
	"tech-visit/backend/pkg/mailer"
	"tech-visit/backend/pkg/redis"
	"tech-visit/backend/pkg/validate"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("TECHVISIT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库并初始化表结构
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	if err := repository.Migrate(db, cfg.Database.Driver, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var (
		rdb       *redis.Client
		blacklist service.TokenBlacklist
	)
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与公开接口限流将不可用", zap.Error(err))
		rdb = nil
	} else {
		blacklist = rdb
	}

	// 5. 自定义校验标签
	if err := validate.Register(); err != nil {
		logger.Fatal("注册校验规则失败", zap.Error(err))
	}

	// 6. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	channels := buildNotifiers(cfg, logger)
	svc := service.NewService(cfg, repo, jwtMgr, blacklist, channels, logger)
	h := handler.NewHandler(svc, &handler.CookieConfig{
		Path:   "/api/v1/auth",
		Secure: !isLocal(cfg),
	})

	// 7. 初始化路由
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.Setup(cfg, h, jwtMgr, rdb, repo.Admin, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if sqlDB, _ := db.DB(); sqlDB != nil {
		sqlDB.Close()
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// buildNotifiers 按配置组装通知渠道；均未配置时只写日志
func buildNotifiers(cfg *config.Config, logger *zap.Logger) *notify.Multi {
	var notifiers []notify.Notifier

	if cfg.Mail.Enabled() {
		notifiers = append(notifiers, notify.NewEmailNotifier(mailer.New(&cfg.Mail)))
	}
	if cfg.Telegram.Enabled() {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			logger.Warn("Telegram 通知不可用", zap.Error(err))
		} else {
			notifiers = append(notifiers, tg)
		}
	}
	if len(notifiers) == 0 {
		notifiers = append(notifiers, notify.NewLogNotifier(logger))
	}

	names := make([]string, 0, len(notifiers))
	for _, n := range notifiers {
		names = append(names, n.Channel())
	}
	logger.Info("通知渠道已就绪", zap.Strings("channels", names), zap.Bool("enabled", cfg.Notify.Enabled))

	return notify.NewMulti(notifiers...)
}

// isLocal 本地开发环境（http 基地址）下 Cookie 不加 Secure
func isLocal(cfg *config.Config) bool {
	return strings.HasPrefix(cfg.Server.BaseURL, "http://")
}
