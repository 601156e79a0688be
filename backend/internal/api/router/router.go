package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tech-visit/backend/config"
	"tech-visit/backend/internal/api/handler"
	"tech-visit/backend/internal/api/middleware"
	"tech-visit/backend/pkg/jwt"
	"tech-visit/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时跳过黑名单检查与公开接口限流；admins 用于认证时回查账号状态
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, admins middleware.AdminLookup, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	var (
		blacklist middleware.TokenChecker
		limiter   middleware.Limiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	publicLimit := middleware.RateLimit(limiter, cfg.Booking.PublicRateLimit, cfg.Booking.PublicRateWindow)
	adminOnly := middleware.SystemAdminOnly()

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", publicLimit, h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 公开接口：提交请求、查看可预约时段
		v1.POST("/requests", publicLimit, h.Request.Submit)
		v1.GET("/slots/available", h.Slot.ListAvailable)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, admins))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentAdmin)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 请求模块
			requests := authorized.Group("/requests")
			{
				requests.GET("", h.Request.List)
				requests.GET("/:id", h.Request.Get)
				requests.PATCH("/:id", h.Request.Update)
				requests.PUT("/:id/status", h.Request.UpdateStatus)
				requests.POST("/:id/take", h.Request.Take)
				requests.DELETE("/:id", adminOnly, h.Request.Delete)
			}

			// 时段模块
			slots := authorized.Group("/slots")
			{
				slots.GET("", h.Slot.List)
				slots.GET("/:id", h.Slot.Get)
				slots.POST("", adminOnly, h.Slot.Create)
				slots.POST("/bulk", adminOnly, h.Slot.BulkCreate)
				slots.POST("/import", adminOnly, h.Slot.ImportICS)
				slots.DELETE("/:id", adminOnly, h.Slot.Delete)
				slots.POST("/:id/book", h.Slot.Book)
				slots.POST("/:id/release", h.Slot.Release)
			}

			// 管理员模块
			admins := authorized.Group("/admins", adminOnly)
			{
				admins.GET("", h.Admin.List)
				admins.POST("", h.Admin.Create)
				admins.GET("/:id", h.Admin.Get)
				admins.PUT("/:id", h.Admin.Update)
				admins.DELETE("/:id", h.Admin.Delete)
			}

			// 导出与日历
			authorized.GET("/export/requests", adminOnly, h.Export.ExportRequests)
			authorized.GET("/calendar/visits.ics", h.Export.VisitsCalendar)
		}
	}

	return r
}
