package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tech-visit/backend/internal/model"
	"tech-visit/backend/pkg/jwt"
	"tech-visit/backend/pkg/response"
)

// 上下文键，与 handler 包保持一致
const (
	ctxAdminID  = "admin_id"
	ctxRole     = "role"
	ctxTokenJTI = "token_jti"
	ctxTokenExp = "token_exp"
)

// TokenChecker Token 黑名单查询（*redis.Client 实现）
type TokenChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AdminLookup 按 ID 读取管理员（repository.AdminRepository 实现）
type AdminLookup interface {
	GetByID(ctx context.Context, id int64) (*model.Admin, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token
// blacklist 为 nil 或查询出错时降级放行
// admins 非空时每次请求回查账号：已停用拒绝，角色以数据库为准
func JWTAuth(jwtMgr *jwt.Manager, blacklist TokenChecker, admins AdminLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if claims.TokenType != jwt.TokenTypeAccess {
			response.Unauthorized(c, 10002, "Token 类型无效")
			c.Abort()
			return
		}

		if blacklist != nil {
			if revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID); err == nil && revoked {
				response.Unauthorized(c, 10002, "Token 已注销")
				c.Abort()
				return
			}
		}

		role := claims.Role
		if admins != nil {
			admin, err := admins.GetByID(c.Request.Context(), claims.AdminID)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				response.Unauthorized(c, 10002, "账号不存在")
				c.Abort()
				return
			case err != nil:
				_ = c.Error(err)
				response.InternalError(c)
				c.Abort()
				return
			case !admin.IsActive:
				response.Unauthorized(c, 11002, "账号已停用")
				c.Abort()
				return
			}
			role = admin.Role
		}

		// 将管理员信息注入上下文
		c.Set(ctxAdminID, claims.AdminID)
		c.Set(ctxRole, role)
		c.Set(ctxTokenJTI, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(ctxTokenExp, claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前管理员是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ctxRole)
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		adminRole, _ := role.(string)
		for _, r := range allowedRoles {
			if adminRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}

// SystemAdminOnly 仅系统管理员
func SystemAdminOnly() gin.HandlerFunc {
	return RoleAuth(model.RoleSystemAdmin)
}
