package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tech-visit/backend/internal/policy"
	"tech-visit/backend/internal/service"
	"tech-visit/backend/pkg/response"
)

// 上下文键，由 JWTAuth 中间件写入
const (
	CtxAdminID  = "admin_id"
	CtxRole     = "role"
	CtxTokenJTI = "token_jti"
	CtxTokenExp = "token_exp"
)

// MustGetAdminID 从 Gin 上下文中安全提取 admin_id。
// 如果 JWT 中间件未正确注入 admin_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetAdminID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(CtxAdminID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	id, ok := v.(int64)
	if !ok || id <= 0 {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	return id, true
}

// MustGetPrincipal 提取当前调用方（admin_id + role）
func MustGetPrincipal(c *gin.Context) (policy.Principal, bool) {
	id, ok := MustGetAdminID(c)
	if !ok {
		return policy.Principal{}, false
	}
	role, ok := c.Get(CtxRole)
	s, isStr := role.(string)
	if !ok || !isStr || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return policy.Principal{}, false
	}
	return policy.Principal{AdminID: id, Role: s}, true
}

// tokenMeta 当前 Access Token 的 jti 与剩余有效期（用于注销）
func tokenMeta(c *gin.Context) (string, time.Duration) {
	jti := c.GetString(CtxTokenJTI)
	var ttl time.Duration
	if exp, ok := c.Get(CtxTokenExp); ok {
		if t, ok := exp.(time.Time); ok {
			ttl = time.Until(t)
		}
	}
	return jti, ttl
}

// parseIDParam 解析路径中的正整数 ID
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "ID 格式无效")
		return 0, false
	}
	return id, true
}

// writeError 认证类错误返回 401，其余按业务错误类别映射
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, 11001, "用户名或密码错误")
	case errors.Is(err, service.ErrAccountDisabled):
		response.Unauthorized(c, 11002, "账号已停用")
	case errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(c, 11003, "Token 无效或已过期")
	default:
		response.FromError(c, err)
	}
}
