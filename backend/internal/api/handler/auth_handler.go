package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tech-visit/backend/internal/dto"
	"tech-visit/backend/internal/service"
	"tech-visit/backend/pkg/response"
)

const refreshCookieName = "refresh_token"

// CookieConfig Refresh Token Cookie 配置
type CookieConfig struct {
	Path   string
	Secure bool
}

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	cookie  *CookieConfig
}

// NewAuthHandler 创建 AuthHandler；cookie 为 nil 时不下发 Cookie
func NewAuthHandler(authSvc service.AuthService, cookie *CookieConfig) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, cookie: cookie}
}

// Login 管理员登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// RefreshToken 刷新 Token
// POST /api/v1/auth/refresh
// Refresh Token 优先取请求体，其次取 Cookie
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken == "" {
		if v, err := c.Cookie(refreshCookieName); err == nil {
			req.RefreshToken = v
		}
	}
	if req.RefreshToken == "" {
		response.BadRequest(c, 10001, "缺少 refresh_token")
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// Logout 注销
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.RefreshTokenRequest
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken == "" {
		if v, err := c.Cookie(refreshCookieName); err == nil {
			req.RefreshToken = v
		}
	}

	jti, ttl := tokenMeta(c)
	if err := h.authSvc.Logout(c.Request.Context(), jti, ttl, req.RefreshToken); err != nil {
		writeError(c, err)
		return
	}

	h.setRefreshCookie(c, "")
	response.OK(c, nil)
}

// GetCurrentAdmin 当前登录的管理员
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentAdmin(c *gin.Context) {
	adminID, ok := MustGetAdminID(c)
	if !ok {
		return
	}

	admin, err := h.authSvc.Me(c.Request.Context(), adminID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, admin)
}

// ChangePassword 修改密码
// PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	adminID, ok := MustGetAdminID(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), adminID, &req); err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, nil)
}

// setRefreshCookie 下发（value 为空时清除）Refresh Token Cookie
func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string) {
	if h.cookie == nil {
		return
	}
	maxAge := 0
	if value == "" {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, value, maxAge, h.cookie.Path, "", h.cookie.Secure, true)
}
