package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"tech-visit/backend/config"
	"tech-visit/backend/internal/model"
	"tech-visit/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChecker struct {
	revoked map[string]bool
	err     error
}

func (f *fakeChecker) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], f.err
}

type fakeLimiter struct {
	calls int
	max   int
	keys  []string
	err   error
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.calls++
	f.keys = append(f.keys, key)
	if f.err != nil {
		return false, f.err
	}
	return f.calls <= f.max, nil
}

func newJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:               "middleware-secret-0123",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTLDefault:  time.Hour,
		RefreshTokenTTLRemember: 24 * time.Hour,
	})
}

func do(r http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authEngine(mgr *jwt.Manager, checker TokenChecker) *gin.Engine {
	return authEngineWithAdmins(mgr, checker, nil)
}

func authEngineWithAdmins(mgr *jwt.Manager, checker TokenChecker, admins AdminLookup) *gin.Engine {
	r := gin.New()
	r.GET("/me", JWTAuth(mgr, checker, admins), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"admin_id": c.MustGet(ctxAdminID).(int64),
			"role":     c.GetString(ctxRole),
			"jti":      c.GetString(ctxTokenJTI),
		})
	})
	r.DELETE("/admin", JWTAuth(mgr, checker, admins), SystemAdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	mgr := newJWT()
	access, err := mgr.GenerateAccessToken(7, model.RoleVolunteer)
	if err != nil {
		t.Fatalf("生成 token 失败: %v", err)
	}
	refresh, _ := mgr.GenerateRefreshToken(7, model.RoleVolunteer, false)
	claims, _ := mgr.ParseToken(access)

	r := authEngine(mgr, &fakeChecker{revoked: map[string]bool{}})

	w := do(r, http.MethodGet, "/me", access)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"admin_id":7`) || !strings.Contains(w.Body.String(), claims.ID) {
		t.Errorf("上下文未注入管理员信息: %s", w.Body.String())
	}

	tests := []struct {
		name  string
		token string
		auth  string
	}{
		{"缺少认证头", "", ""},
		{"格式错误", "", "Token " + access},
		{"签名无效", access + "x", ""},
		{"Refresh Token 不可访问", refresh, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			} else if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("期望 401，实际 %d", w.Code)
			}
		})
	}
}

func TestJWTAuth_Blacklist(t *testing.T) {
	mgr := newJWT()
	access, _ := mgr.GenerateAccessToken(7, model.RoleVolunteer)
	claims, _ := mgr.ParseToken(access)

	r := authEngine(mgr, &fakeChecker{revoked: map[string]bool{claims.ID: true}})
	if w := do(r, http.MethodGet, "/me", access); w.Code != http.StatusUnauthorized {
		t.Errorf("已注销 token 应返回 401，实际 %d", w.Code)
	}

	// 黑名单查询失败或未配置时放行
	r = authEngine(mgr, &fakeChecker{err: errors.New("redis down")})
	if w := do(r, http.MethodGet, "/me", access); w.Code != http.StatusOK {
		t.Errorf("黑名单不可用时应放行，实际 %d", w.Code)
	}
	r = authEngine(mgr, nil)
	if w := do(r, http.MethodGet, "/me", access); w.Code != http.StatusOK {
		t.Errorf("未配置黑名单时应放行，实际 %d", w.Code)
	}
}

// fakeAdmins 内存中的管理员表
type fakeAdmins struct {
	admins map[int64]*model.Admin
	err    error
}

func (f *fakeAdmins) GetByID(_ context.Context, id int64) (*model.Admin, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.admins[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func TestJWTAuth_AdminRecheck(t *testing.T) {
	mgr := newJWT()
	// token 签发时是系统管理员
	token, _ := mgr.GenerateAccessToken(7, model.RoleSystemAdmin)
	admins := &fakeAdmins{admins: map[int64]*model.Admin{
		7: {ID: 7, Role: model.RoleSystemAdmin, IsActive: true},
	}}
	r := authEngineWithAdmins(mgr, nil, admins)

	if w := do(r, http.MethodDelete, "/admin", token); w.Code != http.StatusNoContent {
		t.Fatalf("有效管理员应放行，实际 %d", w.Code)
	}

	// 降级为志愿者后旧 token 立即失去管理员权限
	admins.admins[7].Role = model.RoleVolunteer
	if w := do(r, http.MethodDelete, "/admin", token); w.Code != http.StatusForbidden {
		t.Errorf("降级后应返回 403，实际 %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/me", token); !strings.Contains(w.Body.String(), `"role":"`+model.RoleVolunteer+`"`) {
		t.Errorf("上下文角色应取自数据库: %s", w.Body.String())
	}

	// 停用后旧 token 直接拒绝
	admins.admins[7].IsActive = false
	w := do(r, http.MethodGet, "/me", token)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), `"code":11002`) {
		t.Errorf("停用账号应返回 401/11002，实际 %d %s", w.Code, w.Body.String())
	}

	delete(admins.admins, 7)
	if w := do(r, http.MethodGet, "/me", token); w.Code != http.StatusUnauthorized {
		t.Errorf("账号不存在应返回 401，实际 %d", w.Code)
	}

	admins.err = errors.New("db down")
	if w := do(r, http.MethodGet, "/me", token); w.Code != http.StatusInternalServerError {
		t.Errorf("查询失败应返回 500，实际 %d", w.Code)
	}
}

func TestSystemAdminOnly(t *testing.T) {
	mgr := newJWT()
	r := authEngine(mgr, nil)

	vol, _ := mgr.GenerateAccessToken(7, model.RoleVolunteer)
	if w := do(r, http.MethodDelete, "/admin", vol); w.Code != http.StatusForbidden {
		t.Errorf("志愿者应返回 403，实际 %d", w.Code)
	}
	root, _ := mgr.GenerateAccessToken(1, model.RoleSystemAdmin)
	if w := do(r, http.MethodDelete, "/admin", root); w.Code != http.StatusNoContent {
		t.Errorf("系统管理员应放行，实际 %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	lim := &fakeLimiter{max: 2}
	r := gin.New()
	r.POST("/requests", RateLimit(lim, 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodPost, "/requests", ""); w.Code != http.StatusCreated {
			t.Fatalf("第 %d 次请求应放行，实际 %d", i+1, w.Code)
		}
	}
	w := do(r, http.MethodPost, "/requests", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("超限应返回 429，实际 %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After 错误: %q", w.Header().Get("Retry-After"))
	}
	if !strings.HasPrefix(lim.keys[0], "rate_limit:POST:/requests:") {
		t.Errorf("限流 key 错误: %s", lim.keys[0])
	}
}

func TestRateLimit_Degrades(t *testing.T) {
	for name, lim := range map[string]Limiter{
		"未配置":   nil,
		"Redis 出错": &fakeLimiter{err: errors.New("redis down")},
	} {
		t.Run(name, func(t *testing.T) {
			r := gin.New()
			r.POST("/requests", RateLimit(lim, 1, time.Minute), func(c *gin.Context) {
				c.Status(http.StatusCreated)
			})
			for i := 0; i < 3; i++ {
				if w := do(r, http.MethodPost, "/requests", ""); w.Code != http.StatusCreated {
					t.Fatalf("应降级放行，实际 %d", w.Code)
				}
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.POST("/echo", BodyLimit(8), func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("short"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("未超限应返回 200，实际 %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("a much longer body"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("超限应返回 413，实际 %d", w.Code)
	}

	// 未声明长度时由 MaxBytesReader 截断
	req = httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("a much longer body"))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("流式超限应返回 413，实际 %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "abc-123" || w.Body.String() != "abc-123" {
		t.Errorf("应沿用传入的 Request-ID，实际 %q", w.Header().Get("X-Request-ID"))
	}

	for _, bad := range []string{"", strings.Repeat("x", 65), "bad id\n"} {
		req = httptest.NewRequest(http.MethodGet, "/ping", nil)
		if bad != "" {
			req.Header.Set("X-Request-ID", bad)
		}
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		got := w.Header().Get("X-Request-ID")
		if got == "" || got == bad || len(got) != 36 {
			t.Errorf("非法 Request-ID %q 应替换为 UUID，实际 %q", bad, got)
		}
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://help.example.org/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://help.example.org")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("预检应返回 204，实际 %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://help.example.org" {
		t.Errorf("白名单 Origin 未回写")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition") {
		t.Errorf("应暴露 Content-Disposition")
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("非白名单 Origin 不应回写")
	}
}

func TestLogger_Fields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) {
		c.Set(ctxAdminID, int64(3))
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("期望 2 条日志，实际 %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "rid-1" || fields["admin_id"] != int64(3) {
		t.Errorf("日志字段缺失: %v", fields)
	}
	if entries[1].Level != zap.ErrorLevel {
		t.Errorf("5xx 应记录为 Error，实际 %v", entries[1].Level)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := do(r, http.MethodGet, "/x", "")
	if w.Header().Get("X-Frame-Options") != "DENY" || w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("安全头缺失: %v", w.Header())
	}
}
