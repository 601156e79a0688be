package handler

import (
	"github.com/gin-gonic/gin"

	"tech-visit/backend/internal/dto"
	"tech-visit/backend/internal/service"
	"tech-visit/backend/pkg/response"
)

// AdminHandler 管理员账号 HTTP 处理器
type AdminHandler struct {
	adminSvc service.AdminService
}

// NewAdminHandler 创建 AdminHandler
func NewAdminHandler(adminSvc service.AdminService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

// List 管理员列表
// GET /api/v1/admins
func (h *AdminHandler) List(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.AdminListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.adminSvc.List(c.Request.Context(), p, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 管理员详情
// GET /api/v1/admins/:id
func (h *AdminHandler) Get(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	admin, err := h.adminSvc.GetByID(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, admin)
}

// Create 创建管理员
// POST /api/v1/admins
func (h *AdminHandler) Create(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	admin, err := h.adminSvc.Create(c.Request.Context(), p, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, admin)
}

// Update 更新管理员
// PUT /api/v1/admins/:id
func (h *AdminHandler) Update(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	admin, err := h.adminSvc.Update(c.Request.Context(), p, id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, admin)
}

// Delete 停用管理员
// DELETE /api/v1/admins/:id
func (h *AdminHandler) Delete(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.adminSvc.Delete(c.Request.Context(), p, id); err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, nil)
}
