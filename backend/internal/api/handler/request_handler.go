package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tech-visit/backend/internal/dto"
	"tech-visit/backend/internal/service"
	"tech-visit/backend/pkg/response"
)

// RequestHandler 技术支持请求 HTTP 处理器
type RequestHandler struct {
	requestSvc service.RequestService
}

// NewRequestHandler 创建 RequestHandler
func NewRequestHandler(requestSvc service.RequestService) *RequestHandler {
	return &RequestHandler{requestSvc: requestSvc}
}

// Submit 公开提交请求
// POST /api/v1/requests
func (h *RequestHandler) Submit(c *gin.Context) {
	var req dto.CreateTechRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	result, err := h.requestSvc.Submit(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, result)
}

// List 请求列表
// GET /api/v1/requests
func (h *RequestHandler) List(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.TechRequestListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.requestSvc.List(c.Request.Context(), p, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 请求详情
// GET /api/v1/requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.requestSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, result)
}

// Update 部分更新请求
// PATCH /api/v1/requests/:id
func (h *RequestHandler) Update(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateTechRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	result, err := h.requestSvc.UpdateFields(c.Request.Context(), id, p, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateStatus 更新状态
// PUT /api/v1/requests/:id/status
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.requestSvc.UpdateStatus(c.Request.Context(), id, p, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, result)
}

// Take 认领请求
// POST /api/v1/requests/:id/take
func (h *RequestHandler) Take(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// 请求体可选
	var req dto.TakeRequestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	result, err := h.requestSvc.Take(c.Request.Context(), id, p, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete 删除请求（系统管理员）
// DELETE /api/v1/requests/:id
func (h *RequestHandler) Delete(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.requestSvc.Delete(c.Request.Context(), id, p); err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, nil)
}
