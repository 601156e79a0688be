package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tech-visit/backend/internal/dto"
	"tech-visit/backend/internal/policy"
	"tech-visit/backend/internal/service"
	pkgerrors "tech-visit/backend/pkg/errors"
	"tech-visit/backend/pkg/response"
)

// SlotHandler 可预约时间段 HTTP 处理器
type SlotHandler struct {
	slotSvc service.SlotService
	// 可替换以便测试
	fetchICS func(c *gin.Context, url string) (io.ReadCloser, error)
}

// NewSlotHandler 创建 SlotHandler
func NewSlotHandler(slotSvc service.SlotService) *SlotHandler {
	return &SlotHandler{
		slotSvc: slotSvc,
		fetchICS: func(c *gin.Context, url string) (io.ReadCloser, error) {
			return service.FetchICSContent(c.Request.Context(), url)
		},
	}
}

// ListAvailable 公开可预约时间段
// GET /api/v1/slots/available
func (h *SlotHandler) ListAvailable(c *gin.Context) {
	list, err := h.slotSvc.ListAvailable(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// List 时间段列表
// GET /api/v1/slots
func (h *SlotHandler) List(c *gin.Context) {
	var req dto.SlotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.slotSvc.List(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// Get 时间段详情
// GET /api/v1/slots/:id
func (h *SlotHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	slot, err := h.slotSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, slot)
}

// Create 创建时间段
// POST /api/v1/slots
func (h *SlotHandler) Create(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	slot, err := h.slotSvc.Create(c.Request.Context(), p, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, slot)
}

// BulkCreate 批量创建时间段
// POST /api/v1/slots/bulk
func (h *SlotHandler) BulkCreate(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.BulkCreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	result, err := h.slotSvc.BulkCreate(c.Request.Context(), p, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, result)
}

// ImportICS 从空闲日历导入时间段
// POST /api/v1/slots/import
// 支持两种方式：
//   - 文件上传: multipart/form-data, field=file
//   - URL 导入: application/json, body={"url": "..."}
func (h *SlotHandler) ImportICS(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	// 尝试文件上传方式
	if file, _, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		h.importFrom(c, p, file)
		return
	}

	// 尝试 URL 方式
	var req dto.ImportSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.URL = c.PostForm("url")
	}
	if req.URL == "" {
		response.BadRequest(c, 10001, "请上传 ICS 文件或提供 ICS URL")
		return
	}

	body, err := h.fetchICS(c, req.URL)
	if err != nil {
		if _, typed := pkgerrors.As(err); typed {
			writeError(c, err)
			return
		}
		writeError(c, service.ErrSlotICSFetch.WithFields(err.Error()))
		return
	}
	defer body.Close()
	h.importFrom(c, p, body)
}

func (h *SlotHandler) importFrom(c *gin.Context, p policy.Principal, r io.Reader) {
	result, err := h.slotSvc.ImportICS(c.Request.Context(), p, r)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, result)
}

// Book 为请求预约时间段
// POST /api/v1/slots/:id/book
func (h *SlotHandler) Book(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.BookSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.slotSvc.Book(c.Request.Context(), p, id, req.RequestID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, result)
}

// Release 释放时间段
// POST /api/v1/slots/:id/release
func (h *SlotHandler) Release(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.slotSvc.Release(c.Request.Context(), p, id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete 删除时间段
// DELETE /api/v1/slots/:id
func (h *SlotHandler) Delete(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.slotSvc.Delete(c.Request.Context(), p, id); err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, nil)
}
