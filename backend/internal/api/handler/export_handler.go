package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"tech-visit/backend/internal/dto"
	"tech-visit/backend/internal/service"
	"tech-visit/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出与日历 HTTP 处理器
type ExportHandler struct {
	exportSvc   service.ExportService
	calendarSvc service.CalendarService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, calendarSvc service.CalendarService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, calendarSvc: calendarSvc}
}

// ExportRequests 导出请求列表
// GET /api/v1/export/requests?status=xxx
func (h *ExportHandler) ExportRequests(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.ExportRequestsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportRequests(c.Request.Context(), p, &req)
	if err != nil {
		if errors.Is(err, service.ErrExportGenerateFail) {
			response.InternalError(c)
			return
		}
		writeError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// VisitsCalendar 上门日历
// GET /api/v1/calendar/visits.ics?scope=mine|all
func (h *ExportHandler) VisitsCalendar(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	body, err := h.calendarSvc.VisitsICS(c.Request.Context(), p, req.Scope != "all")
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="visits.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}
