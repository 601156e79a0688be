package handler

import "tech-visit/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth    *AuthHandler
	Admin   *AdminHandler
	Request *RequestHandler
	Slot    *SlotHandler
	Export  *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, cookie *CookieConfig) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(svc.Auth, cookie),
		Admin:   NewAdminHandler(svc.Admin),
		Request: NewRequestHandler(svc.Request),
		Slot:    NewSlotHandler(svc.Slot),
		Export:  NewExportHandler(svc.Export, svc.Calendar),
	}
}
