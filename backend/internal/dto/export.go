package dto

// ── 导出 / 日历模块 DTO ──

// ExportRequestsRequest 导出筛选参数
type ExportRequestsRequest struct {
	Status          string `form:"status"            binding:"omitempty,oneof=pending in_progress completed cancelled"`
	UrgencyLevel    string `form:"urgency_level"     binding:"omitempty,oneof=low medium high urgent"`
	AssignedAdminID *int64 `form:"assigned_admin_id" binding:"omitempty,min=1"`
}

// CalendarRequest 上门日历订阅参数
type CalendarRequest struct {
	Scope string `form:"scope" binding:"omitempty,oneof=mine all"`
}
