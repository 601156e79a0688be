package dto

// ── 时间段模块 DTO ──

// CreateSlotRequest 创建时间段请求
type CreateSlotRequest struct {
	Date      string `json:"date"       binding:"required,slotdate"` // "2025-03-10"
	StartTime string `json:"start_time" binding:"required,clock"`    // "10:00"
	EndTime   string `json:"end_time"   binding:"required,clock"`    // "11:00"
}

// BulkCreateSlotRequest 批量创建时间段请求（同一时段，多个日期）
type BulkCreateSlotRequest struct {
	Dates     []string `json:"dates"      binding:"required,min=1,max=366,dive,slotdate"`
	StartTime string   `json:"start_time" binding:"required,clock"`
	EndTime   string   `json:"end_time"   binding:"required,clock"`
}

// SlotListRequest 时间段列表查询参数
type SlotListRequest struct {
	DateFrom      string `form:"date_from"      binding:"omitempty,slotdate"`
	DateTo        string `form:"date_to"        binding:"omitempty,slotdate"`
	AvailableOnly bool   `form:"available_only"`
}

// ImportSlotsRequest 通过 URL 导入 ICS 空闲日历
type ImportSlotsRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// BookSlotRequest 预约时间段请求
type BookSlotRequest struct {
	RequestID int64 `json:"request_id" binding:"required,min=1"`
}

// SlotResponse 时间段信息响应
type SlotResponse struct {
	ID        int64  `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsBooked  bool   `json:"is_booked"`
	CreatedAt string `json:"created_at"`
}

// BulkCreateSlotResponse 批量创建结果
type BulkCreateSlotResponse struct {
	Created []SlotResponse `json:"created"`
	Skipped []string       `json:"skipped"` // 已存在或重复的日期
}

// BookingResponse 预约成功响应：时间段与请求快照
type BookingResponse struct {
	Slot    SlotResponse        `json:"slot"`
	Request TechRequestResponse `json:"request"`
}

// ReleaseSlotResponse 释放时间段响应
type ReleaseSlotResponse struct {
	Slot             SlotResponse `json:"slot"`
	ReleasedRequests []int64      `json:"released_requests"`
}
