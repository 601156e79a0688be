package dto

// ── 技术支持请求模块 DTO ──

// CreateTechRequestRequest 公开提交请求
type CreateTechRequestRequest struct {
	FullName           string `json:"full_name"           binding:"required,max=100"`
	Phone              string `json:"phone"               binding:"required,max=30"`
	Email              string `json:"email"               binding:"required,email,max=255"`
	Address            string `json:"address"             binding:"required,max=500"`
	ProblemDescription string `json:"problem_description" binding:"required,max=5000"`
	UrgencyLevel       string `json:"urgency_level"       binding:"omitempty,oneof=low medium high urgent"`
}

// UpdateTechRequestRequest 部分更新请求（仅非 nil 字段参与更新）
type UpdateTechRequestRequest struct {
	FullName           *string `json:"full_name"           binding:"omitempty,min=1,max=100"`
	Phone              *string `json:"phone"               binding:"omitempty,min=1,max=30"`
	Email              *string `json:"email"               binding:"omitempty,email,max=255"`
	Address            *string `json:"address"             binding:"omitempty,min=1,max=500"`
	ProblemDescription *string `json:"problem_description" binding:"omitempty,min=1,max=5000"`
	UrgencyLevel       *string `json:"urgency_level"       binding:"omitempty,oneof=low medium high urgent"`
	Status             *string `json:"status"              binding:"omitempty,oneof=pending in_progress completed cancelled"`
	Notes              *string `json:"notes"               binding:"omitempty,max=5000"`
	ScheduledDate      *string `json:"scheduled_date"      binding:"omitempty,slotdate"`
	ScheduledTime      *string `json:"scheduled_time"      binding:"omitempty,clock"`
	AssignedAdminID    *int64  `json:"assigned_admin_id"   binding:"omitempty,min=1"`
}

// Fields 返回补丁中出现的字段名（按声明顺序）
func (r *UpdateTechRequestRequest) Fields() []string {
	var fields []string
	add := func(present bool, name string) {
		if present {
			fields = append(fields, name)
		}
	}
	add(r.FullName != nil, "full_name")
	add(r.Phone != nil, "phone")
	add(r.Email != nil, "email")
	add(r.Address != nil, "address")
	add(r.ProblemDescription != nil, "problem_description")
	add(r.UrgencyLevel != nil, "urgency_level")
	add(r.Status != nil, "status")
	add(r.Notes != nil, "notes")
	add(r.ScheduledDate != nil, "scheduled_date")
	add(r.ScheduledTime != nil, "scheduled_time")
	add(r.AssignedAdminID != nil, "assigned_admin_id")
	return fields
}

// UpdateStatusRequest 状态更新请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending in_progress completed cancelled"`
}

// TakeRequestRequest 认领请求
type TakeRequestRequest struct {
	Notes *string `json:"notes" binding:"omitempty,max=5000"`
}

// TechRequestListRequest 请求列表查询参数
type TechRequestListRequest struct {
	PaginationRequest
	Status          string `form:"status"            binding:"omitempty,oneof=pending in_progress completed cancelled"`
	UrgencyLevel    string `form:"urgency_level"     binding:"omitempty,oneof=low medium high urgent"`
	AssignedAdminID *int64 `form:"assigned_admin_id" binding:"omitempty,min=1"`
	Mine            bool   `form:"mine"`
	Unassigned      bool   `form:"unassigned"`
	Keyword         string `form:"keyword"           binding:"omitempty,max=100"`
}

// TechRequestResponse 请求信息响应
type TechRequestResponse struct {
	ID                 int64         `json:"id"`
	FullName           string        `json:"full_name"`
	Phone              string        `json:"phone"`
	Email              string        `json:"email"`
	Address            string        `json:"address"`
	ProblemDescription string        `json:"problem_description"`
	UrgencyLevel       string        `json:"urgency_level"`
	Status             string        `json:"status"`
	Notes              *string       `json:"notes,omitempty"`
	ScheduledDate      *string       `json:"scheduled_date,omitempty"`
	ScheduledTime      *string       `json:"scheduled_time,omitempty"`
	AssignedAdminID    *int64        `json:"assigned_admin_id,omitempty"`
	AssignedAdmin      *AdminBrief   `json:"assigned_admin,omitempty"`
	BookedSlotID       *int64        `json:"booked_slot_id,omitempty"`
	BookedSlot         *SlotResponse `json:"booked_slot,omitempty"`
	CreatedAt          string        `json:"created_at"`
	UpdatedAt          string        `json:"updated_at"`
}

// SubmitTechRequestResponse 公开提交成功响应（不回显联系方式）
type SubmitTechRequestResponse struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// StatusUpdateResponse 状态/字段更新结果，附带时间段联动效果
type StatusUpdateResponse struct {
	Request    TechRequestResponse `json:"request"`
	SlotEffect string              `json:"slot_effect"` // none | released | deleted | cleanup_failed
}
