package dto

// ── 管理员模块 DTO ──

// CreateAdminRequest 创建管理员请求
type CreateAdminRequest struct {
	Username    string  `json:"username"     binding:"required,min=3,max=50,alphanum"`
	Password    string  `json:"password"     binding:"required,min=8,max=64"`
	DisplayName string  `json:"display_name" binding:"omitempty,max=100"`
	Email       *string `json:"email"        binding:"omitempty,email"`
	Role        string  `json:"role"         binding:"required,oneof=SYSTEM_ADMIN VOLUNTEER"`
}

// UpdateAdminRequest 更新管理员请求
type UpdateAdminRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=100"`
	Email       *string `json:"email"        binding:"omitempty,email"`
	Role        *string `json:"role"         binding:"omitempty,oneof=SYSTEM_ADMIN VOLUNTEER"`
	IsActive    *bool   `json:"is_active"`
}

// AdminListRequest 管理员列表查询参数
type AdminListRequest struct {
	PaginationRequest
	Role       string `form:"role"        binding:"omitempty,oneof=SYSTEM_ADMIN VOLUNTEER"`
	ActiveOnly bool   `form:"active_only"`
	Keyword    string `form:"keyword"     binding:"omitempty,max=50"`
}
