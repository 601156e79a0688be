package model

import "time"

// BaseModel 通用审计字段（业务模型嵌入）
// CreatedBy/UpdatedBy 为操作管理员 ID，公开提交的请求为空
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *int64    `json:"updated_by,omitempty"`
}
