package model

import "time"

// 管理员角色
const (
	RoleSystemAdmin = "SYSTEM_ADMIN"
	RoleVolunteer   = "VOLUNTEER"
)

// IsValidRole 角色取值校验
func IsValidRole(role string) bool {
	return role == RoleSystemAdmin || role == RoleVolunteer
}

// Admin 管理员/志愿者账号，对应 admins
// 只做软删除（is_active=false）
type Admin struct {
	ID           int64      `gorm:"primaryKey;autoIncrement"                json:"id"`
	Username     string     `gorm:"type:varchar(50);not null;uniqueIndex"   json:"username"`
	PasswordHash string     `gorm:"type:varchar(255);not null"              json:"-"`
	DisplayName  string     `gorm:"type:varchar(100);not null;default:''"   json:"display_name"`
	Email        *string    `gorm:"type:varchar(255)"                       json:"email,omitempty"`
	Role         string     `gorm:"type:varchar(20);not null;default:'VOLUNTEER'" json:"role"`
	IsActive     bool       `gorm:"not null;default:true"                   json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Admin) TableName() string { return "admins" }
