// Package policy 角色权限判定。
//
// 所有函数均为纯函数：不访问存储、不产生副作用，调用方负责传入当前主体与目标状态。
package policy

import "tech-visit/backend/internal/model"

// Principal 已认证的调用主体
type Principal struct {
	AdminID int64
	Role    string
}

// IsSystemAdmin 是否为系统管理员
func (p Principal) IsSystemAdmin() bool {
	return p.Role == model.RoleSystemAdmin
}

// 请求可编辑字段（与 JSON 字段名一致）
const (
	FieldFullName           = "full_name"
	FieldPhone              = "phone"
	FieldEmail              = "email"
	FieldAddress            = "address"
	FieldProblemDescription = "problem_description"
	FieldUrgencyLevel       = "urgency_level"
	FieldStatus             = "status"
	FieldNotes              = "notes"
	FieldScheduledDate      = "scheduled_date"
	FieldScheduledTime      = "scheduled_time"
	FieldAssignedAdminID    = "assigned_admin_id"
)

// volunteerFields 志愿者可修改的字段
var volunteerFields = map[string]bool{
	FieldStatus:        true,
	FieldNotes:         true,
	FieldScheduledDate: true,
	FieldScheduledTime: true,
}

// editableFields 系统管理员可修改的字段；id、booked_slot_id 等只能由预约流程维护
var editableFields = map[string]bool{
	FieldFullName:           true,
	FieldPhone:              true,
	FieldEmail:              true,
	FieldAddress:            true,
	FieldProblemDescription: true,
	FieldUrgencyLevel:       true,
	FieldStatus:             true,
	FieldNotes:              true,
	FieldScheduledDate:      true,
	FieldScheduledTime:      true,
	FieldAssignedAdminID:    true,
}

// CanEditField 角色能否修改指定字段
func CanEditField(role, field string) bool {
	switch role {
	case model.RoleSystemAdmin:
		return editableFields[field]
	case model.RoleVolunteer:
		return volunteerFields[field]
	default:
		return false
	}
}

// CanTake 能否认领请求
// 未分配 → 任何角色；系统管理员 → 总是（含改派）；志愿者 → 仅重复认领自己的请求
func CanTake(p Principal, assignedAdminID *int64) bool {
	if assignedAdminID == nil {
		return model.IsValidRole(p.Role)
	}
	switch p.Role {
	case model.RoleSystemAdmin:
		return true
	case model.RoleVolunteer:
		return *assignedAdminID == p.AdminID
	default:
		return false
	}
}

// CanReassign 能否将请求改派给他人
func CanReassign(role string) bool {
	return role == model.RoleSystemAdmin
}

// CanManageSlots 能否创建/删除时间段
func CanManageSlots(role string) bool {
	return role == model.RoleSystemAdmin
}

// CanManageAdmins 能否管理管理员账号
func CanManageAdmins(role string) bool {
	return role == model.RoleSystemAdmin
}

// CanDeleteRequest 能否硬删除请求
func CanDeleteRequest(role string) bool {
	return role == model.RoleSystemAdmin
}

// CanEditRequest 能否修改某个请求（字段级限制另见 CanEditField）
// 志愿者仅限未分配或分配给自己的请求
func CanEditRequest(p Principal, assignedAdminID *int64) bool {
	switch p.Role {
	case model.RoleSystemAdmin:
		return true
	case model.RoleVolunteer:
		return assignedAdminID == nil || *assignedAdminID == p.AdminID
	default:
		return false
	}
}

// DisallowedFields 返回补丁中调用方无权修改的字段（保持输入顺序）
// assignTo 为补丁中的 assigned_admin_id 值：志愿者仅可指派给自己
func DisallowedFields(p Principal, fields []string, assignTo *int64) []string {
	var denied []string
	for _, f := range fields {
		if CanEditField(p.Role, f) {
			continue
		}
		if f == FieldAssignedAdminID && p.Role == model.RoleVolunteer &&
			assignTo != nil && *assignTo == p.AdminID {
			continue
		}
		denied = append(denied, f)
	}
	return denied
}
