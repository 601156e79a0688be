package service

import (
	"errors"

	pkgerrors "tech-visit/backend/pkg/errors"
)

// ── 请求模块业务错误（20xxx）──

var (
	ErrRequestNotFound     = pkgerrors.New(pkgerrors.KindNotFound, 20001, "请求不存在")
	ErrRequestHasSlot      = pkgerrors.New(pkgerrors.KindConflict, 20002, "该请求已预约时间段")
	ErrRequestClosed       = pkgerrors.New(pkgerrors.KindConflict, 20003, "请求已完成或已取消")
	ErrInvalidTransition   = pkgerrors.New(pkgerrors.KindConflict, 20004, "状态流转不合法")
	ErrRequestTaken        = pkgerrors.New(pkgerrors.KindConflict, 20005, "请求已被其他管理员认领")
	ErrFieldsForbidden     = pkgerrors.New(pkgerrors.KindForbidden, 20006, "无权修改以下字段")
	ErrRequestForbidden    = pkgerrors.New(pkgerrors.KindForbidden, 20007, "无权操作该请求")
	ErrScheduleBoundToSlot = pkgerrors.New(pkgerrors.KindConflict, 20008, "请求已绑定时间段，请先释放后再修改排期")
	ErrAssigneeInvalid     = pkgerrors.New(pkgerrors.KindValidation, 20009, "指派的管理员不存在或已停用")
	ErrEmptyPatch          = pkgerrors.New(pkgerrors.KindValidation, 20010, "没有需要更新的字段")
	ErrInvalidRequestField = pkgerrors.New(pkgerrors.KindValidation, 20011, "字段取值不合法")
)

// ── 时间段模块业务错误（21xxx）──

var (
	ErrSlotNotFound      = pkgerrors.New(pkgerrors.KindNotFound, 21001, "时间段不存在")
	ErrSlotAlreadyBooked = pkgerrors.New(pkgerrors.KindConflict, 21002, "时间段已被预约")
	ErrSlotNotBooked     = pkgerrors.New(pkgerrors.KindConflict, 21003, "时间段当前未被预约")
	ErrSlotInUse         = pkgerrors.New(pkgerrors.KindConflict, 21004, "时间段已被预约，无法删除")
	ErrSlotExists        = pkgerrors.New(pkgerrors.KindConflict, 21005, "时间段已存在")
	ErrSlotInvalidRange  = pkgerrors.New(pkgerrors.KindValidation, 21006, "日期或时间格式错误，或结束时间不晚于开始时间")
	ErrSlotForbidden     = pkgerrors.New(pkgerrors.KindForbidden, 21007, "无权管理时间段")
	ErrBookingBusy       = pkgerrors.New(pkgerrors.KindConflict, 21008, "预约处理超时，请稍后重试")
	ErrSlotICSParse      = pkgerrors.New(pkgerrors.KindValidation, 21009, "ICS 文件解析失败")
	ErrSlotICSEmpty      = pkgerrors.New(pkgerrors.KindValidation, 21010, "ICS 中没有可导入的时间段")
	ErrSlotICSFetch      = pkgerrors.New(pkgerrors.KindValidation, 21011, "ICS URL 获取失败")
	ErrSlotICSTooLarge   = pkgerrors.New(pkgerrors.KindValidation, 21012, "ICS 文件超过 5MB")
)

// ── 管理员模块业务错误（22xxx）──

var (
	ErrAdminNotFound     = pkgerrors.New(pkgerrors.KindNotFound, 22001, "管理员不存在")
	ErrUsernameTaken     = pkgerrors.New(pkgerrors.KindConflict, 22002, "用户名已存在")
	ErrAdminHasRequests  = pkgerrors.New(pkgerrors.KindConflict, 22003, "该管理员仍有已分配的请求，无法停用")
	ErrAdminSelfDelete   = pkgerrors.New(pkgerrors.KindConflict, 22004, "不能停用自己的账号")
	ErrAdminForbidden    = pkgerrors.New(pkgerrors.KindForbidden, 22005, "无权管理管理员账号")
	ErrAdminInvalidInput = pkgerrors.New(pkgerrors.KindValidation, 22006, "管理员信息不合法")
)

// ── 认证模块错误：由处理器映射为 401 ──

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrAccountDisabled    = errors.New("账号已停用")
	ErrInvalidToken       = errors.New("Token 无效或已过期")
	ErrOldPasswordWrong   = pkgerrors.New(pkgerrors.KindValidation, 11004, "原密码错误")
)

// isBusinessError 是否为可预期的业务错误（无需记录 ERROR 日志）
func isBusinessError(err error) bool {
	_, ok := pkgerrors.As(err)
	return ok
}
